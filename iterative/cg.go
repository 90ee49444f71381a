// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import "gonum.org/v1/gonum/floats"

// States of the CG iteration. Zero means that Init has not been called or
// the iteration has finished.
const (
	cgPrecond   = iota + 1 // z = M^{-1} r.
	cgDirection            // Update p and request A p.
	cgStep                 // Advance x and r and check r.
	cgEnd                  // Finish the iteration.
)

// CG implements the preconditioned Conjugate Gradient method for
//  A x = b,
// where A is symmetric positive definite. The preconditioner must be
// symmetric positive definite as well. Each iteration does one MatVec and
// one PSolve.
type CG struct {
	state int
	first bool

	rho, rhoPrev float64

	z  []float64 // M^{-1} r.
	p  []float64
	ap []float64 // A p.
}

// Init implements the Method interface.
func (cg *CG) Init(dim int) {
	if dim <= 0 {
		panic("iterative: dimension not positive")
	}

	cg.z = reuse(cg.z, dim)
	cg.p = reuse(cg.p, dim)
	cg.ap = reuse(cg.ap, dim)
	cg.first = true
	cg.state = cgPrecond
}

// Iterate implements the Method interface.
func (cg *CG) Iterate(ctx *Context) (Operation, error) {
	r := ctx.Residual
	switch cg.state {
	case cgPrecond:
		ctx.Src, ctx.Dst = r, cg.z
		cg.state = cgDirection
		return PSolve, nil

	case cgDirection:
		cg.rho = floats.Dot(r, cg.z)
		if cg.first {
			copy(cg.p, cg.z)
		} else {
			// p = z + (ρ / ρ_prev) p
			floats.AddScaledTo(cg.p, cg.z, cg.rho/cg.rhoPrev, cg.p)
		}
		ctx.Src, ctx.Dst = cg.p, cg.ap
		cg.state = cgStep
		return MatVec, nil

	case cgStep:
		alpha := cg.rho / floats.Dot(cg.p, cg.ap)
		floats.AddScaled(ctx.X, alpha, cg.p)
		floats.AddScaled(r, -alpha, cg.ap)
		ctx.Src, ctx.Dst = nil, nil
		ctx.ResidualNorm = floats.Norm(r, 2)
		ctx.Converged = false
		cg.state = cgEnd
		return CheckResidualNorm, nil

	case cgEnd:
		if ctx.Converged {
			cg.state = 0
			return EndIteration, nil
		}
		cg.rhoPrev = cg.rho
		cg.first = false
		cg.state = cgPrecond
		return EndIteration, nil

	default:
		panic("iterative: CG.Init not called")
	}
}
