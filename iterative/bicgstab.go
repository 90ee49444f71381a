// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	errRhoBreakdown   = errors.New("iterative: rho breakdown")
	errOmegaBreakdown = errors.New("iterative: omega breakdown")
)

// States of the BiCGSTAB iteration. Zero means that Init has not been
// called or the iteration has finished.
const (
	bicgstabDirection = iota + 1 // Update p and precondition it.
	bicgstabMulP                 // v = A p^.
	bicgstabHalfStep             // Advance r to s and check it.
	bicgstabPrecondS             // Precondition s unless converged.
	bicgstabMulS                 // t = A s^.
	bicgstabFullStep             // Stabilize, advance x and r and check r.
	bicgstabEnd                  // Finish the iteration.
)

// BiCGSTAB implements the BiConjugate Gradient STABilized iterative method with
// preconditioning for solving the system of linear equations
//  Ax = b,
// where A is a non-symmetric matrix. For symmetric positive definite systems
// use CG.
//
// BiCGSTAB needs MatVec and PSolve matrix operations. Each iteration does
// two of each.
type BiCGSTAB struct {
	state int
	first bool

	rho, rhoPrev float64
	alpha, omega float64

	rhat []float64 // Shadow residual, fixed to the initial residual.
	p    []float64
	phat []float64 // M^{-1} p.
	v    []float64 // A p^.
	shat []float64 // M^{-1} s.
	t    []float64 // A s^.
}

// Init implements the Method interface.
func (b *BiCGSTAB) Init(dim int) {
	if dim <= 0 {
		panic("iterative: dimension not positive")
	}

	b.rhat = reuse(b.rhat, dim)
	b.p = reuse(b.p, dim)
	b.phat = reuse(b.phat, dim)
	b.v = reuse(b.v, dim)
	b.shat = reuse(b.shat, dim)
	b.t = reuse(b.t, dim)
	b.first = true
	b.state = bicgstabDirection
}

// Iterate implements the Method interface.
//
// The intermediate vector s of the method is kept in ctx.Residual, which
// therefore holds s between the half step and the full step.
func (b *BiCGSTAB) Iterate(ctx *Context) (Operation, error) {
	r := ctx.Residual
	switch b.state {
	case bicgstabDirection:
		if b.first {
			copy(b.rhat, r)
		}
		b.rho = floats.Dot(b.rhat, r)
		if math.Abs(b.rho) < dlamchE*dlamchE {
			b.state = 0
			return NoOperation, errRhoBreakdown
		}
		if b.first {
			copy(b.p, r)
		} else {
			// p = r + β (p - ω v)
			beta := (b.rho / b.rhoPrev) * (b.alpha / b.omega)
			floats.AddScaled(b.p, -b.omega, b.v)
			floats.AddScaledTo(b.p, r, beta, b.p)
		}
		ctx.Src, ctx.Dst = b.p, b.phat
		b.state = bicgstabMulP
		return PSolve, nil

	case bicgstabMulP:
		ctx.Src, ctx.Dst = b.phat, b.v
		b.state = bicgstabHalfStep
		return MatVec, nil

	case bicgstabHalfStep:
		b.alpha = b.rho / floats.Dot(b.rhat, b.v)
		floats.AddScaled(r, -b.alpha, b.v) // s = r - α v
		ctx.Src, ctx.Dst = nil, nil
		ctx.ResidualNorm = floats.Norm(r, 2)
		ctx.Converged = false
		b.state = bicgstabPrecondS
		return CheckResidualNorm, nil

	case bicgstabPrecondS:
		if ctx.Converged {
			floats.AddScaled(ctx.X, b.alpha, b.phat)
			b.state = 0
			return EndIteration, nil
		}
		ctx.Src, ctx.Dst = r, b.shat
		b.state = bicgstabMulS
		return PSolve, nil

	case bicgstabMulS:
		ctx.Src, ctx.Dst = b.shat, b.t
		b.state = bicgstabFullStep
		return MatVec, nil

	case bicgstabFullStep:
		b.omega = floats.Dot(b.t, r) / floats.Dot(b.t, b.t)
		floats.AddScaled(ctx.X, b.alpha, b.phat)
		floats.AddScaled(ctx.X, b.omega, b.shat)
		floats.AddScaled(r, -b.omega, b.t)
		ctx.Src, ctx.Dst = nil, nil
		ctx.ResidualNorm = floats.Norm(r, 2)
		ctx.Converged = false
		b.state = bicgstabEnd
		return CheckResidualNorm, nil

	case bicgstabEnd:
		if ctx.Converged {
			b.state = 0
			return EndIteration, nil
		}
		if math.Abs(b.omega) < dlamchE*dlamchE {
			b.state = 0
			return NoOperation, errOmegaBreakdown
		}
		b.rhoPrev = b.rho
		b.first = false
		b.state = bicgstabDirection
		return EndIteration, nil

	default:
		panic("iterative: BiCGSTAB.Init not called")
	}
}
