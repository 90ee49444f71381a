// Copyright ©2016 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package iterative provides preconditioned Krylov methods for solving
// sparse linear systems
//  A x = b.
// The methods never touch A or the preconditioner M themselves. They
// command the driver, LinearSolve, to multiply by A and to apply M^{-1},
// so any Operator and Preconditioner can be combined with any Method.
package iterative

// Operation is a request from a Method to its driver.
type Operation uint64

const (
	NoOperation Operation = 0

	// MatVec asks for Context.Dst = A * Context.Src.
	MatVec Operation = 1 << (iota - 1)

	// PSolve asks for Context.Dst = M^{-1} Context.Src.
	PSolve

	// ComputeResidual asks for Context.Residual = b - A * Context.X.
	ComputeResidual

	// CheckResidualNorm asks the driver to test Context.ResidualNorm
	// against the stopping criterion and to record the outcome in
	// Context.Converged.
	CheckResidualNorm

	// EndIteration marks the end of one iteration. If Context.Converged
	// is set the solve is over and the Method must be initialized again
	// before further use.
	EndIteration
)

// Method is a Krylov method driven by reverse communication: each call to
// Iterate advances the method to the point where it needs an Operation
// from the driver, and returns it.
type Method interface {
	// Init prepares the method for a system of dimension dim.
	Init(dim int)

	// Iterate advances the method and returns the next Operation. The
	// driver performs it on the vectors in the Context and calls
	// Iterate again.
	Iterate(*Context) (Operation, error)
}

// Context holds the vectors exchanged between a Method and its driver.
// Outside of the commanded Operations it belongs to the Method.
type Context struct {
	// X is the current approximation. It holds the initial guess on
	// the first call to Iterate.
	X []float64

	// Residual is b - A X. It holds the initial residual on the first
	// call to Iterate.
	Residual []float64

	// ResidualNorm is the 2-norm of the residual, set by the Method
	// before CheckResidualNorm.
	ResidualNorm float64

	// Converged is set by the driver in response to CheckResidualNorm.
	Converged bool

	// Src and Dst are the operands of MatVec and PSolve.
	Src, Dst []float64
}

func reuse(v []float64, n int) []float64 {
	if cap(v) < n {
		return make([]float64, n)
	}
	return v[:n]
}

const dlamchE = 1.0 / (1 << 53)
