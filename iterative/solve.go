// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package iterative

import (
	"errors"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/feiyunwill/amgcl/backend"
)

// ErrIterationLimit is returned by LinearSolve when the method did not
// converge within Settings.MaxIterations.
var ErrIterationLimit = errors.New("iterative: iteration limit reached")

// Operator is the system matrix A, seen through its action on vectors.
type Operator interface {
	// MulVec stores A x into dst.
	MulVec(dst, x []float64)
}

// OperatorFunc adapts a function to the Operator interface.
type OperatorFunc func(dst, x []float64)

func (f OperatorFunc) MulVec(dst, x []float64) { f(dst, x) }

// CSROperator returns the Operator that multiplies by a on be.
func CSROperator(a *backend.CSR[float64], be backend.Backend[float64, backend.Float64]) Operator {
	return OperatorFunc(func(dst, x []float64) { be.MulVec(a, x, dst) })
}

// Preconditioner applies the inverse of a preconditioning matrix M,
//  x = M^{-1} rhs.
type Preconditioner interface {
	Apply(rhs, x []float64)
}

// Settings configures LinearSolve. The zero value of each field selects
// its default.
type Settings struct {
	// X0 is the initial guess. If it is nil the zero vector is used,
	// otherwise its length must be the dimension of the system.
	X0 []float64

	// Tolerance is the relative residual at which the solve stops,
	//  |b - A x| < Tolerance * |b|.
	// It must lie in (ε, 1). The default is 1e-8.
	Tolerance float64

	// MaxIterations limits the number of iterations. The default is
	// twice the dimension of the system.
	MaxIterations int

	// Precond is the preconditioner M. If it is nil, M is the identity.
	Precond Preconditioner

	// Progress, if not nil, is called at the end of every iteration with
	// the statistics gathered so far.
	Progress func(Stats)
}

func defaultSettings(s *Settings, dim int) {
	if s.Tolerance == 0 {
		s.Tolerance = 1e-8
	}
	if s.MaxIterations == 0 {
		s.MaxIterations = 2 * dim
	}
}

// Result is the outcome of LinearSolve.
type Result struct {
	X     []float64 // Approximate solution.
	Stats Stats
}

// Stats describes the work done by LinearSolve.
type Stats struct {
	Iterations   int     // Completed iterations.
	MatVec       int     // Products with A, residual computations included.
	PSolve       int     // Applications of a non-nil Precond.
	ResidualNorm float64 // Norm of the last residual.

	StartTime time.Time
	Runtime   time.Duration
}

// LinearSolve solves A x = b with method, preconditioned by
// settings.Precond. The dimension of the system is len(b).
//
// If the method does not converge within settings.MaxIterations,
// LinearSolve returns the last approximation together with
// ErrIterationLimit. Breakdown of the method is reported with the error
// the method returned.
func LinearSolve(a Operator, b []float64, method Method, settings Settings) (Result, error) {
	stats := Stats{StartTime: time.Now()}

	if a == nil {
		panic("iterative: nil operator")
	}
	dim := len(b)
	if settings.X0 != nil && len(settings.X0) != dim {
		panic("iterative: mismatched length of initial guess")
	}
	if dim == 0 {
		return Result{Stats: stats}, nil
	}

	defaultSettings(&settings, dim)
	if settings.Tolerance < dlamchE || 1 <= settings.Tolerance {
		panic("iterative: invalid tolerance")
	}

	ctx := &Context{
		X:        make([]float64, dim),
		Residual: make([]float64, dim),
	}
	copy(ctx.Residual, b)
	if settings.X0 != nil {
		copy(ctx.X, settings.X0)
		residual(a, b, ctx, &stats)
	}

	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		bnorm = 1
	}
	ctx.ResidualNorm = floats.Norm(ctx.Residual, 2)
	stats.ResidualNorm = ctx.ResidualNorm

	var err error
	if ctx.ResidualNorm >= settings.Tolerance*bnorm {
		err = iterate(a, b, bnorm, ctx, settings, method, &stats)
	}
	stats.Runtime = time.Since(stats.StartTime)
	return Result{X: ctx.X, Stats: stats}, err
}

// residual stores b - A X into ctx.Residual.
func residual(a Operator, b []float64, ctx *Context, stats *Stats) {
	a.MulVec(ctx.Residual, ctx.X)
	stats.MatVec++
	floats.AddScaledTo(ctx.Residual, b, -1, ctx.Residual)
}

func iterate(a Operator, b []float64, bnorm float64, ctx *Context, settings Settings, method Method, stats *Stats) error {
	method.Init(len(ctx.X))

	for {
		op, err := method.Iterate(ctx)
		if err != nil {
			return err
		}

		switch op {
		case NoOperation:

		case ComputeResidual:
			residual(a, b, ctx, stats)

		case MatVec:
			a.MulVec(ctx.Dst, ctx.Src)
			stats.MatVec++

		case PSolve:
			if settings.Precond == nil {
				copy(ctx.Dst, ctx.Src)
				continue
			}
			settings.Precond.Apply(ctx.Src, ctx.Dst)
			stats.PSolve++

		case CheckResidualNorm:
			ctx.Converged = ctx.ResidualNorm < settings.Tolerance*bnorm

		case EndIteration:
			stats.Iterations++
			stats.ResidualNorm = ctx.ResidualNorm
			if settings.Progress != nil {
				stats.Runtime = time.Since(stats.StartTime)
				settings.Progress(*stats)
			}
			if ctx.Converged {
				return nil
			}
			if stats.Iterations == settings.MaxIterations {
				return ErrIterationLimit
			}

		default:
			panic("iterative: invalid operation")
		}
	}
}
