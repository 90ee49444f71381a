// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command ilusolve solves a sparse linear system read from a MatrixMarket
// file with a Krylov method preconditioned by ILU(0).
//
// Usage:
//
//	ilusolve -matrix A.mtx [-rhs b.mtx] [-params prm.yaml] [-solver cg|bicgstab]
//	         [-backend builtin|parallel] [-workers N] [-tol 1e-8] [-maxiter N]
//	         [-dump DIR] [-plot residuals.png]
//
// Without -rhs the right-hand side is A times the vector of ones, and the
// error of the computed solution against that vector is reported.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/feiyunwill/amgcl/backend"
	"github.com/feiyunwill/amgcl/internal/market"
	"github.com/feiyunwill/amgcl/internal/triplet"
	"github.com/feiyunwill/amgcl/iterative"
	"github.com/feiyunwill/amgcl/relaxation"
)

func main() {
	var (
		matrixFile = flag.String("matrix", "", "system matrix in MatrixMarket coordinate format (required)")
		rhsFile    = flag.String("rhs", "", "right-hand side in MatrixMarket array format")
		paramsFile = flag.String("params", "", "YAML or JSON file with ILU(0) parameters")
		solver     = flag.String("solver", "bicgstab", "Krylov method: cg or bicgstab")
		kind       = flag.String("backend", "builtin", "backend: builtin or parallel")
		workers    = flag.Int("workers", 0, "number of goroutines of the parallel backend (0 means GOMAXPROCS)")
		tol        = flag.Float64("tol", 1e-8, "relative residual tolerance")
		maxIter    = flag.Int("maxiter", 0, "iteration limit (0 means twice the dimension)")
		dumpDir    = flag.String("dump", "", "directory to write the ILU(0) factors to")
		plotFile   = flag.String("plot", "", "PNG, SVG or PDF file to plot the residual history to")
	)
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("ilusolve: ")

	if *matrixFile == "" {
		flag.Usage()
		os.Exit(2)
	}

	var method iterative.Method
	switch *solver {
	case "cg":
		method = &iterative.CG{}
	case "bicgstab":
		method = &iterative.BiCGSTAB{}
	default:
		log.Fatalf("unknown solver %q", *solver)
	}

	bprm := backend.Params{Workers: *workers}
	switch *kind {
	case "builtin":
		bprm.Kind = backend.Builtin
	case "parallel":
		bprm.Kind = backend.Parallel
	default:
		log.Fatalf("unknown backend %q", *kind)
	}

	prm := relaxation.DefaultParams()
	if *paramsFile != "" {
		f, err := os.Open(*paramsFile)
		if err != nil {
			log.Fatal(err)
		}
		prm, err = relaxation.ParseParams(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
	}

	a, err := readMatrix(*matrixFile)
	if err != nil {
		log.Fatal(err)
	}
	be := backend.New[float64, backend.Float64](bprm)

	var ones []float64
	var b []float64
	if *rhsFile != "" {
		b, err = readVector(*rhsFile)
		if err != nil {
			log.Fatal(err)
		}
		if len(b) != a.N {
			log.Fatalf("right-hand side has length %d, matrix is %d×%d", len(b), a.N, a.N)
		}
	} else {
		ones = make([]float64, a.N)
		for i := range ones {
			ones[i] = 1
		}
		b = make([]float64, a.N)
		be.MulVec(a, ones, b)
	}
	log.Printf("matrix %s: n=%d nnz=%d", *matrixFile, a.N, a.NNZ())

	start := time.Now()
	prec, err := relaxation.New[float64, backend.Float64](a, prm, bprm)
	if err != nil {
		log.Fatal(err)
	}
	setup := time.Since(start)
	log.Printf("ILU(0): damping=%v jacobi_iters=%d backend=%v serial=%v", prm.Damping, prm.JacobiIters, bprm.Kind, prec.Serial())

	if *dumpDir != "" {
		if err := prec.WriteFactors(*dumpDir); err != nil {
			log.Fatal(err)
		}
		log.Printf("factors written to %s", *dumpDir)
	}

	var history []float64
	settings := iterative.Settings{
		Tolerance:     *tol,
		MaxIterations: *maxIter,
		Precond:       prec,
	}
	if *plotFile != "" {
		settings.Progress = func(s iterative.Stats) {
			history = append(history, s.ResidualNorm)
		}
	}
	res, err := iterative.LinearSolve(iterative.CSROperator(a, be), b, method, settings)
	switch {
	case errors.Is(err, iterative.ErrIterationLimit):
		log.Print(err)
	case err != nil:
		log.Fatal(err)
	}

	bnorm := floats.Norm(b, 2)
	if bnorm == 0 {
		bnorm = 1
	}
	fmt.Printf("Iterations: %d\n", res.Stats.Iterations)
	fmt.Printf("Error:      %.6e\n", res.Stats.ResidualNorm/bnorm)
	fmt.Printf("Setup:      %v\n", setup)
	fmt.Printf("Solve:      %v\n", res.Stats.Runtime)
	if ones != nil {
		fmt.Printf("|x - 1|:    %.6e\n", floats.Distance(res.X, ones, math.Inf(1)))
	}

	if *plotFile != "" {
		if err := plotHistory(*plotFile, *solver, history, bnorm); err != nil {
			log.Fatal(err)
		}
	}
}

func readMatrix(name string) (*backend.CSR[float64], error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := market.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return triplet.CSR[float64, backend.Float64](m), nil
}

func readVector(name string) ([]float64, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	v, err := market.ReadVector(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}
