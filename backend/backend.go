// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package backend provides the value types, the sparse matrix storage and
// the vector operations that relaxation schemes are built on.
package backend

import (
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// Kind selects how vector and matrix operations are executed.
type Kind int

const (
	// Builtin executes every operation sequentially in the calling
	// goroutine. Algorithms with a sequential dependence between rows,
	// like forward and backward substitution, are only available on
	// Builtin.
	Builtin Kind = iota

	// Parallel splits row-independent operations over several
	// goroutines.
	Parallel
)

func (k Kind) String() string {
	switch k {
	case Builtin:
		return "builtin"
	case Parallel:
		return "parallel"
	}
	return "unknown"
}

// Params holds backend parameters.
type Params struct {
	Kind Kind

	// Workers is the number of goroutines used by the Parallel backend.
	// If it is zero, runtime.GOMAXPROCS(0) will be used.
	Workers int
}

// Backend performs vector operations on values of type T with the
// arithmetic defined by F.
type Backend[T any, F Field[T]] struct {
	Params

	f F
}

// New returns a Backend for the given parameters.
func New[T any, F Field[T]](prm Params) Backend[T, F] {
	if prm.Workers < 0 {
		panic("backend: negative number of workers")
	}
	return Backend[T, F]{Params: prm}
}

// Serial reports whether the backend executes sequentially.
func (b Backend[T, F]) Serial() bool { return b.Kind == Builtin }

func (b Backend[T, F]) workers(n int) int {
	if b.Kind == Builtin {
		return 1
	}
	w := b.Workers
	if w == 0 {
		w = runtime.GOMAXPROCS(0)
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// For calls fn on disjoint contiguous subranges [lo, hi) covering [0, n).
// Builtin makes a single call. Parallel makes one call per worker, each in
// its own goroutine, and returns after all of them have returned.
func (b Backend[T, F]) For(n int, fn func(lo, hi int)) {
	w := b.workers(n)
	if w == 1 {
		fn(0, n)
		return
	}
	chunk := (n + w - 1) / w
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}

// Copy copies src into dst.
func (b Backend[T, F]) Copy(src, dst []T) {
	if len(src) != len(dst) {
		panic("backend: mismatched vector length")
	}
	b.For(len(dst), func(lo, hi int) {
		copy(dst[lo:hi], src[lo:hi])
	})
}

// MulVec computes y = A*x.
func (b Backend[T, F]) MulVec(a *CSR[T], x, y []T) {
	if len(x) != a.N || len(y) != a.N {
		panic("backend: mismatched vector length")
	}
	b.For(a.N, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			var sum T
			for j := a.Ptr[i]; j < a.Ptr[i+1]; j++ {
				sum = b.f.Add(sum, b.f.Mul(a.Val[j], x[a.Col[j]]))
			}
			y[i] = sum
		}
	})
}

// Residual computes r = rhs - A*x.
func (b Backend[T, F]) Residual(rhs []T, a *CSR[T], x, r []T) {
	if len(rhs) != a.N || len(x) != a.N || len(r) != a.N {
		panic("backend: mismatched vector length")
	}
	b.For(a.N, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			ri := rhs[i]
			for j := a.Ptr[i]; j < a.Ptr[i+1]; j++ {
				ri = b.f.Sub(ri, b.f.Mul(a.Val[j], x[a.Col[j]]))
			}
			r[i] = ri
		}
	})
}

// Axpby computes y = alpha*x + beta*y. If beta is zero, y is not read.
func (b Backend[T, F]) Axpby(alpha float64, x []T, beta float64, y []T) {
	if len(x) != len(y) {
		panic("backend: mismatched vector length")
	}
	if xs, ok := any(x).([]float64); ok {
		ys := any(y).([]float64)
		b.For(len(ys), func(lo, hi int) {
			if beta == 0 {
				floats.ScaleTo(ys[lo:hi], alpha, xs[lo:hi])
				return
			}
			floats.Scale(beta, ys[lo:hi])
			floats.AddScaled(ys[lo:hi], alpha, xs[lo:hi])
		})
		return
	}
	b.For(len(y), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if beta == 0 {
				y[i] = b.f.Scale(x[i], alpha)
				continue
			}
			y[i] = b.f.Add(b.f.Scale(x[i], alpha), b.f.Scale(y[i], beta))
		}
	})
}
