// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package relaxation

import (
	"sync"

	"github.com/feiyunwill/amgcl/backend"
)

// triSolver solves (I + L) (D^{-1} + U) y = x in place.
type triSolver[T any] interface {
	solve(x []T)
}

// serialSolver solves the triangular systems exactly by forward and
// backward substitution.
type serialSolver[T any, F backend.Field[T]] struct {
	f    F
	l, u *backend.CSR[T]
	d    []T
}

func (s *serialSolver[T, F]) solve(x []T) {
	f := s.f
	l, u := s.l, s.u
	n := len(s.d)

	for i := 0; i < n; i++ {
		xi := x[i]
		for j := l.Ptr[i]; j < l.Ptr[i+1]; j++ {
			xi = f.Sub(xi, f.Mul(l.Val[j], x[l.Col[j]]))
		}
		x[i] = xi
	}

	for i := n - 1; i >= 0; i-- {
		xi := x[i]
		for j := u.Ptr[i]; j < u.Ptr[i+1]; j++ {
			xi = f.Sub(xi, f.Mul(u.Val[j], x[u.Col[j]]))
		}
		x[i] = f.Mul(s.d[i], xi)
	}
}

// jacobiSolver approximates each triangular solve by a fixed number of
// Jacobi sweeps. The rows of a sweep are independent and are distributed by
// the backend.
type jacobiSolver[T any, F backend.Field[T]] struct {
	f     F
	be    backend.Backend[T, F]
	l, u  *backend.CSR[T]
	d     []T
	iters int

	mu     sync.Mutex // Guards t1 and t2.
	t1, t2 []T
}

func (s *jacobiSolver[T, F]) solve(x []T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.f
	l, u, d := s.l, s.u, s.d
	n := len(d)

	// (I + L) y = x.
	t1, t2 := s.t1, s.t2
	s.be.Copy(x, t1)
	for k := 0; k < s.iters; k++ {
		s.be.For(n, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				ti := x[i]
				for j := l.Ptr[i]; j < l.Ptr[i+1]; j++ {
					ti = f.Sub(ti, f.Mul(l.Val[j], t1[l.Col[j]]))
				}
				t2[i] = ti
			}
		})
		t1, t2 = t2, t1
	}
	s.be.Copy(t1, x)

	// (D^{-1} + U) z = y.
	for k := 0; k < s.iters; k++ {
		s.be.For(n, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				ti := x[i]
				for j := u.Ptr[i]; j < u.Ptr[i+1]; j++ {
					ti = f.Sub(ti, f.Mul(u.Val[j], t1[u.Col[j]]))
				}
				t2[i] = f.Mul(d[i], ti)
			}
		})
		t1, t2 = t2, t1
	}
	s.be.Copy(t1, x)
}
