// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package relaxation provides smoothers and preconditioners based on
// incomplete factorizations of sparse matrices.
package relaxation

import "github.com/feiyunwill/amgcl/backend"

// ILU0 is an incomplete LU factorization with zero fill-in of a sparse
// matrix A,
//  A ≈ (I + L) (D^{-1} + U),
// where L is strictly lower triangular, U is strictly upper triangular and
// D is diagonal. The union of the patterns of L, U and the diagonal is
// exactly the pattern of A.
//
// ILU0 can be used as a smoother through PreSmooth and PostSmooth, and as a
// preconditioner through Apply. On the Builtin backend the triangular
// systems are solved exactly by substitution and an ILU0 value may be used
// concurrently. On other backends each triangular solve is approximated by
// a fixed number of Jacobi sweeps whose rows are processed in parallel;
// concurrent calls on the same value are then serialized.
type ILU0[T any, F backend.Field[T]] struct {
	f   F
	be  backend.Backend[T, F]
	prm Params

	l, u *backend.CSR[T]
	d    []T // Inverted pivots.

	solver triSolver[T]
}

// New computes the ILU(0) factorization of a. The columns of every row of a
// must be strictly ascending and every row must store its diagonal entry.
//
// If a row has no diagonal entry or a pivot is zero, New returns a
// *FactorError wrapping ErrMissingDiagonal or ErrZeroPivot respectively.
func New[T any, F backend.Field[T]](a *backend.CSR[T], prm Params, bprm backend.Params) (*ILU0[T, F], error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if err := prm.Validate(); err != nil {
		return nil, err
	}

	p := &ILU0[T, F]{
		be:  backend.New[T, F](bprm),
		prm: prm,
	}
	var err error
	p.l, p.u, p.d, err = factorize[T](p.f, a)
	if err != nil {
		return nil, err
	}

	if p.be.Serial() {
		p.solver = &serialSolver[T, F]{l: p.l, u: p.u, d: p.d}
	} else {
		p.solver = &jacobiSolver[T, F]{
			be:    p.be,
			l:     p.l,
			u:     p.u,
			d:     p.d,
			iters: prm.JacobiIters,
			t1:    make([]T, a.N),
			t2:    make([]T, a.N),
		}
	}
	return p, nil
}

// factorize performs the IKJ variant of Gaussian elimination restricted to
// the pattern of a.
func factorize[T any, F backend.Field[T]](f F, a *backend.CSR[T]) (l, u *backend.CSR[T], d []T, err error) {
	n := a.N

	var lnz, unz int
	for i := 0; i < n; i++ {
		for _, c := range a.Col[a.Ptr[i]:a.Ptr[i+1]] {
			if c < i {
				lnz++
			} else if c > i {
				unz++
			}
		}
	}

	l = backend.NewCSR[T](n, lnz)
	u = backend.NewCSR[T](n, unz)
	d = make([]T, n)

	// work[c] points at the entry of the current row in column c, if
	// the pattern has one. L, U and D are never reallocated below.
	work := make([]*T, n)

	var lhead, uhead int
	for i := 0; i < n; i++ {
		beg, end := a.Ptr[i], a.Ptr[i+1]

		for j := beg; j < end; j++ {
			c, v := a.Col[j], a.Val[j]
			switch {
			case c < i:
				l.Col[lhead] = c
				l.Val[lhead] = v
				work[c] = &l.Val[lhead]
				lhead++
			case c == i:
				d[i] = v
				work[c] = &d[i]
			default:
				u.Col[uhead] = c
				u.Val[uhead] = v
				work[c] = &u.Val[uhead]
				uhead++
			}
		}
		l.Ptr[i+1] = lhead
		u.Ptr[i+1] = uhead

		diag := false
		for j := beg; j < end; j++ {
			c := a.Col[j]
			if c >= i {
				if c != i {
					break
				}
				if !f.Invertible(d[i]) {
					return nil, nil, nil, &FactorError{Row: i, Err: ErrZeroPivot}
				}
				d[i] = f.Inverse(d[i])
				diag = true
				break
			}

			// Multiplier for row c.
			tl := f.Mul(*work[c], d[c])
			*work[c] = tl

			// Entries outside the pattern of row i are dropped.
			for k := u.Ptr[c]; k < u.Ptr[c+1]; k++ {
				if w := work[u.Col[k]]; w != nil {
					*w = f.Sub(*w, f.Mul(tl, u.Val[k]))
				}
			}
		}
		if !diag {
			return nil, nil, nil, &FactorError{Row: i, Err: ErrMissingDiagonal}
		}

		for _, c := range a.Col[beg:end] {
			work[c] = nil
		}
	}
	return l, u, d, nil
}

// Size returns the dimension of the factorized matrix.
func (p *ILU0[T, F]) Size() int { return len(p.d) }

// L returns the strictly lower triangular factor. It must not be modified.
func (p *ILU0[T, F]) L() *backend.CSR[T] { return p.l }

// U returns the strictly upper triangular factor. It must not be modified.
func (p *ILU0[T, F]) U() *backend.CSR[T] { return p.u }

// D returns the inverted pivots. It must not be modified.
func (p *ILU0[T, F]) D() []T { return p.d }

// Params returns the parameters p was built with.
func (p *ILU0[T, F]) Params() Params { return p.prm }

// Serial reports whether the triangular systems are solved exactly by
// substitution.
func (p *ILU0[T, F]) Serial() bool { return p.be.Serial() }

// PreSmooth performs one relaxation step on x for the system a*x = rhs:
//  x += ω M^{-1} (rhs - a*x),
// where M is the incomplete factorization. tmp is used as scratch space.
// The matrix a must be the one the factorization was computed from.
func (p *ILU0[T, F]) PreSmooth(a *backend.CSR[T], rhs, x, tmp []T) {
	p.smooth(a, rhs, x, tmp)
}

// PostSmooth performs the same relaxation step as PreSmooth.
func (p *ILU0[T, F]) PostSmooth(a *backend.CSR[T], rhs, x, tmp []T) {
	p.smooth(a, rhs, x, tmp)
}

func (p *ILU0[T, F]) smooth(a *backend.CSR[T], rhs, x, tmp []T) {
	n := len(p.d)
	if a.N != n || len(rhs) != n || len(x) != n || len(tmp) != n {
		panic("relaxation: mismatched dimension")
	}
	p.be.Residual(rhs, a, x, tmp)
	p.solver.solve(tmp)
	p.be.Axpby(p.prm.Damping, tmp, 1, x)
}

// Apply stores M^{-1} rhs into x, where M is the incomplete factorization.
// Damping is not applied.
func (p *ILU0[T, F]) Apply(rhs, x []T) {
	n := len(p.d)
	if len(rhs) != n || len(x) != n {
		panic("relaxation: mismatched dimension")
	}
	p.be.Copy(rhs, x)
	p.solver.solve(x)
}
