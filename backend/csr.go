// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package backend

import (
	"errors"
	"fmt"
)

// ErrMalformed is returned when a CSR matrix violates its structural
// invariants.
var ErrMalformed = errors.New("backend: malformed CSR matrix")

// CSR is a square N×N sparse matrix in compressed row storage. The column
// indices of row i are Col[Ptr[i]:Ptr[i+1]] in strictly ascending order and
// Val holds the corresponding values.
type CSR[T any] struct {
	N   int
	Ptr []int
	Col []int
	Val []T
}

// NewCSR returns an n×n matrix with room for exactly nnz entries. All row
// pointers are zero; the caller fills Ptr[1:], Col and Val.
func NewCSR[T any](n, nnz int) *CSR[T] {
	if n < 0 || nnz < 0 {
		panic("backend: negative dimension")
	}
	return &CSR[T]{
		N:   n,
		Ptr: make([]int, n+1),
		Col: make([]int, nnz),
		Val: make([]T, nnz),
	}
}

// Dims returns the dimensions of the matrix.
func (m *CSR[T]) Dims() (r, c int) { return m.N, m.N }

// NNZ returns the number of stored entries.
func (m *CSR[T]) NNZ() int { return m.Ptr[m.N] }

// Row returns the column indices and values stored in row i. The returned
// slices alias the matrix storage.
func (m *CSR[T]) Row(i int) (cols []int, vals []T) {
	beg, end := m.Ptr[i], m.Ptr[i+1]
	return m.Col[beg:end], m.Val[beg:end]
}

// Validate checks the structural invariants of m. The returned error wraps
// ErrMalformed.
func (m *CSR[T]) Validate() error {
	n := m.N
	switch {
	case n < 0:
		return fmt.Errorf("%w: negative dimension %d", ErrMalformed, n)
	case len(m.Ptr) != n+1:
		return fmt.Errorf("%w: len(Ptr)=%d, want %d", ErrMalformed, len(m.Ptr), n+1)
	case m.Ptr[0] != 0:
		return fmt.Errorf("%w: Ptr[0]=%d, want 0", ErrMalformed, m.Ptr[0])
	case m.Ptr[n] != len(m.Col):
		return fmt.Errorf("%w: Ptr[%d]=%d but len(Col)=%d", ErrMalformed, n, m.Ptr[n], len(m.Col))
	case len(m.Col) != len(m.Val):
		return fmt.Errorf("%w: len(Col)=%d but len(Val)=%d", ErrMalformed, len(m.Col), len(m.Val))
	}
	for i := 0; i < n; i++ {
		beg, end := m.Ptr[i], m.Ptr[i+1]
		if end < beg || len(m.Col) < end {
			return fmt.Errorf("%w: row %d: bad row pointers %d, %d", ErrMalformed, i, beg, end)
		}
		prev := -1
		for _, c := range m.Col[beg:end] {
			if c < 0 || n <= c {
				return fmt.Errorf("%w: row %d: column %d out of range", ErrMalformed, i, c)
			}
			if c <= prev {
				return fmt.Errorf("%w: row %d: columns not strictly ascending", ErrMalformed, i)
			}
			prev = c
		}
	}
	return nil
}
