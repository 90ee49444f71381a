// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package triplet assembles sparse matrices from (row, column, value)
// triplets.
package triplet

import (
	"sort"

	"github.com/feiyunwill/amgcl/backend"
)

type triplet[T any] struct {
	i, j int
	v    T
}

// Matrix is an n×n matrix in coordinate form. Entries may be appended in
// any order and duplicates are summed when the matrix is compressed.
type Matrix[T any] struct {
	n    int
	data []triplet[T]
}

func New[T any](n int) *Matrix[T] {
	if n < 0 {
		panic("triplet: negative dimension")
	}
	return &Matrix[T]{n: n}
}

func (m *Matrix[T]) Dims() (r, c int) {
	return m.n, m.n
}

// Len returns the number of appended triplets, duplicates included.
func (m *Matrix[T]) Len() int { return len(m.data) }

func (m *Matrix[T]) Append(i, j int, v T) {
	if i < 0 || m.n <= i {
		panic("triplet: row index out of range")
	}
	if j < 0 || m.n <= j {
		panic("triplet: column index out of range")
	}
	m.data = append(m.data, triplet[T]{i, j, v})
}

// CSR returns the matrix in compressed row storage with columns sorted
// within each row and duplicate entries summed using f. Explicitly stored
// zeros are kept, so the pattern of the result is the set of appended
// positions.
func CSR[T any, F backend.Field[T]](m *Matrix[T]) *backend.CSR[T] {
	var f F
	data := make([]triplet[T], len(m.data))
	copy(data, m.data)
	sort.SliceStable(data, func(a, b int) bool {
		if data[a].i != data[b].i {
			return data[a].i < data[b].i
		}
		return data[a].j < data[b].j
	})

	nnz := 0
	for k := range data {
		if k == 0 || data[k].i != data[k-1].i || data[k].j != data[k-1].j {
			nnz++
		}
	}

	a := backend.NewCSR[T](m.n, nnz)
	head := -1
	for k, t := range data {
		if k > 0 && t.i == data[k-1].i && t.j == data[k-1].j {
			a.Val[head] = f.Add(a.Val[head], t.v)
			continue
		}
		head++
		a.Col[head] = t.j
		a.Val[head] = t.v
		a.Ptr[t.i+1]++
	}
	for i := 0; i < m.n; i++ {
		a.Ptr[i+1] += a.Ptr[i]
	}
	return a
}
