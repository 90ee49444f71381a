// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package backend

import "math"

// Field describes the arithmetic on the value type T of a matrix that
// incomplete factorizations and relaxation need. The additive identity of T
// is its Go zero value.
//
// T is not required to be commutative under Mul; callers must keep the
// operand order of a left-to-right elimination.
type Field[T any] interface {
	Add(a, b T) T
	Sub(a, b T) T
	Mul(a, b T) T

	// Inverse returns the multiplicative inverse of a. The result for
	// a value for which Invertible is false is unspecified.
	Inverse(a T) T

	// IsZero reports whether a is the additive identity.
	IsZero(a T) bool

	// Invertible reports whether a has a multiplicative inverse. For
	// scalars this is a != 0; a nonzero block may still be singular.
	Invertible(a T) bool

	// Scale returns a scaled by the real scalar s.
	Scale(a T, s float64) T
}

// Float64 is the Field of real float64 values.
type Float64 struct{}

func (Float64) Add(a, b float64) float64 { return a + b }
func (Float64) Sub(a, b float64) float64 { return a - b }
func (Float64) Mul(a, b float64) float64 { return a * b }
func (Float64) Inverse(a float64) float64 { return 1 / a }
func (Float64) IsZero(a float64) bool { return a == 0 }
func (Float64) Invertible(a float64) bool { return a != 0 }
func (Float64) Scale(a float64, s float64) float64 { return a * s }

// Complex128 is the Field of complex128 values.
type Complex128 struct{}

func (Complex128) Add(a, b complex128) complex128 { return a + b }
func (Complex128) Sub(a, b complex128) complex128 { return a - b }
func (Complex128) Mul(a, b complex128) complex128 { return a * b }
func (Complex128) Inverse(a complex128) complex128 { return 1 / a }
func (Complex128) IsZero(a complex128) bool { return a == 0 }
func (Complex128) Invertible(a complex128) bool { return a != 0 }
func (Complex128) Scale(a complex128, s float64) complex128 {
	return a * complex(s, 0)
}

// Mat3 is a dense 3×3 block stored by rows. It is the value type of block
// matrices whose entries couple three unknowns per node.
type Mat3 [3][3]float64

// Identity3 returns the 3×3 identity block.
func Identity3() Mat3 {
	return Mat3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
}

// Block3 is the Field of Mat3 values. Mul is the matrix product and Inverse
// the matrix inverse, so the field is not commutative.
type Block3 struct{}

func (Block3) Add(a, b Mat3) Mat3 {
	for i := range a {
		for j := range a[i] {
			a[i][j] += b[i][j]
		}
	}
	return a
}

func (Block3) Sub(a, b Mat3) Mat3 {
	for i := range a {
		for j := range a[i] {
			a[i][j] -= b[i][j]
		}
	}
	return a
}

func (Block3) Mul(a, b Mat3) Mat3 {
	var c Mat3
	for i := 0; i < 3; i++ {
		for k := 0; k < 3; k++ {
			aik := a[i][k]
			if aik == 0 {
				continue
			}
			for j := 0; j < 3; j++ {
				c[i][j] += aik * b[k][j]
			}
		}
	}
	return c
}

// Inverse returns the inverse of a computed from its adjugate.
func (Block3) Inverse(a Mat3) Mat3 {
	c00 := a[1][1]*a[2][2] - a[1][2]*a[2][1]
	c01 := a[1][2]*a[2][0] - a[1][0]*a[2][2]
	c02 := a[1][0]*a[2][1] - a[1][1]*a[2][0]
	det := a[0][0]*c00 + a[0][1]*c01 + a[0][2]*c02
	r := 1 / det
	return Mat3{
		{c00 * r, (a[0][2]*a[2][1] - a[0][1]*a[2][2]) * r, (a[0][1]*a[1][2] - a[0][2]*a[1][1]) * r},
		{c01 * r, (a[0][0]*a[2][2] - a[0][2]*a[2][0]) * r, (a[0][2]*a[1][0] - a[0][0]*a[1][2]) * r},
		{c02 * r, (a[0][1]*a[2][0] - a[0][0]*a[2][1]) * r, (a[0][0]*a[1][1] - a[0][1]*a[1][0]) * r},
	}
}

func (Block3) IsZero(a Mat3) bool { return a == Mat3{} }

// Invertible reports whether the determinant of a is nonzero and finite.
func (Block3) Invertible(a Mat3) bool {
	det := a[0][0]*(a[1][1]*a[2][2]-a[1][2]*a[2][1]) -
		a[0][1]*(a[1][0]*a[2][2]-a[1][2]*a[2][0]) +
		a[0][2]*(a[1][0]*a[2][1]-a[1][1]*a[2][0])
	return det != 0 && !math.IsNaN(det) && !math.IsInf(det, 0)
}

func (Block3) Scale(a Mat3, s float64) Mat3 {
	for i := range a {
		for j := range a[i] {
			a[i][j] *= s
		}
	}
	return a
}
