// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package relaxation

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingDiagonal is returned when a row of the system matrix has
	// no stored diagonal entry.
	ErrMissingDiagonal = errors.New("relaxation: no diagonal value in system matrix")

	// ErrZeroPivot is returned when the diagonal value computed during
	// elimination is zero.
	ErrZeroPivot = errors.New("relaxation: zero pivot in ILU")

	// ErrInvalidConfig is returned for unknown parameter names and for
	// parameter values outside their domain.
	ErrInvalidConfig = errors.New("relaxation: invalid config")

	// ErrUnsupported is returned by operations that are not available
	// for the value type of a factorization.
	ErrUnsupported = errors.New("relaxation: unsupported value type")
)

// FactorError reports the row at which an incomplete factorization failed.
// Err is ErrMissingDiagonal or ErrZeroPivot.
type FactorError struct {
	Row int
	Err error
}

func (e *FactorError) Error() string {
	return fmt.Sprintf("%v (row %d)", e.Err, e.Row)
}

func (e *FactorError) Unwrap() error { return e.Err }
