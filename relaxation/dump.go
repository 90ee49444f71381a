// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package relaxation

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/feiyunwill/amgcl/backend"
	"github.com/feiyunwill/amgcl/internal/market"
)

// WriteFactors writes the factors to ilu_d.mtx, ilu_l.mtx and ilu_u.mtx in
// dir, in MatrixMarket format. D holds the inverted pivots. Only float64 and
// complex128 factorizations can be written; for other value types
// WriteFactors returns ErrUnsupported.
func (p *ILU0[T, F]) WriteFactors(dir string) error {
	switch d := any(p.d).(type) {
	case []float64:
		l := any(p.l).(*backend.CSR[float64])
		u := any(p.u).(*backend.CSR[float64])
		return writeFactors(dir, d, l, u)
	case []complex128:
		l := any(p.l).(*backend.CSR[complex128])
		u := any(p.u).(*backend.CSR[complex128])
		return writeFactors(dir, d, l, u)
	}
	return fmt.Errorf("%w: %T", ErrUnsupported, p.d)
}

func writeFactors[T market.Value](dir string, d []T, l, u *backend.CSR[T]) error {
	err := writeFile(filepath.Join(dir, "ilu_d.mtx"), func(w io.Writer) error {
		return market.WriteArray(w, d)
	})
	if err != nil {
		return err
	}
	err = writeFile(filepath.Join(dir, "ilu_l.mtx"), func(w io.Writer) error {
		return market.WriteCoordinate(w, l.N, l.Ptr, l.Col, l.Val)
	})
	if err != nil {
		return err
	}
	return writeFile(filepath.Join(dir, "ilu_u.mtx"), func(w io.Writer) error {
		return market.WriteCoordinate(w, u.N, u.Ptr, u.Col, u.Val)
	})
}

func writeFile(name string, write func(io.Writer) error) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
