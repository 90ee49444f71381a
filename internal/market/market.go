// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package market reads and writes matrices and vectors in the MatrixMarket
// exchange format.
package market

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/feiyunwill/amgcl/internal/triplet"
)

var (
	ErrFormat      = errors.New("market: malformed file")
	ErrUnsupported = errors.New("market: unsupported matrix type")
)

// Value is a value type that has a MatrixMarket representation.
type Value interface {
	float64 | complex128
}

// Read reads a square sparse matrix stored as
//  %%MatrixMarket matrix coordinate real|integer|pattern general|symmetric
// Pattern entries get the value 1. For symmetric matrices the strictly
// lower triangle in the file is mirrored into the upper triangle.
func Read(r io.Reader) (*triplet.Matrix[float64], error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty input", ErrFormat)
	}
	banner := strings.Fields(strings.ToLower(sc.Text()))
	if len(banner) != 5 || banner[0] != "%%matrixmarket" || banner[1] != "matrix" {
		return nil, fmt.Errorf("%w: bad banner %q", ErrFormat, sc.Text())
	}
	if banner[2] != "coordinate" {
		return nil, fmt.Errorf("%w: format %q", ErrUnsupported, banner[2])
	}
	field, symmetry := banner[3], banner[4]
	switch field {
	case "real", "integer", "pattern":
	default:
		return nil, fmt.Errorf("%w: field %q", ErrUnsupported, field)
	}
	switch symmetry {
	case "general", "symmetric":
	default:
		return nil, fmt.Errorf("%w: symmetry %q", ErrUnsupported, symmetry)
	}

	var m *triplet.Matrix[float64]
	var nnz, read int
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '%' {
			continue
		}
		fields := strings.Fields(line)
		if m == nil {
			if len(fields) != 3 {
				return nil, fmt.Errorf("%w: bad size line %q", ErrFormat, line)
			}
			rows, err1 := strconv.Atoi(fields[0])
			cols, err2 := strconv.Atoi(fields[1])
			n, err3 := strconv.Atoi(fields[2])
			if err1 != nil || err2 != nil || err3 != nil || rows < 0 || n < 0 {
				return nil, fmt.Errorf("%w: bad size line %q", ErrFormat, line)
			}
			if rows != cols {
				return nil, fmt.Errorf("%w: %d×%d matrix is not square", ErrUnsupported, rows, cols)
			}
			m = triplet.New[float64](rows)
			nnz = n
			continue
		}

		want := 3
		if field == "pattern" {
			want = 2
		}
		if len(fields) != want {
			return nil, fmt.Errorf("%w: bad entry %q", ErrFormat, line)
		}
		i, err1 := strconv.Atoi(fields[0])
		j, err2 := strconv.Atoi(fields[1])
		if err1 != nil || err2 != nil {
			return nil, fmt.Errorf("%w: bad entry %q", ErrFormat, line)
		}
		n, _ := m.Dims()
		if i < 1 || n < i || j < 1 || n < j {
			return nil, fmt.Errorf("%w: entry (%d,%d) out of range", ErrFormat, i, j)
		}
		v := 1.0
		if field != "pattern" {
			var err error
			v, err = strconv.ParseFloat(fields[2], 64)
			if err != nil {
				return nil, fmt.Errorf("%w: bad value %q", ErrFormat, fields[2])
			}
		}
		m.Append(i-1, j-1, v)
		if symmetry == "symmetric" && i != j {
			m.Append(j-1, i-1, v)
		}
		read++
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: missing size line", ErrFormat)
	}
	if read != nnz {
		return nil, fmt.Errorf("%w: read %d entries, header says %d", ErrFormat, read, nnz)
	}
	return m, nil
}

// ReadVector reads a dense vector stored as
//  %%MatrixMarket matrix array real general
// with a single column.
func ReadVector(r io.Reader) ([]float64, error) {
	sc := bufio.NewScanner(r)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: empty input", ErrFormat)
	}
	banner := strings.Fields(strings.ToLower(sc.Text()))
	if len(banner) != 5 || banner[0] != "%%matrixmarket" || banner[1] != "matrix" {
		return nil, fmt.Errorf("%w: bad banner %q", ErrFormat, sc.Text())
	}
	if banner[2] != "array" || banner[3] != "real" || banner[4] != "general" {
		return nil, fmt.Errorf("%w: %s %s %s vector", ErrUnsupported, banner[2], banner[3], banner[4])
	}

	var v []float64
	n := -1
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || line[0] == '%' {
			continue
		}
		if n < 0 {
			var rows, cols int
			if _, err := fmt.Sscan(line, &rows, &cols); err != nil || rows < 0 || cols != 1 {
				return nil, fmt.Errorf("%w: bad size line %q", ErrFormat, line)
			}
			n = rows
			v = make([]float64, 0, n)
			continue
		}
		x, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bad value %q", ErrFormat, line)
		}
		v = append(v, x)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if n < 0 || len(v) != n {
		return nil, fmt.Errorf("%w: expected %d values, read %d", ErrFormat, n, len(v))
	}
	return v, nil
}

func fieldName[T Value]() string {
	var zero T
	if _, ok := any(zero).(complex128); ok {
		return "complex"
	}
	return "real"
}

func formatValue[T Value](v T) string {
	switch v := any(v).(type) {
	case complex128:
		return strconv.FormatFloat(real(v), 'g', 17, 64) + " " + strconv.FormatFloat(imag(v), 'g', 17, 64)
	case float64:
		return strconv.FormatFloat(v, 'g', 17, 64)
	}
	panic("market: unreachable")
}

// WriteCoordinate writes the n×n matrix given in compressed row form as a
// general coordinate matrix.
func WriteCoordinate[T Value](w io.Writer, n int, ptr, col []int, val []T) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%%%%MatrixMarket matrix coordinate %s general\n", fieldName[T]())
	fmt.Fprintf(bw, "%d %d %d\n", n, n, ptr[n])
	for i := 0; i < n; i++ {
		for j := ptr[i]; j < ptr[i+1]; j++ {
			fmt.Fprintf(bw, "%d %d %s\n", i+1, col[j]+1, formatValue(val[j]))
		}
	}
	return bw.Flush()
}

// WriteArray writes v as a dense single-column matrix.
func WriteArray[T Value](w io.Writer, v []T) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%%%%MatrixMarket matrix array %s general\n", fieldName[T]())
	fmt.Fprintf(bw, "%d 1\n", len(v))
	for _, x := range v {
		fmt.Fprintln(bw, formatValue(x))
	}
	return bw.Flush()
}
