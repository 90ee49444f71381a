// Copyright ©2017 The gonum Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package relaxation

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/feiyunwill/amgcl/backend"
	"github.com/feiyunwill/amgcl/internal/triplet"
)

var (
	serial   = backend.Params{Kind: backend.Builtin}
	parallel = backend.Params{Kind: backend.Parallel, Workers: 3}
)

// fromDense returns the CSR form of d. Zero entries are dropped except on
// the diagonal, which is always stored.
func fromDense(d [][]float64) *backend.CSR[float64] {
	n := len(d)
	m := triplet.New[float64](n)
	for i, row := range d {
		for j, v := range row {
			if v != 0 || i == j {
				m.Append(i, j, v)
			}
		}
	}
	return triplet.CSR[float64, backend.Float64](m)
}

func tridiag(n int, lo, diag, up float64) *backend.CSR[float64] {
	m := triplet.New[float64](n)
	for i := 0; i < n; i++ {
		if i > 0 {
			m.Append(i, i-1, lo)
		}
		m.Append(i, i, diag)
		if i < n-1 {
			m.Append(i, i+1, up)
		}
	}
	return triplet.CSR[float64, backend.Float64](m)
}

// randomSparse returns a random strictly diagonally dominant n×n matrix
// with at most nnzRow off-diagonal entries per row.
func randomSparse(n, nnzRow int, rnd *rand.Rand) *backend.CSR[float64] {
	m := triplet.New[float64](n)
	for i := 0; i < n; i++ {
		sum := 0.0
		for k := 0; k < nnzRow; k++ {
			j := rnd.Intn(n)
			if j == i {
				continue
			}
			v := rnd.Float64()*2 - 1
			sum += math.Abs(v)
			m.Append(i, j, v)
		}
		// Duplicates are summed, so sum bounds the off-diagonal row sum.
		m.Append(i, i, 1+rnd.Float64()+sum)
	}
	return triplet.CSR[float64, backend.Float64](m)
}

func newReal(t *testing.T, a *backend.CSR[float64], prm Params, bprm backend.Params) *ILU0[float64, backend.Float64] {
	t.Helper()
	p, err := New[float64, backend.Float64](a, prm, bprm)
	require.NoError(t, err)
	return p
}

func denseOf(a *backend.CSR[float64]) *mat.Dense {
	d := mat.NewDense(a.N, a.N, nil)
	for i := 0; i < a.N; i++ {
		cols, vals := a.Row(i)
		for k, c := range cols {
			d.Set(i, c, vals[k])
		}
	}
	return d
}

// factorProduct returns (I + L) (D^{-1} + U) as a dense matrix.
func factorProduct(p *ILU0[float64, backend.Float64]) *mat.Dense {
	n := p.Size()
	lo := denseOf(p.L())
	up := denseOf(p.U())
	for i := 0; i < n; i++ {
		lo.Set(i, i, 1)
		up.Set(i, i, 1/p.D()[i])
	}
	var lu mat.Dense
	lu.Mul(lo, up)
	return &lu
}

func TestILU0Identity(t *testing.T) {
	p := newReal(t, fromDense([][]float64{{1, 0}, {0, 1}}), DefaultParams(), serial)
	assert.Equal(t, 0, p.L().NNZ())
	assert.Equal(t, 0, p.U().NNZ())
	assert.Equal(t, []float64{1, 1}, p.D())

	x := make([]float64, 2)
	p.Apply([]float64{3, 5}, x)
	assert.Equal(t, []float64{3, 5}, x)
}

func TestILU0LowerTriangular(t *testing.T) {
	p := newReal(t, fromDense([][]float64{{2, 0}, {4, 3}}), DefaultParams(), serial)
	require.Equal(t, 1, p.L().NNZ())
	assert.Equal(t, []int{0}, p.L().Col)
	assert.InDelta(t, 2, p.L().Val[0], 1e-15)
	assert.Equal(t, 0, p.U().NNZ())
	assert.InDeltaSlice(t, []float64{0.5, 1.0 / 3}, p.D(), 1e-15)

	// The factorization of a triangular matrix is exact.
	x := make([]float64, 2)
	p.Apply([]float64{2, 10}, x)
	assert.InDeltaSlice(t, []float64{1, 2}, x, 1e-14)
}

func TestILU0Tridiagonal(t *testing.T) {
	p := newReal(t, tridiag(3, -1, 2, -1), DefaultParams(), serial)

	assert.InDeltaSlice(t, []float64{1.0 / 2, 2.0 / 3, 3.0 / 4}, p.D(), 1e-15)
	assert.InDeltaSlice(t, []float64{-1.0 / 2, -2.0 / 3}, p.L().Val, 1e-15)
	assert.Equal(t, []int{0, 0, 1, 2}, p.L().Ptr)
	assert.Equal(t, []float64{-1, -1}, p.U().Val)

	// ILU(0) of a tridiagonal matrix is its exact LU factorization, so
	// Apply returns the first column of the inverse.
	x := make([]float64, 3)
	p.Apply([]float64{1, 0, 0}, x)
	assert.InDeltaSlice(t, []float64{3.0 / 4, 1.0 / 2, 1.0 / 4}, x, 1e-14)
}

func TestILU0SingleRow(t *testing.T) {
	p := newReal(t, fromDense([][]float64{{4}}), DefaultParams(), serial)
	assert.Equal(t, 0, p.L().NNZ())
	assert.Equal(t, 0, p.U().NNZ())
	assert.Equal(t, []float64{0.25}, p.D())

	x := make([]float64, 1)
	p.Apply([]float64{6}, x)
	assert.Equal(t, []float64{1.5}, x)
}

func TestILU0Errors(t *testing.T) {
	for _, test := range []struct {
		name string
		a    *backend.CSR[float64]
		want error
		row  int
	}{
		{
			name: "zero pivot",
			a:    fromDense([][]float64{{0, 1}, {1, 0}}),
			want: ErrZeroPivot,
			row:  0,
		},
		{
			name: "zero row",
			a:    fromDense([][]float64{{1, 0, 0}, {0, 0, 0}, {0, 0, 1}}),
			want: ErrZeroPivot,
			row:  1,
		},
		{
			name: "cancelled pivot",
			a:    fromDense([][]float64{{1, 1}, {1, 1}}),
			want: ErrZeroPivot,
			row:  1,
		},
		{
			name: "only lower entries",
			a: &backend.CSR[float64]{
				N:   2,
				Ptr: []int{0, 1, 2},
				Col: []int{0, 0},
				Val: []float64{1, 1},
			},
			want: ErrMissingDiagonal,
			row:  1,
		},
		{
			name: "upper entry before diagonal",
			a: &backend.CSR[float64]{
				N:   3,
				Ptr: []int{0, 1, 2, 3},
				Col: []int{0, 2, 2},
				Val: []float64{1, 1, 1},
			},
			want: ErrMissingDiagonal,
			row:  1,
		},
		{
			name: "empty row",
			a: &backend.CSR[float64]{
				N:   2,
				Ptr: []int{0, 1, 1},
				Col: []int{0},
				Val: []float64{1},
			},
			want: ErrMissingDiagonal,
			row:  1,
		},
	} {
		t.Run(test.name, func(t *testing.T) {
			p, err := New[float64, backend.Float64](test.a, DefaultParams(), serial)
			require.Nil(t, p)
			require.ErrorIs(t, err, test.want)
			var ferr *FactorError
			require.True(t, errors.As(err, &ferr))
			assert.Equal(t, test.row, ferr.Row)
		})
	}
}

func TestILU0Malformed(t *testing.T) {
	for _, a := range []*backend.CSR[float64]{
		{N: 2, Ptr: []int{0, 1}, Col: []int{0}, Val: []float64{1}},
		{N: 2, Ptr: []int{0, 2, 3}, Col: []int{1, 0, 1}, Val: []float64{1, 1, 1}},
		{N: 2, Ptr: []int{0, 1, 2}, Col: []int{0, 2}, Val: []float64{1, 1}},
		{N: 2, Ptr: []int{0, 1, 2}, Col: []int{0, 1}, Val: []float64{1}},
		{N: 2, Ptr: []int{1, 1, 2}, Col: []int{0, 1}, Val: []float64{1, 1}},
	} {
		_, err := New[float64, backend.Float64](a, DefaultParams(), serial)
		assert.ErrorIs(t, err, backend.ErrMalformed)
	}
}

func TestILU0InvalidParams(t *testing.T) {
	a := tridiag(4, -1, 2, -1)
	_, err := New[float64, backend.Float64](a, Params{Damping: math.NaN(), JacobiIters: 2}, serial)
	assert.ErrorIs(t, err, ErrInvalidConfig)
	_, err = New[float64, backend.Float64](a, Params{Damping: 1, JacobiIters: -1}, serial)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestILU0Pattern(t *testing.T) {
	rnd := rand.New(rand.NewSource(1))
	for _, n := range []int{1, 2, 5, 10, 50, 200} {
		a := randomSparse(n, 5, rnd)
		p := newReal(t, a, DefaultParams(), serial)

		var lnz, unz int
		for i := 0; i < n; i++ {
			acols, _ := a.Row(i)
			lcols, _ := p.L().Row(i)
			ucols, _ := p.U().Row(i)

			var got []int
			got = append(got, lcols...)
			got = append(got, i)
			got = append(got, ucols...)
			require.Equal(t, acols, got, "n=%d row %d", n, i)

			for _, c := range lcols {
				require.Less(t, c, i)
			}
			for _, c := range ucols {
				require.Greater(t, c, i)
			}
			lnz += len(lcols)
			unz += len(ucols)
		}
		assert.Equal(t, a.NNZ(), lnz+unz+n)
		assert.Len(t, p.L().Col, lnz)
		assert.Len(t, p.U().Col, unz)
	}
}

func TestILU0ReproducesPattern(t *testing.T) {
	rnd := rand.New(rand.NewSource(2))
	for _, n := range []int{2, 3, 8, 20, 40} {
		a := randomSparse(n, 4, rnd)
		p := newReal(t, a, DefaultParams(), serial)
		lu := factorProduct(p)

		for i := 0; i < n; i++ {
			cols, vals := a.Row(i)
			for k, c := range cols {
				assert.InDelta(t, vals[k], lu.At(i, c), 1e-12, "n=%d (%d,%d)", n, i, c)
			}
		}
	}
}

func TestILU0DropsFillIn(t *testing.T) {
	// Eliminating row 0 from row 2 creates fill-in at (2,1), which is
	// outside the pattern and must be dropped.
	a := fromDense([][]float64{
		{4, 1, 0},
		{0, 4, 1},
		{1, 0, 4},
	})
	p := newReal(t, a, DefaultParams(), serial)

	cols, _ := p.L().Row(2)
	assert.Equal(t, []int{0}, cols)
	assert.InDelta(t, 0.25, p.L().Val[0], 1e-15)
	// The pivot of row 2 is 4 - (1/4)*0 = 4 because U(0,2) is absent.
	assert.InDelta(t, 0.25, p.D()[2], 1e-15)

	lu := factorProduct(p)
	assert.InDelta(t, 0.25, lu.At(2, 1), 1e-15)
}

func TestILU0InvertedPivots(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	a := randomSparse(30, 4, rnd)
	p := newReal(t, a, DefaultParams(), serial)

	// Each pivot is a_ii - sum_k L_ik U_ki and D stores its inverse.
	for i := 0; i < a.N; i++ {
		var aii float64
		acols, avals := a.Row(i)
		for k, c := range acols {
			if c == i {
				aii = avals[k]
			}
		}
		sum := 0.0
		lcols, lvals := p.L().Row(i)
		for k, c := range lcols {
			ucols, uvals := p.U().Row(c)
			for j, cc := range ucols {
				if cc == i {
					sum += lvals[k] * uvals[j]
				}
			}
		}
		assert.InDelta(t, 1, p.D()[i]*(aii-sum), 1e-12, "row %d", i)
	}
}

func TestILU0TriangularRoundTrip(t *testing.T) {
	rnd := rand.New(rand.NewSource(4))
	for _, n := range []int{1, 5, 20, 60} {
		a := randomSparse(n, 6, rnd)
		p := newReal(t, a, DefaultParams(), serial)
		lu := factorProduct(p)

		r := make([]float64, n)
		for i := range r {
			r[i] = rnd.NormFloat64()
		}
		x := make([]float64, n)
		p.Apply(r, x)

		got := mat.NewVecDense(n, nil)
		got.MulVec(lu, mat.NewVecDense(n, x))
		scale := floats.Norm(x, math.Inf(1)) + 1
		assert.InDeltaSlice(t, r, got.RawVector().Data, 1e-10*scale, "n=%d", n)
	}
}

func TestILU0Deterministic(t *testing.T) {
	rnd := rand.New(rand.NewSource(5))
	a := randomSparse(100, 7, rnd)
	p1 := newReal(t, a, DefaultParams(), serial)
	p2 := newReal(t, a, DefaultParams(), parallel)
	assert.Equal(t, p1.L(), p2.L())
	assert.Equal(t, p1.U(), p2.U())
	assert.Equal(t, p1.D(), p2.D())
}

func TestILU0DoesNotModifyInput(t *testing.T) {
	a := tridiag(5, -1, 3, -1)
	val := append([]float64(nil), a.Val...)
	newReal(t, a, DefaultParams(), serial)
	assert.Equal(t, val, a.Val)
}

func TestJacobiMatchesSerial(t *testing.T) {
	rhs := []float64{1, 0, 0}
	a := tridiag(3, -1, 2, -1)

	s := newReal(t, a, DefaultParams(), serial)
	want := make([]float64, 3)
	s.Apply(rhs, want)

	p := newReal(t, a, Params{Damping: 1, JacobiIters: 10}, parallel)
	assert.False(t, p.Serial())
	got := make([]float64, 3)
	p.Apply(rhs, got)
	assert.InDeltaSlice(t, want, got, 1e-6)
}

func TestJacobiConverges(t *testing.T) {
	rnd := rand.New(rand.NewSource(6))
	n := 200
	a := randomSparse(n, 5, rnd)
	r := make([]float64, n)
	for i := range r {
		r[i] = rnd.NormFloat64()
	}

	s := newReal(t, a, DefaultParams(), serial)
	want := make([]float64, n)
	s.Apply(r, want)

	dist := func(m int) float64 {
		p := newReal(t, a, Params{Damping: 1, JacobiIters: m}, backend.Params{Kind: backend.Parallel})
		got := make([]float64, n)
		p.Apply(r, got)
		return floats.Distance(got, want, math.Inf(1))
	}
	assert.Less(t, dist(32), dist(1))
	// The triangular factors are nilpotent, so n sweeps are exact.
	p := newReal(t, a, Params{Damping: 1, JacobiIters: n}, parallel)
	got := make([]float64, n)
	p.Apply(r, got)
	assert.InDeltaSlice(t, want, got, 1e-10)
}

func TestJacobiZeroSweeps(t *testing.T) {
	a := tridiag(6, -1, 4, -1)
	p := newReal(t, a, Params{Damping: 1, JacobiIters: 0}, parallel)
	r := []float64{1, 2, 3, 4, 5, 6}
	x := make([]float64, 6)
	p.Apply(r, x)
	assert.Equal(t, r, x)
}

func TestSerialIgnoresJacobiIters(t *testing.T) {
	a := tridiag(10, -1, 3, -1)
	r := make([]float64, 10)
	for i := range r {
		r[i] = float64(i)
	}
	x1 := make([]float64, 10)
	x2 := make([]float64, 10)
	newReal(t, a, Params{Damping: 1, JacobiIters: 0}, serial).Apply(r, x1)
	newReal(t, a, Params{Damping: 1, JacobiIters: 7}, serial).Apply(r, x2)
	assert.Equal(t, x1, x2)
}

func TestSmoothDiagonalIsDampedJacobi(t *testing.T) {
	a := fromDense([][]float64{{2, 0, 0}, {0, 4, 0}, {0, 0, 8}})
	rhs := []float64{2, 2, 2}
	omega := 0.5
	for _, bprm := range []backend.Params{serial, parallel} {
		p := newReal(t, a, Params{Damping: omega, JacobiIters: 2}, bprm)
		assert.Equal(t, 0, p.L().NNZ())
		assert.Equal(t, 0, p.U().NNZ())

		x := []float64{1, 1, 1}
		tmp := make([]float64, 3)
		p.PreSmooth(a, rhs, x, tmp)
		// x + ω D^{-1} (b - A x)
		want := []float64{1 + omega*(2-2)/2, 1 + omega*(2-4)/4, 1 + omega*(2-8)/8}
		assert.InDeltaSlice(t, want, x, 1e-15)

		x = []float64{1, 1, 1}
		p.PostSmooth(a, rhs, x, tmp)
		assert.InDeltaSlice(t, want, x, 1e-15)
	}
}

func TestApplyIgnoresDamping(t *testing.T) {
	a := tridiag(5, -1, 2, -1)
	r := []float64{1, 2, 3, 4, 5}
	x1 := make([]float64, 5)
	x2 := make([]float64, 5)
	newReal(t, a, Params{Damping: 1, JacobiIters: 2}, serial).Apply(r, x1)
	newReal(t, a, Params{Damping: 0.3, JacobiIters: 2}, serial).Apply(r, x2)
	assert.Equal(t, x1, x2)
}

func TestSmoothingConverges(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	n := 100
	a := randomSparse(n, 5, rnd)
	want := make([]float64, n)
	for i := range want {
		want[i] = 1
	}
	rhs := make([]float64, n)
	backend.New[float64, backend.Float64](serial).MulVec(a, want, rhs)

	for _, bprm := range []backend.Params{serial, parallel} {
		p := newReal(t, a, Params{Damping: 0.9, JacobiIters: 10}, bprm)
		x := make([]float64, n)
		tmp := make([]float64, n)
		for k := 0; k < 100; k++ {
			p.PreSmooth(a, rhs, x, tmp)
			p.PostSmooth(a, rhs, x, tmp)
		}
		assert.InDeltaSlice(t, want, x, 1e-8, "backend %v", bprm.Kind)
	}
}

func TestApplyConcurrent(t *testing.T) {
	rnd := rand.New(rand.NewSource(8))
	n := 300
	a := randomSparse(n, 5, rnd)

	for _, bprm := range []backend.Params{serial, parallel} {
		p := newReal(t, a, Params{Damping: 1, JacobiIters: 4}, bprm)

		const workers = 8
		rhs := make([][]float64, workers)
		want := make([][]float64, workers)
		for w := range rhs {
			rhs[w] = make([]float64, n)
			for i := range rhs[w] {
				rhs[w][i] = rnd.NormFloat64()
			}
			want[w] = make([]float64, n)
			p.Apply(rhs[w], want[w])
		}

		got := make([][]float64, workers)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				got[w] = make([]float64, n)
				for k := 0; k < 10; k++ {
					p.Apply(rhs[w], got[w])
				}
			}(w)
		}
		wg.Wait()
		for w := range got {
			assert.Equal(t, want[w], got[w], "backend %v worker %d", bprm.Kind, w)
		}
	}
}

func TestApplyPanicsOnMismatch(t *testing.T) {
	p := newReal(t, tridiag(3, -1, 2, -1), DefaultParams(), serial)
	assert.Panics(t, func() { p.Apply(make([]float64, 2), make([]float64, 3)) })
	assert.Panics(t, func() {
		p.PreSmooth(tridiag(4, -1, 2, -1), make([]float64, 3), make([]float64, 3), make([]float64, 3))
	})
}
