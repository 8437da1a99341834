// Package f32 converts between the float32 row matrices used for storage and
// the float64 dense matrices used for numeric work.
package f32

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Dense converts float32 rows to a float64 dense matrix.
// All rows must have the same length.
func Dense(rows [][]float32) *mat.Dense {
	n := len(rows)
	if n == 0 {
		return &mat.Dense{}
	}
	d := len(rows[0])
	out := mat.NewDense(n, d, nil)
	for i, row := range rows {
		for j, v := range row {
			out.Set(i, j, float64(v))
		}
	}
	return out
}

// Rows converts a dense matrix back to float32 rows.
func Rows(m mat.Matrix) [][]float32 {
	n, d := m.Dims()
	out := make([][]float32, n)
	for i := range out {
		row := make([]float32, d)
		for j := range row {
			row[j] = float32(m.At(i, j))
		}
		out[i] = row
	}
	return out
}

// Clone deep-copies float32 rows.
func Clone(rows [][]float32) [][]float32 {
	out := make([][]float32, len(rows))
	for i, row := range rows {
		out[i] = append([]float32(nil), row...)
	}
	return out
}

// Min returns the smallest value across all rows.
// Returns 0 for an empty matrix.
func Min(rows [][]float32) float32 {
	min := float32(math.Inf(1))
	found := false
	for _, row := range rows {
		for _, v := range row {
			if v < min {
				min = v
			}
			found = true
		}
	}
	if !found {
		return 0
	}
	return min
}

// AllFinite reports whether every element of m is finite.
func AllFinite(m mat.Matrix) bool {
	n, d := m.Dims()
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
