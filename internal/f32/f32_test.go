package f32

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestDenseRows_RoundTrip(t *testing.T) {
	rows := [][]float32{{1, 2.5}, {-3, 0.25}}

	got := Rows(Dense(rows))
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	for i := range rows {
		for j := range rows[i] {
			if got[i][j] != rows[i][j] {
				t.Errorf("at (%d,%d): expected %f, got %f", i, j, rows[i][j], got[i][j])
			}
		}
	}
}

func TestMin(t *testing.T) {
	if v := Min([][]float32{{3, -1}, {0, 7}}); v != -1 {
		t.Errorf("expected -1, got %f", v)
	}
	if v := Min(nil); v != 0 {
		t.Errorf("expected 0 for empty input, got %f", v)
	}
}

func TestClone_Independent(t *testing.T) {
	rows := [][]float32{{1, 2}}
	clone := Clone(rows)
	clone[0][0] = 99
	if rows[0][0] != 1 {
		t.Errorf("clone mutated the original")
	}
}

func TestAllFinite(t *testing.T) {
	ok := mat.NewDense(1, 2, []float64{1, 2})
	if !AllFinite(ok) {
		t.Errorf("expected finite matrix")
	}
	bad := mat.NewDense(1, 2, []float64{1, math.NaN()})
	if AllFinite(bad) {
		t.Errorf("expected NaN to be detected")
	}
	inf := mat.NewDense(1, 2, []float64{math.Inf(1), 0})
	if AllFinite(inf) {
		t.Errorf("expected Inf to be detected")
	}
}
