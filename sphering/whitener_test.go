package sphering

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/profilekit/correct/internal/f32"
)

// correlatedRows generates rows with strong linear correlation structure so
// whitening has something to remove.
func correlatedRows(n, d int, seed int64) [][]float32 {
	rng := rand.New(rand.NewSource(seed))

	// Mixing matrix with a dominant shared direction.
	mix := make([][]float64, d)
	for i := range mix {
		mix[i] = make([]float64, d)
		for j := range mix[i] {
			mix[i][j] = 0.3 * rng.NormFloat64()
		}
		mix[i][0] += 2.0
		mix[i][i] += 1.0
	}

	rows := make([][]float32, n)
	for i := range rows {
		z := make([]float64, d)
		for j := range z {
			z[j] = rng.NormFloat64()
		}
		row := make([]float32, d)
		for j := 0; j < d; j++ {
			var s float64
			for k := 0; k < d; k++ {
				s += mix[j][k] * z[k]
			}
			row[j] = float32(s + 5.0)
		}
		rows[i] = row
	}
	return rows
}

func maxOffIdentity(m mat.Matrix) float64 {
	n, _ := m.Dims()
	var worst float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			want := 0.0
			if i == j {
				want = 1.0
			}
			if diff := math.Abs(m.At(i, j) - want); diff > worst {
				worst = diff
			}
		}
	}
	return worst
}

func TestNew_InvalidMode(t *testing.T) {
	w, err := New(Mode(42), 0.1)
	if w != nil {
		t.Fatalf("expected nil whitener on invalid mode")
	}
	var invalid *ErrInvalidMode
	if !errors.As(err, &invalid) {
		t.Fatalf("expected ErrInvalidMode, got %v", err)
	}
}

func TestNew_NegativeLambda(t *testing.T) {
	if _, err := New(ModeCovariance, -0.5); err == nil {
		t.Fatalf("expected error for negative regularization")
	}
}

func TestParseMode(t *testing.T) {
	if m, err := ParseMode("cov"); err != nil || m != ModeCovariance {
		t.Errorf("ParseMode(cov) = %v, %v", m, err)
	}
	if m, err := ParseMode("corr"); err != nil || m != ModeCorrelation {
		t.Errorf("ParseMode(corr) = %v, %v", m, err)
	}
	if _, err := ParseMode("zca"); err == nil {
		t.Errorf("expected error for unknown mode string")
	}
}

func TestTransform_NotFitted(t *testing.T) {
	w, err := New(ModeCovariance, 0.01)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Transform([][]float32{{1, 2}}); !errors.Is(err, ErrNotFitted) {
		t.Fatalf("expected ErrNotFitted, got %v", err)
	}
}

func TestFit_NoRows(t *testing.T) {
	w, _ := New(ModeCovariance, 0.01)
	if err := w.Fit(nil); !errors.Is(err, ErrNoTrainingRows) {
		t.Fatalf("expected ErrNoTrainingRows, got %v", err)
	}
}

func TestFit_CovarianceWhitens(t *testing.T) {
	rows := correlatedRows(300, 5, 1)

	w, err := New(ModeCovariance, 1e-10)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Fit(rows); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	out, err := w.Transform(rows)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, f32.Dense(out), nil)
	if worst := maxOffIdentity(&cov); worst > 1e-3 {
		t.Errorf("covariance of whitened training data deviates from identity by %g", worst)
	}
}

func TestFit_CorrelationWhitens(t *testing.T) {
	rows := correlatedRows(300, 5, 2)

	w, err := New(ModeCorrelation, 1e-10)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Fit(rows); err != nil {
		t.Fatalf("Fit failed: %v", err)
	}

	out, err := w.Transform(rows)
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	var corr mat.SymDense
	stat.CorrelationMatrix(&corr, f32.Dense(out), nil)
	if worst := maxOffIdentity(&corr); worst > 1e-3 {
		t.Errorf("correlation of whitened training data deviates from identity by %g", worst)
	}
}

func TestFit_LargeLambdaShrinks(t *testing.T) {
	rows := correlatedRows(300, 4, 3)

	w, _ := New(ModeCovariance, 100.0)
	if err := w.Fit(rows); err != nil {
		t.Fatal(err)
	}
	out, err := w.Transform(rows)
	if err != nil {
		t.Fatal(err)
	}

	// Heavy regularization damps the output: variances stay well below 1.
	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, f32.Dense(out), nil)
	for j := 0; j < 4; j++ {
		v := cov.At(j, j)
		if v <= 0 || v >= 1 {
			t.Errorf("variance of column %d is %g, expected damped into (0, 1)", j, v)
		}
	}
}

func TestFit_Deterministic(t *testing.T) {
	rows := correlatedRows(100, 4, 4)

	first, _ := New(ModeCorrelation, 1e-3)
	second, _ := New(ModeCorrelation, 1e-3)
	if err := first.Fit(rows); err != nil {
		t.Fatal(err)
	}
	if err := second.Fit(rows); err != nil {
		t.Fatal(err)
	}

	a, err := first.Transform(rows)
	if err != nil {
		t.Fatal(err)
	}
	b, err := second.Transform(rows)
	if err != nil {
		t.Fatal(err)
	}

	for i := range a {
		for j := range a[i] {
			if a[i][j] != b[i][j] {
				t.Fatalf("outputs differ at (%d,%d): %g vs %g", i, j, a[i][j], b[i][j])
			}
		}
	}
}

func TestTransform_GeneralizesBeyondTraining(t *testing.T) {
	rows := correlatedRows(200, 4, 5)
	train, rest := rows[:120], rows[120:]

	w, _ := New(ModeCovariance, 1e-6)
	if err := w.Fit(train); err != nil {
		t.Fatal(err)
	}

	out, err := w.Transform(rest)
	if err != nil {
		t.Fatalf("Transform on non-training rows failed: %v", err)
	}
	if len(out) != len(rest) || len(out[0]) != 4 {
		t.Fatalf("unexpected output shape %dx%d", len(out), len(out[0]))
	}
}

func TestTransform_DimensionMismatch(t *testing.T) {
	w, _ := New(ModeCovariance, 1e-6)
	if err := w.Fit(correlatedRows(50, 3, 6)); err != nil {
		t.Fatal(err)
	}

	_, err := w.Transform([][]float32{{1, 2, 3, 4}})
	var dim *ErrDimensionMismatch
	if !errors.As(err, &dim) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if dim.Expected != 3 || dim.Actual != 4 {
		t.Errorf("unexpected mismatch detail: %+v", dim)
	}
}

func TestFit_ZeroVarianceColumn(t *testing.T) {
	rows := [][]float32{
		{1, 7, 2},
		{2, 7, 1},
		{3, 7, 5},
		{4, 7, 3},
	}

	w, _ := New(ModeCorrelation, 1e-3)
	err := w.Fit(rows)
	var unstable *ErrNumericInstability
	if !errors.As(err, &unstable) {
		t.Fatalf("expected ErrNumericInstability for constant column, got %v", err)
	}
	if w.Fitted() {
		t.Errorf("whitener must not be marked fitted after a failed Fit")
	}
}
