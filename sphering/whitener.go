// Package sphering implements the ZCA whitening transform used to remove
// linear batch structure from feature matrices, and the orchestration that
// applies it end to end to a stored dataset.
package sphering

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/profilekit/correct/internal/f32"
)

// Mode selects the statistic the whitening operator is derived from.
type Mode uint8

const (
	// ModeCovariance derives the operator from the covariance matrix (ZCA).
	ModeCovariance Mode = iota + 1
	// ModeCorrelation derives the operator from the correlation matrix
	// (ZCA-corr): columns are scaled to unit variance before rotation.
	ModeCorrelation
)

func (m Mode) String() string {
	switch m {
	case ModeCovariance:
		return "cov"
	case ModeCorrelation:
		return "corr"
	default:
		return fmt.Sprintf("mode(%d)", uint8(m))
	}
}

// ParseMode parses the configuration spelling of a mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "cov":
		return ModeCovariance, nil
	case "corr":
		return ModeCorrelation, nil
	default:
		return 0, &ErrInvalidMode{Name: s}
	}
}

// Whitener is a linear whitening operator.
//
// Lifecycle: New -> Fit (once, on training rows) -> Transform (repeatedly,
// on arbitrary rows). A persisted operator reloads ready to Transform; it is
// never refit.
type Whitener struct {
	mode   Mode
	lambda float64

	dim       int
	mean      []float64
	transform *mat.Dense // d x d; applied to centered rows
	fitted    bool
}

// New creates an unfitted whitener.
// lambda is added to the eigen-spectrum of the covariance/correlation matrix
// so near-singular inputs stay invertible.
func New(mode Mode, lambda float64) (*Whitener, error) {
	if mode != ModeCovariance && mode != ModeCorrelation {
		return nil, &ErrInvalidMode{Name: mode.String()}
	}
	if lambda < 0 {
		return nil, fmt.Errorf("regularization must be non-negative, got %g", lambda)
	}
	return &Whitener{mode: mode, lambda: lambda}, nil
}

// Mode returns the whitening mode.
func (w *Whitener) Mode() Mode { return w.mode }

// Lambda returns the regularization scalar.
func (w *Whitener) Lambda() float64 { return w.lambda }

// Dim returns the fitted feature dimensionality, 0 before Fit.
func (w *Whitener) Dim() int { return w.dim }

// Fitted reports whether the operator has been fitted.
func (w *Whitener) Fitted() bool { return w.fitted }

// Fit derives the whitening operator from the training rows.
// For mode cov, W = V diag(1/sqrt(e_i + lambda)) V^T over the covariance
// eigenbasis; for mode corr the same over the correlation eigenbasis, with
// columns additionally scaled by their training standard deviation.
func (w *Whitener) Fit(rows [][]float32) error {
	n := len(rows)
	if n == 0 {
		return ErrNoTrainingRows
	}
	d := len(rows[0])

	x := f32.Dense(rows)

	mean := make([]float64, d)
	for j := 0; j < d; j++ {
		mean[j] = stat.Mean(mat.Col(nil, j, x), nil)
	}

	var sym mat.SymDense
	switch w.mode {
	case ModeCovariance:
		stat.CovarianceMatrix(&sym, x, nil)
	case ModeCorrelation:
		stat.CorrelationMatrix(&sym, x, nil)
	}
	if !f32.AllFinite(&sym) {
		return &ErrNumericInstability{Reason: fmt.Sprintf("non-finite %s matrix (n=%d, d=%d)", w.mode, n, d)}
	}

	var eig mat.EigenSym
	if !eig.Factorize(&sym, true) {
		return &ErrNumericInstability{Reason: "eigendecomposition failed to converge"}
	}

	vals := eig.Values(nil)
	invSqrt := make([]float64, d)
	for i, v := range vals {
		r := v + w.lambda
		if r <= 0 {
			return &ErrNumericInstability{Reason: fmt.Sprintf("eigenvalue %g not positive after regularization %g", v, w.lambda)}
		}
		invSqrt[i] = 1 / math.Sqrt(r)
	}

	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	var tmp, g mat.Dense
	tmp.Mul(&vecs, mat.NewDiagDense(d, invSqrt))
	g.Mul(&tmp, vecs.T())

	operator := &g
	if w.mode == ModeCorrelation {
		invStd := make([]float64, d)
		for j := 0; j < d; j++ {
			sd := stat.StdDev(mat.Col(nil, j, x), nil)
			if sd == 0 || math.IsNaN(sd) {
				return &ErrNumericInstability{Reason: fmt.Sprintf("zero variance in column %d", j)}
			}
			invStd[j] = 1 / sd
		}
		var a mat.Dense
		a.Mul(mat.NewDiagDense(d, invStd), &g)
		operator = &a
	}

	if !f32.AllFinite(operator) {
		return &ErrNumericInstability{Reason: "non-finite whitening operator"}
	}

	w.dim = d
	w.mean = mean
	w.transform = mat.DenseCopyOf(operator)
	w.fitted = true
	return nil
}

// Transform applies the fitted operator to arbitrary rows.
// The result is always float32, regardless of input precision.
func (w *Whitener) Transform(rows [][]float32) ([][]float32, error) {
	if !w.fitted {
		return nil, ErrNotFitted
	}
	if len(rows) == 0 {
		return [][]float32{}, nil
	}
	for _, row := range rows {
		if len(row) != w.dim {
			return nil, &ErrDimensionMismatch{Expected: w.dim, Actual: len(row)}
		}
	}

	centered := mat.NewDense(len(rows), w.dim, nil)
	for i, row := range rows {
		for j, v := range row {
			centered.Set(i, j, float64(v)-w.mean[j])
		}
	}

	var out mat.Dense
	out.Mul(centered, w.transform)
	return f32.Rows(&out), nil
}
