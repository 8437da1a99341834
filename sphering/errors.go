package sphering

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFitted is returned when Transform is called before Fit.
	ErrNotFitted = errors.New("whitener is not fitted")

	// ErrNoTrainingRows is returned when Fit is called with zero rows.
	ErrNoTrainingRows = errors.New("no training rows")
)

// ErrInvalidMode indicates an unsupported whitening mode.
type ErrInvalidMode struct {
	Name string
}

func (e *ErrInvalidMode) Error() string {
	return fmt.Sprintf("invalid whitening mode %q (want %q or %q)", e.Name, ModeCovariance, ModeCorrelation)
}

// ErrEmptyTrainingSet indicates that the training-row predicate selected no
// rows. This is a configuration error: fitting on zero rows is never valid.
//
// Satisfies `errors.Is(err, ErrNoTrainingRows)`.
type ErrEmptyTrainingSet struct {
	Column string
	Values []string
}

func (e *ErrEmptyTrainingSet) Error() string {
	return fmt.Sprintf("empty training set: no row has %s in {%s}", e.Column, strings.Join(e.Values, ", "))
}

func (e *ErrEmptyTrainingSet) Unwrap() error { return ErrNoTrainingRows }

// ErrColumnNotFound indicates that the training-selection column is missing
// from the dataset metadata.
type ErrColumnNotFound struct {
	Column string
}

func (e *ErrColumnNotFound) Error() string {
	return fmt.Sprintf("selection column not found: %q", e.Column)
}

// ErrNumericInstability indicates that the decomposition failed or produced
// non-finite values even after regularization. The caller is expected to
// retry with a larger regularization at a higher level, not here.
type ErrNumericInstability struct {
	Reason string
}

func (e *ErrNumericInstability) Error() string {
	return "numeric instability: " + e.Reason
}

// ErrDimensionMismatch indicates a row dimensionality mismatch between the
// fitted operator and the rows passed to Transform.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
