// Package tabular implements the columnar dataset representation used by the
// correction pipeline: row-aligned metadata columns, a row x feature float32
// value matrix and an ordered feature-name list, stored together in a single
// checksummed binary file.
package tabular

import "fmt"

// Metadata holds the row-aligned metadata columns of a dataset.
// Column order is preserved across encode/decode.
type Metadata struct {
	names []string
	cols  [][]string
}

// NewMetadata creates an empty Metadata.
func NewMetadata() *Metadata {
	return &Metadata{}
}

// Add appends a column. All columns must have the same number of rows.
func (m *Metadata) Add(name string, values []string) error {
	if len(m.cols) > 0 && len(values) != len(m.cols[0]) {
		return &ErrShapeMismatch{
			Reason: fmt.Sprintf("metadata column %q has %d rows, want %d", name, len(values), len(m.cols[0])),
		}
	}
	m.names = append(m.names, name)
	m.cols = append(m.cols, values)
	return nil
}

// Rows returns the number of rows.
func (m *Metadata) Rows() int {
	if m == nil || len(m.cols) == 0 {
		return 0
	}
	return len(m.cols[0])
}

// Names returns the column names in order.
func (m *Metadata) Names() []string {
	return m.names
}

// Column returns the values of the named column.
func (m *Metadata) Column(name string) ([]string, bool) {
	for i, n := range m.names {
		if n == name {
			return m.cols[i], true
		}
	}
	return nil, false
}

// Clone returns a deep copy.
func (m *Metadata) Clone() *Metadata {
	out := &Metadata{
		names: append([]string(nil), m.names...),
		cols:  make([][]string, len(m.cols)),
	}
	for i, col := range m.cols {
		out.cols[i] = append([]string(nil), col...)
	}
	return out
}

// Equal reports whether two Metadata have identical columns in identical order.
func (m *Metadata) Equal(other *Metadata) bool {
	if len(m.names) != len(other.names) {
		return false
	}
	for i, n := range m.names {
		if n != other.names[i] {
			return false
		}
		if len(m.cols[i]) != len(other.cols[i]) {
			return false
		}
		for j, v := range m.cols[i] {
			if v != other.cols[i][j] {
				return false
			}
		}
	}
	return true
}

// Dataset is the in-memory form of a stored dataset: metadata, values and
// feature names, co-indexed.
//
// Invariants: Metadata.Rows() == len(Values) and len(Features) == len(row)
// for every row of Values.
type Dataset struct {
	Metadata *Metadata
	Values   [][]float32
	Features []string
}

// Validate checks the co-indexing invariants.
func (d *Dataset) Validate() error {
	if d.Metadata.Rows() != len(d.Values) {
		return &ErrShapeMismatch{
			Reason: fmt.Sprintf("metadata has %d rows, values has %d", d.Metadata.Rows(), len(d.Values)),
		}
	}
	for i, row := range d.Values {
		if len(row) != len(d.Features) {
			return &ErrShapeMismatch{
				Reason: fmt.Sprintf("row %d has %d values, want %d features", i, len(row), len(d.Features)),
			}
		}
	}
	return nil
}

// ErrShapeMismatch indicates mismatched row/column counts between metadata,
// values and features.
type ErrShapeMismatch struct {
	Reason string
}

func (e *ErrShapeMismatch) Error() string {
	return "shape mismatch: " + e.Reason
}
