package correction

import (
	"fmt"

	"github.com/profilekit/correct/tabular"
)

// AnnData is the in-memory annotated dataset the correction units operate
// on: row-aligned observation metadata, the raw feature matrix, and a
// mutable slot of named embeddings.
type AnnData struct {
	// Obs holds the observation metadata columns.
	Obs *tabular.Metadata
	// X is the raw row x feature matrix.
	X [][]float32
	// Var holds the feature names, one per column of X.
	Var []string
	// Obsm holds named embeddings, each row-aligned with X.
	Obsm map[string][][]float32
}

// FromDataset builds an AnnData over a loaded dataset.
// The feature matrix is shared, not copied.
func FromDataset(d *tabular.Dataset) (*AnnData, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &AnnData{
		Obs:  d.Metadata,
		X:    d.Values,
		Var:  d.Features,
		Obsm: make(map[string][][]float32),
	}, nil
}

// Rows returns the number of observations.
func (a *AnnData) Rows() int { return len(a.X) }

// Cols returns the number of features.
func (a *AnnData) Cols() int {
	if len(a.X) == 0 {
		return len(a.Var)
	}
	return len(a.X[0])
}

// SetEmbedding stores a row-aligned embedding under the given name.
func (a *AnnData) SetEmbedding(name string, emb [][]float32) error {
	if len(emb) != a.Rows() {
		return &tabular.ErrShapeMismatch{
			Reason: fmt.Sprintf("embedding %q has %d rows, want %d", name, len(emb), a.Rows()),
		}
	}
	if a.Obsm == nil {
		a.Obsm = make(map[string][][]float32)
	}
	a.Obsm[name] = emb
	return nil
}

// Embedding returns a named embedding.
func (a *AnnData) Embedding(name string) ([][]float32, bool) {
	emb, ok := a.Obsm[name]
	return emb, ok
}
