package sphering

import (
	"context"
	"io"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/profilekit/correct/blobstore"
	"github.com/profilekit/correct/tabular"
)

// RunParams are the resolved inputs of one end-to-end sphering pass.
type RunParams struct {
	// DatasetPath is the source dataset.
	DatasetPath string

	Mode   Mode
	Lambda float64

	// SelectColumn and SelectValues define the training predicate: a row is
	// used for fitting iff its SelectColumn value is one of SelectValues.
	SelectColumn string
	SelectValues []string

	// SpheredPath receives the corrected dataset, OperatorPath the fitted
	// operator.
	SpheredPath  string
	OperatorPath string

	// Logger receives progress output. Nil disables logging.
	Logger *slog.Logger
}

// Run applies sphering to a stored dataset: fit on the selected training
// rows, transform every row, write the corrected dataset and the fitted
// operator. Outputs are written only after a fully successful fit+transform
// pass; metadata and feature names pass through unchanged.
func Run(ctx context.Context, store blobstore.Store, p RunParams) error {
	logger := p.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	// Validate the mode before any IO.
	whitener, err := New(p.Mode, p.Lambda)
	if err != nil {
		return err
	}

	ds, err := tabular.ReadFrom(ctx, store, p.DatasetPath)
	if err != nil {
		return err
	}

	col, ok := ds.Metadata.Column(p.SelectColumn)
	if !ok {
		return &ErrColumnNotFound{Column: p.SelectColumn}
	}

	accept := make(map[string]struct{}, len(p.SelectValues))
	for _, v := range p.SelectValues {
		accept[v] = struct{}{}
	}

	mask := roaring.New()
	for i, v := range col {
		if _, ok := accept[v]; ok {
			mask.Add(uint32(i))
		}
	}
	if mask.IsEmpty() {
		return &ErrEmptyTrainingSet{Column: p.SelectColumn, Values: p.SelectValues}
	}

	train := make([][]float32, 0, mask.GetCardinality())
	iter := mask.Iterator()
	for iter.HasNext() {
		train = append(train, ds.Values[iter.Next()])
	}

	logger.Info("fitting whitener",
		"mode", p.Mode.String(),
		"lambda", p.Lambda,
		"train_rows", len(train),
		"rows", len(ds.Values),
		"features", len(ds.Features))

	if err := whitener.Fit(train); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// Transform every row, not only the training subset.
	corrected, err := whitener.Transform(ds.Values)
	if err != nil {
		return err
	}

	sphered := &tabular.Dataset{
		Metadata: ds.Metadata,
		Values:   corrected,
		Features: ds.Features,
	}
	if err := tabular.WriteTo(ctx, store, p.SpheredPath, sphered); err != nil {
		return err
	}

	if err := whitener.SaveTo(ctx, store, p.OperatorPath); err != nil {
		return err
	}

	logger.Info("sphering complete", "sphered", p.SpheredPath, "operator", p.OperatorPath)
	return nil
}
