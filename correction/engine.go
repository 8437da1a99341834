package correction

import (
	"context"
	"errors"

	"github.com/profilekit/correct/tabular"
)

// ErrNoEngine is returned when a unit that delegates to an external
// algorithm is applied without an engine.
var ErrNoEngine = errors.New("no correction engine configured")

// HarmonyOptions parameterize the harmony run.
type HarmonyOptions struct {
	MaxIter  int
	Clusters int
}

// SCVIOptions parameterize the conditional variational model.
type SCVIOptions struct {
	LatentDims   int
	HiddenLayers int
}

// Engine is the boundary to the delegated correction algorithms. Each call
// consumes row-major float32 matrices plus the observation metadata needed
// for batch assignment and returns the corrected embedding, row-aligned with
// the input. Implementations typically bridge to an external service or
// native library; their internals are outside this package's contract.
type Engine interface {
	// RunHarmony corrects a PCA embedding by iterative cluster-based batch
	// mixing.
	RunHarmony(ctx context.Context, embedding [][]float32, obs *tabular.Metadata, batchKey string, opts HarmonyOptions) ([][]float32, error)

	// MNNCorrect corrects disjoint per-batch groups by mutual nearest
	// neighbors. Groups arrive in sorted batch-value order; the result is
	// the corrected rows concatenated in the same group order.
	MNNCorrect(ctx context.Context, groups [][][]float32, batchKey string) ([][]float32, error)

	// ScanoramaIntegrate produces a new integrated basis from a PCA
	// embedding.
	ScanoramaIntegrate(ctx context.Context, embedding [][]float32, obs *tabular.Metadata, batchKey string) ([][]float32, error)

	// Combat returns a batch-adjusted copy of the feature matrix. The input
	// must not be modified.
	Combat(ctx context.Context, x [][]float32, obs *tabular.Metadata, batchKey string) ([][]float32, error)

	// DESC runs the deep embedding-based clustering correction.
	DESC(ctx context.Context, x [][]float32, obs *tabular.Metadata, batchKey string) ([][]float32, error)

	// FitSCVI fits a conditional variational model on a non-negative matrix
	// and returns the latent representation.
	FitSCVI(ctx context.Context, x [][]float32, obs *tabular.Metadata, batchKey, labelKey string, opts SCVIOptions) ([][]float32, error)
}
