package correction

import (
	"context"
	"fmt"
	"sort"

	"github.com/profilekit/correct/internal/f32"
	"github.com/profilekit/correct/tabular"
)

// Fixed parameters of the delegated algorithms, matching the published
// pipeline configuration.
const (
	harmonyMaxIter   = 20
	harmonyClusters  = 300
	scviLatentDims   = 30
	scviHiddenLayers = 2
)

// ErrObsColumnNotFound indicates that a bound metadata key is missing from
// the observation metadata.
type ErrObsColumnNotFound struct {
	Column string
}

func (e *ErrObsColumnNotFound) Error() string {
	return fmt.Sprintf("observation column not found: %q", e.Column)
}

// Apply runs the unit against the annotated dataset. Its only side effect is
// adding one embedding under correctedEmbed; the raw feature matrix is never
// modified (combat and scvi work on adjusted copies).
func (u Unit) Apply(ctx context.Context, eng Engine, adata *AnnData, correctedEmbed string) error {
	switch u.Method {
	case MethodSphering:
		// Identity pass-through: sphering proper runs outside the registry.
		return adata.SetEmbedding(correctedEmbed, f32.Clone(adata.X))

	case MethodHarmony:
		if eng == nil {
			return ErrNoEngine
		}
		emb, err := pcaEmbed(adata.X, min(adata.Rows(), adata.Cols())-1)
		if err != nil {
			return err
		}
		out, err := eng.RunHarmony(ctx, emb, adata.Obs, u.Params.BatchKey, HarmonyOptions{
			MaxIter:  harmonyMaxIter,
			Clusters: harmonyClusters,
		})
		if err != nil {
			return err
		}
		return adata.SetEmbedding(correctedEmbed, out)

	case MethodScanorama:
		if eng == nil {
			return ErrNoEngine
		}
		emb, err := pcaEmbed(adata.X, min(adata.Rows(), adata.Cols())-1)
		if err != nil {
			return err
		}
		out, err := eng.ScanoramaIntegrate(ctx, emb, adata.Obs, u.Params.BatchKey)
		if err != nil {
			return err
		}
		return adata.SetEmbedding(correctedEmbed, out)

	case MethodMNN:
		if eng == nil {
			return ErrNoEngine
		}
		groups, rowOrder, err := groupByBatch(adata, u.Params.BatchKey)
		if err != nil {
			return err
		}
		out, err := eng.MNNCorrect(ctx, groups, u.Params.BatchKey)
		if err != nil {
			return err
		}
		if len(out) != adata.Rows() {
			return &tabular.ErrShapeMismatch{
				Reason: fmt.Sprintf("mnn returned %d rows, want %d", len(out), adata.Rows()),
			}
		}
		// The engine returns rows in concatenated group order; scatter them
		// back so the embedding stays row-aligned with the observations.
		aligned := make([][]float32, adata.Rows())
		for pos, row := range rowOrder {
			aligned[row] = out[pos]
		}
		return adata.SetEmbedding(correctedEmbed, aligned)

	case MethodCombat:
		if eng == nil {
			return ErrNoEngine
		}
		out, err := eng.Combat(ctx, adata.X, adata.Obs, u.Params.BatchKey)
		if err != nil {
			return err
		}
		return adata.SetEmbedding(correctedEmbed, out)

	case MethodDESC:
		if eng == nil {
			return ErrNoEngine
		}
		out, err := eng.DESC(ctx, adata.X, adata.Obs, u.Params.BatchKey)
		if err != nil {
			return err
		}
		return adata.SetEmbedding(correctedEmbed, out)

	case MethodSCVI:
		if eng == nil {
			return ErrNoEngine
		}
		// The variational model expects non-negative input: train on a
		// shifted copy, leave X alone.
		shifted := f32.Clone(adata.X)
		minVal := f32.Min(shifted)
		for _, row := range shifted {
			for j := range row {
				row[j] -= minVal
			}
		}
		out, err := eng.FitSCVI(ctx, shifted, adata.Obs, u.Params.BatchKey, u.Params.LabelKey, SCVIOptions{
			LatentDims:   scviLatentDims,
			HiddenLayers: scviHiddenLayers,
		})
		if err != nil {
			return err
		}
		return adata.SetEmbedding(correctedEmbed, out)

	default:
		return &ErrUnknownMethod{Name: u.Method.String()}
	}
}

// groupByBatch splits the rows of adata into disjoint per-batch groups in
// sorted batch-value order. rowOrder maps concatenated group positions back
// to original row indices.
func groupByBatch(adata *AnnData, batchKey string) (groups [][][]float32, rowOrder []int, err error) {
	col, ok := adata.Obs.Column(batchKey)
	if !ok {
		return nil, nil, &ErrObsColumnNotFound{Column: batchKey}
	}

	byBatch := make(map[string][]int)
	for i, v := range col {
		byBatch[v] = append(byBatch[v], i)
	}

	batches := make([]string, 0, len(byBatch))
	for v := range byBatch {
		batches = append(batches, v)
	}
	sort.Strings(batches)

	rowOrder = make([]int, 0, adata.Rows())
	groups = make([][][]float32, 0, len(batches))
	for _, v := range batches {
		idx := byBatch[v]
		group := make([][]float32, len(idx))
		for k, i := range idx {
			group[k] = adata.X[i]
		}
		groups = append(groups, group)
		rowOrder = append(rowOrder, idx...)
	}
	return groups, rowOrder, nil
}
