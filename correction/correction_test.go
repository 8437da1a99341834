package correction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/profilekit/correct/tabular"
)

// stubEngine records the arguments of each delegated call and returns
// canned embeddings.
type stubEngine struct {
	harmonyEmbedding [][]float32
	harmonyOpts      HarmonyOptions
	harmonyBatchKey  string

	mnnGroups [][][]float32

	scviInput [][]float32
	scviOpts  SCVIOptions
	scviBatch string
	scviLabel string

	combatInput [][]float32

	result [][]float32
}

func (s *stubEngine) RunHarmony(_ context.Context, embedding [][]float32, _ *tabular.Metadata, batchKey string, opts HarmonyOptions) ([][]float32, error) {
	s.harmonyEmbedding = embedding
	s.harmonyOpts = opts
	s.harmonyBatchKey = batchKey
	return s.result, nil
}

func (s *stubEngine) MNNCorrect(_ context.Context, groups [][][]float32, _ string) ([][]float32, error) {
	s.mnnGroups = groups
	if s.result != nil {
		return s.result, nil
	}
	var out [][]float32
	for _, g := range groups {
		out = append(out, g...)
	}
	return out, nil
}

func (s *stubEngine) ScanoramaIntegrate(_ context.Context, embedding [][]float32, _ *tabular.Metadata, _ string) ([][]float32, error) {
	s.harmonyEmbedding = embedding
	return s.result, nil
}

func (s *stubEngine) Combat(_ context.Context, x [][]float32, _ *tabular.Metadata, _ string) ([][]float32, error) {
	s.combatInput = x
	return s.result, nil
}

func (s *stubEngine) DESC(_ context.Context, _ [][]float32, _ *tabular.Metadata, _ string) ([][]float32, error) {
	return s.result, nil
}

func (s *stubEngine) FitSCVI(_ context.Context, x [][]float32, _ *tabular.Metadata, batchKey, labelKey string, opts SCVIOptions) ([][]float32, error) {
	s.scviInput = x
	s.scviOpts = opts
	s.scviBatch = batchKey
	s.scviLabel = labelKey
	return s.result, nil
}

func testAnnData(t *testing.T) *AnnData {
	t.Helper()

	meta := tabular.NewMetadata()
	require.NoError(t, meta.Add("batch", []string{"b2", "b1", "b2", "b1"}))
	require.NoError(t, meta.Add("label", []string{"x", "y", "x", "y"}))

	adata, err := FromDataset(&tabular.Dataset{
		Metadata: meta,
		Values: [][]float32{
			{1, -2, 3},
			{4, 5, 6},
			{-7, 8, 9},
			{10, 11, 12},
		},
		Features: []string{"f1", "f2", "f3"},
	})
	require.NoError(t, err)
	return adata
}

func TestMethodMap_Complete(t *testing.T) {
	units := MethodMap("batch", "label")

	require.Len(t, units, 7)
	for _, m := range []Method{MethodHarmony, MethodMNN, MethodScanorama, MethodCombat, MethodDESC, MethodSphering, MethodSCVI} {
		u, ok := units[m]
		require.True(t, ok, "missing method %s", m)
		assert.Equal(t, "batch", u.Params.BatchKey)
		assert.Equal(t, "label", u.Params.LabelKey)
	}

	_, ok := units[Method(99)]
	assert.False(t, ok)
}

func TestParseMethod(t *testing.T) {
	for _, m := range Methods() {
		got, err := ParseMethod(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}

	_, err := ParseMethod("magic")
	var unknown *ErrUnknownMethod
	require.True(t, errors.As(err, &unknown))
	assert.Equal(t, "magic", unknown.Name)
}

func TestApply_SpheringIdentity(t *testing.T) {
	adata := testAnnData(t)
	unit := MethodMap("batch", "label")[MethodSphering]

	// Identity pass-through needs no engine.
	require.NoError(t, unit.Apply(context.Background(), nil, adata, "X_corrected"))

	emb, ok := adata.Embedding("X_corrected")
	require.True(t, ok)
	assert.Equal(t, adata.X, emb)

	// The embedding is a copy: mutating it must not touch X.
	emb[0][0] = 999
	assert.Equal(t, float32(1), adata.X[0][0])
}

func TestApply_Harmony(t *testing.T) {
	adata := testAnnData(t)
	eng := &stubEngine{result: [][]float32{{1}, {2}, {3}, {4}}}
	unit := MethodMap("batch", "label")[MethodHarmony]

	require.NoError(t, unit.Apply(context.Background(), eng, adata, "X_corrected"))

	// PCA embedding has min(rows, cols)-1 components.
	require.Len(t, eng.harmonyEmbedding, 4)
	assert.Len(t, eng.harmonyEmbedding[0], 2)
	assert.Equal(t, HarmonyOptions{MaxIter: 20, Clusters: 300}, eng.harmonyOpts)
	assert.Equal(t, "batch", eng.harmonyBatchKey)

	emb, ok := adata.Embedding("X_corrected")
	require.True(t, ok)
	assert.Equal(t, eng.result, emb)
}

func TestApply_MNN_GroupsAndRealignment(t *testing.T) {
	adata := testAnnData(t)
	eng := &stubEngine{}
	unit := MethodMap("batch", "label")[MethodMNN]

	require.NoError(t, unit.Apply(context.Background(), eng, adata, "X_corrected"))

	// Groups arrive in sorted batch order: b1 (rows 1, 3) then b2 (rows 0, 2).
	require.Len(t, eng.mnnGroups, 2)
	assert.Equal(t, [][]float32{{4, 5, 6}, {10, 11, 12}}, eng.mnnGroups[0])
	assert.Equal(t, [][]float32{{1, -2, 3}, {-7, 8, 9}}, eng.mnnGroups[1])

	// The engine echoes rows in group order; the embedding must be scattered
	// back to the original row alignment.
	emb, ok := adata.Embedding("X_corrected")
	require.True(t, ok)
	assert.Equal(t, adata.X, emb)
}

func TestApply_CombatNonDestructive(t *testing.T) {
	adata := testAnnData(t)
	eng := &stubEngine{result: [][]float32{{9, 9, 9}, {9, 9, 9}, {9, 9, 9}, {9, 9, 9}}}
	unit := MethodMap("batch", "label")[MethodCombat]

	before := adata.X[0][0]
	require.NoError(t, unit.Apply(context.Background(), eng, adata, "X_corrected"))

	emb, ok := adata.Embedding("X_corrected")
	require.True(t, ok)
	assert.Equal(t, eng.result, emb)
	assert.Equal(t, before, adata.X[0][0])
}

func TestApply_SCVI(t *testing.T) {
	adata := testAnnData(t)
	eng := &stubEngine{result: [][]float32{{0}, {0}, {0}, {0}}}
	unit := MethodMap("batch", "label")[MethodSCVI]

	require.NoError(t, unit.Apply(context.Background(), eng, adata, "X_corrected"))

	assert.Equal(t, SCVIOptions{LatentDims: 30, HiddenLayers: 2}, eng.scviOpts)
	assert.Equal(t, "batch", eng.scviBatch)
	assert.Equal(t, "label", eng.scviLabel)

	// The model input is shifted to be non-negative; X itself is untouched.
	var minSeen float32
	for _, row := range eng.scviInput {
		for _, v := range row {
			if v < minSeen {
				minSeen = v
			}
		}
	}
	assert.GreaterOrEqual(t, minSeen, float32(0))
	assert.Equal(t, float32(0), eng.scviInput[2][0])
	assert.Equal(t, float32(-7), adata.X[2][0])
}

func TestApply_NoEngine(t *testing.T) {
	adata := testAnnData(t)
	for _, m := range []Method{MethodHarmony, MethodMNN, MethodScanorama, MethodCombat, MethodDESC, MethodSCVI} {
		unit := MethodMap("batch", "label")[m]
		err := unit.Apply(context.Background(), nil, adata, "X_corrected")
		assert.True(t, errors.Is(err, ErrNoEngine), "method %s", m)
	}
}

func TestApply_UnknownMethod(t *testing.T) {
	adata := testAnnData(t)
	unit := Unit{Method: Method(42)}

	err := unit.Apply(context.Background(), &stubEngine{}, adata, "X_corrected")
	var unknown *ErrUnknownMethod
	assert.True(t, errors.As(err, &unknown))
}

func TestApply_MNN_MissingBatchColumn(t *testing.T) {
	adata := testAnnData(t)
	unit := MethodMap("absent", "label")[MethodMNN]

	err := unit.Apply(context.Background(), &stubEngine{}, adata, "X_corrected")
	var missing *ErrObsColumnNotFound
	assert.True(t, errors.As(err, &missing))
}

func TestSetEmbedding_RowMismatch(t *testing.T) {
	adata := testAnnData(t)

	err := adata.SetEmbedding("bad", [][]float32{{1}})
	var shape *tabular.ErrShapeMismatch
	assert.True(t, errors.As(err, &shape))
}
