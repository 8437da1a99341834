// Package selection picks the best corrected dataset among the iterations of
// a parameter sweep, ranked by mean evaluation score.
package selection

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/profilekit/correct/blobstore"
	"github.com/profilekit/correct/tabular"
)

// ScoreColumn is the evaluation column the selector averages.
const ScoreColumn = "mean_average_precision"

// ErrNoCandidates is returned when there is nothing to select from.
var ErrNoCandidates = errors.New("no candidates to select from")

// ErrMissingScoreColumn indicates an evaluation map file without the
// expected score column.
type ErrMissingScoreColumn struct {
	Path   string
	Column string
}

func (e *ErrMissingScoreColumn) Error() string {
	return fmt.Sprintf("evaluation map %q has no %q column", e.Path, e.Column)
}

type candidate struct {
	dataset string
	score   float64
}

// SelectBest reads each evaluation map, averages its score column, and
// copies the dataset with the highest mean score to bestPath.
//
// Ties break toward the later entry in input order: candidates are stably
// sorted ascending and the last one wins. This mirrors the historical
// behavior of the pipeline and is deliberate.
func SelectBest(ctx context.Context, store blobstore.Store, mapFiles, datasetFiles []string, bestPath string) error {
	if len(mapFiles) == 0 || len(mapFiles) != len(datasetFiles) {
		return fmt.Errorf("%w: %d map files, %d dataset files", ErrNoCandidates, len(mapFiles), len(datasetFiles))
	}

	candidates := make([]candidate, 0, len(mapFiles))
	for i, mapFile := range mapFiles {
		score, err := meanScore(ctx, store, mapFile)
		if err != nil {
			return err
		}
		candidates = append(candidates, candidate{dataset: datasetFiles[i], score: score})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].score < candidates[j].score
	})
	best := candidates[len(candidates)-1]

	data, err := store.Get(ctx, best.dataset)
	if err != nil {
		return err
	}
	return store.Put(ctx, bestPath, data)
}

// meanScore averages the score column of one evaluation map file.
func meanScore(ctx context.Context, store blobstore.Store, path string) (float64, error) {
	ds, err := tabular.ReadFrom(ctx, store, path)
	if err != nil {
		return 0, err
	}

	col := -1
	for j, f := range ds.Features {
		if f == ScoreColumn {
			col = j
			break
		}
	}
	if col < 0 {
		return 0, &ErrMissingScoreColumn{Path: path, Column: ScoreColumn}
	}
	if len(ds.Values) == 0 {
		return 0, fmt.Errorf("evaluation map %q has no rows", path)
	}

	var sum float64
	for _, row := range ds.Values {
		sum += float64(row[col])
	}
	return sum / float64(len(ds.Values)), nil
}
