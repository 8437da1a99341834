package correction

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/profilekit/correct/internal/f32"
)

// ErrPCAFailed is returned when the principal component factorization does
// not converge.
var ErrPCAFailed = errors.New("pca factorization failed")

// pcaEmbed projects rows onto their first comps principal components.
// Rows are centered with their column means before projection.
func pcaEmbed(rows [][]float32, comps int) ([][]float32, error) {
	x := f32.Dense(rows)
	n, d := x.Dims()
	if comps < 1 || comps > min(n, d) {
		return nil, fmt.Errorf("pca components out of range: %d (matrix %dx%d)", comps, n, d)
	}

	var pc stat.PC
	if !pc.PrincipalComponents(x, nil) {
		return nil, ErrPCAFailed
	}
	var vecs mat.Dense
	pc.VectorsTo(&vecs)

	centered := mat.NewDense(n, d, nil)
	for j := 0; j < d; j++ {
		mean := stat.Mean(mat.Col(nil, j, x), nil)
		for i := 0; i < n; i++ {
			centered.Set(i, j, x.At(i, j)-mean)
		}
	}

	var proj mat.Dense
	proj.Mul(centered, vecs.Slice(0, d, 0, comps))
	return f32.Rows(&proj), nil
}
