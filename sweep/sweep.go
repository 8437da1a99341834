// Package sweep explores regularization parameters: it samples lambda values
// log-uniformly, runs the correction workflow once per sample in a scoped
// temporary directory, and leaves ranking the results to the selection
// package.
package sweep

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultSeed is the fixed sweep seed, kept stable so published runs stay
// reproducible.
const DefaultSeed = 6122022

const (
	defaultMinExp = -6
	defaultMaxExp = -1
)

// Options configure a parameter sweep.
type Options struct {
	// Iterations is the number of parameter samples to run.
	Iterations int
	// Seed drives the sampling; 0 means DefaultSeed.
	Seed int64
	// MinExp and MaxExp bound the sampled exponent: lambda = 10^U(MinExp,
	// MaxExp). Both zero means the default range [-6, -1].
	MinExp, MaxExp float64
	// Parallelism bounds how many iterations run at once. Values < 1 run
	// sequentially. Iterations are independent: each writes to its own
	// temporary directory and output path.
	Parallelism int
}

// Iteration is one sampled sweep step handed to the run function.
type Iteration struct {
	Index  int
	RunID  string
	Lambda float64
	// TempDir is a scratch directory scoped to this iteration. It is
	// removed when the iteration finishes, whether it succeeded or not.
	TempDir string
}

// RunFunc executes one sweep iteration.
type RunFunc func(ctx context.Context, it Iteration) error

// LogUniform samples 10^U(minExp, maxExp).
func LogUniform(rng *rand.Rand, minExp, maxExp float64) float64 {
	return math.Pow(10, minExp+(maxExp-minExp)*rng.Float64())
}

// SampleLambdas returns n deterministic log-uniform regularization samples.
func SampleLambdas(n int, seed int64, minExp, maxExp float64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = LogUniform(rng, minExp, maxExp)
	}
	return out
}

// Explore samples opts.Iterations lambda values and invokes run once per
// sample. Sampling happens up front, so the lambda sequence is identical
// regardless of parallelism. The first failing iteration cancels the rest
// and its error is returned.
func Explore(ctx context.Context, opts Options, run RunFunc) error {
	if opts.Iterations < 1 {
		return fmt.Errorf("sweep: iterations must be positive, got %d", opts.Iterations)
	}
	seed := opts.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	minExp, maxExp := opts.MinExp, opts.MaxExp
	if minExp == 0 && maxExp == 0 {
		minExp, maxExp = defaultMinExp, defaultMaxExp
	}

	lambdas := SampleLambdas(opts.Iterations, seed, minExp, maxExp)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, opts.Parallelism))

	for i, lambda := range lambdas {
		it := Iteration{
			Index:  i,
			RunID:  uuid.NewString(),
			Lambda: lambda,
		}
		g.Go(func() error {
			tmpDir, err := os.MkdirTemp("", fmt.Sprintf("sweep-%02d-", it.Index))
			if err != nil {
				return fmt.Errorf("sweep iteration %d: %w", it.Index, err)
			}
			defer os.RemoveAll(tmpDir)
			it.TempDir = tmpDir

			if err := ctx.Err(); err != nil {
				return err
			}
			if err := run(ctx, it); err != nil {
				return fmt.Errorf("sweep iteration %d (lambda=%g): %w", it.Index, it.Lambda, err)
			}
			return nil
		})
	}

	return g.Wait()
}
