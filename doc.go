// Package correct removes batch effects from high-dimensional profiling
// datasets. It dispatches one of several interchangeable correction methods
// against a common tabular representation; ZCA sphering is implemented here,
// the remaining methods delegate to an external engine behind a fixed
// contract.
//
// # Quick Start
//
//	cfg, _ := config.Load("run.json")
//	wf, _ := correct.NewWorkflow(cfg)
//	correctedPath, _ := wf.Run(ctx)
//
// Parameter sweeps sample the sphering regularization log-uniformly and pick
// the best result by mean average precision:
//
//	sweep.Explore(ctx, sweep.Options{Iterations: 15}, runOne)
//	selection.SelectBest(ctx, store, mapFiles, datasetFiles, bestPath)
//
// Datasets are stored in a checksummed columnar format (see the tabular
// package) addressable on local disk, S3 or MinIO via the blobstore package.
package correct
