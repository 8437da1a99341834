package correct

import (
	"context"
	"fmt"
	"path/filepath"

	miniogo "github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/profilekit/correct/blobstore"
	miniostore "github.com/profilekit/correct/blobstore/minio"
	s3store "github.com/profilekit/correct/blobstore/s3"
	"github.com/profilekit/correct/config"
	"github.com/profilekit/correct/correction"
	"github.com/profilekit/correct/sphering"
	"github.com/profilekit/correct/tabular"
)

// CorrectedEmbed is the embedding slot every correction unit writes to.
const CorrectedEmbed = "X_corrected"

// Workflow resolves a loaded configuration into one correction run.
type Workflow struct {
	cfg    config.Config
	store  blobstore.Store
	engine correction.Engine
	logger *Logger
}

// WorkflowOption configures workflow construction.
type WorkflowOption func(*Workflow)

// WithStore overrides the blob store derived from the configuration.
func WithStore(store blobstore.Store) WorkflowOption {
	return func(w *Workflow) { w.store = store }
}

// WithEngine provides the external engine the delegated correction methods
// run on. Sphering needs no engine.
func WithEngine(engine correction.Engine) WorkflowOption {
	return func(w *Workflow) { w.engine = engine }
}

// WithLogger overrides the default text logger.
func WithLogger(logger *Logger) WorkflowOption {
	return func(w *Workflow) { w.logger = logger }
}

// NewWorkflow validates the configuration and builds a runnable workflow.
func NewWorkflow(cfg config.Config, opts ...WorkflowOption) (*Workflow, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if _, err := correction.ParseMethod(cfg.Method); err != nil {
		return nil, err
	}

	w := &Workflow{cfg: cfg}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = NewLogger(nil)
	}
	w.logger = w.logger.WithRun(cfg.Method, cfg.OutputDir)
	return w, nil
}

// CorrectedPath returns where the corrected dataset is written.
func (w *Workflow) CorrectedPath() string {
	return filepath.Join(w.cfg.OutputDir, w.cfg.Method+"_corrected.dset")
}

// OperatorPath returns where the fitted whitening operator is written.
// Only meaningful for the sphering method.
func (w *Workflow) OperatorPath() string {
	return filepath.Join(w.cfg.OutputDir, "whitener.op")
}

// Run executes the configured correction and returns the corrected dataset
// path. Evaluation of the result happens outside this repository.
func (w *Workflow) Run(ctx context.Context) (string, error) {
	method, err := correction.ParseMethod(w.cfg.Method)
	if err != nil {
		return "", err
	}

	store := w.store
	if store == nil {
		if store, err = OpenStore(ctx, w.cfg.Storage); err != nil {
			return "", err
		}
	}

	if method == correction.MethodSphering {
		if err := w.runSphering(ctx, store); err != nil {
			return "", err
		}
		return w.CorrectedPath(), nil
	}

	if err := w.runUnit(ctx, store, method); err != nil {
		return "", err
	}
	return w.CorrectedPath(), nil
}

func (w *Workflow) runSphering(ctx context.Context, store blobstore.Store) error {
	mode, err := sphering.ParseMode(w.cfg.SpheringMode)
	if err != nil {
		return err
	}
	return sphering.Run(ctx, store, sphering.RunParams{
		DatasetPath:  w.cfg.DatasetPath,
		Mode:         mode,
		Lambda:       w.cfg.SpheringLambda,
		SelectColumn: w.cfg.NormColumn,
		SelectValues: w.cfg.NormValues,
		SpheredPath:  w.CorrectedPath(),
		OperatorPath: w.OperatorPath(),
		Logger:       w.logger.Logger,
	})
}

func (w *Workflow) runUnit(ctx context.Context, store blobstore.Store, method correction.Method) error {
	ds, err := tabular.ReadFrom(ctx, store, w.cfg.DatasetPath)
	if err != nil {
		return err
	}
	adata, err := correction.FromDataset(ds)
	if err != nil {
		return err
	}

	unit, ok := correction.MethodMap(w.cfg.BatchKey, w.cfg.LabelKey)[method]
	if !ok {
		return &correction.ErrUnknownMethod{Name: method.String()}
	}

	w.logger.Info("applying correction", "rows", adata.Rows(), "features", adata.Cols())
	if err := unit.Apply(ctx, w.engine, adata, CorrectedEmbed); err != nil {
		return err
	}

	emb, _ := adata.Embedding(CorrectedEmbed)
	out := &tabular.Dataset{
		Metadata: adata.Obs,
		Values:   emb,
		Features: embeddingFeatures(adata, emb),
	}
	if err := tabular.WriteTo(ctx, store, w.CorrectedPath(), out); err != nil {
		return err
	}

	w.logger.Info("correction complete", "corrected", w.CorrectedPath())
	return nil
}

// embeddingFeatures keeps the original feature names when the embedding has
// full width, and generates names for reduced embeddings.
func embeddingFeatures(adata *correction.AnnData, emb [][]float32) []string {
	width := 0
	if len(emb) > 0 {
		width = len(emb[0])
	}
	if width == len(adata.Var) {
		return adata.Var
	}
	names := make([]string, width)
	for i := range names {
		names[i] = fmt.Sprintf("corrected_%03d", i)
	}
	return names
}

// OpenStore builds the blob store named by the storage configuration.
func OpenStore(ctx context.Context, s config.Storage) (blobstore.Store, error) {
	switch s.Backend {
	case "", "local":
		return blobstore.NewLocalStore(""), nil
	case "s3":
		return s3store.New(ctx, s.Bucket, s.Prefix, s.Region)
	case "minio":
		client, err := miniogo.New(s.Endpoint, &miniogo.Options{
			Creds:  miniocreds.NewStaticV4(s.AccessKey, s.SecretKey, ""),
			Secure: s.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("minio client: %w", err)
		}
		return miniostore.NewStore(client, s.Bucket, s.Prefix), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", s.Backend)
	}
}
