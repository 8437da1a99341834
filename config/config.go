// Package config loads and validates the pipeline configuration document.
// The core packages never read configuration themselves; they receive
// already-resolved scalars and paths from here.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Storage selects where dataset and operator blobs live.
type Storage struct {
	// Backend is one of "local", "s3" or "minio".
	Backend string `mapstructure:"backend"`
	// Bucket and Prefix apply to the s3 and minio backends.
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
	// Region applies to the s3 backend.
	Region string `mapstructure:"region"`
	// Endpoint applies to the minio backend (host:port).
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// Config is the resolved configuration of one correction run.
type Config struct {
	// Method names the correction method to apply.
	Method string `mapstructure:"method"`

	// SpheringMode is "cov" or "corr"; SpheringLambda is the regularization
	// added to the eigen-spectrum.
	SpheringMode   string  `mapstructure:"sphering_mode"`
	SpheringLambda float64 `mapstructure:"sphering_lambda"`

	// EpsilonMAD parameterizes the outlier-removal step that runs outside
	// this repository; it travels with the config so sweeps can vary it.
	EpsilonMAD float64 `mapstructure:"epsilon_mad"`

	BatchKey string `mapstructure:"batch_key"`
	LabelKey string `mapstructure:"label_key"`

	// NormColumn and NormValues define the training-row predicate for
	// sphering.
	NormColumn string   `mapstructure:"norm_column"`
	NormValues []string `mapstructure:"norm_values"`

	DatasetPath string `mapstructure:"dataset_path"`
	OutputDir   string `mapstructure:"output_dir"`

	Storage Storage `mapstructure:"storage"`
}

// Load reads a configuration file (JSON, YAML or TOML by extension).
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetDefault("method", "sphering")
	v.SetDefault("sphering_mode", "corr")
	v.SetDefault("storage.backend", "local")

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the fields every run needs. Method- and backend-specific
// fields are validated where they are consumed.
func (c Config) Validate() error {
	if c.Method == "" {
		return fmt.Errorf("config: method is required")
	}
	if c.DatasetPath == "" {
		return fmt.Errorf("config: dataset_path is required")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("config: output_dir is required")
	}
	if c.SpheringLambda < 0 {
		return fmt.Errorf("config: sphering_lambda must be non-negative, got %g", c.SpheringLambda)
	}
	switch c.Storage.Backend {
	case "local", "s3", "minio":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Storage.Backend != "local" && c.Storage.Bucket == "" {
		return fmt.Errorf("config: storage.bucket is required for backend %q", c.Storage.Backend)
	}
	return nil
}
