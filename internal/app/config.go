package app

import "errors"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	PipelinePath string // hcl pipeline file
	CacheDir     string // directory holding one cache file per store name

	LogFormat string
	LogLevel  string
	Workers   int
	Readonly  bool
	NoCopy    bool
}

// NewConfig validates a Config and returns it.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.PipelinePath == "" {
		return nil, errors.New("PipelinePath is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 0 {
		return nil, errors.New("Workers cannot be negative")
	}
	if cfg.CacheDir == "" {
		cfg.CacheDir = "."
	}
	return &cfg, nil
}
