package app

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/vk/bluegraph/cachestore"
	"github.com/vk/bluegraph/engine"
	"github.com/vk/bluegraph/internal/ctxlog"
	"github.com/vk/bluegraph/internal/pipeline"
)

// Run executes the main application logic based on the provided configuration.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	stores := make(map[string]cachestore.Store)
	opener := func(name string) cachestore.Store {
		if s, ok := stores[name]; ok {
			return s
		}
		s := cachestore.NewFileStore(filepath.Join(a.config.CacheDir, name+".bgc"))
		stores[name] = s
		return s
	}

	p, err := pipeline.Load(ctx, a.config.PipelinePath, a.registry, opener)
	if err != nil {
		return fmt.Errorf("failed to load pipeline: %w", err)
	}
	a.logger.Debug("Pipeline loaded.", "steps", len(p.Steps), "caches", len(stores))

	opts := []engine.Option{engine.WithPolicy(engine.Serial())}
	if a.config.Workers > 1 {
		opts = []engine.Option{engine.WithPolicy(engine.Pool(a.config.Workers))}
	}
	if a.config.Readonly {
		opts = append(opts, engine.WithReadonly())
	}
	if a.config.NoCopy {
		opts = append(opts, engine.WithoutCopy())
	}

	a.logger.Info("🚀 Starting pipeline execution...", "workers", a.config.Workers)
	result, err := engine.Construct(ctx, p.Target, opts...)
	if err != nil {
		return fmt.Errorf("execution failed: %w", err)
	}
	a.logger.Info("🏁 Execution finished.")

	enc := json.NewEncoder(a.outW)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}

	a.logger.Debug("App.Run method finished.")
	return nil
}
