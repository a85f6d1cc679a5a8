package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/quarrylabs/ragsync/internal/adapters/driven/embedding"
	"github.com/quarrylabs/ragsync/internal/adapters/driven/storage/postgres"
	"github.com/quarrylabs/ragsync/internal/adapters/driven/storage/sqlite"
	"github.com/quarrylabs/ragsync/internal/chunker"
	"github.com/quarrylabs/ragsync/internal/config"
	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
	"github.com/quarrylabs/ragsync/internal/core/ports/driving"
	"github.com/quarrylabs/ragsync/internal/core/services"
	"github.com/quarrylabs/ragsync/internal/extractors"
	"github.com/quarrylabs/ragsync/internal/logger"
	"github.com/quarrylabs/ragsync/internal/watchers/drive"
	"github.com/quarrylabs/ragsync/internal/watchers/localfs"
)

// buildApp wires the configured application. Tests swap it for a
// constructor over in-memory fakes.
var buildApp = newApp

// app holds the wired pipelines and everything that needs closing.
type app struct {
	cfg       *config.Config
	pipelines []driving.PipelineRunner
	closers   []io.Closer
}

// newApp loads the configuration from the --config path and wires the
// stores, the embedding service and one pipeline per configured source.
// Every source is validated before anything starts, so a bad folder ID
// or an unreadable directory fails the whole startup.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		logger.SetVerbose(true)
	}

	a := &app{cfg: cfg}

	index, state, err := a.openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	embedder, err := embedding.CreateAndValidate(ctx, cfg.Embedding.Settings())
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("embedding service: %w", err)
	}
	a.closers = append(a.closers, embedder)

	registry := extractors.NewDefaultRegistry()

	for i := range cfg.Pipelines {
		pcfg := cfg.Pipelines[i]

		watcher, err := a.buildWatcher(ctx, pcfg)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("pipeline %q: %w", pcfg.ID, err)
		}
		a.closers = append(a.closers, watcher)

		if err := watcher.Validate(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("pipeline %q: validating source: %w", pcfg.ID, err)
		}

		splitter := chunker.New(
			chunker.WithChunkSize(pcfg.ChunkSize),
			chunker.WithOverlap(pcfg.ChunkOverlap),
		)

		pipeline := services.NewPipeline(services.PipelineConfig{
			PipelineID:     pcfg.ID,
			PipelineType:   pcfg.PipelineType(),
			CheckInterval:  pcfg.CheckInterval.Std(),
			EmbedBatchSize: cfg.Embedding.BatchSize,
		}, watcher, registry.Restrict(pcfg.MIMETypes), splitter, embedder, index, state)

		a.pipelines = append(a.pipelines, pipeline)
	}

	return a, nil
}

// openStores opens the configured store backend and returns its two
// port views. The backing store is registered for closing once.
func (a *app) openStores(ctx context.Context, cfg *config.Config) (driven.IndexStore, driven.StateStore, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		store, err := postgres.NewStore(ctx, postgres.Config{
			DSN:        cfg.Store.DSN,
			Dimensions: cfg.EffectiveDimensions(),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}
		a.closers = append(a.closers, store)
		return store.IndexStore(), store.StateStore(), nil

	default:
		store, err := sqlite.NewStore(cfg.Store.DataDir)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		a.closers = append(a.closers, store)
		return store.IndexStore(), store.StateStore(), nil
	}
}

// buildWatcher constructs the source watcher for one pipeline.
func (a *app) buildWatcher(ctx context.Context, pcfg config.PipelineConfig) (driven.SourceWatcher, error) {
	switch pcfg.PipelineType() {
	case domain.PipelineGoogleDrive:
		dcfg := drive.DefaultConfig()
		dcfg.PipelineID = pcfg.ID
		dcfg.FolderID = pcfg.FolderID
		dcfg.Recursive = pcfg.RecursiveEnabled()
		dcfg.CredentialsFile = pcfg.CredentialsFile
		dcfg.TokenFile = pcfg.TokenFile
		dcfg.ServiceAccountFile = pcfg.ServiceAccountFile
		if err := dcfg.Validate(); err != nil {
			return nil, err
		}

		svc, err := drive.Connect(ctx, dcfg)
		if err != nil {
			return nil, fmt.Errorf("connecting to drive: %w", err)
		}
		return drive.New(dcfg, svc), nil

	default:
		return localfs.New(pcfg.ID, pcfg.Directory), nil
	}
}

// Close releases resources in reverse construction order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Warn("Close failed: %v", err)
		}
	}
	a.closers = nil
}
