package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
	"github.com/quarrylabs/ragsync/internal/core/ports/driving"
	"github.com/quarrylabs/ragsync/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineRunner = (*Pipeline)(nil)

// Defaults applied by NewPipeline to zero-valued config fields.
const (
	// DefaultCheckInterval is the pause between cycles when none is
	// configured.
	DefaultCheckInterval = 60 * time.Second

	// DefaultEmbedBatchSize caps chunks per embedding request.
	DefaultEmbedBatchSize = 100

	defaultRetryBaseDelay  = time.Second
	defaultHeartbeatPeriod = 30 * time.Second

	// embedMaxAttempts bounds embedding retries per batch, first try
	// included.
	embedMaxAttempts = 3
)

// PipelineConfig configures one pipeline instance.
type PipelineConfig struct {
	// PipelineID identifies the instance; persisted state is keyed by it.
	PipelineID string

	// PipelineType tags which watcher variant feeds the pipeline.
	PipelineType domain.PipelineType

	// CheckInterval is the pause between sync cycles in continuous mode.
	CheckInterval time.Duration

	// EmbedBatchSize caps how many chunks are embedded per request.
	EmbedBatchSize int

	// RetryBaseDelay is the initial embedding retry delay; it doubles
	// on each further attempt. Zero means one second.
	RetryBaseDelay time.Duration

	// HeartbeatPeriod is how often liveness is persisted in continuous
	// mode. Zero means thirty seconds.
	HeartbeatPeriod time.Duration
}

// Pipeline drives one watched source through the full ingestion cycle:
// enumerate, diff against the known-files snapshot, fetch, extract,
// chunk, embed and index each changed file, remove orphans, persist the
// snapshot. Files are processed sequentially; an interleaved upsert and
// delete for the same file would race the replace-all transaction.
type Pipeline struct {
	cfg        PipelineConfig
	watcher    driven.SourceWatcher
	extractors driven.ExtractorRegistry
	splitter   driven.Splitter
	embedder   driven.EmbeddingService
	index      driven.IndexStore
	state      driven.StateStore
	tracker    *StatusTracker

	mu     sync.Mutex
	known  domain.KnownFilesSnapshot
	loaded bool
}

// NewPipeline wires a pipeline instance from its ports. Zero-valued
// config fields fall back to defaults.
func NewPipeline(
	cfg PipelineConfig,
	watcher driven.SourceWatcher,
	extractors driven.ExtractorRegistry,
	splitter driven.Splitter,
	embedder driven.EmbeddingService,
	index driven.IndexStore,
	state driven.StateStore,
) *Pipeline {
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = DefaultCheckInterval
	}
	if cfg.EmbedBatchSize <= 0 {
		cfg.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = defaultRetryBaseDelay
	}
	if cfg.HeartbeatPeriod <= 0 {
		cfg.HeartbeatPeriod = defaultHeartbeatPeriod
	}

	return &Pipeline{
		cfg:        cfg,
		watcher:    watcher,
		extractors: extractors,
		splitter:   splitter,
		embedder:   embedder,
		index:      index,
		state:      state,
		tracker:    NewStatusTracker(cfg.PipelineID, cfg.PipelineType, cfg.CheckInterval),
	}
}

// ID returns the pipeline instance identifier.
func (p *Pipeline) ID() string {
	return p.cfg.PipelineID
}

// Status returns a deep-copied snapshot of the pipeline's state.
func (p *Pipeline) Status() domain.RunState {
	return p.tracker.Snapshot()
}

// RunOnce performs exactly one sync cycle and returns its statistics.
func (p *Pipeline) RunOnce(ctx context.Context) (domain.CycleStats, error) {
	return p.runCycle(ctx)
}

// runCycle wraps a cycle with status transitions: checking while the
// cycle runs, then idle, or error when the cycle aborted.
func (p *Pipeline) runCycle(ctx context.Context) (domain.CycleStats, error) {
	p.tracker.BeginCheck()
	stats, err := p.cycle(ctx)
	p.tracker.EndCheck()
	if err != nil {
		p.tracker.SetStatus(domain.StatusError)
	}
	return stats, err
}

// cycle is one pass of the sync algorithm.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (p *Pipeline) cycle(ctx context.Context) (domain.CycleStats, error) {
	start := time.Now()
	var stats domain.CycleStats

	fail := func(err error) (domain.CycleStats, error) {
		stats.Errors++
		stats.Duration = time.Since(start)
		return stats, err
	}

	// 1. Snapshot: loaded from the state store on the first cycle
	// after start, from memory afterwards.
	known, err := p.loadSnapshot(ctx)
	if err != nil {
		return fail(fmt.Errorf("loading sync state: %w", err))
	}

	// 2. Enumerate the source. A failed listing aborts the cycle with
	// nothing mutated, so the same delta is recomputed next time. An
	// empty result here would read as "every file was deleted".
	listing, err := p.watcher.List(ctx)
	if err != nil {
		return fail(fmt.Errorf("listing source: %w", err))
	}

	// Files no extractor handles are invisible to the diff: never
	// indexed, never counted as orphan sources, and removed from the
	// index through the orphan path if a previously supported file
	// changed type.
	current := p.supportedOnly(listing)

	// 3. Diff the enumeration against the snapshot.
	changes := ComputeChanges(current, known)

	// 4. Orphans are derived from the index, not the snapshot, so
	// deletions that happened while the process was down are caught on
	// the first cycle after restart.
	indexed, err := p.index.FileIDs(ctx)
	if err != nil {
		return fail(fmt.Errorf("listing indexed files: %w", err))
	}
	orphans := ComputeOrphans(indexed, current)

	logger.Debug("[%s] Cycle delta: %d added, %d modified, %d deleted, %d orphans",
		p.cfg.PipelineID, len(changes.Added), len(changes.Modified), len(changes.Deleted), len(orphans))

	// 5. Process added and modified files sequentially. A failed file
	// is marked failed and left out of the snapshot so the next cycle
	// retries it; it never aborts the cycle.
	cancelled := false
	for _, file := range append(changes.Added, changes.Modified...) {
		if ctx.Err() != nil {
			cancelled = true
			break
		}

		p.tracker.AddProcessing(file.Name)
		err := p.processFile(ctx, file)
		p.tracker.Complete(file.Name, err)

		if err != nil {
			logger.Warn("[%s] Failed to process %s: %v", p.cfg.PipelineID, file.Name, err)
			stats.Errors++
			delete(known, file.FileID)
			continue
		}
		known[file.FileID] = domain.KnownFile{ModifiedAt: file.ModifiedAt}
		stats.FilesProcessed++
	}

	// Cancellation skips deletions and persistence entirely: the
	// snapshot is only saved after deletions have been issued, and
	// completed upserts are idempotent on the next run.
	if cancelled {
		stats.Duration = time.Since(start)
		return stats, ctx.Err()
	}

	// 6. Remove deleted files from the snapshot and orphans from the
	// index. A failed deletion is recomputed as an orphan next cycle.
	for _, id := range changes.Deleted {
		delete(known, id)
	}
	for _, id := range orphans {
		if err := p.index.DeleteFile(ctx, id); err != nil {
			logger.Warn("[%s] Failed to delete %s from index: %v", p.cfg.PipelineID, id, err)
			stats.Errors++
			continue
		}
		logger.Debug("[%s] Removed orphan: %s", p.cfg.PipelineID, id)
		stats.FilesDeleted++
	}

	// 7. Persist the snapshot, after deletions, so a crash anywhere in
	// this cycle re-derives the same delta instead of losing work.
	syncState := domain.SyncState{
		PipelineID:    p.cfg.PipelineID,
		PipelineType:  p.cfg.PipelineType,
		KnownFiles:    known.Clone(),
		LastCheckTime: start.UTC(),
		LastRun:       time.Now().UTC(),
	}
	if err := p.state.Save(ctx, syncState); err != nil {
		return fail(fmt.Errorf("saving sync state: %w", err))
	}

	stats.Duration = time.Since(start)
	if stats.FilesProcessed > 0 || stats.FilesDeleted > 0 || stats.Errors > 0 {
		logger.Info("[%s] Cycle complete: %d processed, %d deleted, %d errors in %s",
			p.cfg.PipelineID, stats.FilesProcessed, stats.FilesDeleted, stats.Errors,
			stats.Duration.Round(time.Millisecond))
	}
	return stats, nil
}

// loadSnapshot returns the in-memory snapshot, loading it from the
// state store on the first call. The returned map is owned by the
// pipeline and mutated across cycles.
func (p *Pipeline) loadSnapshot(ctx context.Context) (domain.KnownFilesSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return p.known, nil
	}

	state, err := p.state.Load(ctx, p.cfg.PipelineID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.known = domain.KnownFilesSnapshot{}
			p.loaded = true
			return p.known, nil
		}
		return nil, err
	}

	p.known = state.KnownFiles.Clone()
	p.loaded = true
	logger.Debug("[%s] Resuming with %d known files", p.cfg.PipelineID, len(p.known))
	return p.known, nil
}

// supportedOnly filters the enumeration down to files the extractor
// registry can handle.
//
//nolint:prealloc // most listings pass the filter untouched
func (p *Pipeline) supportedOnly(listing []domain.SourceFile) []domain.SourceFile {
	var current []domain.SourceFile
	for _, file := range listing {
		if !p.extractors.Supports(file.MIMEType) {
			logger.Debug("[%s] Skipping %s: unsupported type %s", p.cfg.PipelineID, file.Name, file.MIMEType)
			continue
		}
		current = append(current, file)
	}
	return current
}

// processFile runs one file through fetch, extract, chunk, embed and
// upsert. The upsert replaces every stored chunk and row for the file
// in one transaction.
func (p *Pipeline) processFile(ctx context.Context, file domain.SourceFile) error {
	logger.Debug("[%s] Processing: %s", p.cfg.PipelineID, file.Name)

	content, err := p.watcher.Fetch(ctx, file)
	if err != nil {
		return fmt.Errorf("fetching: %w", err)
	}

	result, err := p.extractors.Extract(ctx, content, file)
	if err != nil {
		return fmt.Errorf("extracting: %w", err)
	}

	texts := p.splitter.Split(result.Text)

	meta := domain.ChunkMetadata{
		FileID:     file.FileID,
		FileName:   file.Name,
		FileURL:    file.URL,
		MIMEType:   content.MIMEType,
		Source:     string(p.cfg.PipelineType),
		ModifiedAt: file.ModifiedAt,
	}
	chunks := make([]domain.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:       uuid.NewString(),
			FileID:   file.FileID,
			Index:    i,
			Content:  text,
			Metadata: meta,
		})
	}

	if err := p.embedChunks(ctx, chunks); err != nil {
		return fmt.Errorf("embedding: %w", err)
	}

	fileMeta := domain.FileMetadata{
		FileID:     file.FileID,
		Title:      file.Name,
		URL:        file.URL,
		MIMEType:   content.MIMEType,
		Source:     p.cfg.PipelineType,
		Schema:     result.Schema,
		ModifiedAt: file.ModifiedAt,
	}
	if err := p.index.UpsertFile(ctx, fileMeta, chunks, result.Rows); err != nil {
		return fmt.Errorf("indexing: %w", err)
	}
	return nil
}

// embedChunks fills in embeddings batch by batch. A batch that fails
// after all retries fails the whole file, so the store never receives
// a partially embedded chunk set.
func (p *Pipeline) embedChunks(ctx context.Context, chunks []domain.Chunk) error {
	for start := 0; start < len(chunks); start += p.cfg.EmbedBatchSize {
		end := start + p.cfg.EmbedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Content
		}

		vectors, err := p.embedBatchWithRetry(ctx, texts)
		if err != nil {
			return err
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedding service returned %d vectors for %d inputs", len(vectors), len(batch))
		}
		for i := range batch {
			batch[i].Embedding = vectors[i]
		}
	}
	return nil
}

// embedBatchWithRetry retries embedding failures with exponential
// backoff, doubling the delay between attempts.
func (p *Pipeline) embedBatchWithRetry(ctx context.Context, texts []string) ([][]float32, error) {
	delay := p.cfg.RetryBaseDelay
	var lastErr error

	for attempt := 1; attempt <= embedMaxAttempts; attempt++ {
		vectors, err := p.embedder.EmbedBatch(ctx, texts)
		if err == nil {
			return vectors, nil
		}
		lastErr = err

		if attempt == embedMaxAttempts {
			break
		}
		logger.Warn("[%s] Embedding attempt %d/%d failed, retrying in %s: %v",
			p.cfg.PipelineID, attempt, embedMaxAttempts, delay, err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", embedMaxAttempts, lastErr)
}
