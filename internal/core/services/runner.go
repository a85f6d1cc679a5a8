package services

import (
	"context"
	"time"

	"github.com/quarrylabs/ragsync/internal/core/domain"
	"github.com/quarrylabs/ragsync/internal/core/ports/driven"
	"github.com/quarrylabs/ragsync/internal/logger"
)

// offlineBeatTimeout bounds the final heartbeat write, which runs after
// the run context is already cancelled.
const offlineBeatTimeout = 5 * time.Second

// Run performs an initial cycle, then loops on the check interval until
// ctx is cancelled. A heartbeat goroutine persists liveness for the
// whole run and writes a final offline record on the way out. Steady
// state cycle failures are logged and retried on the next tick; only
// cancellation ends the loop.
func (p *Pipeline) Run(ctx context.Context) error {
	logger.Info("[%s] Starting %s pipeline (check interval %s)",
		p.cfg.PipelineID, p.cfg.PipelineType, p.cfg.CheckInterval)

	heartbeatDone := p.startHeartbeat(ctx)
	defer func() { <-heartbeatDone }()

	hints := p.watchHints(ctx)

	p.cycleAndLog(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	p.scheduleNext()

	ticker := time.NewTicker(p.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-ticker.C:

		case _, ok := <-hints:
			if !ok {
				// Hint source gone; fall back to the plain ticker.
				hints = nil
				continue
			}
			logger.Debug("[%s] Change hint received, checking early", p.cfg.PipelineID)
			ticker.Reset(p.cfg.CheckInterval)
		}

		p.cycleAndLog(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.scheduleNext()
	}
}

// cycleAndLog runs one cycle and logs a failure instead of propagating
// it: steady-state errors never stop the continuous loop.
func (p *Pipeline) cycleAndLog(ctx context.Context) {
	if _, err := p.runCycle(ctx); err != nil && ctx.Err() == nil {
		logger.Warn("[%s] Check failed: %v", p.cfg.PipelineID, err)
	}
}

// scheduleNext records the completed check and when the next one is due.
func (p *Pipeline) scheduleNext() {
	now := time.Now().UTC()
	p.tracker.SetCheckTimes(now, now.Add(p.cfg.CheckInterval))
}

// startHeartbeat persists an online heartbeat immediately and then on
// every heartbeat period. The returned channel closes once the final
// offline heartbeat has been written, so Run can wait for it before
// returning.
func (p *Pipeline) startHeartbeat(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	go func() {
		defer close(done)

		p.beat(ctx, domain.ServerOnline)

		ticker := time.NewTicker(p.cfg.HeartbeatPeriod)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				p.tracker.SetStatus(domain.StatusOffline)

				// The run context is already cancelled; the final
				// write gets its own deadline.
				offCtx, cancel := context.WithTimeout(context.Background(), offlineBeatTimeout)
				p.beat(offCtx, domain.ServerOffline)
				cancel()
				return

			case <-ticker.C:
				p.beat(ctx, domain.ServerOnline)
			}
		}
	}()

	return done
}

// beat writes one heartbeat record. Failures are logged only: liveness
// reporting must never take down the pipeline.
func (p *Pipeline) beat(ctx context.Context, serverStatus string) {
	if err := p.state.Heartbeat(ctx, p.cfg.PipelineID, serverStatus, p.tracker.Snapshot()); err != nil {
		logger.Warn("[%s] Heartbeat failed: %v", p.cfg.PipelineID, err)
	}
}

// watchHints subscribes to the watcher's change events when it supports
// them. A nil return degrades Run to plain interval polling.
func (p *Pipeline) watchHints(ctx context.Context) <-chan struct{} {
	if !p.watcher.Capabilities().SupportsWatch {
		return nil
	}
	hinter, ok := p.watcher.(driven.ChangeHinter)
	if !ok {
		return nil
	}

	hints, err := hinter.WatchHints(ctx)
	if err != nil {
		logger.Warn("[%s] Change hints unavailable, relying on polling: %v", p.cfg.PipelineID, err)
		return nil
	}
	return hints
}
