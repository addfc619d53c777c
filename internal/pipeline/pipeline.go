// Package pipeline feeds captured frames into the path hooks.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"

	"firestige.xyz/peeracct/internal/core"
	"firestige.xyz/peeracct/internal/metrics"
	"firestige.xyz/peeracct/internal/source"
)

// maxConsecutiveErrors stops a pipeline whose source keeps failing.
const maxConsecutiveErrors = 1000

// Hooks are the two path entry points. *engine.Engine implements them.
type Hooks interface {
	Ingress(frame []byte, n int) core.Verdict
	Egress(frame []byte, n int) core.Verdict
}

// Stats contains per-pipeline counters.
type Stats struct {
	Read       atomic.Uint64
	Ingress    atomic.Uint64
	Egress     atomic.Uint64
	ReadErrors atomic.Uint64
}

// StatsSnapshot is a copy of Stats.
type StatsSnapshot struct {
	Read       uint64 `json:"read" yaml:"read"`
	Ingress    uint64 `json:"ingress" yaml:"ingress"`
	Egress     uint64 `json:"egress" yaml:"egress"`
	ReadErrors uint64 `json:"read_errors" yaml:"read_errors"`
}

// Config contains pipeline configuration.
type Config struct {
	Name      string // metrics label, e.g. the interface or file name
	Source    source.Source
	Hooks     Hooks
	Direction DirectionFunc
}

// Pipeline is a single-threaded read-and-dispatch loop.
type Pipeline struct {
	name      string
	src       source.Source
	hooks     Hooks
	direction DirectionFunc
	stats     Stats

	ingressFrames prometheus.Counter
	egressFrames  prometheus.Counter
	readErrors    prometheus.Counter

	cancel context.CancelFunc
	wg     sync.WaitGroup
	err    error
}

// New creates a pipeline. A nil Direction treats every frame as ingress.
func New(cfg Config) *Pipeline {
	dir := cfg.Direction
	if dir == nil {
		dir = func([]byte) core.Direction { return core.DirIngress }
	}
	return &Pipeline{
		name:          cfg.Name,
		src:           cfg.Source,
		hooks:         cfg.Hooks,
		direction:     dir,
		ingressFrames: metrics.PipelineFramesTotal.WithLabelValues(cfg.Name, core.DirIngress.String()),
		egressFrames:  metrics.PipelineFramesTotal.WithLabelValues(cfg.Name, core.DirEgress.String()),
		readErrors:    metrics.PipelineReadErrorsTotal.WithLabelValues(cfg.Name),
	}
}

// Run reads until the source is exhausted or ctx is cancelled. Both are a
// clean stop and return nil.
func (p *Pipeline) Run(ctx context.Context) error {
	slog.Info("pipeline starting", "source", p.name)
	defer slog.Info("pipeline stopped", "source", p.name,
		"read", p.stats.Read.Load(), "read_errors", p.stats.ReadErrors.Load())

	consecutive := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		data, ci, err := p.src.ReadPacketData()
		switch {
		case err == nil:
			consecutive = 0
		case errors.Is(err, source.ErrTimeout):
			continue
		case errors.Is(err, io.EOF):
			return nil
		default:
			if ctx.Err() != nil {
				return nil
			}
			p.stats.ReadErrors.Add(1)
			p.readErrors.Inc()
			consecutive++
			if consecutive >= maxConsecutiveErrors {
				return fmt.Errorf("source %s: %d consecutive read errors, last: %w", p.name, consecutive, err)
			}
			slog.Debug("read failed", "source", p.name, "error", err)
			continue
		}

		p.stats.Read.Add(1)
		p.dispatch(data, ci.CaptureLength)
	}
}

func (p *Pipeline) dispatch(frame []byte, n int) {
	if p.direction(frame) == core.DirEgress {
		p.stats.Egress.Add(1)
		p.egressFrames.Inc()
		p.hooks.Egress(frame, n)
		return
	}
	p.stats.Ingress.Add(1)
	p.ingressFrames.Inc()
	p.hooks.Ingress(frame, n)
}

// Start runs the pipeline in the background.
func (p *Pipeline) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		if err := p.Run(ctx); err != nil {
			slog.Error("pipeline failed", "source", p.name, "error", err)
			p.err = err
		}
	}()
}

// Stop cancels a started pipeline, waits for it and closes the source.
func (p *Pipeline) Stop() error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
	if err := p.src.Close(); err != nil {
		return err
	}
	return p.err
}

// Stats returns a copy of the counters.
func (p *Pipeline) Stats() StatsSnapshot {
	return StatsSnapshot{
		Read:       p.stats.Read.Load(),
		Ingress:    p.stats.Ingress.Load(),
		Egress:     p.stats.Egress.Load(),
		ReadErrors: p.stats.ReadErrors.Load(),
	}
}
