// Package export periodically writes per-peer traffic deltas to sinks.
package export

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"firestige.xyz/peeracct/internal/metrics"
	"firestige.xyz/peeracct/internal/peerstats"
)

// Record is one peer's traffic since the previous export.
type Record struct {
	Hostname  string     `json:"hostname"`
	Peer      netip.Addr `json:"peer"`
	Family    string     `json:"family"`
	Name      string     `json:"dns,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	peerstats.Counters
}

// Sink receives each non-empty batch of records.
type Sink interface {
	Name() string
	Write(ctx context.Context, records []Record) error
	Close() error
}

// Namer resolves peer names. *resolve.Resolver satisfies it.
type Namer interface {
	Name(ctx context.Context, addr netip.Addr) string
}

// Flusher exports store deltas on a fixed interval. Counters in the store are
// never reset; the flusher keeps the totals it last exported per peer.
type Flusher struct {
	store    *peerstats.Store
	sinks    []Sink
	names    Namer
	hostname string
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex // serialises flushes
	last map[netip.Addr]peerstats.Counters

	cancel context.CancelFunc
	done   chan struct{}
}

// NewFlusher creates a flusher. names may be nil.
func NewFlusher(store *peerstats.Store, hostname string, interval time.Duration, names Namer, sinks ...Sink) *Flusher {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Flusher{
		store:    store,
		sinks:    sinks,
		names:    names,
		hostname: hostname,
		interval: interval,
		now:      time.Now,
		last:     make(map[netip.Addr]peerstats.Counters),
	}
}

// Start runs the export loop until Stop.
func (f *Flusher) Start(ctx context.Context) {
	ctx, f.cancel = context.WithCancel(ctx)
	f.done = make(chan struct{})

	slog.Info("exporter started", "interval", f.interval, "sinks", len(f.sinks))

	go func() {
		defer close(f.done)
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := f.Flush(ctx); err != nil {
					slog.Warn("export flush failed", "error", err)
				}
			}
		}
	}()
}

// Stop ends the loop, performs a final flush and closes every sink.
func (f *Flusher) Stop(ctx context.Context) error {
	if f.cancel != nil {
		f.cancel()
		<-f.done
	}

	_, err := f.Flush(ctx)

	for _, s := range f.sinks {
		if cerr := s.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", s.Name(), cerr))
		}
	}
	slog.Info("exporter stopped")
	return err
}

// Flush exports everything accumulated since the last flush and returns the
// number of records produced. A sink error does not stop the other sinks; the
// interval is not retried.
func (f *Flusher) Flush(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	start := time.Now()
	records := f.collect(ctx)
	if len(records) == 0 {
		return 0, nil
	}

	var errs []error
	for _, s := range f.sinks {
		metrics.ExportRunsTotal.WithLabelValues(s.Name()).Inc()
		if err := s.Write(ctx, records); err != nil {
			metrics.ExportErrorsTotal.WithLabelValues(s.Name()).Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		metrics.ExportRecordsTotal.WithLabelValues(s.Name()).Add(float64(len(records)))
	}
	metrics.ExportDurationSeconds.Observe(time.Since(start).Seconds())

	slog.Debug("export flushed", "records", len(records), "failed_sinks", len(errs))
	return len(records), errors.Join(errs...)
}

// collect builds delta records and advances the baseline. Caller holds mu.
func (f *Flusher) collect(ctx context.Context) []Record {
	snap := f.store.Snapshot()
	ts := f.now().UTC()

	seen := make(map[netip.Addr]struct{}, len(snap))
	var records []Record
	for _, rec := range snap {
		seen[rec.Peer] = struct{}{}
		delta := rec.Counters.Delta(f.last[rec.Peer])
		f.last[rec.Peer] = rec.Counters
		if delta.IsZero() {
			continue
		}
		r := Record{
			Hostname:  f.hostname,
			Peer:      rec.Peer,
			Family:    rec.Family(),
			Timestamp: ts,
			Counters:  delta,
		}
		if f.names != nil {
			r.Name = f.names.Name(ctx, rec.Peer)
		}
		records = append(records, r)
	}

	// Forget peers deleted from the store.
	for peer := range f.last {
		if _, ok := seen[peer]; !ok {
			delete(f.last, peer)
		}
	}
	return records
}
