// Package retention prunes aged idempotency ledger entries. Events
// redelivered after their ledger entry is pruned will be re-applied; the
// retention window must exceed the transport's maximum redelivery horizon.
package retention

import (
	"context"
	"log/slog"
	"time"

	"github.com/pulse-lab/pulse-reports/internal/core/storage"
	"github.com/pulse-lab/pulse-reports/internal/metrics"
)

// Sweeper runs periodic ledger prunes. It is stateless: each tick computes
// the cutoff from the wall clock and the configured window.
type Sweeper struct {
	interval time.Duration
	maxAge   time.Duration
	ledger   storage.PrunableLedger
	sink     metrics.Sink
	clock    func() time.Time
}

func NewSweeper(ledger storage.PrunableLedger, interval, maxAge time.Duration, sink metrics.Sink) *Sweeper {
	return &Sweeper{
		interval: interval,
		maxAge:   maxAge,
		ledger:   ledger,
		sink:     sink,
		clock:    time.Now,
	}
}

// Start begins periodic pruning. Runs until context is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("[Retention] Starting ledger sweeper",
		"interval", s.interval,
		"max_age", s.maxAge,
	)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-ctx.Done():
			slog.Info("[Retention] Stopping (context cancelled)")
			return nil
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := s.clock().Add(-s.maxAge)

	removed, err := s.ledger.PruneProcessedBefore(ctx, cutoff)
	if err != nil {
		slog.Error("[Retention] Ledger prune failed", "error", err, "cutoff", cutoff)
		return
	}
	if removed > 0 {
		slog.Info("[Retention] Pruned ledger entries", "removed", removed, "cutoff", cutoff)
	}
	s.sink.LedgerPruned(removed)
}
