package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gmcallister/regwatch/pkg/harvest"
)

// Scheduler runs periodic harvest and enrich passes. Each pass is a plain
// sequential batch; the dedup upsert makes an interrupted run safe to
// restart.
type Scheduler struct {
	runner     *harvest.Runner
	enricher   *harvest.Enricher
	harvestInt time.Duration
	enrichInt  time.Duration
}

// New creates a scheduler.
func New(runner *harvest.Runner, enricher *harvest.Enricher, harvestInt, enrichInt time.Duration) *Scheduler {
	if harvestInt == 0 {
		harvestInt = 6 * time.Hour
	}
	if enrichInt == 0 {
		enrichInt = 12 * time.Hour
	}
	return &Scheduler{
		runner:     runner,
		enricher:   enricher,
		harvestInt: harvestInt,
		enrichInt:  enrichInt,
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	harvestTicker := time.NewTicker(s.harvestInt)
	enrichTicker := time.NewTicker(s.enrichInt)
	defer harvestTicker.Stop()
	defer enrichTicker.Stop()

	// Run immediately on start.
	fmt.Fprintln(os.Stderr, "scheduler: initial harvest...")
	s.runner.Run(ctx)
	fmt.Fprintln(os.Stderr, "scheduler: initial enrich...")
	if _, err := s.enricher.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "scheduler: enrich error: %v\n", err)
	}

	fmt.Fprintf(os.Stderr, "scheduler: running (harvest every %s, enrich every %s)\n",
		s.harvestInt, s.enrichInt)

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(os.Stderr, "scheduler: stopped")
			return ctx.Err()
		case <-harvestTicker.C:
			fmt.Fprintln(os.Stderr, "scheduler: harvesting...")
			s.runner.Run(ctx)
		case <-enrichTicker.C:
			fmt.Fprintln(os.Stderr, "scheduler: enriching...")
			if _, err := s.enricher.Run(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "scheduler: enrich error: %v\n", err)
			}
		}
	}
}
