package harvest

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gmcallister/regwatch/internal/store"
	"github.com/gmcallister/regwatch/pkg/link"
	"github.com/gmcallister/regwatch/pkg/summarise"
)

// Enricher backfills cached summaries and recomputes control links for
// stored items.
type Enricher struct {
	store      store.Store
	summariser *summarise.Manager
	linker     *link.Linker
	daysBack   int // 0 = no cutoff
	limit      int
	onlyEmpty  bool
}

// NewEnricher creates an enrich pass over items missing a summary (or all
// items when onlyEmpty is false), most recent first.
func NewEnricher(s store.Store, m *summarise.Manager, l *link.Linker, daysBack, limit int, onlyEmpty bool) *Enricher {
	if limit <= 0 {
		limit = 1000
	}
	return &Enricher{
		store:      s,
		summariser: m,
		linker:     l,
		daysBack:   daysBack,
		limit:      limit,
		onlyEmpty:  onlyEmpty,
	}
}

// Run cleans, summarises and relinks each eligible item. Summarisation never
// fails a run; per-item persistence problems are counted and logged.
func (e *Enricher) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	items, err := e.store.ListItems(ctx, store.ListOpts{
		Limit:          e.limit,
		MissingSummary: e.onlyEmpty,
	})
	if err != nil {
		return sum, fmt.Errorf("list items for enrich: %w", err)
	}

	var cutoff time.Time
	if e.daysBack > 0 {
		cutoff = time.Now().UTC().AddDate(0, 0, -e.daysBack)
	}

	for i := range items {
		item := &items[i]

		if !cutoff.IsZero() && item.PublishedAt != "" {
			if t, err := time.Parse("2006-01-02T15:04:05Z", item.PublishedAt); err == nil && t.Before(cutoff) {
				sum.Skipped++
				continue
			}
		}

		text := item.Content
		if text == "" {
			text = item.Summary
		}
		cleaned := summarise.Clean(item.Title, text, summarise.DefaultMaxChars)

		generated := e.summariser.Summarise(ctx, item.Title, cleaned, item.GUID)
		item.AISummary = generated

		if _, err := e.linker.Relink(ctx, item); err != nil {
			sum.Failed++
			fmt.Fprintf(os.Stderr, "! relink %s: %v\n", item.GUID, err)
			continue
		}
		sum.Saved++
	}

	fmt.Fprintf(os.Stderr, "enrich: processed %d · skipped %d · failed %d\n",
		sum.Saved, sum.Skipped, sum.Failed)
	return sum, nil
}
