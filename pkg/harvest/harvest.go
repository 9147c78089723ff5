// Package harvest runs the ingestion batch: drain sources, admit candidates
// through the filter, and upsert them into the canonical store.
package harvest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gmcallister/regwatch/internal/store"
	"github.com/gmcallister/regwatch/pkg/source"
)

// summaryChars caps the short stored summary derived from the body.
const summaryChars = 500

// Summary is the run-level report. The unit of failure isolation is a single
// item or page; nothing in a run is fatal to the batch.
type Summary struct {
	Saved   int
	Skipped int
	Failed  int
}

// Runner executes one sequential harvest over an ordered source list.
type Runner struct {
	store   store.Store
	sources []source.Source
	filter  *source.Filter
	since   time.Time // zero = no cutoff
}

// NewRunner creates a harvest runner. A non-zero since drops candidates
// whose parsed publication date is older; unparsable dates are kept.
func NewRunner(s store.Store, sources []source.Source, filter *source.Filter, since time.Time) *Runner {
	return &Runner{store: s, sources: sources, filter: filter, since: since}
}

// Run drains each source in order, one source fully before the next. A
// failing source is logged and skipped; the run always completes and reports
// saved/skipped/failed counts.
func (r *Runner) Run(ctx context.Context) Summary {
	var total Summary

	for _, src := range r.sources {
		fmt.Fprintf(os.Stderr, "[%s] collecting...\n", src.Tag())
		candidates, err := src.Collect(ctx)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[%s] source error: %v\n", src.Tag(), err)
			continue
		}

		per := r.ingest(ctx, src.Tag(), candidates)
		fmt.Fprintf(os.Stderr, "[%s] kept %d · skipped %d · failed %d\n",
			src.Tag(), per.Saved, per.Skipped, per.Failed)

		total.Saved += per.Saved
		total.Skipped += per.Skipped
		total.Failed += per.Failed
	}

	fmt.Fprintf(os.Stderr, "\nDone. Saved: %d · Skipped: %d · Failed: %d\n",
		total.Saved, total.Skipped, total.Failed)
	return total
}

func (r *Runner) ingest(ctx context.Context, tag string, candidates []source.Candidate) Summary {
	var sum Summary

	for _, c := range candidates {
		guid := c.ID
		if guid == "" {
			guid = c.Link
		}
		if guid == "" {
			sum.Skipped++
			continue
		}

		published, parsed := ParseWhen(c.PublishedRaw)
		if !r.since.IsZero() && parsed {
			if t, err := time.Parse("2006-01-02T15:04:05Z", published); err == nil && t.Before(r.since) {
				sum.Skipped++
				continue
			}
		}

		title := strings.TrimSpace(c.Title)
		body := strings.TrimSpace(c.SummaryRaw)

		if !r.filter.Admit(tag, title, body) {
			sum.Skipped++
			continue
		}

		tags := heuristicTags(title, body, tag)
		if c.Label != "" {
			tags = append(tags, c.Label)
		}

		item := &store.Item{
			GUID:        guid,
			Source:      tag,
			Title:       title,
			Link:        c.Link,
			Content:     body,
			Summary:     truncate(body, summaryChars),
			PublishedAt: published,
			Tags:        tags,
		}
		if item.PublishedAt == "" {
			item.PublishedAt = time.Now().UTC().Format("2006-01-02T15:04:05Z")
		}

		if err := r.store.UpsertItem(ctx, item); err != nil {
			sum.Failed++
			fmt.Fprintf(os.Stderr, "! Failed to save '%s': %v\n", truncate(title, 90), err)
			continue
		}
		sum.Saved++
	}

	return sum
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
