package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/gmcallister/regwatch/internal/config"
	"github.com/gmcallister/regwatch/internal/scheduler"
	"github.com/gmcallister/regwatch/internal/store"
	"github.com/gmcallister/regwatch/pkg/fetch"
	"github.com/gmcallister/regwatch/pkg/harvest"
	"github.com/gmcallister/regwatch/pkg/link"
	"github.com/gmcallister/regwatch/pkg/server"
	"github.com/gmcallister/regwatch/pkg/source"
	"github.com/gmcallister/regwatch/pkg/summarise"
)

func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

// buildSources turns the ordered source config into adapters, optionally
// restricted to the requested tags.
func buildSources(cfg *config.Config, only []string) ([]source.Source, error) {
	wanted := make(map[string]bool)
	for _, t := range only {
		wanted[strings.ToLower(strings.TrimSpace(t))] = true
	}

	fetcher := fetch.New()

	var sources []source.Source
	for _, sc := range cfg.Sources {
		if len(wanted) > 0 && !wanted[sc.Tag] {
			continue
		}
		switch sc.Kind {
		case "listing":
			sources = append(sources, source.NewListing(sc.Tag, sc.URL, fetcher))
		case "feed", "":
			sources = append(sources, source.NewFeed(sc.Tag, sc.URL, fetcher, sc.FetchBody))
		default:
			return nil, fmt.Errorf("source %s: unknown kind %q", sc.Tag, sc.Kind)
		}
	}
	if len(sources) == 0 {
		if len(only) > 0 {
			return nil, fmt.Errorf("no matching sources for: %s", strings.Join(only, ", "))
		}
		return nil, fmt.Errorf("no sources configured")
	}
	return sources, nil
}

// buildFilter merges per-source include/exclude lists into one filter. Two
// source entries sharing a tag share its rules.
func buildFilter(cfg *config.Config) *source.Filter {
	rules := make(map[string]source.Rule)
	for _, sc := range cfg.Sources {
		rule := rules[sc.Tag]
		rule.Include = append(rule.Include, sc.Include...)
		rule.Exclude = append(rule.Exclude, sc.Exclude...)
		rules[sc.Tag] = rule
	}
	return source.NewFilter(rules, cfg.Filters.Bypass)
}

func buildLinker(cfg *config.Config, db store.Store) *link.Linker {
	return link.New(db, link.Config{
		MinRelevance:  cfg.Linker.MinRelevance,
		PhraseBoost:   cfg.Linker.PhraseBoost,
		PhraseDivisor: cfg.Linker.PhraseDivisor,
		NameBonus:     cfg.Linker.NameBonus,
	})
}

func buildSummariser(cfg *config.Config, db store.Store) *summarise.Manager {
	return summarise.New(db, summarise.Config{
		Provider:  cfg.Summary.Provider,
		Model:     cfg.Summary.Model,
		APIKey:    cfg.Summary.APIKey,
		BaseURL:   cfg.Summary.BaseURL,
		WordLimit: cfg.Summary.WordLimit,
	})
}

func runHarvest(sinceDays int, tags []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	sources, err := buildSources(cfg, tags)
	if err != nil {
		return err
	}

	var since time.Time
	if sinceDays > 0 {
		since = time.Now().UTC().AddDate(0, 0, -sinceDays)
		fmt.Fprintf(os.Stderr, "only saving items published after %s\n", since.Format(time.RFC3339))
	}

	runner := harvest.NewRunner(db, sources, buildFilter(cfg), since)
	runner.Run(context.Background())
	return nil
}

func runEnrich(days, limit int, onlyEmpty bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	enricher := harvest.NewEnricher(db, buildSummariser(cfg, db), buildLinker(cfg, db), days, limit, onlyEmpty)
	_, err = enricher.Run(context.Background())
	return err
}

func runSeed(file string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	controls := link.DefaultControls()
	if file != "" {
		controls, err = link.LoadSeed(file)
		if err != nil {
			return err
		}
	}

	ctx := context.Background()
	if err := link.Seed(ctx, db, controls); err != nil {
		return err
	}
	for _, c := range controls {
		fmt.Fprintf(os.Stderr, "upserted %s (%s %s)\n", c.Ref, c.Framework, c.Version)
	}
	return nil
}

func runLink(minRelevance float64, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if minRelevance > 0 {
		cfg.Linker.MinRelevance = minRelevance
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	items, err := db.ListItems(ctx, store.ListOpts{Limit: limit})
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}
	if len(items) == 0 {
		fmt.Fprintln(os.Stderr, "no items found")
		return nil
	}

	linker := buildLinker(cfg, db)
	linked := 0
	for i := range items {
		scored, err := linker.Relink(ctx, &items[i])
		if err != nil {
			fmt.Fprintf(os.Stderr, "! relink %s: %v\n", items[i].GUID, err)
			continue
		}
		if len(scored) == 0 {
			continue
		}
		linked++

		pairs := make([]string, len(scored))
		for j, sc := range scored {
			pairs[j] = fmt.Sprintf("%s:%.2f", sc.Ref, sc.Relevance)
		}
		fmt.Fprintf(os.Stderr, "[%s] %s -> %s\n",
			shortGUID(items[i].GUID), truncate(items[i].Title, 60), strings.Join(pairs, ", "))
	}

	fmt.Fprintf(os.Stderr, "linked %d/%d items\n", linked, len(items))
	return nil
}

func runItems(jsonOutput bool, sourceTag string, limit int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	items, err := db.ListItems(context.Background(), store.ListOpts{
		Source: sourceTag,
		Limit:  limit,
	})
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if len(items) == 0 {
		fmt.Println("no items found (try harvesting first: regwatch harvest)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tPUBLISHED\tTITLE")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\n", it.Source, it.PublishedAt, truncate(it.Title, 80))
	}
	return w.Flush()
}

func runServe(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	srv := server.New(db, port)
	return srv.ListenAndServe()
}

func runDaemon(port int) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if port == 0 {
		port = cfg.Server.Port
	}

	db, err := store.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	sources, err := buildSources(cfg, nil)
	if err != nil {
		return err
	}

	runner := harvest.NewRunner(db, sources, buildFilter(cfg), time.Time{})
	enricher := harvest.NewEnricher(db, buildSummariser(cfg, db), buildLinker(cfg, db), 0, 0, true)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	sched := scheduler.New(runner, enricher,
		cfg.Schedule.ParseHarvestInterval(),
		cfg.Schedule.ParseEnrichInterval(),
	)

	go func() {
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "scheduler error: %v\n", err)
		}
	}()

	go func() {
		<-ctx.Done()
		fmt.Fprintln(os.Stderr, "\nshutting down...")
	}()

	srv := server.New(db, port)
	return srv.ListenAndServe()
}

func shortGUID(guid string) string {
	if len(guid) <= 8 {
		return guid
	}
	return guid[:8]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
