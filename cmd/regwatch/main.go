package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "regwatch",
		Short: "Harvest regulatory publications and link them to compliance controls",
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(harvestCmd())
	root.AddCommand(enrichCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(linkCmd())
	root.AddCommand(itemsCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func harvestCmd() *cobra.Command {
	var (
		sinceDays int
		tags      []string
	)

	cmd := &cobra.Command{
		Use:   "harvest",
		Short: "Fetch all configured sources and upsert admitted items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarvest(sinceDays, tags)
		},
	}

	cmd.Flags().IntVar(&sinceDays, "since", 0, "only save items published in the last N days")
	cmd.Flags().StringSliceVar(&tags, "source", nil, "specific source tags to harvest (e.g. ofgem,ncsc)")
	return cmd
}

func enrichCmd() *cobra.Command {
	var (
		days      int
		limit     int
		onlyEmpty bool
	)

	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Backfill cached summaries and recompute control links",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnrich(days, limit, onlyEmpty)
		},
	}

	cmd.Flags().IntVar(&days, "days", 365, "only enrich items published in the last N days (0 = all)")
	cmd.Flags().IntVar(&limit, "limit", 1000, "max items to enrich")
	cmd.Flags().BoolVar(&onlyEmpty, "only-empty", true, "skip items that already have a cached summary")
	return cmd
}

func seedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Upsert the control taxonomy (built-in CAF set, or a YAML seed file)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(file)
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML seed file (default: built-in CAF controls)")
	return cmd
}

func linkCmd() *cobra.Command {
	var (
		minRelevance float64
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Recompute control links for every stored item",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(minRelevance, limit)
		},
	}

	cmd.Flags().Float64Var(&minRelevance, "min-relevance", 0.25, "minimum relevance for a link")
	cmd.Flags().IntVar(&limit, "limit", 20000, "max items to relink")
	return cmd
}

func itemsCmd() *cobra.Command {
	var (
		jsonOutput bool
		sourceTag  string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "items",
		Short: "Show stored items",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runItems(jsonOutput, sourceTag, limit)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	cmd.Flags().StringVar(&sourceTag, "source", "", "filter by source tag")
	cmd.Flags().IntVar(&limit, "limit", 50, "max items to show")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the read-only HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
