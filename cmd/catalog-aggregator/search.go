// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/catalog-aggregator/internal/aggregate"
	"github.com/pdiddy/catalog-aggregator/internal/enrich"
	"github.com/pdiddy/catalog-aggregator/internal/metrics"
	"github.com/pdiddy/catalog-aggregator/internal/report"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search every configured catalog and print the merged results",
	Long: `Search dispatches the query to all enabled sources concurrently, merges
records describing the same work and ranks them by relevance. Sources that
fail or exceed their deadline are listed in the per-source status block.

The query text may be given with --query or as positional arguments.
Structured fields (--title, --author, --isbn, --year) narrow the search.`,
	RunE: runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	q, err := queryFromFlags(cmd, args)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("max-results") {
		cfg.Search.MaxResults, _ = cmd.Flags().GetInt("max-results")
	}
	if noEnrich, _ := cmd.Flags().GetBool("no-enrich"); noEnrich {
		cfg.Enrichment.Enabled = false
	}
	sourcesFile, _ := cmd.Flags().GetString("sources")
	metricsFile, _ := cmd.Flags().GetString("metrics-file")

	client := httpClient()
	reg, err := openRegistry(client, sourcesFile)
	if err != nil {
		return err
	}
	defer reg.Close()

	promReg := prometheus.NewRegistry()
	var m *metrics.Collectors
	if cfg.Metrics.Enabled || metricsFile != "" {
		m = metrics.New(promReg)
	}

	var overlay *enrich.Overlay
	if cfg.Enrichment.Enabled {
		providers, err := enrich.NewProviders(client, cfg.Enrichment, cfg.HTTP.UserAgent)
		if err != nil {
			return err
		}
		overlay = enrich.New(providers, cfg.Enrichment, logger.Named("enrich"), m)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	pipeline := aggregate.New(cfg, reg, overlay, logger, m)
	res, err := pipeline.Aggregate(ctx, &q)
	if err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetString("save"); save != "" {
		if err := report.WriteResultFile(save, res); err != nil {
			return err
		}
		logger.Info("saved aggregation result", zap.String("path", save))
	}
	if metricsFile != "" {
		if err := writeMetrics(promReg, metricsFile); err != nil {
			return err
		}
	}

	return writeResult(cmd, res, os.Stdout)
}

func queryFromFlags(cmd *cobra.Command, args []string) (types.Query, error) {
	text, _ := cmd.Flags().GetString("query")
	if text == "" && len(args) > 0 {
		text = strings.Join(args, " ")
	}
	title, _ := cmd.Flags().GetString("title")
	author, _ := cmd.Flags().GetString("author")
	isbn, _ := cmd.Flags().GetString("isbn")
	year, _ := cmd.Flags().GetInt("year")
	typeFlag, _ := cmd.Flags().GetString("type")

	st, err := types.ParseSearchType(typeFlag)
	if err != nil {
		return types.Query{}, err
	}
	q := types.Query{
		Text:       text,
		SearchType: st,
		Fields: types.QueryFields{
			Title:  title,
			Author: author,
			ISBN:   isbn,
			Year:   types.YearUnknown,
		},
	}
	if year > 0 {
		q.Fields.Year = types.Year(year)
	}
	if q.IsEmpty() {
		return q, fmt.Errorf("query required: provide a search query, --title, --author or --isbn")
	}
	return q, nil
}

// writeResult prints res in the format selected by --json or --csl.
func writeResult(cmd *cobra.Command, res types.AggregationResult, w io.Writer) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	cslOutput, _ := cmd.Flags().GetBool("csl")
	switch {
	case jsonOutput && cslOutput:
		return fmt.Errorf("--json and --csl are mutually exclusive")
	case jsonOutput:
		return report.FormatJSON(res, w)
	case cslOutput:
		return report.FormatCSL(res, w)
	default:
		report.FormatTable(res, w)
		return nil
	}
}

func writeMetrics(g prometheus.Gatherer, path string) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating metrics file: %w", err)
	}
	defer f.Close()
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(f, mf); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
	}
	return nil
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "output results as JSON")
	cmd.Flags().Bool("csl", false, "output records as CSL-YAML for citation managers")
}

func init() {
	searchCmd.Flags().String("query", "", "free-text query")
	searchCmd.Flags().String("title", "", "match on title")
	searchCmd.Flags().String("author", "", "match on author name")
	searchCmd.Flags().String("isbn", "", "match on ISBN (10 or 13 digits)")
	searchCmd.Flags().Int("year", 0, "publication year")
	searchCmd.Flags().String("type", "all", "search type: title, author, isbn, subject, keyword, all")
	searchCmd.Flags().Int("max-results", 0, "maximum number of merged records (overrides search.max_results)")
	searchCmd.Flags().String("sources", "", "sources file (overrides sources_file)")
	searchCmd.Flags().Bool("no-enrich", false, "skip citation and PDF enrichment")
	searchCmd.Flags().String("save", "", "write the aggregation result to this YAML file")
	searchCmd.Flags().String("metrics-file", "", "write Prometheus metrics for this run to this file")
	addOutputFlags(searchCmd)

	rootCmd.AddCommand(searchCmd)
}
