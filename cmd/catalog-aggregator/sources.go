// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/catalog-aggregator/internal/fanout"
	"github.com/pdiddy/catalog-aggregator/internal/registry"
	"github.com/pdiddy/catalog-aggregator/internal/sources"
	"github.com/pdiddy/catalog-aggregator/pkg/types"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Inspect the configured catalogs",
	Long: `Sources lists the catalogs in the sources file and checks that they
answer. Use subcommands list and check.`,
}

// --- list subcommand ---

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sources in priority order",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("sources")
		if path == "" {
			path = cfg.SourcesFile
		}
		f, err := registry.ReadFile(path)
		if err != nil {
			return err
		}
		if len(f.Sources) == 0 {
			fmt.Println("No sources configured.")
			return nil
		}

		fmt.Fprintf(os.Stdout, "%-16s  %-16s  %-18s  %-8s  %-7s  %s\n",
			"ID", "Kind", "Family", "Priority", "Enabled", "Endpoint")
		fmt.Fprintln(os.Stdout, strings.Repeat("-", 100))
		for _, s := range f.Sources {
			family := s.Family
			if family == "" {
				family, _ = sources.DefaultFamily(s.Kind)
			}
			fmt.Fprintf(os.Stdout, "%-16s  %-16s  %-18s  %-8d  %-7t  %s\n",
				s.ID, s.Kind, family, s.Priority, s.IsEnabled(), redactEndpoint(s))
		}
		return nil
	},
}

// --- check subcommand ---

// pinger is implemented by adapters backed by a connection pool.
type pinger interface {
	Ping(ctx context.Context) error
}

var sourcesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Send a probe query to every enabled source",
	Long: `Check connects to every enabled source and runs a one-record probe
query through the same fan-out the search command uses. A source passes when
it answers before its deadline, even with zero records.`,
	RunE: runSourcesCheck,
}

func runSourcesCheck(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("sources")
	probe, _ := cmd.Flags().GetString("probe")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	reg, err := openRegistry(httpClient(), path)
	if err != nil {
		return err
	}
	defer reg.Close()

	entries, release := reg.Acquire()
	defer release()
	if len(entries) == 0 {
		fmt.Println("No enabled sources.")
		return nil
	}

	ctx := context.Background()
	for _, e := range entries {
		p, ok := e.Adapter.(pinger)
		if !ok {
			continue
		}
		pctx, cancel := context.WithTimeout(ctx, timeout)
		err := p.Ping(pctx)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stdout, "%-16s  ping failed: %v\n", e.Descriptor.ID, err)
		}
	}

	coord := &fanout.Coordinator{
		Logger:  logger.Named("fanout"),
		Options: sources.Options{MaxResults: 1, UserAgent: cfg.HTTP.UserAgent},
	}
	results := coord.Dispatch(ctx, types.Query{Text: probe}, entries, timeout)

	failed := 0
	for _, r := range results {
		line := fmt.Sprintf("%-16s  %-7s  %6dms", r.SourceID, r.Status, r.Elapsed.Milliseconds())
		if r.Status != types.StatusOK {
			failed++
			line += "  " + r.ErrorDetail
		} else {
			line += fmt.Sprintf("  %d record(s)", len(r.Records))
		}
		fmt.Fprintln(os.Stdout, line)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d source(s) failed", failed, len(results))
	}
	return nil
}

// redactEndpoint hides database credentials in the list output.
func redactEndpoint(s types.SourceConfig) string {
	if s.Kind != sources.KindSQL {
		return s.Endpoint
	}
	if at := strings.LastIndex(s.Endpoint, "@"); at >= 0 {
		if scheme := strings.Index(s.Endpoint, "://"); scheme >= 0 && scheme < at {
			return s.Endpoint[:scheme+3] + "***" + s.Endpoint[at:]
		}
	}
	return s.Endpoint
}

func init() {
	sourcesCmd.PersistentFlags().String("sources", "", "sources file (overrides sources_file)")

	sourcesCheckCmd.Flags().String("probe", "history", "query text sent to each source")
	sourcesCheckCmd.Flags().Duration("timeout", 10*time.Second, "per-source deadline")

	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesCheckCmd)
	rootCmd.AddCommand(sourcesCmd)
}
