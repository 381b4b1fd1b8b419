// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/equity-research/internal/store"
	"github.com/pdiddy/equity-research/pkg/types"
)

var reportCmd = &cobra.Command{
	Use:   "report [id]",
	Short: "Show, list or search persisted reports",
	Long: `Report loads a persisted report by id and prints it as JSON or YAML.
With --list it prints recent reports, newest first. With --facts it searches
the findings of every stored run.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().Bool("list", false, "list recent reports")
	reportCmd.Flags().String("ticker", "", "with --list, only this ticker")
	reportCmd.Flags().Int("limit", 20, "maximum rows for --list and --facts")
	reportCmd.Flags().String("facts", "", "search stored findings for these terms")
	reportCmd.Flags().String("format", "json", "output format: json or yaml")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	list, _ := cmd.Flags().GetBool("list")
	ticker, _ := cmd.Flags().GetString("ticker")
	limit, _ := cmd.Flags().GetInt("limit")
	facts, _ := cmd.Flags().GetString("facts")
	format, _ := cmd.Flags().GetString("format")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := store.Open(cfg.Store)
	if err != nil {
		return err
	}
	defer s.Close()
	ctx := context.Background()

	switch {
	case facts != "":
		hits, err := s.SearchFacts(ctx, facts, limit)
		if err != nil {
			return err
		}
		formatFactHits(os.Stdout, hits)
		return nil
	case list:
		rows, err := s.List(ctx, store.ListOptions{Ticker: ticker, Limit: limit})
		if err != nil {
			return err
		}
		formatReportList(os.Stdout, rows)
		return nil
	case len(args) == 1:
		r, err := s.Load(ctx, args[0])
		if err != nil {
			return err
		}
		return store.Write(os.Stdout, r, format)
	default:
		return fmt.Errorf("provide a report id, --list or --facts")
	}
}

func formatReportList(w io.Writer, rows []types.ReportSummary) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No reports found.")
		return
	}
	fmt.Fprintf(w, "%-36s  %-8s  %-16s  %s\n", "ID", "Ticker", "Created", "Verdict")
	fmt.Fprintln(w, strings.Repeat("-", 110))
	for _, r := range rows {
		fmt.Fprintf(w, "%-36s  %-8s  %-16s  %s\n",
			r.ID, r.Ticker, r.CreatedAt.Local().Format("2006-01-02 15:04"), truncate(r.Verdict, 44))
	}
	fmt.Fprintf(w, "\n%d reports\n", len(rows))
}

func formatFactHits(w io.Writer, hits []store.FactHit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No facts found.")
		return
	}
	for _, h := range hits {
		fmt.Fprintf(w, "%-8s  %-20s  %s\n", h.Ticker, truncate(h.Topic, 20), h.Content)
	}
	fmt.Fprintf(w, "\n%d facts\n", len(hits))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
