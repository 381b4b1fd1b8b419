// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/equity-research/internal/research"
	"github.com/pdiddy/equity-research/internal/stream"
	"github.com/pdiddy/equity-research/pkg/types"
)

var runCmd = &cobra.Command{
	Use:   "run TICKER",
	Short: "Research one ticker and stream progress snapshots",
	Long: `Run plans research topics for TICKER, executes them and synthesizes a
report. Every state change is written to stdout as one JSON snapshot per
line. Use --format text for human-readable progress, --out to keep a copy
of the snapshot stream for replay.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("lang", "en", "report language: en or cn")
	runCmd.Flags().String("format", "ndjson", "stdout format: ndjson or text")
	runCmd.Flags().String("out", "", "also write the snapshot stream to this file")
	runCmd.Flags().String("model", "", "override the generation model for every call")
	runCmd.Flags().Bool("no-store", false, "do not persist the report")
	runCmd.Flags().Int("call-concurrency", 0, "max in-flight generation and search calls (default 5)")
	runCmd.Flags().Int("chain-concurrency", 0, "max topic chains researched at once (default 2)")

	_ = viper.BindPFlag("research.model", runCmd.Flags().Lookup("model"))
	_ = viper.BindPFlag("store.disabled", runCmd.Flags().Lookup("no-store"))
	_ = viper.BindPFlag("research.call_concurrency", runCmd.Flags().Lookup("call-concurrency"))
	_ = viper.BindPFlag("research.chain_concurrency", runCmd.Flags().Lookup("chain-concurrency"))

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ticker := strings.ToUpper(strings.TrimSpace(args[0]))
	langFlag, _ := cmd.Flags().GetString("lang")
	lang := types.Language(langFlag)
	if !lang.Valid() {
		return fmt.Errorf("unsupported language %q: use en or cn", langFlag)
	}
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("out")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	var pubs multiPublisher
	switch format {
	case "ndjson", "":
		pubs = append(pubs, stream.NewPublisher(os.Stdout))
	case "text":
		pubs = append(pubs, &textPublisher{w: os.Stdout})
	default:
		return fmt.Errorf("unsupported format %q: use ndjson or text", format)
	}
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating %s: %w", outPath, err)
		}
		defer f.Close()
		pubs = append(pubs, stream.NewPublisher(f))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	final := a.orchestrator.Run(ctx, ticker, lang, pubs)
	if final.Status == types.StatusError {
		return fmt.Errorf("research failed: %s", final.Error)
	}
	return nil
}

// multiPublisher forwards each snapshot to every publisher and returns the
// first error.
type multiPublisher []research.Publisher

func (m multiPublisher) Publish(s types.State) error {
	var first error
	for _, p := range m {
		if err := p.Publish(s); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// textPublisher prints each new log line and a summary once the run ends.
type textPublisher struct {
	w    io.Writer
	seen int
}

func (p *textPublisher) Publish(s types.State) error {
	for _, l := range s.Logs[min(p.seen, len(s.Logs)):] {
		fmt.Fprintf(p.w, "%s  %-16s %s\n", l.Timestamp.Local().Format("15:04:05"), l.Type, l.Message)
	}
	p.seen = len(s.Logs)

	switch s.Status {
	case types.StatusCompleted:
		printSummary(p.w, s)
	case types.StatusError:
		fmt.Fprintf(p.w, "\nerror: %s\n", s.Error)
	}
	return nil
}

func printSummary(w io.Writer, s types.State) {
	fmt.Fprintln(w)
	if s.Investigation != nil {
		fmt.Fprintf(w, "Ticker:     %s\n", s.Investigation.Ticker)
		fmt.Fprintf(w, "Nodes:      %d/%d completed\n", s.Investigation.CompletedNodes, s.Investigation.TotalNodes)
	}
	if s.TotalTokens != nil {
		fmt.Fprintf(w, "Tokens:     %d in, %d out ($%.4f)\n", s.TotalTokens.InputTokens, s.TotalTokens.OutputTokens, s.TotalTokens.Cost)
	}
	if s.ReportID != "" {
		fmt.Fprintf(w, "Report ID:  %s\n", s.ReportID)
	}
	if s.Report != nil {
		fmt.Fprintf(w, "\nVerdict: %s\n", s.Report.Verdict)
	}
}
