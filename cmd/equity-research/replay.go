// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/equity-research/internal/stream"
	"github.com/pdiddy/equity-research/pkg/types"
)

var replayCmd = &cobra.Command{
	Use:   "replay FILE",
	Short: "Rebuild run progress from a captured snapshot stream",
	Long: `Replay reads an NDJSON snapshot stream written by run --out, replays the
logs of its last complete snapshot and prints the reconstructed node counts.
A trailing partial line is ignored. Use - to read from stdin.`,
	Args: cobra.ExactArgs(1),
	RunE: runReplay,
}

func init() {
	rootCmd.AddCommand(replayCmd)
}

func runReplay(cmd *cobra.Command, args []string) error {
	var src io.Reader = os.Stdin
	if args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening %s: %w", args[0], err)
		}
		defer f.Close()
		src = f
	}

	last, err := stream.Last(src)
	if err != nil {
		return err
	}
	printReplay(os.Stdout, last, stream.Replay(last.Logs))
	return nil
}

func printReplay(w io.Writer, last types.State, r stream.Replayed) {
	inv := r.Investigation
	fmt.Fprintf(w, "Status:     %s\n", last.Status)
	fmt.Fprintf(w, "Ticker:     %s\n", inv.Ticker)
	fmt.Fprintf(w, "Logs:       %d\n", len(last.Logs))
	fmt.Fprintf(w, "Topics:     %d\n", len(inv.TopicChains))
	fmt.Fprintf(w, "Nodes:      %d/%d completed\n", inv.CompletedNodes, inv.TotalNodes)
	fmt.Fprintf(w, "Searches:   %d (%d failed)\n", r.Searches, r.FailedSearches)
	if last.Investigation != nil {
		match := "match"
		if last.Investigation.TotalNodes != inv.TotalNodes || last.Investigation.CompletedNodes != inv.CompletedNodes {
			match = "MISMATCH"
		}
		fmt.Fprintf(w, "Live run:   %d/%d completed (%s)\n", last.Investigation.CompletedNodes, last.Investigation.TotalNodes, match)
	}
	if r.Report != nil {
		fmt.Fprintf(w, "\nVerdict: %s\n", r.Report.Verdict)
	}
	if last.Error != "" {
		fmt.Fprintf(w, "\nerror: %s\n", last.Error)
	}
}
