// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/equity-research/internal/quote"
	"github.com/pdiddy/equity-research/internal/search"
)

var searchCmd = &cobra.Command{
	Use:   "search QUERY...",
	Short: "Run one web search through the configured backends",
	Long: `Search sends a query to every configured search backend, merges and
deduplicates the results and prints them. Useful for checking API keys and
what a research node would see.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

var quoteCmd = &cobra.Command{
	Use:   "quote TICKER",
	Short: "Fetch the current market quote for a ticker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ticker := strings.ToUpper(args[0])
		q, err := quote.NewYahoo(cfg.Quote).GetQuote(context.Background(), ticker)
		if err != nil {
			return err
		}
		fmt.Println(quote.Summary(ticker, q))
		return nil
	},
}

func init() {
	searchCmd.Flags().Int("max-results", 5, "maximum number of results to return")
	searchCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(quoteCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	maxResults, _ := cmd.Flags().GetInt("max-results")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	m, err := search.New(cfg.Search, logger)
	if err != nil {
		return err
	}
	results, err := m.Search(context.Background(), strings.Join(args, " "), maxResults)
	if err != nil {
		return err
	}
	if jsonOutput {
		return search.FormatJSON(results, os.Stdout)
	}
	search.FormatTable(results, os.Stdout)
	return nil
}
