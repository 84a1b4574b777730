package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/comfygallery/comfymeta/metacache"
	"github.com/comfygallery/comfymeta/searchindex"
)

var (
	flagSearchJournal string
	flagSearchLimit   int
)

var searchCmd = &cobra.Command{
	Use:   "search <directory> <query...>",
	Short: "Search previously indexed metadata",
	Long: `Search rebuilds an in-memory index from the journal written by
"comfymeta index" and matches every query term as a token prefix against
the extracted prompts, model, sampler and lora names.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		query := strings.Join(args[1:], " ")

		journal := flagSearchJournal
		if journal == "" {
			journal = filepath.Join(root, ".comfymeta.jsonl")
		}
		store, err := metacache.Open(journal)
		if err != nil {
			return err
		}
		defer store.Close()

		ix := searchindex.New()
		for _, rec := range store.Records() {
			ix.IndexFile(rec.Path, rec.Fields, rec.Mtime, rec.Size)
		}

		results := ix.Search(query, flagSearchLimit)
		if len(results) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "no matches")
			return nil
		}
		for _, r := range results {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", r.Path)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&flagSearchJournal, "journal", "", "Journal path (default <directory>/.comfymeta.jsonl)")
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 20, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
}
