package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wudi/doctext/search"
)

var searchCmd = &cobra.Command{
	Use:   "search [pdf-file] [query]",
	Short: "Search for literal text inside a PDF",
	Long: `Search the extracted text of a PDF for a literal query, line by line.
The document is read through the same pipeline as "doctext read", so a
previously read file is searched from cache without re-running OCR.`,
	Example: `  doctext search report.pdf "total revenue"
  doctext search scan.pdf invoice --max 25
  doctext search report.pdf Revenue --case-sensitive -p 1-10`,
	Args: cobra.ExactArgs(2),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringP("pages", "p", "all", `page range to search, e.g. "all", "1,3-5"`)
	searchCmd.Flags().Bool("case-sensitive", false, "match the query byte-for-byte")
	searchCmd.Flags().Int("max", search.DefaultMaxMatches, "maximum matches to return, -1 for all")
	searchCmd.Flags().Bool("json", false, "output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	pages, _ := cmd.Flags().GetString("pages")
	caseSensitive, _ := cmd.Flags().GetBool("case-sensitive")
	maxMatches, _ := cmd.Flags().GetInt("max")
	asJSON, _ := cmd.Flags().GetBool("json")

	path, query := args[0], args[1]

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	rdr, cleanup, err := newReader(ctx, false)
	if err != nil {
		return friendly(err)
	}
	defer cleanup()

	matches, err := search.Search(ctx, rdr, path, query, search.Options{
		CaseSensitive: caseSensitive,
		MaxMatches:    maxMatches,
		Pages:         pages,
	})
	if err != nil {
		return friendly(err)
	}

	if asJSON {
		data, err := json.MarshalIndent(matches, "", "  ")
		if err != nil {
			return fmt.Errorf("encode matches: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(matches) == 0 {
		fmt.Printf("No matches found for %q in %s\n", query, path)
		return nil
	}

	fmt.Printf("Found %d matches for %q in %s:\n\n", len(matches), query, path)
	for _, m := range matches {
		fmt.Printf("Page %d, line %d: %s\n", m.Page, m.Line, m.Context)
	}
	if maxMatches > 0 && len(matches) == maxMatches {
		fmt.Printf("\n[showing the first %d matches; raise --max for more]\n", maxMatches)
	}
	return nil
}
