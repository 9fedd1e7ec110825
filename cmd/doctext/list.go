package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list [directory]",
	Short: "List the PDF files in a directory with their extractability",
	Long: `List the PDF files in a directory. Each entry reports the file size, a
classification badge from sampling the leading pages ([Text PDF],
[Scanned PDF], [Mixed PDF] or [Unreadable]) and whether a whole-document
extraction is already cached.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("json", false, "output as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	rdr, cleanup, err := newReader(ctx, false)
	if err != nil {
		return friendly(err)
	}
	defer cleanup()

	statuses, err := rdr.ScanDir(ctx, dir)
	if err != nil {
		return friendly(err)
	}

	if asJSON {
		data, err := json.MarshalIndent(statuses, "", "  ")
		if err != nil {
			return fmt.Errorf("encode listing: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if len(statuses) == 0 {
		fmt.Printf("No PDF files found in %s\n", dir)
		return nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d PDF files in %s:\n\n", len(statuses), dir)
	for _, st := range statuses {
		if st.Problem != "" {
			fmt.Fprintf(&b, "%s %s: %s\n", st.Path, st.Badge(), st.Problem)
			continue
		}
		fmt.Fprintf(&b, "%s (%.1f MB, %d pages) %s", st.Path, float64(st.Size)/(1024*1024), st.Pages, st.Badge())
		if st.Cached {
			b.WriteString(" [cached]")
		}
		b.WriteByte('\n')
	}
	fmt.Print(b.String())
	return nil
}
