package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status [pdf-file]",
	Short: "Show whether a document's text is already cached",
	Long: `Show whether an extraction result for the document (and page range) is
already cached. The file is hashed to establish its content identity but
never parsed, so this is cheap even for huge scans.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringP("pages", "p", "all", `page range, e.g. "all", "3", "1,3-5"`)
	statusCmd.Flags().Bool("json", false, "output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	pages, _ := cmd.Flags().GetString("pages")
	asJSON, _ := cmd.Flags().GetBool("json")

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	rdr, cleanup, err := newReader(ctx, false)
	if err != nil {
		return friendly(err)
	}
	defer cleanup()

	st, err := rdr.CachedStatus(ctx, args[0], pages)
	if err != nil {
		return friendly(err)
	}

	if asJSON {
		data, err := json.MarshalIndent(struct {
			Cached    bool      `json:"cached"`
			Method    string    `json:"method,omitempty"`
			Pages     int       `json:"pages,omitempty"`
			CreatedAt time.Time `json:"created_at,omitempty"`
		}{st.Cached, string(st.Method), st.Pages, st.CreatedAt}, "", "  ")
		if err != nil {
			return fmt.Errorf("encode status: %w", err)
		}
		fmt.Println(string(data))
		return nil
	}

	if !st.Cached {
		fmt.Printf("%s: not cached for pages %q\n", args[0], pages)
		return nil
	}
	fmt.Printf("%s: cached (%s, %d pages, stored %s)\n",
		args[0], st.Method, st.Pages, st.CreatedAt.Format(time.RFC3339))
	return nil
}
