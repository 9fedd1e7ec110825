package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wudi/doctext/logging"
	"github.com/wudi/doctext/reader"
)

var readCmd = &cobra.Command{
	Use:   "read [pdf-file]",
	Short: "Extract the text of a PDF",
	Long: `Extract the text of a PDF file.

Pages with an embedded text layer are read directly. Scanned pages are
rasterized and OCRed with the configured engine. Each page of the output
is preceded by a marker line such as "--- Page 3 ---" or
"--- Page 3 (OCR) ---"; pages that fail keep an explicit error marker
instead of being dropped.`,
	Example: `  # Read a whole document to stdout
  doctext read report.pdf

  # Read pages 1, 3, 4 and 5 into a file
  doctext read report.pdf -p 1,3-5 -o report.txt

  # OCR everything, even pages with a text layer
  doctext read scan.pdf --force-ocr

  # Structured output for scripting
  doctext read report.pdf --json | jq '.pages[].status'`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

func init() {
	rootCmd.AddCommand(readCmd)

	readCmd.Flags().StringP("pages", "p", "all", `page range, e.g. "all", "3", "1,3-5"`)
	readCmd.Flags().Bool("force-ocr", false, "OCR every page even when a text layer exists")
	readCmd.Flags().Bool("partial", false, "on interrupt, return the pages finished so far")
	readCmd.Flags().Bool("json", false, "output the structured result as JSON")
	readCmd.Flags().StringP("output", "o", "", "output file path (default: stdout)")
}

func runRead(cmd *cobra.Command, args []string) error {
	log := logging.WithComponent("cmd")
	pages, _ := cmd.Flags().GetString("pages")
	forceOCR, _ := cmd.Flags().GetBool("force-ocr")
	partial, _ := cmd.Flags().GetBool("partial")
	asJSON, _ := cmd.Flags().GetBool("json")
	outputPath, _ := cmd.Flags().GetString("output")

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	rdr, cleanup, err := newReader(ctx, partial)
	if err != nil {
		return friendly(err)
	}
	defer cleanup()

	var opts []reader.ReadOption
	if forceOCR {
		opts = append(opts, reader.WithForceOCR())
	}

	start := time.Now()
	res, err := rdr.Read(ctx, args[0], pages, opts...)
	if err != nil {
		return friendly(err)
	}

	log.Info().
		Str("file", args[0]).
		Str("method", string(res.Method)).
		Int("pages", len(res.Pages)).
		Dur("took", time.Since(start)).
		Msg("document read")
	if failed := res.FailedPages(); len(failed) > 0 {
		log.Warn().Ints("pages", failed).Msg("some pages failed extraction")
	}

	if asJSON {
		data, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		return writeOutput(append(data, '\n'), outputPath)
	}
	return writeOutput([]byte(res.Render()+"\n"), outputPath)
}
