package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wudi/doctext/cache"
	"github.com/wudi/doctext/classify"
	"github.com/wudi/doctext/config"
	"github.com/wudi/doctext/document"
	"github.com/wudi/doctext/logging"
	"github.com/wudi/doctext/ocr"
	"github.com/wudi/doctext/ocr/tesseract"
	"github.com/wudi/doctext/ocr/vision"
	"github.com/wudi/doctext/pipeline"
	"github.com/wudi/doctext/raster"
	"github.com/wudi/doctext/reader"
)

var version = "0.3.0"

// cfg is loaded once in main before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "doctext",
	Short: "Extract text from PDF documents, OCRing scanned pages as needed",
	Long: `doctext reads PDF files and returns their text. Documents with an
embedded text layer are read directly; scanned documents are rasterized
and OCRed page by page; mixed documents combine both, in page order.

Results are cached by file content, so re-reading an unchanged document
is instant no matter how expensive the first extraction was. Configure
via DOCTEXT_* environment variables or a .env file; see the repository
README for the full list.`,
	Version: version,
}

// Execute runs the CLI. Exit code 1 on any command error.
func Execute(c *config.Config) {
	cfg = c
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// newReader wires the full extraction stack from the loaded configuration.
// The returned cleanup releases the OCR engine.
func newReader(ctx context.Context, partial bool) (*reader.Reader, func(), error) {
	store, err := cache.NewFileStore(cfg.CacheDir, logging.WithComponent("cache"))
	if err != nil {
		return nil, nil, err
	}
	resultCache := cache.New(store, logging.WithComponent("cache"))
	if cfg.CacheMaxAge > 0 {
		if _, err := resultCache.Sweep(ctx, cfg.CacheMaxAge); err != nil {
			logging.WithComponent("cache").Warn().Err(err).Msg("cache sweep failed")
		}
	}

	engine, closeEngine, err := newEngine(ctx)
	if err != nil {
		return nil, nil, err
	}

	ras := raster.NewPoppler(raster.Options{
		DPI:       cfg.DPI,
		Grayscale: cfg.Grayscale,
	}, logging.WithComponent("raster"))

	pipe := pipeline.New(ras, engine, pipeline.Config{
		Workers:         cfg.Workers,
		PageTimeout:     cfg.PageTimeout,
		Retries:         cfg.Retries,
		DPI:             cfg.DPI,
		MaxEdge:         cfg.MaxEdge,
		Languages:       cfg.Languages,
		PartialOnCancel: partial,
	}, logging.WithComponent("pipeline"))

	classifier := classify.New(classify.Config{
		MinCharsPerPage:  cfg.MinCharsPerPage,
		MinImageCoverage: cfg.MinImageCoverage,
	}, logging.WithComponent("classify"))

	rdr := reader.New(resultCache, pipe, classifier,
		reader.Config{SamplePages: cfg.SamplePages},
		logging.WithComponent("reader"))
	return rdr, closeEngine, nil
}

func newEngine(ctx context.Context) (ocr.Engine, func(), error) {
	switch cfg.Engine {
	case "vision":
		eng, err := vision.New(ctx)
		if err != nil {
			return nil, nil, err
		}
		return eng, func() { _ = eng.Close() }, nil
	default:
		return tesseract.New(), func() {}, nil
	}
}

// signalContext cancels on SIGINT/SIGTERM so in-flight page work stops
// promptly; with --partial the finished pages still come back.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigc:
			logging.WithComponent("cmd").Info().Str("signal", sig.String()).Msg("interrupted, canceling")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigc)
	}()

	return ctx, cancel
}

// friendly converts taxonomy errors into actionable messages.
func friendly(err error) error {
	switch {
	case errors.Is(err, document.ErrOCRUnavailable):
		return fmt.Errorf("%w\n\nOCR needs the poppler and tesseract tools:\n"+
			"  apt-get install poppler-utils tesseract-ocr    (Debian/Ubuntu)\n"+
			"  brew install poppler tesseract                 (macOS)\n\n"+
			"or set DOCTEXT_OCR_ENGINE=vision with Google credentials in\n"+
			"GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS", err)
	case errors.Is(err, document.ErrPageRangeInvalid):
		return fmt.Errorf("%w\n\npage ranges look like \"all\", \"3\", or \"1,3-5\"", err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("processing timed out, raise DOCTEXT_OCR_PAGE_TIMEOUT or narrow the page range: %w", err)
	default:
		return err
	}
}

// writeOutput sends data to path, or stdout when path is empty.
func writeOutput(data []byte, path string) error {
	if path != "" {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write output file: %w", err)
		}
		return nil
	}
	_, err := os.Stdout.Write(data)
	return err
}
