package raster

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/wudi/doctext/document"
)

// Rasterizer converts single PDF pages into raster images for OCR input.
type Rasterizer interface {
	// RasterizePage renders the 1-based page of the PDF at path into an
	// encoded image (PNG).
	RasterizePage(ctx context.Context, path string, page int) ([]byte, error)

	// Available reports whether the rasterizer can run at all. An error
	// explains what is missing so callers can surface installation
	// guidance instead of failing page by page.
	Available() error
}

// lookPath is the exec.LookPath implementation used by availability
// probes. Tests may replace it to simulate a missing binary.
var lookPath = exec.LookPath

// Options tune the poppler-backed rasterizer.
type Options struct {
	// DPI is the render resolution. OCR accuracy improves up to roughly
	// 300; beyond that processing time grows faster than recognition.
	DPI int
	// Grayscale renders single-channel output, which OCR engines prefer
	// and which keeps rasters small.
	Grayscale bool
}

// DefaultOptions returns the render settings used when a field is unset.
func DefaultOptions() Options {
	return Options{DPI: 300, Grayscale: true}
}

// Poppler shells out to pdftoppm, the renderer of the poppler-utils
// package. It is safe for concurrent use; each call runs its own process.
type Poppler struct {
	opts Options
	log  zerolog.Logger
}

// NewPoppler builds a pdftoppm-backed rasterizer.
func NewPoppler(opts Options, log zerolog.Logger) *Poppler {
	if opts.DPI <= 0 {
		opts.DPI = DefaultOptions().DPI
	}
	return &Poppler{opts: opts, log: log}
}

// Available probes for the pdftoppm binary.
func (p *Poppler) Available() error {
	if _, err := lookPath("pdftoppm"); err != nil {
		return document.NewError("probe rasterizer", "", document.ErrOCRUnavailable,
			"pdftoppm not found in PATH; install poppler-utils")
	}
	return nil
}

// RasterizePage renders one page to PNG bytes. The context bounds the
// external process: cancelation or deadline kills it.
func (p *Poppler) RasterizePage(ctx context.Context, path string, page int) ([]byte, error) {
	const op = "rasterize"

	if err := p.Available(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "doctext-raster-*")
	if err != nil {
		return nil, document.NewError(op, path, err, "create temp dir").WithPage(page)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm", p.args(path, page, prefix)...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	p.log.Debug().Str("path", path).Int("page", page).Int("dpi", p.opts.DPI).Msg("rasterizing page")
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return nil, document.NewError(op, path, fmt.Errorf("pdftoppm: %s", detail), "").WithPage(page)
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, document.NewError(op, path, err, "pdftoppm produced no output").WithPage(page)
	}
	return data, nil
}

// args builds the pdftoppm argv for a single-page PNG render.
func (p *Poppler) args(path string, page int, prefix string) []string {
	args := []string{
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-r", strconv.Itoa(p.opts.DPI),
		"-png",
		"-singlefile",
	}
	if p.opts.Grayscale {
		args = append(args, "-gray")
	}
	return append(args, path, prefix)
}
