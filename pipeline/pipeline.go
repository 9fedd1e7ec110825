package pipeline

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/wudi/doctext/document"
	"github.com/wudi/doctext/ocr"
	"github.com/wudi/doctext/raster"
)

// Config tunes per-page OCR execution.
type Config struct {
	// Workers bounds concurrent page conversions.
	Workers int
	// PageTimeout bounds rasterize plus recognize for a single page. An
	// expired page is marked failed with reason "timeout" and is not retried.
	PageTimeout time.Duration
	// Retries is the number of additional attempts for a failed page.
	Retries int
	// DPI is passed to the rasterizer and forwarded to the engine as a hint.
	DPI int
	// MaxEdge caps the long edge of rendered pages in pixels before OCR;
	// zero disables downscaling.
	MaxEdge int
	// Languages are hints forwarded to the OCR engine.
	Languages []string
	// PartialOnCancel keeps the pages finished before the request context
	// was canceled instead of failing the whole request.
	PartialOnCancel bool
}

// DefaultConfig returns the tuning applied where Config fields are zero.
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		PageTimeout: 2 * time.Minute,
		Retries:     1,
		DPI:         300,
		MaxEdge:     4000,
	}
}

// Runner converts document pages to text by rasterizing them and submitting
// the images to an OCR engine. Pages are processed by a bounded worker pool;
// assembled results always follow request order, not completion order.
type Runner struct {
	raster raster.Rasterizer
	engine ocr.Engine
	cfg    Config
	log    zerolog.Logger
}

// New builds a Runner. Zero workers, timeout, and DPI fall back to
// DefaultConfig values; Retries of zero means a single attempt. A nil engine
// selects the process default.
func New(r raster.Rasterizer, engine ocr.Engine, cfg Config, log zerolog.Logger) *Runner {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = def.PageTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	if engine == nil {
		engine = ocr.DefaultEngine()
	}
	return &Runner{raster: r, engine: engine, cfg: cfg, log: log}
}

// Run converts the given pages of the document at path. pages must already be
// resolved to valid 1-based page numbers; the returned slice is index-aligned
// with pages. Individual page failures are recorded inline, never returned as
// errors; only an unavailable engine/rasterizer or a canceled request fails
// the run.
func (r *Runner) Run(ctx context.Context, path string, pages []int) ([]document.PageText, error) {
	if len(pages) == 0 {
		return nil, nil
	}
	if err := r.available(); err != nil {
		return nil, err
	}

	results := make([]document.PageText, len(pages))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, page := range pages {
		i, page := i, page
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = failedPage(page, "canceled")
				return err
			}
			results[i] = r.convertPage(gctx, path, page)
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		if r.cfg.PartialOnCancel {
			r.log.Warn().Str("path", path).Int("pages", len(pages)).Msg("request canceled, returning partial OCR results")
			return results, nil
		}
		return nil, document.WrapError("ocr-run", path, err, "request canceled")
	}
	return results, nil
}

// available verifies the rasterizer and engine before any page work starts.
func (r *Runner) available() error {
	if err := r.raster.Available(); err != nil {
		return err
	}
	if p, ok := r.engine.(ocr.Prober); ok {
		if err := p.Available(); err != nil {
			if errors.Is(err, document.ErrOCRUnavailable) {
				return err
			}
			return document.NewError("ocr-run", "", document.ErrOCRUnavailable, err.Error())
		}
	}
	return nil
}

// convertPage runs one page to completion: attempts with retry for ordinary
// failures, a terminal "timeout" failure when the page deadline expires, and
// a terminal "canceled" failure when the whole request is being torn down.
func (r *Runner) convertPage(ctx context.Context, path string, page int) document.PageText {
	attempts := r.cfg.Retries + 1
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		pt, err := r.attemptPage(ctx, path, page)
		if err == nil {
			return pt
		}
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			r.log.Warn().Str("path", path).Int("page", page).Dur("timeout", r.cfg.PageTimeout).Msg("page OCR timed out")
			return failedPage(page, "timeout")
		}
		if ctx.Err() != nil {
			return failedPage(page, "canceled")
		}
		lastErr = err
		if attempt < attempts {
			r.log.Warn().Err(err).Str("path", path).Int("page", page).Int("attempt", attempt).Msg("page OCR failed, retrying")
		}
	}
	r.log.Error().Err(lastErr).Str("path", path).Int("page", page).Msg("page OCR failed")
	return failedPage(page, document.FailReason(lastErr))
}

// attemptPage is a single rasterize→preprocess→recognize pass under the
// per-page deadline.
func (r *Runner) attemptPage(ctx context.Context, path string, page int) (document.PageText, error) {
	pctx, cancel := context.WithTimeout(ctx, r.cfg.PageTimeout)
	defer cancel()

	img, err := r.raster.RasterizePage(pctx, path, page)
	if err != nil {
		return document.PageText{}, err
	}

	if scaled, err := fitImage(img, r.cfg.MaxEdge); err != nil {
		r.log.Warn().Err(err).Str("path", path).Int("page", page).Msg("page image preprocessing failed, using original render")
	} else {
		img = scaled
	}

	in := ocr.PageInput(page, img, ocr.WithLanguages(r.cfg.Languages...), ocr.WithDPI(r.cfg.DPI))
	res, err := r.recognize(pctx, in)
	if err != nil {
		return document.PageText{}, err
	}

	pt := document.PageText{
		Number:     page,
		Status:     document.PageOK,
		Text:       normalize(res.PlainText),
		OCR:        true,
		Confidence: res.MeanConfidence,
	}
	if pt.Text == "" {
		pt.Status = document.PageEmpty
	}
	return pt, nil
}

// recognize invokes the engine in a goroutine so that an engine that does not
// honor context cancellation still cannot hold the page past its deadline.
func (r *Runner) recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	type outcome struct {
		res ocr.Result
		err error
	}
	ch := make(chan outcome, 1)
	go func() {
		res, err := r.engine.Recognize(ctx, in)
		ch <- outcome{res: res, err: err}
	}()
	select {
	case <-ctx.Done():
		return ocr.Result{}, ctx.Err()
	case out := <-ch:
		return out.res, out.err
	}
}

func failedPage(page int, reason string) document.PageText {
	return document.PageText{Number: page, Status: document.PageFailed, Reason: reason, OCR: true}
}

// normalize cleans raw OCR output: line endings unified, trailing whitespace
// stripped per line, runs of blank lines collapsed to one paragraph break.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t")
	}
	s = strings.Join(lines, "\n")
	for strings.Contains(s, "\n\n\n") {
		s = strings.ReplaceAll(s, "\n\n\n", "\n\n")
	}
	return strings.TrimSpace(s)
}
