package classify

import (
	"context"
	"unicode"

	"github.com/rs/zerolog"
)

// PageClass is the per-page verdict.
type PageClass string

const (
	// HasText means the embedded text layer is sufficient for this page.
	HasText PageClass = "HAS_TEXT"
	// NeedsOCR means the page looks scanned: almost no text layer plus a
	// dominant image.
	NeedsOCR PageClass = "NEEDS_OCR"
)

// Overall is the document-level verdict across the classified pages.
type Overall string

const (
	OverallHasText  Overall = "HAS_TEXT"
	OverallNeedsOCR Overall = "NEEDS_OCR"
	// OverallMixed means pages disagree; callers OCR only the flagged
	// subset and merge with the text layer of the rest, in page order.
	OverallMixed Overall = "MIXED"
)

// Classification maps each classified page to its verdict.
type Classification struct {
	PerPage map[int]PageClass
	Overall Overall
}

// OCRPages returns the ascending subset of pages that need OCR.
func (c Classification) OCRPages(pages []int) []int {
	var out []int
	for _, p := range pages {
		if c.PerPage[p] == NeedsOCR {
			out = append(out, p)
		}
	}
	return out
}

// TextSource supplies per-page text-layer content.
type TextSource interface {
	PageCount() int
	PageText(page int) (string, error)
}

// Config tunes the extractability thresholds. The defaults suit typical
// office scans; documents with sparse cover pages may want a lower
// MinCharsPerPage.
type Config struct {
	// MinCharsPerPage is the minimum count of letters/digits for a page
	// to count as having a usable text layer.
	MinCharsPerPage int
	// MinImageCoverage is the fraction of page area an image XObject must
	// cover before a low-text page counts as scanned rather than blank.
	MinImageCoverage float64
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MinCharsPerPage:  20,
		MinImageCoverage: 0.5,
	}
}

// Classifier decides per page whether the text layer suffices or OCR is
// required. Blank pages (no text, no dominant image) classify as HAS_TEXT
// so they never trigger OCR.
type Classifier struct {
	cfg Config
	log zerolog.Logger
}

// New builds a Classifier with the given thresholds.
func New(cfg Config, log zerolog.Logger) *Classifier {
	if cfg.MinCharsPerPage <= 0 {
		cfg.MinCharsPerPage = DefaultConfig().MinCharsPerPage
	}
	if cfg.MinImageCoverage <= 0 {
		cfg.MinImageCoverage = DefaultConfig().MinImageCoverage
	}
	return &Classifier{cfg: cfg, log: log}
}

// Classify inspects the given 1-based pages. Both sources must belong to
// the same underlying document.
func (c *Classifier) Classify(ctx context.Context, text TextSource, meta MetaSource, pages []int) (Classification, error) {
	out := Classification{PerPage: make(map[int]PageClass, len(pages))}

	var ocr, plain int
	for _, page := range pages {
		if err := ctx.Err(); err != nil {
			return Classification{}, err
		}
		class := c.classifyPage(text, meta, page)
		out.PerPage[page] = class
		if class == NeedsOCR {
			ocr++
		} else {
			plain++
		}
	}

	switch {
	case ocr > 0 && plain > 0:
		out.Overall = OverallMixed
	case ocr > 0:
		out.Overall = OverallNeedsOCR
	default:
		out.Overall = OverallHasText
	}
	return out, nil
}

func (c *Classifier) classifyPage(text TextSource, meta MetaSource, page int) PageClass {
	content, err := text.PageText(page)
	if err != nil {
		// A broken text stream is no reason to fail the document; the
		// page just counts as having no usable text layer.
		c.log.Warn().Int("page", page).Err(err).Msg("text layer unreadable, treating page as textless")
		content = ""
	}
	if countAlnum(content) >= c.cfg.MinCharsPerPage {
		return HasText
	}

	pm, err := meta.PageMeta(page)
	if err != nil {
		c.log.Warn().Int("page", page).Err(err).Msg("page metadata unreadable, treating page as blank")
		return HasText
	}
	if pm.ImageCoverage >= c.cfg.MinImageCoverage {
		return NeedsOCR
	}
	return HasText
}

// countAlnum counts letters and digits, the signal distinguishing real
// text layers from stray glyph noise.
func countAlnum(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			n++
		}
	}
	return n
}

// SamplePages returns the first max(1, limit) pages of a pageCount-page
// document, the cheap subset directory scans classify instead of every
// page.
func SamplePages(pageCount, limit int) []int {
	if limit < 1 {
		limit = 1
	}
	if pageCount < limit {
		limit = pageCount
	}
	pages := make([]int, 0, limit)
	for p := 1; p <= limit; p++ {
		pages = append(pages, p)
	}
	return pages
}
