package document

import (
	"fmt"
	"strings"
)

// Method records how a result's text was produced.
type Method string

const (
	// MethodTextLayer means every page came from the embedded text layer.
	MethodTextLayer Method = "text-layer"
	// MethodOCR means every page came from rasterization plus OCR.
	MethodOCR Method = "ocr"
	// MethodHybrid means the document mixed both, merged in page order.
	MethodHybrid Method = "hybrid"
)

// PageStatus is the per-page outcome inside an ExtractionResult.
type PageStatus string

const (
	// PageOK means text was produced for the page.
	PageOK PageStatus = "ok"
	// PageFailed means extraction failed for this page; the page keeps an
	// explicit marker in the output so it is never silently dropped.
	PageFailed PageStatus = "failed"
	// PageEmpty means extraction succeeded but yielded no characters.
	PageEmpty PageStatus = "empty"
)

// PageText is one page's contribution to a result.
type PageText struct {
	Number int        `json:"number"`
	Status PageStatus `json:"status"`
	Text   string     `json:"text,omitempty"`
	// Reason explains a failed page (e.g. "timeout", "rasterize: exit 1").
	Reason string `json:"reason,omitempty"`
	// OCR marks pages produced by the OCR path rather than the text layer.
	OCR bool `json:"ocr,omitempty"`
	// Confidence is the mean OCR word confidence in [0, 1]; zero for
	// text-layer pages and engines that report none.
	Confidence float64 `json:"confidence,omitempty"`
}

// Marker is the deterministic per-page boundary line callers split on.
func (p PageText) Marker() string {
	switch {
	case p.OCR && p.Status == PageFailed:
		return fmt.Sprintf("--- Page %d (OCR Error) ---", p.Number)
	case p.OCR:
		return fmt.Sprintf("--- Page %d (OCR) ---", p.Number)
	case p.Status == PageFailed:
		return fmt.Sprintf("--- Page %d (Error) ---", p.Number)
	default:
		return fmt.Sprintf("--- Page %d ---", p.Number)
	}
}

// ExtractionResult is the produced text for a page range. Pages appear in
// request order regardless of how extraction was scheduled.
type ExtractionResult struct {
	Method Method     `json:"method"`
	Pages  []PageText `json:"pages"`
}

// Render assembles the pages into plain text, each preceded by its marker
// line. Failed pages render an inline failure note instead of text.
func (r ExtractionResult) Render() string {
	var b strings.Builder
	for i, p := range r.Pages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(p.Marker())
		b.WriteByte('\n')
		if p.Status == PageFailed {
			b.WriteString("[extraction failed: " + p.Reason + "]")
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// FailedPages lists the 1-based indices of pages that failed extraction.
func (r ExtractionResult) FailedPages() []int {
	var pages []int
	for _, p := range r.Pages {
		if p.Status == PageFailed {
			pages = append(pages, p.Number)
		}
	}
	return pages
}
