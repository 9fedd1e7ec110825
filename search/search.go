// Package search finds literal text in extracted document content. It
// reads through the document reader, so repeated searches against an
// unchanged file reuse the cached extraction instead of re-running OCR.
package search

import (
	"context"
	"errors"
	"strings"

	"github.com/wudi/doctext/document"
	"github.com/wudi/doctext/reader"
)

// DefaultMaxMatches caps a search unless Options says otherwise.
const DefaultMaxMatches = 10

// Source yields extracted text for a document. *reader.Reader satisfies it.
type Source interface {
	Read(ctx context.Context, path, pageRange string, opts ...reader.ReadOption) (*document.ExtractionResult, error)
}

var _ Source = (*reader.Reader)(nil)

// Options tune a search.
type Options struct {
	// CaseSensitive matches the query byte-for-byte; the default folds
	// both sides to lower case.
	CaseSensitive bool
	// MaxMatches caps the returned matches. Zero means DefaultMaxMatches,
	// negative means unlimited.
	MaxMatches int
	// Pages restricts the search to a page range spec; empty means all.
	Pages string
}

// Match is one query hit within a document.
type Match struct {
	// Page is the 1-based page the hit appeared on.
	Page int `json:"page"`
	// Line is the 1-based line within that page's text.
	Line int `json:"line"`
	// Context is the matched line with one neighboring line on each side,
	// joined by spaces.
	Context string `json:"context"`
}

// Search scans the extracted text of the document at path for the literal
// query, line by line and in page order. Pages that failed extraction are
// skipped; they carry no text to match.
func Search(ctx context.Context, src Source, path, query string, opts Options) ([]Match, error) {
	if strings.TrimSpace(query) == "" {
		return nil, errors.New("search: empty query")
	}
	limit := opts.MaxMatches
	if limit == 0 {
		limit = DefaultMaxMatches
	}
	pages := opts.Pages
	if pages == "" {
		pages = document.AllPages
	}

	res, err := src.Read(ctx, path, pages)
	if err != nil {
		return nil, err
	}

	needle := query
	if !opts.CaseSensitive {
		needle = strings.ToLower(needle)
	}

	var out []Match
	for _, page := range res.Pages {
		if page.Status != document.PageOK {
			continue
		}
		lines := strings.Split(page.Text, "\n")
		for i, line := range lines {
			hay := line
			if !opts.CaseSensitive {
				hay = strings.ToLower(hay)
			}
			if !strings.Contains(hay, needle) {
				continue
			}
			out = append(out, Match{
				Page:    page.Number,
				Line:    i + 1,
				Context: contextAround(lines, i),
			})
			if limit > 0 && len(out) >= limit {
				return out, nil
			}
		}
	}
	return out, nil
}

// contextAround joins the line at i with its immediate neighbors.
func contextAround(lines []string, i int) string {
	lo := max(i-1, 0)
	hi := min(i+2, len(lines))
	return strings.Join(lines[lo:hi], " ")
}
