package search

import (
	"context"
	"errors"
	"testing"

	"github.com/wudi/doctext/document"
	"github.com/wudi/doctext/reader"
)

type fakeSource struct {
	res       *document.ExtractionResult
	err       error
	lastRange string
}

func (f *fakeSource) Read(ctx context.Context, path, pageRange string, opts ...reader.ReadOption) (*document.ExtractionResult, error) {
	f.lastRange = pageRange
	if f.err != nil {
		return nil, f.err
	}
	return f.res, nil
}

func twoPageSource() *fakeSource {
	return &fakeSource{res: &document.ExtractionResult{
		Method: document.MethodTextLayer,
		Pages: []document.PageText{
			{Number: 1, Status: document.PageOK, Text: "Annual Report\nRevenue grew strongly.\nCosts were flat."},
			{Number: 2, Status: document.PageOK, Text: "Outlook\nRevenue should keep growing.", OCR: false},
		},
	}}
}

func TestSearchFindsMatchesAcrossPages(t *testing.T) {
	src := twoPageSource()
	matches, err := Search(context.Background(), src, "report.pdf", "revenue", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2: %+v", len(matches), matches)
	}
	if matches[0].Page != 1 || matches[0].Line != 2 {
		t.Errorf("first match at page %d line %d, want page 1 line 2", matches[0].Page, matches[0].Line)
	}
	if matches[1].Page != 2 || matches[1].Line != 2 {
		t.Errorf("second match at page %d line %d, want page 2 line 2", matches[1].Page, matches[1].Line)
	}
	if src.lastRange != document.AllPages {
		t.Errorf("range = %q, want all", src.lastRange)
	}
}

func TestSearchContextJoinsNeighbors(t *testing.T) {
	src := twoPageSource()
	matches, err := Search(context.Background(), src, "report.pdf", "grew", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	want := "Annual Report Revenue grew strongly. Costs were flat."
	if matches[0].Context != want {
		t.Errorf("context = %q, want %q", matches[0].Context, want)
	}

	// First line of a page has no predecessor.
	matches, err = Search(context.Background(), src, "report.pdf", "Outlook", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 1 {
		t.Fatalf("matches = %d, want 1", len(matches))
	}
	if want := "Outlook Revenue should keep growing."; matches[0].Context != want {
		t.Errorf("context = %q, want %q", matches[0].Context, want)
	}
}

func TestSearchCaseSensitivity(t *testing.T) {
	src := twoPageSource()

	matches, err := Search(context.Background(), src, "report.pdf", "REVENUE", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("insensitive matches = %d, want 2", len(matches))
	}

	matches, err = Search(context.Background(), src, "report.pdf", "REVENUE", Options{CaseSensitive: true})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("sensitive matches = %d, want 0", len(matches))
	}

	matches, err = Search(context.Background(), src, "report.pdf", "Revenue", Options{CaseSensitive: true})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("sensitive matches = %d, want 2", len(matches))
	}
}

func TestSearchMaxMatches(t *testing.T) {
	src := &fakeSource{res: &document.ExtractionResult{Pages: []document.PageText{
		{Number: 1, Status: document.PageOK, Text: "hit\nhit\nhit\nhit\nhit"},
	}}}

	matches, err := Search(context.Background(), src, "doc.pdf", "hit", Options{MaxMatches: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("matches = %d, want 2", len(matches))
	}

	matches, err = Search(context.Background(), src, "doc.pdf", "hit", Options{MaxMatches: -1})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 5 {
		t.Fatalf("unlimited matches = %d, want 5", len(matches))
	}
}

func TestSearchSkipsFailedPages(t *testing.T) {
	src := &fakeSource{res: &document.ExtractionResult{Pages: []document.PageText{
		{Number: 1, Status: document.PageFailed, Reason: "timeout"},
		{Number: 2, Status: document.PageOK, Text: "needle in page two"},
		{Number: 3, Status: document.PageEmpty},
	}}}

	matches, err := Search(context.Background(), src, "doc.pdf", "needle", Options{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 1 || matches[0].Page != 2 {
		t.Fatalf("matches = %+v, want one hit on page 2", matches)
	}
}

func TestSearchEmptyQuery(t *testing.T) {
	if _, err := Search(context.Background(), twoPageSource(), "doc.pdf", "  ", Options{}); err == nil {
		t.Fatalf("Search() accepted an empty query")
	}
}

func TestSearchPlumbsPageRange(t *testing.T) {
	src := twoPageSource()
	if _, err := Search(context.Background(), src, "doc.pdf", "Revenue", Options{Pages: "2"}); err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if src.lastRange != "2" {
		t.Errorf("range = %q, want 2", src.lastRange)
	}
}

func TestSearchPropagatesReadError(t *testing.T) {
	src := &fakeSource{err: document.NewError("read", "doc.pdf", document.ErrDocumentUnreadable, "")}
	_, err := Search(context.Background(), src, "doc.pdf", "x", Options{})
	if !errors.Is(err, document.ErrDocumentUnreadable) {
		t.Fatalf("Search() error = %v, want ErrDocumentUnreadable", err)
	}
}
