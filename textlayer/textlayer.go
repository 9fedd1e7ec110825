package textlayer

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	lpdf "github.com/ledongthuc/pdf"

	"github.com/wudi/doctext/document"
)

// yTolerance merges text items whose baselines differ by less than this
// many points into one output line.
const yTolerance = 3.0

// Reader exposes the machine-encoded text layer of a PDF, page by page.
// It reads only the embedded text; it never rasterizes and never OCRs.
type Reader struct {
	path   string
	closer io.Closer
	pdf    *lpdf.Reader
}

// Open parses the PDF at path. Files that cannot be parsed or report zero
// pages surface document.ErrDocumentUnreadable.
func Open(path string) (*Reader, error) {
	const op = "open text layer"

	f, r, err := lpdf.Open(path)
	if err != nil {
		return nil, document.NewError(op, path, document.ErrDocumentUnreadable, err.Error())
	}
	if r.NumPage() < 1 {
		f.Close()
		return nil, document.NewError(op, path, document.ErrDocumentUnreadable, "document has no pages")
	}
	return &Reader{path: path, closer: f, pdf: r}, nil
}

// PageCount returns the number of pages in the document.
func (r *Reader) PageCount() int {
	return r.pdf.NumPage()
}

// PageText returns the text layer of the 1-based page, with lines
// reassembled top-to-bottom from the positioned text items. A page with no
// text layer returns the empty string.
//
// The underlying parser panics on some malformed content streams; the
// recover converts that into a per-page error instead of taking down the
// whole document.
func (r *Reader) PageText(page int) (text string, err error) {
	const op = "read text layer"

	if page < 1 || page > r.pdf.NumPage() {
		return "", document.NewError(op, r.path, document.ErrPageRangeInvalid,
			fmt.Sprintf("page %d out of range (1-%d)", page, r.pdf.NumPage())).WithPage(page)
	}

	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = document.NewError(op, r.path, document.ErrDocumentUnreadable,
				fmt.Sprintf("content stream parse panic: %v", rec)).WithPage(page)
		}
	}()

	p := r.pdf.Page(page)
	if p.V.IsNull() {
		return "", document.NewError(op, r.path, document.ErrDocumentUnreadable, "page object missing").WithPage(page)
	}
	return assemble(p.Content().Text), nil
}

// Close releases the underlying file handle.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// assemble orders positioned text items top-to-bottom, left-to-right, and
// re-inserts line breaks and word gaps the content stream only encodes as
// coordinates.
func assemble(items []lpdf.Text) string {
	if len(items) == 0 {
		return ""
	}

	sorted := append([]lpdf.Text(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		// PDF y grows upward, so higher y comes first.
		if math.Abs(sorted[i].Y-sorted[j].Y) > yTolerance {
			return sorted[i].Y > sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	var b strings.Builder
	lastY := sorted[0].Y
	lastEnd := sorted[0].X
	for i, it := range sorted {
		if i > 0 {
			switch {
			case math.Abs(it.Y-lastY) > yTolerance:
				b.WriteByte('\n')
			case it.X-lastEnd > wordGap(it):
				b.WriteByte(' ')
			}
		}
		b.WriteString(it.S)
		lastY = it.Y
		lastEnd = it.X + it.W
	}
	return b.String()
}

func wordGap(it lpdf.Text) float64 {
	if it.FontSize > 0 {
		return it.FontSize * 0.3
	}
	return 2.0
}
