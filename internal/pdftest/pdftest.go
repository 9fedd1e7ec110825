package pdftest

// Package pdftest synthesizes small, valid PDF files for tests: pages with a
// real text layer, pages holding only a full-page image XObject (the shape of
// a scanned page), or blank pages. Offsets in the cross-reference table are
// computed while writing, so the output parses with strict readers.

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// Page describes one synthesized page.
type Page struct {
	// Text is drawn with the built-in Helvetica font when non-empty.
	// Newlines start new text lines.
	Text string

	// Image embeds a grayscale image XObject scaled to the full page,
	// mimicking a scanned page.
	Image bool
}

// TextPage is shorthand for a page carrying only a text layer.
func TextPage(text string) Page { return Page{Text: text} }

// ScannedPage is shorthand for a page carrying only a full-page image.
func ScannedPage() Page { return Page{Image: true} }

// BlankPage is shorthand for a page with no text and no image.
func BlankPage() Page { return Page{} }

// Write builds a PDF from the given pages and writes it into dir,
// returning the file path.
func Write(t *testing.T, dir, name string, pages ...Page) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(pages...), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

// Build renders the pages into PDF bytes.
func Build(pages ...Page) []byte {
	const (
		catalogNum = 1
		pagesNum   = 2
		fontNum    = 3
	)

	type pageObjs struct {
		page, contents, image int
	}
	next := 4
	layout := make([]pageObjs, len(pages))
	for i, p := range pages {
		layout[i].page = next
		next++
		layout[i].contents = next
		next++
		if p.Image {
			layout[i].image = next
			next++
		}
	}
	total := next - 1

	bodies := make([][]byte, total+1)
	bodies[catalogNum] = []byte("<< /Type /Catalog /Pages 2 0 R >>")

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", layout[i].page)
	}
	bodies[pagesNum] = []byte(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>",
		strings.Join(kids, " "), len(pages)))
	// The Widths array lets text extractors recompute glyph positions;
	// without it, character advances come out as zero and line assembly
	// falls apart.
	bodies[fontNum] = []byte(fmt.Sprintf(
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>",
		strings.TrimSpace(strings.Repeat("500 ", 95))))

	for i, p := range pages {
		lo := layout[i]

		var content bytes.Buffer
		if p.Text != "" {
			content.WriteString("BT /F1 12 Tf 72 720 Td ")
			for li, line := range strings.Split(p.Text, "\n") {
				if li > 0 {
					content.WriteString("0 -14 Td ")
				}
				fmt.Fprintf(&content, "(%s) Tj ", escapeText(line))
			}
			content.WriteString("ET\n")
		}
		resources := "<< /Font << /F1 3 0 R >>"
		if p.Image {
			content.WriteString("q 612 0 0 792 0 0 cm /Im0 Do Q\n")
			resources += fmt.Sprintf(" /XObject << /Im0 %d 0 R >>", lo.image)
		}
		resources += " >>"

		bodies[lo.contents] = streamObject(fmt.Sprintf("<< /Length %d >>", content.Len()), content.Bytes())
		bodies[lo.page] = []byte(fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources %s /Contents %d 0 R >>",
			resources, lo.contents))

		if p.Image {
			img := grayImageData()
			dict := fmt.Sprintf(
				"<< /Type /XObject /Subtype /Image /Width 4 /Height 4 /ColorSpace /DeviceGray /BitsPerComponent 8 /Length %d >>",
				len(img))
			bodies[lo.image] = streamObject(dict, img)
		}
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, total+1)
	for n := 1; n <= total; n++ {
		offsets[n] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", n)
		buf.Write(bodies[n])
		buf.WriteString("\nendobj\n")
	}

	xrefPos := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", total+1)
	buf.WriteString("0000000000 65535 f \n")
	for n := 1; n <= total; n++ {
		fmt.Fprintf(&buf, "%010d 00000 n \n", offsets[n])
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", total+1, xrefPos)
	return buf.Bytes()
}

func streamObject(dict string, data []byte) []byte {
	var b bytes.Buffer
	b.WriteString(dict)
	b.WriteString("\nstream\n")
	b.Write(data)
	b.WriteString("\nendstream")
	return b.Bytes()
}

// grayImageData is a 4x4 8-bit grayscale checker, enough for an image
// XObject that decoders accept.
func grayImageData() []byte {
	data := make([]byte, 16)
	for i := range data {
		if (i/4+i%4)%2 == 0 {
			data[i] = 0x40
		} else {
			data[i] = 0xc0
		}
	}
	return data
}

func escapeText(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
