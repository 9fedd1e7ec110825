package raster

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os/exec"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/wudi/doctext/document"
	"github.com/wudi/doctext/internal/pdftest"
)

func TestAvailableReportsMissingBinary(t *testing.T) {
	orig := lookPath
	lookPath = func(name string) (string, error) {
		return "", exec.ErrNotFound
	}
	defer func() { lookPath = orig }()

	p := NewPoppler(DefaultOptions(), zerolog.Nop())
	err := p.Available()
	if !errors.Is(err, document.ErrOCRUnavailable) {
		t.Fatalf("Available() error = %v, want ErrOCRUnavailable", err)
	}

	if _, err := p.RasterizePage(context.Background(), "/tmp/x.pdf", 1); !errors.Is(err, document.ErrOCRUnavailable) {
		t.Fatalf("RasterizePage() error = %v, want ErrOCRUnavailable", err)
	}
}

func TestArgs(t *testing.T) {
	p := NewPoppler(Options{DPI: 150, Grayscale: true}, zerolog.Nop())
	got := p.args("/docs/a.pdf", 7, "/tmp/out/page")
	want := []string{"-f", "7", "-l", "7", "-r", "150", "-png", "-singlefile", "-gray", "/docs/a.pdf", "/tmp/out/page"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("args = %v, want %v", got, want)
	}

	color := NewPoppler(Options{DPI: 300}, zerolog.Nop())
	got = color.args("/docs/a.pdf", 1, "p")
	for _, a := range got {
		if a == "-gray" {
			t.Fatalf("color options must not pass -gray: %v", got)
		}
	}
}

func TestDefaultDPIApplied(t *testing.T) {
	p := NewPoppler(Options{}, zerolog.Nop())
	got := p.args("x.pdf", 1, "p")
	want := "300"
	found := false
	for i, a := range got {
		if a == "-r" && i+1 < len(got) && got[i+1] == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("zero DPI must fall back to 300: %v", got)
	}
}

func TestRasterizePageIntegration(t *testing.T) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		t.Skip("pdftoppm not installed in PATH")
	}

	path := pdftest.Write(t, t.TempDir(), "doc.pdf", pdftest.TextPage("Raster me"))
	p := NewPoppler(Options{DPI: 100, Grayscale: true}, zerolog.Nop())

	data, err := p.RasterizePage(context.Background(), path, 1)
	if err != nil {
		t.Fatalf("RasterizePage() error = %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not decodable PNG: %v", err)
	}
	if img.Bounds().Dx() == 0 || img.Bounds().Dy() == 0 {
		t.Fatalf("empty raster: %v", img.Bounds())
	}
}

func TestRasterizePageCanceled(t *testing.T) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		t.Skip("pdftoppm not installed in PATH")
	}

	path := pdftest.Write(t, t.TempDir(), "doc.pdf", pdftest.TextPage("page"))
	p := NewPoppler(DefaultOptions(), zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.RasterizePage(ctx, path, 1); !errors.Is(err, context.Canceled) {
		t.Fatalf("RasterizePage() error = %v, want context.Canceled", err)
	}
}
