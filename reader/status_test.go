package reader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/wudi/doctext/document"
	"github.com/wudi/doctext/internal/pdftest"
)

func TestCachedStatusLifecycle(t *testing.T) {
	env := newTestEnv(t)
	path := pdftest.Write(t, t.TempDir(), "scan.pdf", pdftest.ScannedPage(), pdftest.ScannedPage())

	st, err := env.rdr.CachedStatus(context.Background(), path, "all")
	if err != nil {
		t.Fatalf("CachedStatus() error = %v", err)
	}
	if st.Cached {
		t.Fatalf("status cached before any read")
	}

	if _, err := env.rdr.Read(context.Background(), path, "all"); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	st, err = env.rdr.CachedStatus(context.Background(), path, "all")
	if err != nil {
		t.Fatalf("CachedStatus() error = %v", err)
	}
	if !st.Cached {
		t.Fatalf("status not cached after read")
	}
	if st.Method != document.MethodOCR {
		t.Fatalf("method = %s, want ocr", st.Method)
	}
	if st.Pages != 2 {
		t.Fatalf("pages = %d, want 2", st.Pages)
	}
	if st.CreatedAt.IsZero() {
		t.Fatalf("CreatedAt is zero")
	}

	// A range that was never read reports uncached.
	st, err = env.rdr.CachedStatus(context.Background(), path, "1")
	if err != nil {
		t.Fatalf("CachedStatus() error = %v", err)
	}
	if st.Cached {
		t.Fatalf("subrange reported cached without a read")
	}
}

func TestCachedStatusErrors(t *testing.T) {
	env := newTestEnv(t)
	path := pdftest.Write(t, t.TempDir(), "scan.pdf", pdftest.ScannedPage())

	if _, err := env.rdr.CachedStatus(context.Background(), path, "nope"); !errors.Is(err, document.ErrPageRangeInvalid) {
		t.Fatalf("CachedStatus() error = %v, want ErrPageRangeInvalid", err)
	}
	if _, err := env.rdr.CachedStatus(context.Background(), t.TempDir()+"/gone.pdf", "all"); !errors.Is(err, document.ErrDocumentUnreadable) {
		t.Fatalf("CachedStatus() error = %v, want ErrDocumentUnreadable", err)
	}
}

func TestScanDir(t *testing.T) {
	env := newTestEnv(t)
	dir := t.TempDir()

	pdftest.Write(t, dir, "report.pdf",
		pdftest.TextPage(loremLine),
		pdftest.TextPage("Second page of the report with plenty of body text."),
	)
	pdftest.Write(t, dir, "scan.pdf", pdftest.ScannedPage())
	pdftest.Write(t, dir, "mixed.pdf", pdftest.TextPage(loremLine), pdftest.ScannedPage())
	if err := os.WriteFile(filepath.Join(dir, "broken.pdf"), []byte("not a pdf at all"), 0o644); err != nil {
		t.Fatalf("write broken fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignore me"), 0o644); err != nil {
		t.Fatalf("write txt fixture: %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "archive"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// Cache the report so its listing shows cached.
	if _, err := env.rdr.Read(context.Background(), filepath.Join(dir, "report.pdf"), "all"); err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	statuses, err := env.rdr.ScanDir(context.Background(), dir)
	if err != nil {
		t.Fatalf("ScanDir() error = %v", err)
	}
	if len(statuses) != 4 {
		t.Fatalf("ScanDir() returned %d entries, want 4: %+v", len(statuses), statuses)
	}

	byName := make(map[string]FileStatus, len(statuses))
	for _, st := range statuses {
		byName[filepath.Base(st.Path)] = st
	}

	want := map[string]string{
		"report.pdf": "[Text PDF]",
		"scan.pdf":   "[Scanned PDF]",
		"mixed.pdf":  "[Mixed PDF]",
		"broken.pdf": "[Unreadable]",
	}
	for name, badge := range want {
		st, ok := byName[name]
		if !ok {
			t.Fatalf("missing %s in listing", name)
		}
		if got := st.Badge(); got != badge {
			t.Errorf("%s badge = %s, want %s", name, got, badge)
		}
	}

	if !byName["report.pdf"].Cached {
		t.Errorf("report.pdf not marked cached")
	}
	if byName["scan.pdf"].Cached {
		t.Errorf("scan.pdf marked cached without a read")
	}
	if got := byName["report.pdf"].Pages; got != 2 {
		t.Errorf("report.pdf pages = %d, want 2", got)
	}
	if byName["broken.pdf"].Problem == "" {
		t.Errorf("broken.pdf has no problem description")
	}
	if byName["report.pdf"].Size <= 0 {
		t.Errorf("report.pdf size = %d, want > 0", byName["report.pdf"].Size)
	}
}

func TestScanDirMissing(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.rdr.ScanDir(context.Background(), t.TempDir()+"/absent"); err == nil {
		t.Fatalf("ScanDir() succeeded on a missing directory")
	}
}
