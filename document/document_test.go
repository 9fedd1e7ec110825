package document

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestResolveFingerprintStable(t *testing.T) {
	path := writeTemp(t, "a.pdf", []byte("%PDF-1.4 fake body"))

	first, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	second, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if first.Fingerprint != second.Fingerprint {
		t.Fatalf("fingerprint changed between reads: %s vs %s", first.Fingerprint, second.Fingerprint)
	}
	if len(first.Fingerprint) != 64 {
		t.Fatalf("expected hex sha256 fingerprint, got %q", first.Fingerprint)
	}
	if !filepath.IsAbs(first.Path) {
		t.Fatalf("expected absolute path, got %q", first.Path)
	}
	if first.Size != int64(len("%PDF-1.4 fake body")) {
		t.Fatalf("unexpected size: %d", first.Size)
	}
}

func TestResolveContentNotName(t *testing.T) {
	content := []byte("%PDF-1.4 same bytes")
	a := writeTemp(t, "a.pdf", content)
	b := writeTemp(t, "b.pdf", content)

	da, err := Resolve(a)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	db, err := Resolve(b)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if da.Fingerprint != db.Fingerprint {
		t.Fatalf("identical content must share a fingerprint")
	}
}

func TestResolveDetectsMutation(t *testing.T) {
	path := writeTemp(t, "a.pdf", []byte("%PDF-1.4 original"))

	before, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if err := os.WriteFile(path, []byte("%PDF-1.4 originaX"), 0o644); err != nil {
		t.Fatalf("rewrite file: %v", err)
	}
	after, err := Resolve(path)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if before.Fingerprint == after.Fingerprint {
		t.Fatalf("one changed byte must change the fingerprint")
	}
}

func TestResolveMissingFile(t *testing.T) {
	_, err := Resolve(filepath.Join(t.TempDir(), "absent.pdf"))
	if !errors.Is(err, ErrDocumentUnreadable) {
		t.Fatalf("Resolve() error = %v, want ErrDocumentUnreadable", err)
	}
}

func TestResolveDirectory(t *testing.T) {
	_, err := Resolve(t.TempDir())
	if !errors.Is(err, ErrDocumentUnreadable) {
		t.Fatalf("Resolve() error = %v, want ErrDocumentUnreadable", err)
	}
}
