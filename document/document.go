package document

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Document identifies a source PDF by absolute path and content fingerprint.
// The fingerprint is a hex SHA-256 over the full file bytes, so two Documents
// with equal fingerprints hold identical content regardless of path or name.
type Document struct {
	Path        string
	Fingerprint string
	Size        int64
	ModTime     time.Time
}

// Resolve stats and hashes the file at path. It is called on every access so
// a mutated file always yields a fresh fingerprint; there is no mtime shortcut
// to go stale.
func Resolve(path string) (Document, error) {
	const op = "resolve"

	abs, err := filepath.Abs(path)
	if err != nil {
		return Document{}, NewError(op, path, ErrDocumentUnreadable, err.Error())
	}

	f, err := os.Open(abs)
	if err != nil {
		return Document{}, NewError(op, abs, ErrDocumentUnreadable, "cannot open file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Document{}, NewError(op, abs, ErrDocumentUnreadable, "cannot stat file")
	}
	if info.IsDir() {
		return Document{}, NewError(op, abs, ErrDocumentUnreadable, "path is a directory")
	}

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return Document{}, NewError(op, abs, ErrDocumentUnreadable, "cannot read file")
	}

	return Document{
		Path:        abs,
		Fingerprint: hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		ModTime:     info.ModTime(),
	}, nil
}
