package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FileStore keeps one JSON file per entry, named by the key digest, in a
// single directory. Writes go through a temp file plus rename so readers
// never observe a partial entry; reads take no locks.
type FileStore struct {
	dir string
	log zerolog.Logger
}

// NewFileStore creates the cache directory if needed and returns a store
// over it.
func NewFileStore(dir string, log zerolog.Logger) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache directory not configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir, log: log}, nil
}

// Dir returns the backing directory.
func (s *FileStore) Dir() string { return s.dir }

func (s *FileStore) entryPath(key Key) string {
	return filepath.Join(s.dir, key.Digest()+".json")
}

// Get loads the entry for key. Missing, unreadable, and corrupt files are
// all misses.
func (s *FileStore) Get(ctx context.Context, key Key) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		if !os.IsNotExist(err) {
			s.log.Warn().Err(err).Str("digest", key.Digest()).Msg("cache entry unreadable, treating as miss")
		}
		return nil, nil
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		s.log.Warn().Err(err).Str("digest", key.Digest()).Msg("cache entry corrupt, treating as miss")
		return nil, nil
	}
	if e.Key != key {
		s.log.Warn().Str("digest", key.Digest()).Msg("cache entry key mismatch, treating as miss")
		return nil, nil
	}
	return &e, nil
}

// Put writes the entry atomically.
func (s *FileStore) Put(ctx context.Context, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode cache entry: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.entryPath(entry.Key)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish cache entry: %w", err)
	}
	return nil
}

// Sweep removes entry files whose modification time is older than maxAge,
// along with temp files abandoned by interrupted writes.
func (s *FileStore) Sweep(ctx context.Context, maxAge time.Duration) (int, error) {
	dirents, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache directory: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)

	removed := 0
	for _, de := range dirents {
		if err := ctx.Err(); err != nil {
			return removed, err
		}
		name := de.Name()
		if de.IsDir() || (!strings.HasSuffix(name, ".json") && !strings.HasSuffix(name, ".tmp")) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil {
			s.log.Warn().Err(err).Str("entry", name).Msg("could not remove expired cache entry")
			continue
		}
		removed++
	}
	return removed, nil
}
