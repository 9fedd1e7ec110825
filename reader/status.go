package reader

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wudi/doctext/cache"
	"github.com/wudi/doctext/classify"
	"github.com/wudi/doctext/document"
)

var allMethods = []document.Method{document.MethodTextLayer, document.MethodHybrid, document.MethodOCR}

// Status reports whether a document+range pair has a persisted result.
type Status struct {
	Cached    bool
	Method    document.Method
	CreatedAt time.Time
	// Pages is the page count of the cached result, zero when not cached.
	Pages int
}

// CachedStatus probes the cache for path+pageRange without computing
// anything. The file is hashed for its content identity but never parsed.
func (r *Reader) CachedStatus(ctx context.Context, path, pageRange string) (Status, error) {
	const op = "cached-status"

	doc, err := document.Resolve(path)
	if err != nil {
		return Status{}, document.WrapError(op, path, err, "")
	}
	pr, err := document.ParsePageRange(pageRange)
	if err != nil {
		return Status{}, document.WrapError(op, path, err, "")
	}

	for _, m := range allMethods {
		entry, err := r.cache.Get(ctx, cache.Key{Fingerprint: doc.Fingerprint, RangeKey: pr.Key(), Method: m})
		if err != nil {
			return Status{}, err
		}
		if entry != nil {
			return Status{
				Cached:    true,
				Method:    m,
				CreatedAt: entry.CreatedAt,
				Pages:     len(entry.Result.Pages),
			}, nil
		}
	}
	return Status{}, nil
}

// FileStatus is one PDF in a directory listing.
type FileStatus struct {
	Path  string
	Size  int64
	Pages int
	// Class is the verdict from sampling the leading pages.
	Class classify.Overall
	// Cached reports whether a whole-document extraction is persisted.
	Cached bool
	// Problem is non-empty when the file could not be inspected.
	Problem string
}

// Badge renders the listing tag for the sampled classification.
func (f FileStatus) Badge() string {
	switch {
	case f.Problem != "":
		return "[Unreadable]"
	case f.Class == classify.OverallNeedsOCR:
		return "[Scanned PDF]"
	case f.Class == classify.OverallMixed:
		return "[Mixed PDF]"
	default:
		return "[Text PDF]"
	}
}

// ScanDir inspects every PDF directly under dir: file size, a sampled
// classification over the leading pages, and whether a whole-document result
// is cached. Files that cannot be inspected are reported with their problem,
// never skipped silently.
func (r *Reader) ScanDir(ctx context.Context, dir string) ([]FileStatus, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, document.NewError("scan-dir", dir, err, "")
	}

	var out []FileStatus
	for _, de := range dirents {
		if de.IsDir() || !strings.EqualFold(filepath.Ext(de.Name()), ".pdf") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, r.fileStatus(ctx, filepath.Join(dir, de.Name())))
	}
	return out, nil
}

func (r *Reader) fileStatus(ctx context.Context, path string) FileStatus {
	fs := FileStatus{Path: path}

	doc, err := document.Resolve(path)
	if err != nil {
		fs.Problem = document.FailReason(err)
		return fs
	}
	fs.Size = doc.Size
	fs.Cached = r.anyCached(ctx, doc.Fingerprint, document.AllPages)

	text, meta, err := r.openSources(path)
	if err != nil {
		fs.Problem = document.FailReason(err)
		return fs
	}
	defer text.Close()

	fs.Pages = text.PageCount()
	sample := classify.SamplePages(text.PageCount(), r.cfg.SamplePages)
	cls, err := r.classifier.Classify(ctx, text, meta, sample)
	if err != nil {
		fs.Problem = document.FailReason(err)
		return fs
	}
	fs.Class = cls.Overall
	return fs
}

func (r *Reader) anyCached(ctx context.Context, fingerprint, rangeKey string) bool {
	for _, m := range allMethods {
		entry, err := r.cache.Get(ctx, cache.Key{Fingerprint: fingerprint, RangeKey: rangeKey, Method: m})
		if err == nil && entry != nil {
			return true
		}
	}
	return false
}
