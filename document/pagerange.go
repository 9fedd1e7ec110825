package document

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// AllPages is the page-range spec requesting every page of a document.
const AllPages = "all"

// PageRange is an ordered, deduplicated set of 1-based page indices, or the
// "all pages" sentinel. The zero value means all pages.
type PageRange struct {
	pages []int
}

// ParsePageRange parses a spec like "all", "3", or "1,3-5,2". Indices are
// 1-based; duplicates collapse and the result is sorted ascending so equal
// sets share one canonical form (and one cache key). An empty spec means all
// pages. Bounds against a concrete document are checked later by Resolve.
func ParsePageRange(spec string) (PageRange, error) {
	const op = "parse page range"

	spec = strings.TrimSpace(spec)
	if spec == "" || strings.EqualFold(spec, AllPages) {
		return PageRange{}, nil
	}

	seen := make(map[int]bool)
	var pages []int
	for _, tok := range strings.Split(spec, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return PageRange{}, NewError(op, "", ErrPageRangeInvalid, fmt.Sprintf("empty element in %q", spec))
		}
		lo, hi, err := parseRangeToken(tok)
		if err != nil {
			return PageRange{}, NewError(op, "", ErrPageRangeInvalid, err.Error())
		}
		for p := lo; p <= hi; p++ {
			if !seen[p] {
				seen[p] = true
				pages = append(pages, p)
			}
		}
	}
	sort.Ints(pages)
	return PageRange{pages: pages}, nil
}

// RangeOf builds a PageRange from explicit 1-based indices, deduplicated
// and sorted. No indices means all pages.
func RangeOf(pages ...int) (PageRange, error) {
	const op = "build page range"

	seen := make(map[int]bool)
	var out []int
	for _, p := range pages {
		if p < 1 {
			return PageRange{}, NewError(op, "", ErrPageRangeInvalid, fmt.Sprintf("page %d is not a valid 1-based index", p))
		}
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Ints(out)
	return PageRange{pages: out}, nil
}

func parseRangeToken(tok string) (lo, hi int, err error) {
	if lo, err = strconv.Atoi(tok); err == nil {
		if lo < 1 {
			return 0, 0, fmt.Errorf("page %d is not a valid 1-based index", lo)
		}
		return lo, lo, nil
	}

	parts := strings.SplitN(tok, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("cannot parse %q", tok)
	}
	if lo, err = strconv.Atoi(strings.TrimSpace(parts[0])); err != nil {
		return 0, 0, fmt.Errorf("cannot parse %q", tok)
	}
	if hi, err = strconv.Atoi(strings.TrimSpace(parts[1])); err != nil {
		return 0, 0, fmt.Errorf("cannot parse %q", tok)
	}
	if lo < 1 || hi < lo {
		return 0, 0, fmt.Errorf("range %q is not an ascending 1-based span", tok)
	}
	return lo, hi, nil
}

// All reports whether the range is the all-pages sentinel.
func (r PageRange) All() bool {
	return len(r.pages) == 0
}

// Key is a stable, deterministic encoding of the range used as a cache key
// component: "all" for the sentinel, otherwise the sorted indices joined by
// commas (e.g. "1,2,5").
func (r PageRange) Key() string {
	if r.All() {
		return AllPages
	}
	parts := make([]string, len(r.pages))
	for i, p := range r.pages {
		parts[i] = strconv.Itoa(p)
	}
	return strings.Join(parts, ",")
}

// Resolve validates the range against a document's page count and returns
// the concrete indices in ascending order. The sentinel expands to every
// page. An out-of-range index is a validation error, never a silent clamp.
func (r PageRange) Resolve(pageCount int) ([]int, error) {
	const op = "resolve page range"

	if pageCount < 1 {
		return nil, NewError(op, "", ErrDocumentUnreadable, "document has no pages")
	}
	if r.All() {
		pages := make([]int, pageCount)
		for i := range pages {
			pages[i] = i + 1
		}
		return pages, nil
	}
	for _, p := range r.pages {
		if p > pageCount {
			return nil, NewError(op, "", ErrPageRangeInvalid, fmt.Sprintf("page %d out of range (1-%d)", p, pageCount))
		}
	}
	out := make([]int, len(r.pages))
	copy(out, r.pages)
	return out, nil
}
