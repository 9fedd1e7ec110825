package document

import (
	"errors"
	"reflect"
	"testing"
)

func TestParsePageRange(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantKey string
		wantErr bool
	}{
		{name: "all keyword", spec: "all", wantKey: "all"},
		{name: "empty means all", spec: "", wantKey: "all"},
		{name: "single page", spec: "3", wantKey: "3"},
		{name: "list", spec: "1,2,5", wantKey: "1,2,5"},
		{name: "span", spec: "3-5", wantKey: "3,4,5"},
		{name: "mixed unsorted", spec: "5,1,3-4", wantKey: "1,3,4,5"},
		{name: "duplicates collapse", spec: "2,2,1-2", wantKey: "1,2"},
		{name: "spaces tolerated", spec: " 1 , 3 - 4 ", wantKey: "1,3,4"},
		{name: "zero page", spec: "0", wantErr: true},
		{name: "negative page", spec: "-1", wantErr: true},
		{name: "descending span", spec: "5-3", wantErr: true},
		{name: "garbage", spec: "1,x", wantErr: true},
		{name: "trailing comma", spec: "1,", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := ParsePageRange(tt.spec)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParsePageRange(%q) expected error", tt.spec)
				}
				if !errors.Is(err, ErrPageRangeInvalid) {
					t.Fatalf("ParsePageRange(%q) error = %v, want ErrPageRangeInvalid", tt.spec, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePageRange(%q) error = %v", tt.spec, err)
			}
			if got := r.Key(); got != tt.wantKey {
				t.Fatalf("Key() = %q, want %q", got, tt.wantKey)
			}
		})
	}
}

func TestPageRangeResolve(t *testing.T) {
	r, err := ParsePageRange("1,3")
	if err != nil {
		t.Fatalf("ParsePageRange() error = %v", err)
	}
	pages, err := r.Resolve(3)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !reflect.DeepEqual(pages, []int{1, 3}) {
		t.Fatalf("Resolve() = %v, want [1 3]", pages)
	}
}

func TestPageRangeResolveAll(t *testing.T) {
	var r PageRange
	if !r.All() {
		t.Fatalf("zero PageRange should be the all sentinel")
	}
	pages, err := r.Resolve(4)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if !reflect.DeepEqual(pages, []int{1, 2, 3, 4}) {
		t.Fatalf("Resolve() = %v, want [1 2 3 4]", pages)
	}
}

func TestPageRangeResolveOutOfRange(t *testing.T) {
	r, err := RangeOf(5)
	if err != nil {
		t.Fatalf("RangeOf() error = %v", err)
	}
	if _, err := r.Resolve(3); !errors.Is(err, ErrPageRangeInvalid) {
		t.Fatalf("Resolve() error = %v, want ErrPageRangeInvalid", err)
	}
}

func TestPageRangeResolveZeroPageCount(t *testing.T) {
	var r PageRange
	if _, err := r.Resolve(0); !errors.Is(err, ErrDocumentUnreadable) {
		t.Fatalf("Resolve() error = %v, want ErrDocumentUnreadable", err)
	}
}

func TestRangeOfCanonicalizes(t *testing.T) {
	r, err := RangeOf(4, 2, 4, 1)
	if err != nil {
		t.Fatalf("RangeOf() error = %v", err)
	}
	if got := r.Key(); got != "1,2,4" {
		t.Fatalf("Key() = %q, want %q", got, "1,2,4")
	}
}
