package document

import (
	"errors"
	"fmt"
)

var (
	// ErrDocumentUnreadable is returned when the source file is missing,
	// cannot be parsed as a PDF, or reports zero pages.
	ErrDocumentUnreadable = errors.New("document is missing, corrupted, or has no pages")

	// ErrPageRangeInvalid is returned when a requested page index falls
	// outside the document's page count.
	ErrPageRangeInvalid = errors.New("requested page range is invalid for this document")

	// ErrOCRUnavailable is returned when the OCR engine or the page
	// rasterizer is not installed or not responding. It is distinct from
	// ErrDocumentUnreadable so callers can suggest installing the missing
	// dependency instead of blaming the file.
	ErrOCRUnavailable = errors.New("OCR engine or rasterizer is unavailable")

	// ErrCacheWrite marks a persistence failure. It is logged by the
	// reader and never fails a request: the computed result is still
	// returned to the caller.
	ErrCacheWrite = errors.New("cache write failed")
)

// Error carries the operation, source path, and optional page index of a
// failure so it can be diagnosed without re-running the request.
type Error struct {
	// Op is the operation that failed (e.g., "resolve", "classify", "rasterize").
	Op string

	// Path is the source document path, when known.
	Path string

	// Page is the 1-based page index, or 0 when the failure is not page-scoped.
	Page int

	// Err is the underlying error.
	Err error

	// Detail provides additional context about the failure.
	Detail string
}

func (e *Error) Error() string {
	msg := "doctext: " + e.Op + " failed"
	if e.Path != "" {
		msg += " for " + e.Path
	}
	if e.Page > 0 {
		msg += fmt.Sprintf(" (page %d)", e.Page)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg + ": " + e.Err.Error()
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the underlying error so errors.Is works against the
// package sentinels.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError builds an *Error for the given operation and path.
func NewError(op, path string, err error, detail string) *Error {
	return &Error{
		Op:     op,
		Path:   path,
		Err:    err,
		Detail: detail,
	}
}

// WrapError wraps err as an *Error unless it already is one.
func WrapError(op, path string, err error, detail string) error {
	if err == nil {
		return nil
	}

	var de *Error
	if errors.As(err, &de) {
		return err
	}

	return NewError(op, path, err, detail)
}

// WithPage returns a copy of e scoped to a 1-based page index.
func (e *Error) WithPage(page int) *Error {
	c := *e
	c.Page = page
	return &c
}

// FailReason condenses an error into the short reason recorded on a failed
// page: the Detail of a wrapped *Error when present, otherwise the error
// text.
func FailReason(err error) string {
	if err == nil {
		return "unknown"
	}
	var e *Error
	if errors.As(err, &e) && e.Detail != "" {
		return e.Detail
	}
	return err.Error()
}
