package internal

import (
	"errors"
	"fmt"
)

// ErrBrowserUnavailable is returned when no page surface is attached
var ErrBrowserUnavailable = errors.New("Browser not open")

// ExtractionError represents a failed extraction pass.
// Callers treat it as "no data this pass".
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction error [%s]: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// PersistenceError represents errors reading or writing the dump archive
type PersistenceError struct {
	Path string
	Op   string // "mkdir", "write", "read", "stat"
	Err  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence error: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// MalformedDumpError represents a stored dump that cannot be decoded
type MalformedDumpError struct {
	Path string
	Err  error
}

func (e *MalformedDumpError) Error() string {
	return fmt.Sprintf("malformed dump %s: %v", e.Path, e.Err)
}

func (e *MalformedDumpError) Unwrap() error {
	return e.Err
}

// ExportError represents errors during export
type ExportError struct {
	Format string
	Path   string
	Err    error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export error [%s] %s: %v", e.Format, e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}
