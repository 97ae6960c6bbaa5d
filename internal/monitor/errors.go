package monitor

import (
	"errors"
	"fmt"
	"io/fs"
)

// ErrorKind classifies how a read failure is recovered from.
type ErrorKind int

const (
	// KindTransientAbsence means a per-process file vanished between listing
	// and reading. The row or field is omitted and nothing is surfaced.
	KindTransientAbsence ErrorKind = iota
	// KindSystemUnavailable means a system-wide accounting file is unreadable.
	// The dependent aggregate renders as unknown for that pass.
	KindSystemUnavailable
	// KindMalformedRecord means a field was not numeric where a number was
	// expected. It is treated like absence of that field.
	KindMalformedRecord
	// KindFatal means the process directory itself could not be enumerated.
	// It yields an empty snapshot; the refresh loop keeps running.
	KindFatal
)

// String returns a human-readable name for the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransientAbsence:
		return "transient-absence"
	case KindSystemUnavailable:
		return "system-unavailable"
	case KindMalformedRecord:
		return "malformed-record"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error sources.
const (
	SourceScanner = "scanner"
	SourceFacts   = "facts"
	SourceState   = "state"
	SourceMemory  = "memory"
	SourceTicks   = "ticks"
	SourceCPU     = "system-cpu"
	SourceMemInfo = "system-memory"
)

// ReadError wraps a procfs read failure with its recovery kind.
// It preserves the original error for inspection via errors.Is/errors.As.
type ReadError struct {
	Kind   ErrorKind
	Source string
	Path   string
	Err    error
}

// Error implements the error interface.
func (e *ReadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s (%s) %s: %v", e.Source, e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Source, e.Kind, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReadError) Unwrap() error {
	return e.Err
}

func newReadError(kind ErrorKind, source, path string, err error) *ReadError {
	return &ReadError{Kind: kind, Source: source, Path: path, Err: err}
}

// openError wraps a failure to read a per-process record. Every such failure
// counts as absence; the cause is kept for IsProcessGone and debug logs.
func openError(source, path string, err error) *ReadError {
	return newReadError(KindTransientAbsence, source, path, err)
}

// IsKind reports whether err is or wraps a ReadError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *ReadError
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}

// IsProcessGone reports whether err indicates the process no longer exists.
func IsProcessGone(err error) bool {
	return IsKind(err, KindTransientAbsence) && errors.Is(err, fs.ErrNotExist)
}
