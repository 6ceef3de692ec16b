// Package ragerr defines the error kinds surfaced by the ingest and query pipeline.
package ragerr

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a pipeline failure so callers can branch on it.
type Kind string

const (
	// KindUnknown is returned by KindOf for errors that carry no kind.
	KindUnknown Kind = ""
	// KindInvalidInput is a malformed request (empty query, bad URL).
	KindInvalidInput Kind = "invalid_input"
	// KindFetch is an unreachable or unparseable source.
	KindFetch Kind = "fetch"
	// KindEmbedding is an embedding provider failure or a dimension mismatch.
	KindEmbedding Kind = "embedding"
	// KindEmptyIndex means there is no content to index, or a search ran before build.
	KindEmptyIndex Kind = "empty_index"
	// KindGeneration is an answer generation provider failure.
	KindGeneration Kind = "generation"
	// KindNotReady is a query against a session with no successful ingest.
	KindNotReady Kind = "not_ready"
	// KindTimeout is any bounded external call exceeding its deadline.
	KindTimeout Kind = "timeout"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrInvalidInput = &Error{Kind: KindInvalidInput}
	ErrFetch        = &Error{Kind: KindFetch}
	ErrEmbedding    = &Error{Kind: KindEmbedding}
	ErrEmptyIndex   = &Error{Kind: KindEmptyIndex}
	ErrGeneration   = &Error{Kind: KindGeneration}
	ErrNotReady     = &Error{Kind: KindNotReady}
	ErrTimeout      = &Error{Kind: KindTimeout}
)

// Error is a tagged pipeline error. Op names the stage that failed.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Op != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Err != nil:
		return e.Err.Error()
	case e.Op != "":
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	default:
		return string(e.Kind) + " error"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a sentinel (or any *Error) of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// New returns an error of kind with a formatted message.
func New(kind Kind, op, format string, args ...interface{}) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with kind. Deadline errors become KindTimeout and errors that
// already carry a kind are returned unchanged. Wrap(nil) is nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	var tagged *Error
	if errors.As(err, &tagged) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Kind
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// IsClientError reports whether err is caused by the caller rather than the pipeline.
func IsClientError(err error) bool {
	switch KindOf(err) {
	case KindInvalidInput, KindNotReady:
		return true
	default:
		return false
	}
}
