// Package errors provides error handling for classgraph.
//
// It re-exports github.com/cockroachdb/errors and defines the sentinel errors
// of the source-synchronization engine. Wrap a sentinel to add context while
// keeping it matchable with Is:
//
//	return errors.Wrapf(errors.ErrClassNotFound, "class %q in %s", id, path)
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New              = crdb.New
	Newf             = crdb.Newf
	Wrap             = crdb.Wrap
	Wrapf            = crdb.Wrapf
	WithStack        = crdb.WithStack
	WithMessage      = crdb.WithMessage
	WithMessagef     = crdb.WithMessagef
	WithHint         = crdb.WithHint
	WithHintf        = crdb.WithHintf
	Mark             = crdb.Mark
	AssertionFailedf = crdb.AssertionFailedf
	CombineErrors    = crdb.CombineErrors
)

// Error inspection
var (
	Is           = crdb.Is
	IsAny        = crdb.IsAny
	As           = crdb.As
	Unwrap       = crdb.Unwrap
	UnwrapAll    = crdb.UnwrapAll
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

// Sentinel errors of the engine. Every failure surfaced by a core operation
// is, or wraps, one of these.
var (
	// ErrParse indicates source text that tree-sitter could not parse cleanly.
	ErrParse = New("parse error")

	// ErrClassNotFound indicates the target class declaration is absent from the file.
	ErrClassNotFound = New("class not found")

	// ErrSerialization indicates an edit produced text that no longer parses.
	// The on-disk file is left untouched when this is returned.
	ErrSerialization = New("serialization error")

	// ErrFileSystem indicates an I/O failure reading or writing project files.
	ErrFileSystem = New("file system error")

	// ErrInvalidRequest indicates a malformed edit intent.
	ErrInvalidRequest = New("invalid request")
)

// WrapFS marks err as a file system error while keeping its message and cause.
func WrapFS(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Mark(Wrapf(err, format, args...), ErrFileSystem)
}

// Kind returns a short machine-readable name for the sentinel err wraps,
// or "internal" when it wraps none of them.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case Is(err, ErrParse):
		return "parse"
	case Is(err, ErrClassNotFound):
		return "class-not-found"
	case Is(err, ErrSerialization):
		return "serialization"
	case Is(err, ErrFileSystem):
		return "filesystem"
	case Is(err, ErrInvalidRequest):
		return "invalid-request"
	default:
		return "internal"
	}
}
