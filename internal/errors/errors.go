// Package errors carries the six error kinds spec.md §7 names, plus
// FileIndexFailure, which formats one onto a FileIndex row. Nothing above
// the driver boundary ever observes one of these as a raw panic or
// propagated error: the driver (C10) answers a ParseError from its AST
// path by re-parsing the file with the fallback and continues; it does not
// call FileIndexFailure or record the ParseError on the FileIndex row.
package errors

import (
	"fmt"
	"time"

	"github.com/standardbeagle/cxxgraph/internal/types"
)

// ErrorKind is one of the six failure modes spec.md §7 defines; every kind
// but GrammarUnavailable is recoverable (see New).
type ErrorKind string

const (
	GrammarUnavailable  ErrorKind = "grammar_unavailable"
	ParseTimeout        ErrorKind = "parse_timeout"
	ParseThrew          ErrorKind = "parse_threw"
	InvalidSymbol       ErrorKind = "invalid_symbol"
	ResolutionAmbiguous ErrorKind = "resolution_ambiguous"
	OverCapacity        ErrorKind = "over_capacity"
)

// ParseError is the typed error value for the six kinds; FileIndexFailure
// can copy one onto a file's FileIndex row. Underlying may be nil for kinds that are states, not failures (e.g.
// ResolutionAmbiguous is recorded on the relationship, not the file, but
// reuses this type when the driver wants to log it).
type ParseError struct {
	Kind        ErrorKind
	FilePath    string
	Line        int
	Column      int
	Underlying  error
	Timestamp   time.Time
	Recoverable bool
}

func New(kind ErrorKind, filePath string, underlying error) *ParseError {
	return &ParseError{
		Kind:       kind,
		FilePath:   filePath,
		Underlying: underlying,
		Timestamp:  time.Now(),
		// Every kind but GrammarUnavailable is recoverable per-file: the
		// driver falls back, retries, or drops the one symbol/relationship
		// and moves on (spec.md §7 propagation policy).
		Recoverable: kind != GrammarUnavailable,
	}
}

func (e *ParseError) WithPosition(line, column int) *ParseError {
	e.Line = line
	e.Column = column
	return e
}

func (e *ParseError) Error() string {
	if e.FilePath == "" {
		return fmt.Sprintf("%s: %v", e.Kind, e.Underlying)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s at %s:%d:%d: %v", e.Kind, e.FilePath, e.Line, e.Column, e.Underlying)
	}
	return fmt.Sprintf("%s for %s: %v", e.Kind, e.FilePath, e.Underlying)
}

func (e *ParseError) Unwrap() error {
	return e.Underlying
}

func (e *ParseError) IsRecoverable() bool {
	return e.Recoverable
}

// FileIndexFailure sets the FileIndex fields for a per-file failure
// (spec.md §7 "user-visible failure").
func FileIndexFailure(idx *types.FileIndex, err *ParseError) {
	idx.HasErrors = true
	idx.ErrorMessage = err.Error()
	idx.IsIndexed = err.Kind != GrammarUnavailable
}
