package loader

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindNotFound   ErrorKind = "not_found"
	KindUnreadable ErrorKind = "unreadable"
	KindSchema     ErrorKind = "schema_mismatch"
	KindMalformed  ErrorKind = "malformed"
)

// LoadError is returned for every failure to produce a Table. It is fatal at
// startup and surfaced to the operator as-is.
type LoadError struct {
	Kind   ErrorKind
	Source string
	Msg    string
	Cause  error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("load %s: %s: %s: %v", e.Source, e.Kind, e.Msg, e.Cause)
	}
	return fmt.Sprintf("load %s: %s: %s", e.Source, e.Kind, e.Msg)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is a LoadError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var le *LoadError
	return errors.As(err, &le) && le.Kind == kind
}

func newLoadError(kind ErrorKind, source, msg string, cause error) *LoadError {
	return &LoadError{Kind: kind, Source: source, Msg: msg, Cause: cause}
}

// RowError describes one rejected data row. Row is the 1-based spreadsheet
// row number, header included.
type RowError struct {
	Row    int    `json:"row"`
	Column string `json:"column"`
	Value  string `json:"value"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: column %q: %s (value %q)", e.Row, e.Column, e.Reason, e.Value)
}
