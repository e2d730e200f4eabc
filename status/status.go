// Package status declares the error kinds returned by the listing client,
// the engine session and the compactor.
//
// Kinds are matched with errors.Is against the exported sentinels:
//
//	if errors.Is(err, status.ErrDuckdb) { ... }
package status

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInit
	KindValidation
	KindLakefs
	KindNotFound
	KindDuckdb
)

func (k Kind) String() string {
	switch k {
	case KindInit:
		return "init error"
	case KindValidation:
		return "validation error"
	case KindLakefs:
		return "lakefs error"
	case KindNotFound:
		return "not found"
	case KindDuckdb:
		return "duckdb error"
	default:
		return "unknown error"
	}
}

var (
	// ErrInit is returned when the engine session or its bootstrap fails
	ErrInit = &Error{Kind: KindInit}

	// ErrValidation is returned for malformed input or misuse of an API
	ErrValidation = &Error{Kind: KindValidation}

	// ErrLakefs is returned when listing objects on a branch fails
	ErrLakefs = &Error{Kind: KindLakefs}

	// ErrNotFound is returned when a point lookup finds no object
	ErrNotFound = &Error{Kind: KindNotFound}

	// ErrDuckdb is returned when a table statement fails
	ErrDuckdb = &Error{Kind: KindDuckdb}

	// ErrUnknown is the catch-all kind
	ErrUnknown = &Error{Kind: KindUnknown}

	// ErrNoFilesAvailable is returned when the source branch has nothing to seed from
	ErrNoFilesAvailable = &Error{Kind: KindUnknown, Msg: "no files in lakefs"}
)

// Error carries a Kind, a message and the underlying cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches kind sentinels (no message) by kind and message sentinels by identity.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t == e {
		return true
	}
	if t.Msg == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return false
}

func newError(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

func Init(msg string, err error) error     { return newError(KindInit, msg, err) }
func Validation(msg string) error          { return newError(KindValidation, msg, nil) }
func Lakefs(msg string, err error) error   { return newError(KindLakefs, msg, err) }
func NotFound(msg string, err error) error { return newError(KindNotFound, msg, err) }
func Duckdb(msg string, err error) error   { return newError(KindDuckdb, msg, err) }
func Unknown(msg string, err error) error  { return newError(KindUnknown, msg, err) }

// KindOf reports the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
