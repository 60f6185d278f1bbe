package workflow

import (
	"errors"
	"fmt"
)

// Kind classifies a workflow failure. Callers branch on the kind, never on text.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindOutOfOrder
	KindConflict
	KindConfiguration
	KindPersistence
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindOutOfOrder:
		return "out_of_order"
	case KindConflict:
		return "conflict"
	case KindConfiguration:
		return "configuration"
	case KindPersistence:
		return "persistence"
	case KindNotFound:
		return "not_found"
	}
	return "unknown"
}

// Error is the single error type returned by the workflow components.
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

func (e *Error) Unwrap() error { return e.Err }

// Is matches the bare sentinels below by kind, so errors.Is(err, ErrConflict)
// holds for every conflict regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

var (
	ErrValidation    = &Error{Kind: KindValidation}
	ErrOutOfOrder    = &Error{Kind: KindOutOfOrder}
	ErrConflict      = &Error{Kind: KindConflict}
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrPersistence   = &Error{Kind: KindPersistence}
	ErrNotFound      = &Error{Kind: KindNotFound}
)

func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func OutOfOrder(format string, args ...any) error {
	return &Error{Kind: KindOutOfOrder, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Configuration(format string, args ...any) error {
	return &Error{Kind: KindConfiguration, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...any) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps a backing-store failure. Errors that already carry a kind
// pass through untouched.
func Persistence(err error) error {
	if err == nil {
		return nil
	}
	var we *Error
	if errors.As(err, &we) {
		return err
	}
	return &Error{Kind: KindPersistence, Msg: "backing store", Err: err}
}

// KindOf reports the kind of err, or 0 when err is not a workflow error.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return 0
}
