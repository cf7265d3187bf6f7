// Package errs defines the error taxonomy shared across the core: every
// package reports failures as a *Error tagged with one of the Kind values
// below, rather than inventing its own sentinel or type per package.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an error by cause, not by the package that raised it.
type Kind int

const (
	// KindShapeMismatch covers incompatible shapes: non-broadcastable
	// operands, axis reduction on the wrong rank, reshape with a size
	// mismatch.
	KindShapeMismatch Kind = iota
	// KindIndexOutOfBounds covers scalar get/set, get_item, and
	// gather/scatter indices outside an axis's length.
	KindIndexOutOfBounds
	// KindArgumentInvalid covers axis out of range, duplicate/partial
	// permutations, clip(lo > hi), linspace(n <= 0), non-positive
	// vocabulary/embedding dims, odd RoPE dims, Top-K k <= 0.
	KindArgumentInvalid
	// KindArithmetic covers division by zero and log/sqrt domain errors.
	KindArithmetic
	// KindNullInput covers a required tensor reference that is absent.
	KindNullInput
	// KindNotSupported covers an operator invoked on a rank/shape it does
	// not implement.
	KindNotSupported
)

func (k Kind) String() string {
	switch k {
	case KindShapeMismatch:
		return "ShapeMismatch"
	case KindIndexOutOfBounds:
		return "IndexOutOfBounds"
	case KindArgumentInvalid:
		return "ArgumentInvalid"
	case KindArithmetic:
		return "Arithmetic"
	case KindNullInput:
		return "NullInput"
	case KindNotSupported:
		return "NotSupported"
	default:
		return "Unknown"
	}
}

// Error is the single error type produced by this module. It always
// carries a Kind and a message, and may wrap an underlying cause (in which
// case pkg/errors has already attached a stack trace to that cause).
type Error struct {
	Kind  Kind
	Msg   string
	cause error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds a Kind-tagged error with a stack trace attached via
// pkg/errors, so debugging callers can recover it with StackTrace.
func New(kind Kind, msg string, args ...any) error {
	formatted := msg
	if len(args) > 0 {
		formatted = fmt.Sprintf(msg, args...)
	}
	return &Error{Kind: kind, Msg: formatted, cause: errors.New(formatted)}
}

// Wrap attaches a Kind to an existing error, preserving it as the cause.
func Wrap(kind Kind, cause error, msg string, args ...any) error {
	formatted := msg
	if len(args) > 0 {
		formatted = fmt.Sprintf(msg, args...)
	}
	return &Error{Kind: kind, Msg: formatted, cause: errors.Wrap(cause, formatted)}
}

// Is reports whether err is (or wraps) an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// StackTrace returns the pkg/errors stack trace attached to err, or nil if
// none is available. Intended for this module's own tests and debugging
// tools; production callers should match on Kind via Is instead.
func StackTrace(err error) errors.StackTrace {
	type stackTracer interface {
		StackTrace() errors.StackTrace
	}
	var e *Error
	if errors.As(err, &e) && e.cause != nil {
		if st, ok := e.cause.(stackTracer); ok {
			return st.StackTrace()
		}
	}
	return nil
}

// FromValidation adapts a github.com/go-playground/validator/v10 error
// into the module's own taxonomy, so callers of config constructors never
// need to know which validation mechanism produced the failure.
func FromValidation(err error) error {
	if err == nil {
		return nil
	}
	return Wrap(KindArgumentInvalid, err, "config validation failed")
}
