// Package errutil defines the closed error taxonomy shared by every other
// package. Errors carry a Kind so the CLI layer can map any failure to a
// stable process exit code.
package errutil

import (
	"errors"
	"fmt"
)

// Kind classifies an error. The set is closed: callers switch on it and the
// exit-code table below is part of the CLI contract.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfig
	KindAuth
	KindNetwork
	KindTool
	KindIO
	KindValidation
	KindApprovalRequired
	KindSandboxDenied
)

// String returns the snake_case label used in logs and rendered errors.
func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "config"
	case KindAuth:
		return "auth"
	case KindNetwork:
		return "network"
	case KindTool:
		return "tool"
	case KindIO:
		return "io"
	case KindValidation:
		return "validation"
	case KindApprovalRequired:
		return "approval_required"
	case KindSandboxDenied:
		return "sandbox_denied"
	default:
		return "unknown"
	}
}

// ExitCode maps a kind to the process exit code the CLI reports.
func (k Kind) ExitCode() int {
	switch k {
	case KindConfig:
		return 2
	case KindAuth:
		return 3
	case KindNetwork:
		return 4
	case KindTool:
		return 5
	case KindIO:
		return 6
	case KindValidation:
		return 7
	case KindApprovalRequired:
		return 8
	case KindSandboxDenied:
		return 9
	default:
		return 1
	}
}

// Error is the single error type crossing package boundaries.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

// New creates an Error with the given kind and message.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf creates an Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error that records cause for errors.Is/As chains.
func Wrap(kind Kind, cause error, msg string) *Error {
	return &Error{kind: kind, msg: msg, cause: cause}
}

// Wrapf creates a wrapping Error with a formatted message.
func Wrapf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), cause: cause}
}

func (e *Error) Error() string {
	label := errorLabel(e.kind)
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", label, e.msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", label, e.msg)
}

func (e *Error) Unwrap() error { return e.cause }

// Kind returns the error's classification.
func (e *Error) Kind() Kind { return e.kind }

// ExitCode returns the process exit code for this error.
func (e *Error) ExitCode() int { return e.kind.ExitCode() }

// KindOf extracts the Kind from any error in err's chain.
// Unclassified errors report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindUnknown
}

// IsKind reports whether err's chain contains an Error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

func errorLabel(k Kind) string {
	switch k {
	case KindConfig:
		return "configuration error"
	case KindAuth:
		return "authentication error"
	case KindNetwork:
		return "network error"
	case KindTool:
		return "tool error"
	case KindIO:
		return "I/O error"
	case KindValidation:
		return "validation error"
	case KindApprovalRequired:
		return "approval required"
	case KindSandboxDenied:
		return "sandbox denied"
	default:
		return "unknown error"
	}
}
