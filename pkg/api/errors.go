package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

// Kind classifies a backend failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindValidation
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	default:
		return "unknown"
	}
}

// Sentinel errors matched with errors.Is against an *Error of the same kind.
var (
	ErrNetwork    = errors.New("network error")
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
)

// Error is a classified backend failure.
type Error struct {
	Kind  Kind
	Op    string
	Model string
	ID    string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Model != "" {
		b.WriteString(" ")
		b.WriteString(e.Model)
	}
	if e.ID != "" {
		b.WriteString(" ")
		b.WriteString(e.ID)
	}
	b.WriteString(": ")
	if e.Err != nil {
		b.WriteString(e.Err.Error())
	} else {
		b.WriteString(e.Kind.String())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrValidation:
		return e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	}
	return false
}

// Wrap classifies err and annotates it with the operation. A nil err stays nil;
// an err that is already an *Error keeps its kind.
func Wrap(op, modelName, id string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return &Error{Kind: ae.Kind, Op: op, Model: modelName, ID: id, Err: ae.Err}
	}
	return &Error{Kind: Classify(err), Op: op, Model: modelName, ID: id, Err: err}
}

// NewError builds an error of an explicit kind.
func NewError(kind Kind, op, modelName, id string, err error) *Error {
	return &Error{Kind: kind, Op: op, Model: modelName, ID: id, Err: err}
}

// Classify maps an arbitrary error onto a Kind.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNetwork), errors.Is(err, context.DeadlineExceeded):
		return KindNetwork
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return KindNetwork
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return KindNetwork
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "does not exist"), strings.Contains(msg, "not found"), strings.Contains(msg, "no rows"):
		return KindNotFound
	case strings.HasPrefix(msg, "graphql:"), strings.Contains(msg, "invalid"), strings.Contains(msg, "constraint"):
		return KindValidation
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "eof"), strings.Contains(msg, "timeout"):
		return KindNetwork
	}
	return KindUnknown
}

// IsKind reports whether err classifies as k.
func IsKind(err error, k Kind) bool {
	return err != nil && Classify(err) == k
}

// BatchError reports the failed items of a batch delete or import.
type BatchError struct {
	Op       string
	Model    string
	Total    int
	Failures []error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("%s %s: %d of %d failed", e.Op, e.Model, len(e.Failures), e.Total)
}

// Unwrap exposes each failure to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error { return e.Failures }

// NewBatchError returns nil when failures is empty.
func NewBatchError(op, modelName string, total int, failures []error) error {
	if len(failures) == 0 {
		return nil
	}
	return &BatchError{Op: op, Model: modelName, Total: total, Failures: failures}
}
