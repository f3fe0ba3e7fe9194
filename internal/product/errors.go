package product

import (
	"errors"
	"fmt"
)

// Kind classifies catalog failures at every boundary (HTTP, gRPC, events).
type Kind int

const (
	KindUnknown Kind = iota
	KindNotFound
	KindAlreadyExists
	KindNotFoundInCache
	KindAlreadyExistsInCache
	KindValidation
	KindCorruptRecord
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindNotFoundInCache:
		return "not_found_in_cache"
	case KindAlreadyExistsInCache:
		return "already_exists_in_cache"
	case KindValidation:
		return "validation"
	case KindCorruptRecord:
		return "corrupt_record"
	default:
		return "unknown"
	}
}

// Error is a sentinel carrying its Kind. Callers wrap it with %w and compare
// with errors.Is; each sentinel is a distinct value even when kinds repeat.
type Error struct {
	Kind Kind
	msg  string
}

func NewError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

var (
	ErrNotFound      = NewError(KindNotFound, "product not found")
	ErrAlreadyExists = NewError(KindAlreadyExists, "product already exists")
	ErrValidation    = NewError(KindValidation, "invalid product")
	ErrCorruptRecord = NewError(KindCorruptRecord, "corrupt product record")
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrValidation, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// KindOf reports the kind of the first classified error in err's chain.
// Infrastructure errors report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
