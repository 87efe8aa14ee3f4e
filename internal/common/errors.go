package common

import (
	"errors"
	"fmt"
)

// Error kinds. Every error raised by the core wraps exactly one of these so the
// HTTP layer can map it to a status code with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrDecode            = errors.New("decode failed")
	ErrNoData            = errors.New("no data")
	ErrInvalidArgument   = errors.New("invalid argument")
)

var kinds = []error{ErrNotFound, ErrUnsupportedFormat, ErrDecode, ErrNoData, ErrInvalidArgument}

// AppError carries a kind, a human readable message and an optional cause.
type AppError struct {
	Kind    error
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func NewAppError(kind error, cause error, format string, args ...any) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func NotFoundf(format string, args ...any) error {
	return NewAppError(ErrNotFound, nil, format, args...)
}

func UnsupportedFormatf(format string, args ...any) error {
	return NewAppError(ErrUnsupportedFormat, nil, format, args...)
}

// Decodef wraps the last decoding failure as the cause.
func Decodef(cause error, format string, args ...any) error {
	return NewAppError(ErrDecode, cause, format, args...)
}

func NoDataf(format string, args ...any) error {
	return NewAppError(ErrNoData, nil, format, args...)
}

func InvalidArgumentf(format string, args ...any) error {
	return NewAppError(ErrInvalidArgument, nil, format, args...)
}

// KindOf returns the kind sentinel wrapped by err, or nil for untyped errors.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
