package service

import (
	"fmt"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
)

// Error carries a caller-facing message; Kind is one of the sentinels above.
type Error struct {
	Kind error
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func (e *Error) Unwrap() error { return e.Kind }

func newError(kind error, format string, args ...interface{}) error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func validationErr(format string, args ...interface{}) error {
	return newError(ErrValidation, format, args...)
}

func notFoundErr(format string, args ...interface{}) error {
	return newError(ErrNotFound, format, args...)
}

func conflictErr(format string, args ...interface{}) error {
	return newError(ErrConflict, format, args...)
}

// notFoundOr turns gorm's missing-record error into ErrNotFound and wraps anything else.
func notFoundOr(err error, what string, id uint64) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFoundErr("%s %d not found", what, id)
	}
	return errors.Wrapf(err, "get %s", what)
}
