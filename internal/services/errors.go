package services

import (
	"errors"
	"fmt"

	"github.com/yoonbi/yoonbi-backend/internal/models"
	"github.com/yoonbi/yoonbi-backend/internal/storage"
)

// Kind classifies a service failure; the HTTP layer maps it to a status code.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	}
	return "internal"
}

// Error is returned by every service method. Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the kind of err, KindInternal for foreign errors
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

func invalid(msg string) error { return &Error{Kind: KindValidation, Message: msg} }
func unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func forbidden(msg string) error { return &Error{Kind: KindForbidden, Message: msg} }
func notFound(msg string) error { return &Error{Kind: KindNotFound, Message: msg} }
func conflict(msg string) error { return &Error{Kind: KindConflict, Message: msg} }

func internal(op string, err error) error {
	return &Error{Kind: KindInternal, Message: "server error", Err: fmt.Errorf("%s: %w", op, err)}
}

// checkValid turns an entity validation failure into a client error
func checkValid(err error) error {
	if err == nil {
		return nil
	}
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		return &Error{Kind: KindValidation, Message: verr.Error(), Err: err}
	}
	return internal("validate", err)
}

// fromStore maps storage sentinels; missing is the message used for ErrNotFound.
func fromStore(op, missing string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound):
		return &Error{Kind: KindNotFound, Message: missing, Err: err}
	case errors.Is(err, storage.ErrDuplicate):
		return &Error{Kind: KindConflict, Message: "record already exists", Err: err}
	case errors.Is(err, storage.ErrConflict):
		return &Error{Kind: KindConflict, Message: "the record was modified concurrently, please retry", Err: err}
	}
	return internal(op, err)
}
