package specialist

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound      = errors.New("record not found")
	ErrDuplicateSlug = errors.New("slug already exists")
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindConflict
	KindInternal
)

// HTTPStatus maps a kind to its response code. Conflicts surface as 400.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error is the application error handed to the HTTP error formatter.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// StatusCode lets the HTTP error handler pick the response code.
func (e *Error) StatusCode() int { return e.Kind.HTTPStatus() }

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func Conflict(msg string, err error) *Error {
	return &Error{Kind: KindConflict, Message: msg, Err: err}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: err}
}

// asAppError converts store errors into application errors.
func asAppError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return NotFound("Specialist not found")
	case errors.Is(err, ErrDuplicateSlug):
		return Conflict("slug already exists, retry", err)
	}
	return Internal(err)
}
