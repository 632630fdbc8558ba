// Package apperr defines the typed errors returned by BookLook services.
//
// Every error carries a Kind, which decides the HTTP status, and a stable
// machine-readable Code that clients can switch on:
//
//	return apperr.NotFound("BOOK_NOT_FOUND", "book not found")
//	return apperr.Wrap(err, apperr.KindUnavailable, "CONTENT_UNAVAILABLE", "content store unavailable")
package apperr

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
	KindRateLimited
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnavailable:
		return "unavailable"
	case KindRateLimited:
		return "rate_limited"
	default:
		return "internal"
	}
}

// HTTPStatus maps the kind onto a response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusServiceUnavailable
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return e.Code + ": " + e.Message
}

// Cause lets errors.Cause walk past the application error.
func (e *Error) Cause() error { return e.cause }

func (e *Error) Unwrap() error { return e.cause }

func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap annotates err with a kind and code. The cause keeps a stack trace for logging.
func Wrap(err error, kind Kind, code, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Code: code, Message: message, cause: errors.WithStack(err)}
}

func Validation(code, message string) *Error   { return New(KindValidation, code, message) }
func Unauthorized(code, message string) *Error { return New(KindUnauthorized, code, message) }
func Forbidden(code, message string) *Error    { return New(KindForbidden, code, message) }
func NotFound(code, message string) *Error     { return New(KindNotFound, code, message) }
func Conflict(code, message string) *Error     { return New(KindConflict, code, message) }
func Unavailable(code, message string) *Error  { return New(KindUnavailable, code, message) }
func RateLimited(code, message string) *Error  { return New(KindRateLimited, code, message) }

// Internal wraps an unexpected failure. Its message is never shown to clients.
func Internal(err error, message string) *Error {
	return Wrap(err, KindInternal, "INTERNAL_ERROR", message)
}

// As extracts the application error from err, if there is one.
func As(err error) (*Error, bool) {
	var appErr *Error
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err. Unknown errors are internal.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is an application error with the given code.
func Is(err error, code string) bool {
	appErr, ok := As(err)
	return ok && appErr.Code == code
}

// FromDB converts a gorm error. Missing rows become NotFound with notFoundCode and
// unique violations become Conflict with conflictCode. Anything else is internal.
func FromDB(err error, notFoundCode, conflictCode string) error {
	if err == nil {
		return nil
	}
	if _, ok := As(err); ok {
		return err
	}
	switch {
	case stderrors.Is(err, gorm.ErrRecordNotFound) && notFoundCode != "":
		return Wrap(err, KindNotFound, notFoundCode, humanize(notFoundCode))
	case stderrors.Is(err, gorm.ErrDuplicatedKey) && conflictCode != "":
		return Wrap(err, KindConflict, conflictCode, humanize(conflictCode))
	default:
		return Internal(err, "database operation failed")
	}
}

var messages = map[string]string{
	"BOOK_NOT_FOUND":     "book not found",
	"USER_NOT_FOUND":     "user not found",
	"REVIEW_NOT_FOUND":   "review not found",
	"PROGRESS_NOT_FOUND": "no reading progress for this book",
	"DUPLICATE_REVIEW":   "you have already reviewed this book",
	"DUPLICATE_ISBN":     "a book with this ISBN already exists",
	"EMAIL_EXISTS":       "a user with this email already exists",
}

func humanize(code string) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return code
}
