package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds for the mirror. NotFound and Malformed are non-fatal and
// map to empty results, IntegrityFailure is the only kind that surfaces a
// 403, RetriesExhausted marks a unit of sync work abandoned after the
// bounded retry policy.
var (
	ErrInvalidParams = New(BizCodeInvalidParams, http.StatusBadRequest, "invalid params", nil)

	ErrManifestNotFound  = New(BizCodeManifestNotFound, http.StatusNotFound, "manifest not found", nil)
	ErrManifestMalformed = New(BizCodeManifestMalformed, http.StatusInternalServerError, "manifest malformed", nil)
	ErrPayloadNotFound   = New(BizCodePayloadNotFound, http.StatusNotFound, "unable to find update payload", nil)
	ErrIntegrityFailure  = New(BizCodeIntegrityFailure, http.StatusForbidden, "update payload hash mismatch", nil)
	ErrUpdateDirMissing  = New(BizCodeUpdateDirMissing, http.StatusInternalServerError, "update build directory does not exist", nil)
	ErrPathOutsideRoot   = New(BizCodePathOutsideRoot, http.StatusForbidden, "path outside artifact root", nil)

	ErrRetriesExhausted = New(BizCodeRetriesExhausted, http.StatusBadGateway, "retries exhausted", nil)
	ErrStartupFailure   = New(BizCodeStartupFailure, http.StatusInternalServerError, "required artifact directories missing", nil)
)

type Error struct {
	bizCode  int
	httpCode int
	message  string
	internal error
}

func New(bizCode, httpCode int, message string, internal error) *Error {
	return &Error{
		bizCode:  bizCode,
		httpCode: httpCode,
		message:  message,
		internal: internal,
	}
}

func (e *Error) Error() string {
	if e.internal != nil {
		return fmt.Sprintf("%s: %v", e.message, e.internal)
	}
	return e.message
}

func (e *Error) Is(target error) bool {
	var t *Error
	ok := errors.As(target, &t)
	return ok && e.bizCode == t.BizCode()
}

func (e *Error) Unwrap() error {
	return e.internal
}

func (e *Error) BizCode() int {
	return e.bizCode
}

func (e *Error) HTTPCode() int {
	return e.httpCode
}

func (e *Error) Message() string {
	return e.message
}

func (e *Error) Wrap(err error) *Error {
	return &Error{
		bizCode:  e.bizCode,
		httpCode: e.httpCode,
		message:  e.message,
		internal: err,
	}
}

func (e *Error) Wrapf(err error, format string, args ...any) *Error {
	return &Error{
		bizCode:  e.bizCode,
		httpCode: e.httpCode,
		message:  fmt.Sprintf(format, args...),
		internal: err,
	}
}
