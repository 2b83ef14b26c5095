package apperrors

import (
	"errors"
	"net/http"
	"strings"
)

type appError struct {
	msg           string
	base          error
	wrappedErrors []error
	statuscode    int
	kind          Kind
	expandError   bool
}

// Error returns the message without wrapped errors.
func (e *appError) Error() string {
	return e.msg
}

// ErrorAll returns the message followed by wrapped error messages when expansion is on.
func (e *appError) ErrorAll() string {
	if !e.expandError {
		return e.Error()
	}
	var b strings.Builder
	b.WriteString(e.Error())
	for _, err := range e.wrappedErrors {
		if err == e.base {
			continue
		}
		b.WriteString(": ")
		b.WriteString(err.Error())
	}
	return b.String()
}

func (e *appError) Unwrap() error {
	return e.base
}

func (e *appError) UnwrapAll() []error {
	return e.wrappedErrors
}

func (e *appError) Msg(msg string) Error {
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: append([]error{e}, e.wrappedErrors...),
		statuscode:    e.statuscode,
		kind:          e.kind,
		expandError:   e.expandError,
	}
}

func (e *appError) New(msg string) Error {
	return &appError{
		msg:         msg,
		base:        e,
		statuscode:  e.statuscode,
		kind:        e.kind,
		expandError: e.expandError,
	}
}

func (e *appError) MsgErr(msg string, errs ...error) Error {
	all := append([]error{e}, errs...)
	return &appError{
		msg:           msg,
		base:          e,
		wrappedErrors: all,
		statuscode:    e.statuscode,
		kind:          e.kind,
		expandError:   e.expandError,
	}
}

func (e *appError) Err(errs ...error) Error {
	all := append([]error{e}, errs...)
	return &appError{
		msg:           e.msg,
		base:          e,
		wrappedErrors: all,
		statuscode:    e.statuscode,
		kind:          e.kind,
		expandError:   e.expandError,
	}
}

func (e *appError) SetExpandError(flag bool) Error {
	cp := *e
	cp.expandError = flag
	return &cp
}

func (e *appError) SetStatusCode(code int) Error {
	cp := *e
	cp.statuscode = code
	return &cp
}

func (e *appError) StatusCode() int {
	return e.statuscode
}

func (e *appError) Kind() Kind {
	return e.kind
}

// Is reports whether target is the base error or any wrapped error.
func (e *appError) Is(target error) bool {
	if target == nil {
		return false
	}
	if errors.Is(e.base, target) {
		return true
	}
	for _, err := range e.wrappedErrors {
		if err == e {
			continue
		}
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// New creates a root-level error of the given kind. Wrapped errors are expanded by default
// so ErrorAll carries the operation context down to the driver message.
func New(kind Kind, msg string) Error {
	return &appError{
		msg:         msg,
		kind:        kind,
		statuscode:  defaultStatus(kind),
		expandError: true,
	}
}

// KindOf returns the kind of the first apperrors.Error found in err's chain.
func KindOf(err error) Kind {
	var ae Error
	if errors.As(err, &ae) {
		return ae.Kind()
	}
	return KindUnknown
}

// Message returns the expanded message for err when it is an Error, else err.Error().
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae Error
	if errors.As(err, &ae) {
		return ae.ErrorAll()
	}
	return err.Error()
}

func defaultStatus(kind Kind) int {
	switch kind {
	case KindNotFound, KindNoMatchFound:
		return http.StatusNotFound
	case KindInvalidInput, KindDimensionMismatch:
		return http.StatusBadRequest
	case KindStaleIndexReference:
		return http.StatusConflict
	case KindEmbeddingUnavailable, KindUpstreamQuery:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
