package failure

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jmehdipour/engage-dispatch/internal/tracker"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindIntegration
	KindRetryable
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindIntegration:
		return "integration"
	case KindRetryable:
		return "retryable"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the normalized error every component returns to the invoking framework.
type Error struct {
	Kind    Kind
	Message string
	Code    string
	Status  int
	Tags    tracker.Tags
	Err     error
}

func (e *Error) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(message, code string) *Error {
	return &Error{Kind: KindValidation, Message: message, Code: code, Status: http.StatusBadRequest}
}

func Integration(message, code string, status int) *Error {
	return &Error{Kind: KindIntegration, Message: message, Code: code, Status: status}
}

// Retryable signals the caller may re-invoke; cause is usually the first
// underlying failure.
func Retryable(message string, cause error) *Error {
	e := &Error{Kind: KindRetryable, Message: message, Status: http.StatusInternalServerError, Err: cause}
	if fe, ok := As(cause); ok {
		e.Code, e.Status = fe.Code, fe.Status
	}
	return e
}

func Fatal(message string, cause error) *Error {
	e := &Error{Kind: KindFatal, Message: message, Status: http.StatusBadRequest, Err: cause}
	if fe, ok := As(cause); ok {
		e.Code, e.Status = fe.Code, fe.Status
	}
	return e
}

func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

func (e *Error) WithTags(tags ...string) *Error {
	e.Tags = e.Tags.With(tags...)
	return e
}

func As(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}

// IsRetryableStatus reports the provider statuses worth a retry.
func IsRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// IsRetryable reports whether the invoking framework should re-invoke.
func IsRetryable(err error) bool {
	fe, ok := As(err)
	if !ok {
		return err != nil
	}
	switch fe.Kind {
	case KindRetryable:
		return true
	case KindIntegration:
		return IsRetryableStatus(fe.Status)
	default:
		return false
	}
}

// StatusOf returns the normalized status of err, or 500 for unclassified errors.
func StatusOf(err error) int {
	if fe, ok := As(err); ok && fe.Status > 0 {
		return fe.Status
	}
	return http.StatusInternalServerError
}
