package apperr

import (
	"errors"
	"fmt"
)

// Kind discriminates the failure classes the sync engine cares about.
type Kind string

const (
	// KindCredential: the provider rejected the refresh token. Permanent,
	// requires re-authorization, never retried automatically.
	KindCredential Kind = "credential"
	// KindTransient: network/5xx/rate-limit. Retried by the caller.
	KindTransient Kind = "transient"
	// KindAttribution: a reply could not be mapped to an outbound message.
	// Expected and non-fatal; logged and dropped.
	KindAttribution Kind = "attribution"
	// KindValidation: malformed input or payload.
	KindValidation Kind = "validation"
	// KindNotFound: a referenced entity does not exist.
	KindNotFound Kind = "not_found"
)

// Error is a typed application error carrying a discriminated kind.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Credential(message string, err error) *Error {
	return &Error{Kind: KindCredential, Message: message, Err: err}
}

func Transient(message string, err error) *Error {
	return &Error{Kind: KindTransient, Message: message, Err: err}
}

func Attribution(message string) *Error {
	return &Error{Kind: KindAttribution, Message: message}
}

func Validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func NotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

// KindOf returns the kind of err, or KindTransient for untyped errors so
// that unknown failures default to the retryable path.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindTransient
}

func IsCredential(err error) bool { return is(err, KindCredential) }
func IsTransient(err error) bool  { return is(err, KindTransient) }
func IsAttribution(err error) bool {
	return is(err, KindAttribution)
}
func IsNotFound(err error) bool { return is(err, KindNotFound) }

func is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
