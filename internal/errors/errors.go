// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind partitions every failure the system can surface.
type Kind string

const (
	// Service-call failures, assigned by Classify.
	KindInvalidCredential Kind = "invalid_credential"
	KindQuotaExceeded     Kind = "quota_exceeded"
	KindTransient         Kind = "transient"

	// KindBlockedOrEmpty marks a call that returned no error but no usable
	// result either. Scene-local, never aborts a run.
	KindBlockedOrEmpty Kind = "blocked_or_empty"

	// KindStorageFull means the local quota is exhausted even after maximal
	// eviction.
	KindStorageFull Kind = "storage_full"

	// KindDecompositionFailure marks a malformed or empty prompt list from the
	// script decomposition call.
	KindDecompositionFailure Kind = "decomposition_failure"
)

// GenError is the application error carried across service boundaries.
type GenError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *GenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *GenError) Unwrap() error {
	return e.Err
}

// New creates a GenError with an explicit kind.
func New(kind Kind, message string, err error) *GenError {
	return &GenError{Kind: kind, Message: message, Err: err}
}

// NewBlockedOrEmpty builds the scene-local "no usable output" error.
func NewBlockedOrEmpty(message string) *GenError {
	if message == "" {
		message = "blocked or no output"
	}
	return &GenError{Kind: KindBlockedOrEmpty, Message: message}
}

// NewStorageFull builds the local-capacity-exhausted error.
func NewStorageFull(message string, err error) *GenError {
	return &GenError{Kind: KindStorageFull, Message: message, Err: err}
}

// NewDecompositionFailure builds the malformed-prompt-list error.
func NewDecompositionFailure(message string, err error) *GenError {
	return &GenError{Kind: KindDecompositionFailure, Message: message, Err: err}
}

// Classify maps a raw service-call failure to its kind by case-insensitive
// substring match on the message. Total: any error yields a kind, nil yields
// KindTransient.
func Classify(err error) Kind {
	if err == nil {
		return KindTransient
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission denied") || strings.Contains(msg, "api key not valid") {
		return KindInvalidCredential
	}
	if strings.Contains(msg, "quota") {
		return KindQuotaExceeded
	}
	return KindTransient
}

// Classified wraps a raw failure into a GenError carrying its classified kind.
// Already-classified errors pass through unchanged.
func Classified(err error, message string) *GenError {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge
	}
	return &GenError{Kind: Classify(err), Message: message, Err: err}
}

// KindOf returns the kind of err, classifying raw errors on the fly.
func KindOf(err error) Kind {
	var ge *GenError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return Classify(err)
}

// IsStorageFull reports whether err is a local-capacity failure.
func IsStorageFull(err error) bool {
	return KindOf(err) == KindStorageFull
}

// IsInvalidCredential reports whether err is a credential failure.
func IsInvalidCredential(err error) bool {
	return KindOf(err) == KindInvalidCredential
}

// IsQuotaExceeded reports whether err is a service-side quota failure.
func IsQuotaExceeded(err error) bool {
	return KindOf(err) == KindQuotaExceeded
}

// IsBlockedOrEmpty reports whether err marks a blocked or empty result.
func IsBlockedOrEmpty(err error) bool {
	return KindOf(err) == KindBlockedOrEmpty
}

// UserMessage renders the notification text shown for a kind.
func UserMessage(kind Kind) string {
	switch kind {
	case KindInvalidCredential:
		return "The configured API key was rejected. Check it in settings."
	case KindQuotaExceeded:
		return "The generation service quota is exhausted. Try again later."
	case KindBlockedOrEmpty:
		return "The service returned no image for this prompt."
	case KindStorageFull:
		return "Local history storage is full. The run was not saved."
	case KindDecompositionFailure:
		return "The script could not be split into scenes."
	default:
		return "The generation service failed. Try again."
	}
}
