// =============================================================================
// SDSVG Book - Error Kinds
// =============================================================================
//
// Every failure that can reach the request boundary is classified into one
// of four kinds. The kind decides which message the user sees:
//
//   Upload       bad extension, transport failure, empty upload
//   Decode       the workbook could not be read (decoder message shown as-is)
//   Validation   missing headers, no data rows, no member rows
//   Persistence  connection or save failure (cause is logged, never shown)
//
// =============================================================================

package apperr

import (
	"errors"
)

// Kind classifies an import failure.
type Kind int

const (
	KindUpload Kind = iota + 1
	KindDecode
	KindValidation
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindUpload:
		return "upload"
	case KindDecode:
		return "decode"
	case KindValidation:
		return "validation"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// GenericMessage is shown when an error carries no user-facing message.
const GenericMessage = "An unexpected error occurred while processing the request."

// Error is a classified failure. Message is safe to show to the user;
// Cause is only ever logged.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Cause.Error() != e.Message {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Upload builds an upload error.
func Upload(message string) error {
	return &Error{Kind: KindUpload, Message: message}
}

// Decode builds a decode error whose user-facing message is the decoder's own.
func Decode(cause error) error {
	return &Error{Kind: KindDecode, Message: cause.Error(), Cause: cause}
}

// Validation builds a validation error.
func Validation(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

// Persistence builds a persistence error. The cause is kept for logs.
func Persistence(message string, cause error) error {
	return &Error{Kind: KindPersistence, Message: message, Cause: cause}
}

// KindOf reports the kind of the first classified error in err's chain.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// UserMessage converts any error into the string shown on the page.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return GenericMessage
}
