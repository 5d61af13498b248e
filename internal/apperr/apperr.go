// Package apperr classifies every failure of the credential core into a fixed
// set of kinds and maps each kind to a transport status and a fixed outward
// message. Internal error text (driver errors, decode diagnostics) stays
// behind Unwrap for logging and never reaches a response body.
package apperr

import (
	"fmt"
	"net/http"

	"github.com/rosterhq/rosterd/internal/validate"
)

// Kind identifies a failure class.
type Kind int

const (
	// KindValidation: one or more validation pipeline violations.
	KindValidation Kind = iota + 1
	// KindCredentialNotFound: login username has no matching identity.
	// Folded outward into the same response as KindInvalidCredential so the
	// two cases cannot be told apart by a caller (enumeration safety); the
	// kind survives for server-side logs.
	KindCredentialNotFound
	// KindInvalidCredential: password verification returned false.
	KindInvalidCredential
	// KindHashing: internal hashing engine failure.
	KindHashing
	// KindStorage: the storage collaborator returned an I/O error.
	KindStorage
	// KindConflict: a uniqueness constraint rejected the write.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_failed"
	case KindCredentialNotFound:
		return "credential_not_found"
	case KindInvalidCredential:
		return "invalid_credential"
	case KindHashing:
		return "hashing_failure"
	case KindStorage:
		return "storage_failure"
	case KindConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Error is a classified failure. The zero value is not valid; use the
// constructors.
type Error struct {
	kind       Kind
	violations validate.Result
	cause      error
}

// Validation wraps the pipeline's violations. The full list is carried so the
// caller can render per-field messages.
func Validation(violations validate.Result) *Error {
	return &Error{kind: KindValidation, violations: violations}
}

// CredentialNotFound reports an unknown login username.
func CredentialNotFound() *Error {
	return &Error{kind: KindCredentialNotFound}
}

// InvalidCredential reports a failed password verification.
func InvalidCredential() *Error {
	return &Error{kind: KindInvalidCredential}
}

// Hashing wraps an internal hashing engine failure.
func Hashing(cause error) *Error {
	return &Error{kind: KindHashing, cause: cause}
}

// Storage wraps a storage collaborator failure.
func Storage(cause error) *Error {
	return &Error{kind: KindStorage, cause: cause}
}

// Conflict wraps a uniqueness-constraint rejection.
func Conflict(cause error) *Error {
	return &Error{kind: KindConflict, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.kind, e.cause)
	}
	if e.kind == KindValidation {
		return fmt.Sprintf("%s: %d violations", e.kind, len(e.violations))
	}
	return e.kind.String()
}

func (e *Error) Unwrap() error { return e.cause }

// Kind returns the failure class.
func (e *Error) Kind() Kind { return e.kind }

// Violations returns the validation detail, if any.
func (e *Error) Violations() validate.Result { return e.violations }

// Status maps the kind to its HTTP status. Not-found folds into the
// unauthorized status used for invalid credentials.
func (e *Error) Status() int {
	switch e.kind {
	case KindValidation, KindHashing:
		return http.StatusUnprocessableEntity
	case KindCredentialNotFound, KindInvalidCredential:
		return http.StatusUnauthorized
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Message is the fixed outward message for the kind. It never includes
// wrapped error text.
func (e *Error) Message() string {
	switch e.kind {
	case KindValidation:
		return "validation failed"
	case KindCredentialNotFound, KindInvalidCredential:
		return "invalid username or password"
	case KindHashing:
		return "could not process credentials"
	case KindConflict:
		return "username or email already in use"
	default:
		return "internal server error"
	}
}
