package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the caller lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenDecryptFailed indicates a stored token cannot be read under the
	// current master secret. The account has to be reconnected.
	ErrTokenDecryptFailed = errors.New("token decrypt failed")

	// ErrOAuthStateMismatch indicates the callback state does not match the
	// state issued with the authorization URL
	ErrOAuthStateMismatch = errors.New("oauth state mismatch")

	// ErrMissingOAuthSession indicates no pending authorization exists for the caller
	ErrMissingOAuthSession = errors.New("missing oauth session")

	// ErrWeakSecret indicates the configured master secret is too short
	ErrWeakSecret = errors.New("master secret must be at least 16 characters")

	// ErrDecryptionFailed indicates a vault blob was tampered, truncated or
	// sealed with a different secret
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrInvalidLength indicates a PKCE verifier byte length outside [32,96]
	ErrInvalidLength = errors.New("invalid verifier length")

	// ErrMediaUploadDisabled indicates media upload is switched off
	ErrMediaUploadDisabled = errors.New("media upload is disabled")
)

// ValidationError describes malformed input rejected before any write.
type ValidationError struct {
	Message string
	Path    string
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// Is lets callers match any validation failure against ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a ValidationError for the given field path.
func NewValidationError(path, message string) *ValidationError {
	return &ValidationError{Message: message, Path: path}
}

// ExternalAPIError is a non-success provider response after retries ran out.
type ExternalAPIError struct {
	Operation string
	Status    int
	Body      string
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s failed with status %d: %s", e.Operation, e.Status, e.Body)
}

// TransitionError is returned when a post cannot move out of its current status.
type TransitionError struct {
	Action string
	From   PostStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s from status: %s", e.Action, e.From)
}
