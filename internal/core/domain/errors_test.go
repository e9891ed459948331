package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrUnauthorized", ErrUnauthorized, "unauthorized"},
		{"ErrForbidden", ErrForbidden, "forbidden"},
		{"ErrTokenDecryptFailed", ErrTokenDecryptFailed, "token decrypt failed"},
		{"ErrOAuthStateMismatch", ErrOAuthStateMismatch, "oauth state mismatch"},
		{"ErrMissingOAuthSession", ErrMissingOAuthSession, "missing oauth session"},
		{"ErrDecryptionFailed", ErrDecryptionFailed, "decryption failed"},
		{"ErrMediaUploadDisabled", ErrMediaUploadDisabled, "media upload is disabled"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenDecryptFailed,
		ErrOAuthStateMismatch,
		ErrMissingOAuthSession,
		ErrWeakSecret,
		ErrDecryptionFailed,
		ErrInvalidLength,
		ErrMediaUploadDisabled,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("text", "text is required")
	if err.Error() != "text: text is required" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Error("validation error should match ErrInvalidInput")
	}

	wrapped := fmt.Errorf("schedule: %w", err)
	var ve *ValidationError
	if !errors.As(wrapped, &ve) {
		t.Fatal("expected errors.As to find ValidationError")
	}
	if ve.Path != "text" {
		t.Errorf("expected path text, got %q", ve.Path)
	}

	noPath := &ValidationError{Message: "bad"}
	if noPath.Error() != "bad" {
		t.Errorf("unexpected message %q", noPath.Error())
	}
}

func TestExternalAPIError(t *testing.T) {
	err := &ExternalAPIError{Operation: "post content", Status: 403, Body: `{"detail":"forbidden"}`}
	want := `post content failed with status 403: {"detail":"forbidden"}`
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}

func TestTransitionError(t *testing.T) {
	err := &TransitionError{Action: "retry", From: PostStatusPosted}
	if err.Error() != "cannot retry from status: posted" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
