package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError_Is(t *testing.T) {
	err := ErrSnapshotTooLarge.WithDetails("9437185 bytes")
	if !errors.Is(err, ErrSnapshotTooLarge) {
		t.Fatal("errors.Is should match by code")
	}
	if errors.Is(err, ErrDocumentNotFound) {
		t.Fatal("errors.Is matched a different code")
	}
}

func TestDomainError_WrapChain(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := ErrStorageError.WithCause(cause)
	if !errors.Is(err, ErrStorageError) {
		t.Fatal("wrapped error lost its code")
	}
	if errors.Unwrap(err) != cause {
		t.Fatalf("Unwrap = %v, want %v", errors.Unwrap(err), cause)
	}
}

func TestGetErrorCode(t *testing.T) {
	if code := GetErrorCode(ErrTokenInvalid); code != "BM-AUTH-4011" {
		t.Fatalf("GetErrorCode = %q", code)
	}
	if code := GetErrorCode(fmt.Errorf("plain")); code != "" {
		t.Fatalf("GetErrorCode(plain) = %q, want empty", code)
	}
}

func TestDomainError_ErrorString(t *testing.T) {
	err := ErrAccessDenied.WithDetails("document bmdc-x")
	want := "[BM-AUTH-4030] access denied: document bmdc-x"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
