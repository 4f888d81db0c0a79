package storage

import (
	"errors"
	"fmt"
	"testing"
)

func TestStoreError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *StoreError
		expected string
	}{
		{
			name:     "with ID",
			err:      &StoreError{Op: "AppendAttempt", Entity: "path", ID: "12", Cause: fmt.Errorf("fk violation")},
			expected: "AppendAttempt path 12: fk violation",
		},
		{
			name:     "with ID and field",
			err:      &StoreError{Op: "AppendRunRecord", Entity: "run", ID: "r-1", Field: "filters", Cause: fmt.Errorf("bad json")},
			expected: "AppendRunRecord run r-1 (field filters): bad json",
		},
		{
			name:     "with context",
			err:      &StoreError{Op: "connect", Entity: "store", Context: "backend", Cause: fmt.Errorf("refused")},
			expected: "connect store (backend): refused",
		},
		{
			name:     "minimal",
			err:      &StoreError{Op: "Close", Entity: "store", Cause: fmt.Errorf("already closed")},
			expected: "Close store: already closed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestStoreError_Is(t *testing.T) {
	err := NotFoundError("path", 7)

	if !errors.Is(err, ErrNotFound) {
		t.Error("Expected errors.Is to match ErrNotFound")
	}
	if errors.Is(err, ErrStoreClosed) {
		t.Error("Expected errors.Is to not match ErrStoreClosed")
	}
	if err.Error() != "get path 7: not found" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestErrorBuilder(t *testing.T) {
	err := NewError("AppendRunRecord").
		Run("r-9").
		Field("status").
		Cause(fmt.Errorf("constraint")).
		Build()

	if err.Op != "AppendRunRecord" || err.Entity != "run" || err.ID != "r-9" || err.Field != "status" {
		t.Errorf("builder produced %+v", err)
	}

	noID := NewError("ParseFixture").Entity("node", 0).Build()
	if noID.ID != "" {
		t.Errorf("zero id should be omitted, got %q", noID.ID)
	}
}

func TestUnavailableError(t *testing.T) {
	cause := fmt.Errorf("connection reset")
	err := UnavailableError("AppendAttempt", cause)

	if !errors.Is(err, ErrStorageUnavailable) {
		t.Error("Expected error to wrap ErrStorageUnavailable")
	}
	if !errors.Is(err, cause) {
		t.Error("Expected error to keep the driver cause")
	}
}

func TestIsNotFoundAndClosed(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		notFound   bool
		closedWant bool
	}{
		{"not found", NotFoundError("run", 1), true, false},
		{"closed", NewError("write").Entity("store", 0).Cause(ErrStoreClosed).Err(), false, true},
		{"other", fmt.Errorf("other"), false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound() = %v, want %v", got, tt.notFound)
			}
			if got := IsClosed(tt.err); got != tt.closedWant {
				t.Errorf("IsClosed() = %v, want %v", got, tt.closedWant)
			}
		})
	}
}
