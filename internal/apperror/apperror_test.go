// GO TESTING BASICS:
// 1. Test files MUST end in _test.go; Go's tooling auto-discovers them
// 2. Test functions MUST start with "Test" and take *testing.T as the only param
// 3. Same package as the code being tested (so we can access unexported stuff)
// 4. Run with: go test ./internal/apperror/ -v  (-v = verbose, shows each test name)
package apperror

import (
	"errors"
	"fmt"
	"testing"
)

// TABLE-DRIVEN TESTS:
// Each case is one struct in the slice; t.Run gives every case its own name
// in the test output.

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("post", "abc123"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("username", "username is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Duplicate wraps ErrDuplicate",
			err:       Duplicate("user", "email"),
			target:    ErrDuplicate,
			wantMatch: true,
		},
		{
			name:      "InvalidCredentials wraps ErrInvalidCredentials",
			err:       InvalidCredentials(),
			target:    ErrInvalidCredentials,
			wantMatch: true,
		},
		{
			name:      "Unauthenticated wraps ErrUnauthenticated",
			err:       Unauthenticated("no token provided"),
			target:    ErrUnauthenticated,
			wantMatch: true,
		},
		{
			name:      "Forbidden wraps ErrForbidden",
			err:       Forbidden("not authorized"),
			target:    ErrForbidden,
			wantMatch: true,
		},
		{
			name:      "Store wraps ErrStore",
			err:       Store("inserting user", errors.New("disk full")),
			target:    ErrStore,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("post", "abc123"),
			target:    ErrValidation,
			wantMatch: false,
		},
		{
			name:      "InvalidCredentials does NOT match ErrUnauthenticated",
			err:       InvalidCredentials(),
			target:    ErrUnauthenticated,
			wantMatch: false,
		},
		{
			name:      "Forbidden does NOT match ErrUnauthenticated",
			err:       Forbidden("nope"),
			target:    ErrUnauthenticated,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "NotFound message includes resource and id",
			err:         NotFound("post", "abc123"),
			wantMessage: "post not found with id abc123",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("title", "title is required"),
			wantMessage: "title is required",
		},
		{
			name:        "Duplicate names the field",
			err:         Duplicate("user", "username"),
			wantMessage: "user with this username already exists",
		},
		{
			name:        "InvalidCredentials is fixed",
			err:         InvalidCredentials(),
			wantMessage: "invalid credentials",
		},
		{
			name:        "Unauthenticated carries the reason",
			err:         Unauthenticated("invalid token"),
			wantMessage: "invalid token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestStore_KeepsCauseButHidesIt(t *testing.T) {
	cause := errors.New("connection refused on 10.0.0.7:27017")
	err := Store("finding user", cause)

	// The cause must stay reachable for logging...
	if !errors.Is(err, cause) {
		t.Error("errors.Is(Store(...), cause) = false, want true")
	}

	// ...but the client-facing message must not mention it.
	if got := err.PublicMessage(); got != "an internal error occurred" {
		t.Errorf("PublicMessage() = %q, want generic message", got)
	}
}

func TestPublicMessage_NonStoreErrors(t *testing.T) {
	err := NotFound("post", "p1")
	if got := err.PublicMessage(); got != err.Message {
		t.Errorf("PublicMessage() = %q, want %q", got, err.Message)
	}
}

func TestErrorsAs(t *testing.T) {
	// errors.As finds the AppError even when it is wrapped with fmt.Errorf.
	wrapped := fmt.Errorf("service: getting post: %w", NotFound("post", "x"))

	var appErr *AppError
	if !errors.As(wrapped, &appErr) {
		t.Fatal("errors.As() did not find *AppError in the chain")
	}
	if appErr.Err != ErrNotFound {
		t.Errorf("appErr.Err = %v, want ErrNotFound", appErr.Err)
	}
}

func TestValidationFailedField(t *testing.T) {
	// Field lets handlers tell the frontend WHICH input was invalid.
	err := ValidationFailed("email", "invalid email")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}

func TestDuplicateField(t *testing.T) {
	err := Duplicate("user", "email")

	if err.Field != "email" {
		t.Errorf("Field = %q, want %q", err.Field, "email")
	}
}
