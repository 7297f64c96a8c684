// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "build image"},
			expected: "failed to build image",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "read manifest", Resource: "requirements.txt"},
			expected: "failed to read manifest: requirements.txt",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "fetch signing key",
				Resource:  "https://example.test/key.pub",
				Cause:     errors.New("connection refused"),
			},
			expected: "failed to fetch signing key: https://example.test/key.pub: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("exit status 100")
	err := WrapWithContext(cause, "install browser", "google-chrome-stable")

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if WrapWithOperation(nil, "noop") != nil {
		t.Error("WrapWithOperation(nil) should return nil")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	inner := errors.New("no such host")
	err := NewErrorContext().
		WithOperation("fetch signing key").
		WithSuggestion("Check network access").
		WithSuggestions("Retry the run").
		Wrap(errors.Join(inner)).
		Build()

	short := err.Format(false)
	if !strings.Contains(short, "• Check network access") || !strings.Contains(short, "• Retry the run") {
		t.Errorf("Format(false) missing suggestions:\n%s", short)
	}
	if strings.Contains(short, "Error chain") {
		t.Error("Format(false) should not include the error chain")
	}

	verbose := err.Format(true)
	if !strings.Contains(verbose, "Error chain:") || !strings.Contains(verbose, "no such host") {
		t.Errorf("Format(true) missing error chain:\n%s", verbose)
	}
}

func TestErrorContext_BuildRequiresOperation(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("x").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should return nil")
	}
}
