// SPDX-License-Identifier: MPL-2.0

package selftest

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		output  string
		want    string
		wantErr bool
	}{
		{name: "chrome", output: "Google Chrome 120.0.6099.109 \n", want: "120.0.6099.109"},
		{name: "chromium", output: "Chromium 119.0.6045.199 built on Debian 12.2", want: "119.0.6045.199"},
		{name: "two components", output: "Browser 17.4", want: "17.4"},
		{name: "empty", output: "  \n", wantErr: true},
		{name: "no version", output: "Google Chrome", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := Parse(tt.output)
			if tt.wantErr {
				if !errors.Is(err, ErrNoVersion) {
					t.Fatalf("Parse(%q) error = %v, want ErrNoVersion", tt.output, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.output, err)
			}
			if got.Version != tt.want {
				t.Errorf("Version = %q, want %q", got.Version, tt.want)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	t.Parallel()

	res, err := Parse("Google Chrome 120.0.6099.109")
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	v, err := res.Semver()
	if err != nil {
		t.Fatalf("Semver() error = %v", err)
	}
	if v.String() != "120.0.6099" {
		t.Errorf("Semver() = %s, want 120.0.6099", v)
	}

	if err := res.Check(""); err != nil {
		t.Errorf("empty constraint: %v", err)
	}
	if err := res.Check(">= 114"); err != nil {
		t.Errorf(">= 114: %v", err)
	}
	if err := res.Check(">= 121"); !errors.Is(err, ErrVersionTooOld) {
		t.Errorf(">= 121: %v, want ErrVersionTooOld", err)
	}
	if err := res.Check("not a constraint"); err == nil || errors.Is(err, ErrVersionTooOld) {
		t.Errorf("invalid constraint: %v", err)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	if _, err := Verify("", ">= 1"); !errors.Is(err, ErrNoVersion) {
		t.Errorf("Verify(empty) = %v, want ErrNoVersion", err)
	}
	res, err := Verify("Google Chrome 120.0.6099.109", "~120")
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if res.Output != "Google Chrome 120.0.6099.109" {
		t.Errorf("Output = %q", res.Output)
	}

	if err := ValidateConstraint(">= 114"); err != nil {
		t.Errorf("ValidateConstraint() = %v", err)
	}
	if err := ValidateConstraint("=>> x"); err == nil {
		t.Error("ValidateConstraint() should reject garbage")
	}
}
