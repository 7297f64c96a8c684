// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"errors"
	"slices"
	"testing"
	"time"
)

func TestDefaultContract_Argv(t *testing.T) {
	t.Parallel()

	want := []string{"gunicorn", "--bind", "0.0.0.0:5000", "--workers", "1", "--timeout", "120", "dashboard:app"}
	if got := DefaultContract().Argv(); !slices.Equal(got, want) {
		t.Errorf("Argv() = %v, want %v", got, want)
	}
}

// The bind address is derived from the declared port only; a PORT variable in the
// process environment must not leak into the command line.
func TestContract_BindIgnoresEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("GUNICORN_CMD_ARGS", "--bind 0.0.0.0:9090")

	c := DefaultContract()
	argv := c.Argv()
	idx := slices.Index(argv, "--bind")
	if idx < 0 || argv[idx+1] != "0.0.0.0:5000" {
		t.Fatalf("Argv() = %v, want bind 0.0.0.0:5000", argv)
	}
	if slices.Contains(argv, "0.0.0.0:8080") || slices.Contains(argv, "0.0.0.0:9090") {
		t.Errorf("Argv() picked up an environment override: %v", argv)
	}
}

func TestContract_Bind_IPv6(t *testing.T) {
	t.Parallel()

	c := DefaultContract()
	c.Host = "::"
	if got := c.Bind(); got != "[::]:5000" {
		t.Errorf("Bind() = %q, want %q", got, "[::]:5000")
	}
}

func TestContract_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Contract)
		wantErr bool
	}{
		{"default is valid", func(*Contract) {}, false},
		{"zero port", func(c *Contract) { c.Port = 0 }, true},
		{"no workers", func(c *Contract) { c.Workers = 0 }, true},
		{"fractional timeout", func(c *Contract) { c.Timeout = 1500 * time.Millisecond }, true},
		{"app without object", func(c *Contract) { c.App = "dashboard" }, true},
		{"empty server", func(c *Contract) { c.Server = " " }, true},
		{"host with path", func(c *Contract) { c.Host = "0.0.0.0/24" }, true},
		{"hostname", func(c *Contract) { c.Host = "localhost" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := DefaultContract()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidContract) {
				t.Errorf("error should wrap ErrInvalidContract: %v", err)
			}
		})
	}
}

func TestPort_Validate(t *testing.T) {
	t.Parallel()

	err := Port(0).Validate()
	if !errors.Is(err, ErrInvalidPort) {
		t.Errorf("Port(0).Validate() = %v, want ErrInvalidPort", err)
	}
	if Port(5000).Validate() != nil {
		t.Error("Port(5000) should be valid")
	}
}

func TestEnv_Vars(t *testing.T) {
	t.Parallel()

	got := DefaultEnv().Environ()
	want := []string{"PYTHONUNBUFFERED=1", "HEADLESS=true"}
	if !slices.Equal(got, want) {
		t.Errorf("Environ() = %v, want %v", got, want)
	}

	off := Env{}.Environ()
	if !slices.Equal(off, []string{"PYTHONUNBUFFERED=0", "HEADLESS=false"}) {
		t.Errorf("disabled Environ() = %v", off)
	}
}

func TestEnv_Merge(t *testing.T) {
	t.Parallel()

	base := []string{"PATH=/usr/bin", "HEADLESS=false", "HOME=/root"}
	got := DefaultEnv().Merge(base)
	want := []string{"PATH=/usr/bin", "HOME=/root", "PYTHONUNBUFFERED=1", "HEADLESS=true"}
	if !slices.Equal(got, want) {
		t.Errorf("Merge() = %v, want %v", got, want)
	}
}
