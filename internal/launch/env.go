// SPDX-License-Identifier: MPL-2.0

package launch

import "strings"

const (
	// UnbufferedVar makes the Python runtime flush stdout/stderr immediately.
	UnbufferedVar = "PYTHONUNBUFFERED"
	// HeadlessVar tells the dashboard to drive the browser without a display.
	HeadlessVar = "HEADLESS"
)

type (
	// Env is the runtime environment fixed for the application's lifetime.
	// It has no setters; build a new value to change it.
	Env struct {
		Unbuffered bool
		Headless   bool
	}

	// Var is a single environment variable.
	Var struct {
		Name  string `json:"name" yaml:"name" toml:"name"`
		Value string `json:"value" yaml:"value" toml:"value"`
	}
)

// DefaultEnv returns the dashboard's production environment.
func DefaultEnv() Env {
	return Env{Unbuffered: true, Headless: true}
}

// Vars returns the environment variables in a stable order.
// Disabled flags are still emitted so the application never falls back to an
// inherited value.
func (e Env) Vars() []Var {
	unbuffered := "0"
	if e.Unbuffered {
		unbuffered = "1"
	}
	headless := "false"
	if e.Headless {
		headless = "true"
	}
	return []Var{
		{Name: UnbufferedVar, Value: unbuffered},
		{Name: HeadlessVar, Value: headless},
	}
}

// Environ returns the variables as KEY=VALUE pairs.
func (e Env) Environ() []string {
	vars := e.Vars()
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Name+"="+v.Value)
	}
	return out
}

// Merge returns base with the runtime variables overriding any existing entries.
func (e Env) Merge(base []string) []string {
	own := make(map[string]bool)
	for _, v := range e.Vars() {
		own[v.Name] = true
	}
	out := make([]string, 0, len(base)+2)
	for _, kv := range base {
		if name, _, _ := strings.Cut(kv, "="); !own[name] {
			out = append(out, kv)
		}
	}
	return append(out, e.Environ()...)
}
