// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"
)

// Compile-time interface check
var _ Runner = (*Interpreter)(nil)

type (
	// IO bundles the standard streams of a command line.
	IO struct {
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Runner executes a shell command line.
	// A non-zero exit status is reported as *ExitError.
	Runner interface {
		Run(ctx context.Context, line string, stdio IO) error
	}

	// Interpreter runs command lines with the embedded mvdan/sh interpreter.
	Interpreter struct {
		dir string
		env []string
	}

	// Option configures an Interpreter.
	Option func(*Interpreter)
)

// WithDir sets the working directory. Defaults to the process working directory.
func WithDir(dir string) Option {
	return func(r *Interpreter) {
		r.dir = dir
	}
}

// WithEnv sets the environment as KEY=VALUE pairs. Defaults to os.Environ().
func WithEnv(env []string) Option {
	return func(r *Interpreter) {
		r.env = env
	}
}

// NewInterpreter creates an Interpreter.
func NewInterpreter(opts ...Option) *Interpreter {
	r := &Interpreter{}
	for _, opt := range opts {
		opt(r)
	}
	if r.env == nil {
		r.env = os.Environ()
	}
	return r
}

// Run parses and executes line. The script runs with errexit set, so a failing
// command inside a list aborts the line.
func (r *Interpreter) Run(ctx context.Context, line string, stdio IO) error {
	prog, err := Parse(line)
	if err != nil {
		return err
	}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(r.env...)),
		interp.StdIO(stdio.Stdin, stdio.Stdout, stdio.Stderr),
		interp.Params("-e"),
	}
	if r.dir != "" {
		opts = append(opts, interp.Dir(r.dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create interpreter: %w", err)
	}

	if err := runner.Run(ctx, prog); err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return &ExitError{Line: line, Code: ExitCode(exitStatus)}
		}
		return fmt.Errorf("%s: %w", line, err)
	}
	return nil
}

// Output runs line and returns its standard output. Stderr is forwarded to stderr.
func Output(ctx context.Context, r Runner, line string, stderr io.Writer) (string, error) {
	var stdout bytes.Buffer
	err := r.Run(ctx, line, IO{Stdout: &stdout, Stderr: stderr})
	return stdout.String(), err
}

// Parse parses a bash command line or script.
func Parse(src string) (*syntax.File, error) {
	prog, err := syntax.NewParser(syntax.KeepComments(true), syntax.Variant(syntax.LangBash)).Parse(strings.NewReader(src), "")
	if err != nil {
		return nil, fmt.Errorf("script syntax error: %w", err)
	}
	return prog, nil
}
