// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/invowk/dashboot/internal/launch"
	"github.com/invowk/dashboot/internal/shell"
	"github.com/invowk/dashboot/internal/trust"
)

// Compile-time interface checks
var (
	_ Executor = (*HostExecutor)(nil)
	_ Prober   = (*HostExecutor)(nil)
)

type (
	// HostExecutor provisions the running host in place.
	HostExecutor struct {
		runner  shell.Runner
		fetcher trust.Fetcher
		root    string
		stdout  io.Writer
		stderr  io.Writer
		vars    []launch.Var
	}

	// HostExecutorOption configures a HostExecutor.
	HostExecutorOption func(*HostExecutor)
)

// WithHostFetcher sets the signing key fetcher. Defaults to trust.NewHTTPFetcher().
func WithHostFetcher(f trust.Fetcher) HostExecutorOption {
	return func(x *HostExecutor) {
		x.fetcher = f
	}
}

// WithRoot prefixes every file written by the executor with root.
func WithRoot(root string) HostExecutorOption {
	return func(x *HostExecutor) {
		x.root = root
	}
}

// WithOutput sets the streams commands write to. Both default to io.Discard.
func WithOutput(stdout, stderr io.Writer) HostExecutorOption {
	return func(x *HostExecutor) {
		x.stdout = stdout
		x.stderr = stderr
	}
}

// NewHostExecutor creates a HostExecutor that runs commands with runner.
func NewHostExecutor(runner shell.Runner, opts ...HostExecutorOption) *HostExecutor {
	x := &HostExecutor{
		runner: runner,
		root:   "/",
		stdout: io.Discard,
		stderr: io.Discard,
	}
	for _, opt := range opts {
		opt(x)
	}
	if x.fetcher == nil {
		x.fetcher = trust.NewHTTPFetcher()
	}
	return x
}

// Run executes line, with any variables from SetEnv exported first.
func (x *HostExecutor) Run(ctx context.Context, line string) error {
	return x.run(ctx, line, nil)
}

// WriteFile writes content to path below the executor's root.
func (x *HostExecutor) WriteFile(_ context.Context, path string, content []byte) error {
	target := x.resolve(path)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(target, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// ImportKey fetches and validates the signing key, then installs it as a
// scoped keyring or feeds it to apt-key.
func (x *HostExecutor) ImportKey(ctx context.Context, imp trust.Import) error {
	key, err := trust.Fetch(ctx, x.fetcher, imp)
	if err != nil {
		return err
	}

	if imp.Mode.Scoped() {
		return x.WriteFile(ctx, imp.KeyringPath, key.Keyring)
	}

	data := key.Armored
	if len(data) == 0 {
		data = key.Keyring
	}
	return x.run(ctx, "apt-key add -", bytes.NewReader(data))
}

// SetEnv exports vars to every later command.
func (x *HostExecutor) SetEnv(_ context.Context, vars []launch.Var) error {
	x.vars = append(x.vars, vars...)
	return nil
}

// Probe runs argv and returns its standard output.
func (x *HostExecutor) Probe(ctx context.Context, argv []string) (string, error) {
	out, err := shell.Output(ctx, x.runner, x.withExports(shell.Command(argv).String()), x.stderr)
	var exitErr *shell.ExitError
	if errors.As(err, &exitErr) {
		return out, &ProbeError{Argv: argv, ExitCode: int(exitErr.Code)}
	}
	return out, err
}

func (x *HostExecutor) run(ctx context.Context, line string, stdin io.Reader) error {
	return x.runner.Run(ctx, x.withExports(line), shell.IO{Stdin: stdin, Stdout: x.stdout, Stderr: x.stderr})
}

func (x *HostExecutor) withExports(line string) string {
	if len(x.vars) == 0 {
		return line
	}
	exports := make([]string, 0, len(x.vars)+1)
	for _, v := range x.vars {
		exports = append(exports, "export "+v.Name+"="+shell.Quote(v.Value))
	}
	return strings.Join(append(exports, line), "\n")
}

func (x *HostExecutor) resolve(path string) string {
	return filepath.Join(x.root, filepath.FromSlash(path))
}
