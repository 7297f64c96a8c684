// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invowk/dashboot/internal/config"
	"github.com/invowk/dashboot/internal/container"
	"github.com/invowk/dashboot/internal/shell"
	"github.com/invowk/dashboot/internal/testutil"
)

const chromeVersionOutput = "Google Chrome 120.0.6099.109 \n"

type (
	// fakeConfig hands out a fresh copy of cfg on every Load.
	fakeConfig struct {
		cfg  *config.Config
		path string
		err  error
	}

	fakeEngine struct {
		builds    []container.BuildOptions
		runs      []container.RunOptions
		buildErr  error
		probeOut  string
		probeCode int
	}

	// fakeRunner records host command lines and answers the version probe.
	fakeRunner struct {
		lines []string
		stdin map[string][]byte
	}

	fakeFetcher struct {
		data  []byte
		err   error
		calls int
	}

	testApp struct {
		*App
		stdout *bytes.Buffer
		stderr *bytes.Buffer
	}
)

func (f *fakeConfig) Load(_ context.Context, _ config.LoadOptions) (*config.Config, string, error) {
	if f.err != nil {
		return nil, "", f.err
	}
	c := *f.cfg
	return &c, f.path, nil
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Available() bool { return true }

func (e *fakeEngine) Version(context.Context) (string, error) { return "1.0.0", nil }

func (e *fakeEngine) Build(_ context.Context, opts container.BuildOptions) error {
	e.builds = append(e.builds, opts)
	return e.buildErr
}

func (e *fakeEngine) Run(_ context.Context, opts container.RunOptions) (*container.RunResult, error) {
	e.runs = append(e.runs, opts)
	if opts.Stdout != nil {
		_, _ = io.WriteString(opts.Stdout, e.probeOut)
	}
	return &container.RunResult{ExitCode: e.probeCode}, nil
}

func (e *fakeEngine) ImageExists(context.Context, string) (bool, error) { return false, nil }

func (e *fakeEngine) RemoveImage(context.Context, string, bool) error { return nil }

func (r *fakeRunner) Run(_ context.Context, line string, stdio shell.IO) error {
	r.lines = append(r.lines, line)
	if stdio.Stdin != nil {
		if r.stdin == nil {
			r.stdin = make(map[string][]byte)
		}
		r.stdin[line], _ = io.ReadAll(stdio.Stdin)
	}
	if strings.Contains(line, "--version") && stdio.Stdout != nil {
		_, _ = io.WriteString(stdio.Stdout, chromeVersionOutput)
	}
	return nil
}

func (f *fakeFetcher) Fetch(context.Context, string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

// newTestApp returns an App over cfg whose output is captured.
func newTestApp(t *testing.T, cfg *config.Config, deps Dependencies) *testApp {
	t.Helper()

	stdout, stderr := &bytes.Buffer{}, &bytes.Buffer{}
	if deps.Config == nil {
		deps.Config = &fakeConfig{cfg: cfg}
	}
	if deps.Engines == nil {
		deps.Engines = func(container.EngineType) (container.Engine, error) {
			t.Fatal("unexpected container engine lookup")
			return nil, nil
		}
	}
	if deps.Fetcher == nil {
		deps.Fetcher = &fakeFetcher{data: testutil.NewSigningKey(t).Armored}
	}
	deps.Stdout = stdout
	deps.Stderr = stderr

	return &testApp{App: NewApp(deps), stdout: stdout, stderr: stderr}
}

// run executes the command tree with args.
func (a *testApp) run(t *testing.T, args ...string) error {
	t.Helper()
	root := NewRootCommand(a.App)
	root.SetArgs(args)
	return root.ExecuteContext(t.Context())
}

// appContext writes a minimal dashboard application into a temp dir.
func appContext(t *testing.T, requirements string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "requirements.txt"), requirements)
	testutil.MustWriteFile(t, filepath.Join(dir, "dashboard.py"), "from flask import Flask\napp = Flask(__name__)\n")
	return dir
}

// testConfig returns the default configuration building from dir.
func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Image.ContextDir = dir
	return cfg
}
