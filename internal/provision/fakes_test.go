// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/invowk/dashboot/internal/aptsource"
	"github.com/invowk/dashboot/internal/container"
	"github.com/invowk/dashboot/internal/launch"
	"github.com/invowk/dashboot/internal/shell"
	"github.com/invowk/dashboot/internal/testutil"
	"github.com/invowk/dashboot/internal/trust"
)

const chromeVersionOutput = "Google Chrome 120.0.6099.109 \n"

type (
	// fakeRunner records command lines and answers them from handlers.
	fakeRunner struct {
		mu    sync.Mutex
		lines []string
		stdin map[string][]byte
		// fail returns an error for lines containing the key.
		fail map[string]error
		// output is written to stdout for lines containing the key.
		output map[string]string
	}

	fakeFetcher struct {
		data  []byte
		err   error
		calls int
	}

	fakeEngine struct {
		builds      []container.BuildOptions
		dockerfiles []string
		// appEntries lists the application directory of each build context.
		appEntries [][]string
		removed    []string
		runs       []container.RunOptions
		buildErr   error
		exists     bool
		probeOut   string
		probeCode  int
	}
)

func newFakeRunner() *fakeRunner {
	return &fakeRunner{
		stdin:  make(map[string][]byte),
		fail:   make(map[string]error),
		output: map[string]string{"--version": chromeVersionOutput},
	}
}

func (r *fakeRunner) Run(_ context.Context, line string, stdio shell.IO) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = append(r.lines, line)
	if stdio.Stdin != nil {
		data, _ := io.ReadAll(stdio.Stdin)
		r.stdin[line] = data
	}
	for key, err := range r.fail {
		if strings.Contains(line, key) {
			return err
		}
	}
	for key, out := range r.output {
		if strings.Contains(line, key) && stdio.Stdout != nil {
			_, _ = io.WriteString(stdio.Stdout, out)
		}
	}
	return nil
}

func (r *fakeRunner) ran(substr string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

func (f *fakeFetcher) Fetch(_ context.Context, _ string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Available() bool { return true }

func (e *fakeEngine) Version(context.Context) (string, error) { return "1.0.0", nil }

func (e *fakeEngine) Build(_ context.Context, opts container.BuildOptions) error {
	e.builds = append(e.builds, opts)
	df, err := os.ReadFile(filepath.Join(opts.ContextDir, opts.Dockerfile))
	if err != nil {
		return err
	}
	e.dockerfiles = append(e.dockerfiles, string(df))

	entries, err := os.ReadDir(filepath.Join(opts.ContextDir, appContextDir))
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	e.appEntries = append(e.appEntries, names)
	return e.buildErr
}

func (e *fakeEngine) Run(_ context.Context, opts container.RunOptions) (*container.RunResult, error) {
	e.runs = append(e.runs, opts)
	if opts.Stdout != nil {
		_, _ = io.WriteString(opts.Stdout, e.probeOut)
	}
	return &container.RunResult{ExitCode: e.probeCode}, nil
}

func (e *fakeEngine) ImageExists(context.Context, string) (bool, error) { return e.exists, nil }

func (e *fakeEngine) RemoveImage(_ context.Context, image string, _ bool) error {
	e.removed = append(e.removed, image)
	return nil
}

// testConfig returns the dashboard configuration with the manifest resolved in dir.
func testConfig(dir string, mode trust.Mode) Config {
	return Config{
		OSPackages:     []string{"wget", "gnupg", "unzip", "curl"},
		Key:            trust.Import{URL: trust.DefaultKeyURL, Mode: mode, KeyringPath: trust.DefaultKeyringPath},
		Source:         aptsource.Default(mode),
		BrowserPackage: "google-chrome-stable",
		BrowserBinary:  "google-chrome",
		Manifest:       "requirements.txt",
		ManifestDir:    dir,
		Env:            launch.DefaultEnv(),
		Contract:       launch.DefaultContract(),
	}
}

// appDir creates an application directory holding manifest as requirements.txt.
func appDir(t *testing.T, manifest string) string {
	t.Helper()
	dir := t.TempDir()
	testutil.MustWriteFile(t, filepath.Join(dir, "requirements.txt"), manifest)
	testutil.MustWriteFile(t, filepath.Join(dir, "dashboard.py"), "app = None\n")
	return dir
}
