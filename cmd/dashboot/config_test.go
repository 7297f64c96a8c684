// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/invowk/dashboot/internal/config"
	"github.com/invowk/dashboot/internal/testutil"
)

func TestConfigInit(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.cue")
	app := newTestApp(t, config.DefaultConfig(), Dependencies{})

	if err := app.run(t, "config", "init", path); err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(app.stdout.String(), path) {
		t.Errorf("output does not name %s:\n%s", path, app.stdout)
	}

	written := testutil.MustReadFile(t, path)
	if !strings.Contains(written, `target: "image"`) {
		t.Errorf("written config lacks the default target:\n%s", written)
	}

	if err := app.run(t, "config", "init", path); err == nil {
		t.Error("second config init without --force succeeded, want error")
	}
	if err := app.run(t, "config", "init", "--force", path); err != nil {
		t.Errorf("config init --force: %v", err)
	}
}

func TestConfigInit_DefaultsToConfigDir(t *testing.T) {
	// Not parallel: redirects XDG_CONFIG_HOME.
	home := t.TempDir()
	t.Cleanup(testutil.MustSetenv(t, "XDG_CONFIG_HOME", home))

	app := newTestApp(t, config.DefaultConfig(), Dependencies{})
	if err := app.run(t, "config", "init"); err != nil {
		t.Fatalf("config init: %v", err)
	}

	want := filepath.Join(home, config.AppName, config.ConfigFileName)
	if got := testutil.MustReadFile(t, want); !strings.Contains(got, "dashboot configuration") {
		t.Errorf("%s does not hold the generated config:\n%s", want, got)
	}
}

func TestConfigShow(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Browser.MinVersion = ">= 114"
	app := newTestApp(t, nil, Dependencies{Config: &fakeConfig{cfg: cfg, path: "/etc/dashboot.cue"}})

	if err := app.run(t, "config", "show"); err != nil {
		t.Fatalf("config show: %v", err)
	}

	out := app.stdout.String()
	for _, want := range []string{
		"/etc/dashboot.cue",
		"google-chrome-stable",
		">= 114",
		"signed-by=/usr/share/keyrings/google-chrome.gpg",
		"gunicorn --bind 0.0.0.0:5000 --workers 1 --timeout 120 dashboard:app",
		"PYTHONUNBUFFERED=1 HEADLESS=true",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("config show missing %q:\n%s", want, out)
		}
	}
}

func TestConfigShow_LoadError(t *testing.T) {
	t.Parallel()

	loadErr := errors.New("bad cue")
	app := newTestApp(t, nil, Dependencies{Config: &fakeConfig{err: loadErr}})

	if err := app.run(t, "config", "show"); !errors.Is(err, loadErr) {
		t.Fatalf("config show error = %v, want %v", err, loadErr)
	}
}

func TestConfigDump(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Target = config.TargetHost
	app := newTestApp(t, cfg, Dependencies{})

	if err := app.run(t, "config", "dump"); err != nil {
		t.Fatalf("config dump: %v", err)
	}
	if !strings.Contains(app.stdout.String(), `target: "host"`) {
		t.Errorf("dump lacks the configured target:\n%s", app.stdout)
	}
}
