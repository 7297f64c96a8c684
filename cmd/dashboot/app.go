// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"io"
	"os"
	"os/exec"

	"github.com/charmbracelet/log"

	"github.com/invowk/dashboot/internal/config"
	"github.com/invowk/dashboot/internal/container"
	"github.com/invowk/dashboot/internal/shell"
	"github.com/invowk/dashboot/internal/trust"
)

type (
	// App wires CLI services and shared dependencies. It is the composition root
	// for the CLI layer: all Cobra command handlers receive an App reference and
	// reach configuration, container engines, the host shell and the network
	// through it.
	App struct {
		Config  ConfigProvider
		Engines EngineFactory
		Runner  shell.Runner
		Fetcher trust.Fetcher
		Exec    ExecCommandFunc
		stdout  io.Writer
		stderr  io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil fields
	// are replaced with production defaults by NewApp.
	Dependencies struct {
		Config  ConfigProvider
		Engines EngineFactory
		Runner  shell.Runner
		Fetcher trust.Fetcher
		Exec    ExecCommandFunc
		Stdout  io.Writer
		Stderr  io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, string, error)
	}

	// EngineFactory returns a container engine, preferring the given type.
	EngineFactory func(preferred container.EngineType) (container.Engine, error)

	// ExecCommandFunc creates the exec.Cmd for the launched server.
	ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

	// rootFlags holds the persistent flags shared by every subcommand.
	rootFlags struct {
		configPath string
		verbose    bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) *App {
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Engines == nil {
		deps.Engines = container.NewEngine
	}
	if deps.Runner == nil {
		deps.Runner = shell.NewInterpreter()
	}
	if deps.Fetcher == nil {
		deps.Fetcher = trust.NewHTTPFetcher()
	}
	if deps.Exec == nil {
		deps.Exec = exec.CommandContext
	}

	return &App{
		Config:  deps.Config,
		Engines: deps.Engines,
		Runner:  deps.Runner,
		Fetcher: deps.Fetcher,
		Exec:    deps.Exec,
		stdout:  deps.Stdout,
		stderr:  deps.Stderr,
	}
}

// loadConfig loads the effective configuration for one invocation.
// The verbose flag is raised when the config enables it.
func (a *App) loadConfig(ctx context.Context, flags *rootFlags) (*config.Config, string, error) {
	wd, err := os.Getwd()
	if err != nil {
		wd = ""
	}
	cfg, path, err := a.Config.Load(ctx, config.LoadOptions{
		ConfigFilePath: flags.configPath,
		WorkDir:        wd,
	})
	if err != nil {
		return nil, "", err
	}
	if cfg.UI.Verbose {
		flags.verbose = true
	}
	return cfg, path, nil
}

// newLogger returns the structured logger for pipeline progress. It writes to
// stderr so that stdout stays reserved for rendered artifacts and reports.
func (a *App) newLogger(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(a.stderr, log.Options{
		Level:           level,
		ReportTimestamp: verbose,
		Prefix:          config.AppName,
	})
}
