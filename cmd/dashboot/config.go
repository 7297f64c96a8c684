// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/invowk/dashboot/internal/config"
	"github.com/invowk/dashboot/internal/issue"
)

// newConfigCommand creates the `dashboot config` command tree.
func newConfigCommand(app *App, flags *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage dashboot configuration",
		Long: `Manage dashboot configuration.

Configuration is looked up in order:
  - the --config flag
  - $XDG_CONFIG_HOME/dashboot/config.cue (default ~/.config/dashboot/config.cue)
  - ./dashboot.cue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, flags)
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create the default configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			return initConfig(app.stdout, path, force)
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "dump",
		Short: "Output the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
			return nil
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, flags *rootFlags) error {
	cfg, path, err := app.loadConfig(ctx, flags)
	if err != nil {
		renderIssue(app.stderr, issue.ConfigLoadFailedId, true)
		return err
	}

	w := app.stdout
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	kv := func(indent, key string, value any) {
		fmt.Fprintf(w, "%s%s: %s\n", indent, keyStyle.Render(key), valueStyle.Render(fmt.Sprint(value)))
	}

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	kv("", "target", cfg.Target)
	kv("", "container_engine", cfg.ContainerEngine)
	kv("", "trust_mode", cfg.TrustMode())
	kv("", "manifest", cfg.Manifest)
	kv("", "os_packages", strings.Join(cfg.OSPackages, ", "))

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("image"))
	kv("  ", "base", cfg.Image.Base)
	kv("  ", "workdir", cfg.Image.Workdir)
	kv("  ", "context_dir", cfg.Image.ContextDir)
	if cfg.Image.Tag != "" {
		kv("  ", "tag", cfg.Image.Tag)
	} else {
		fmt.Fprintf(w, "  %s: %s\n", keyStyle.Render("tag"), SubtitleStyle.Render("(content-addressed)"))
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("browser"))
	kv("  ", "package", cfg.Browser.Package)
	kv("  ", "binary", cfg.Browser.Binary)
	if cfg.Browser.MinVersion != "" {
		kv("  ", "min_version", cfg.Browser.MinVersion)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("source"))
	kv("  ", "line", cfg.PackageSource().Line())
	kv("  ", "key_url", cfg.Source.KeyURL)

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s:\n", keyStyle.Render("launch"))
	kv("  ", "command", strings.Join(cfg.Contract().Argv(), " "))
	kv("  ", "env", strings.Join(cfg.RuntimeEnv().Environ(), " "))

	return nil
}

// initConfig writes the default configuration to path, or to the config
// directory when path is empty.
func initConfig(w io.Writer, path string, force bool) error {
	if path == "" {
		cfgDir, err := config.ConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(cfgDir, config.ConfigFileName)
	}

	if err := config.WriteDefault(path, force); err != nil {
		return issue.NewErrorContext().
			WithOperation("create configuration").
			WithResource(path).
			WithSuggestion("Pass --force to overwrite an existing file").
			Wrap(err).
			BuildError()
	}

	fmt.Fprintf(w, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
	return nil
}
