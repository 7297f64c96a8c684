// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/invowk/dashboot/internal/issue"
	"github.com/invowk/dashboot/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "dashboot"
	// ConfigFileName is the name of the config file in the config directory.
	ConfigFileName = "config.cue"
	// LocalConfigFileName is the project-local config file name.
	LocalConfigFileName = "dashboot.cue"
)

//go:embed config_schema.cue
var configSchema string

// ConfigDir returns the dashboot configuration directory:
// $XDG_CONFIG_HOME/dashboot, defaulting to ~/.config/dashboot.
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, AppName), nil
}

// loadWithOptions resolves the config file, merges it over the defaults and
// validates the result. The returned path is empty when no file was found.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	select {
	case <-ctx.Done():
		return nil, "", fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())

	resolvedPath, err := resolvePath(opts)
	if err != nil {
		return nil, "", err
	}

	if resolvedPath != "" {
		if err := loadCUEIntoViper(v, resolvedPath); err != nil {
			return nil, "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(resolvedPath).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithSuggestion("Use 'dashboot config show' to see the effective configuration").
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, "", fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(resolvedPath).
			WithSuggestion("Signing keys must be fetched over https").
			WithSuggestion("Keyring and list paths must be absolute").
			Wrap(err).
			BuildError()
	}

	return &cfg, resolvedPath, nil
}

// resolvePath applies the lookup order: explicit file, config directory, working directory.
func resolvePath(opts LoadOptions) (string, error) {
	if opts.ConfigFilePath != "" {
		if !fileExists(opts.ConfigFilePath) {
			return "", issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(opts.ConfigFilePath).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'dashboot config init' to write a default configuration").
				Wrap(fmt.Errorf("config file not found: %s", opts.ConfigFilePath)).
				BuildError()
		}
		return opts.ConfigFilePath, nil
	}

	cfgDir := opts.ConfigDirPath
	if cfgDir == "" {
		var err error
		if cfgDir, err = ConfigDir(); err != nil {
			return "", err
		}
	}
	if p := filepath.Join(cfgDir, ConfigFileName); fileExists(p) {
		return p, nil
	}

	local := LocalConfigFileName
	if opts.WorkDir != "" {
		local = filepath.Join(opts.WorkDir, LocalConfigFileName)
	}
	if fileExists(local) {
		return local, nil
	}
	return "", nil
}

// setDefaults registers every default under its config key.
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("target", d.Target)
	v.SetDefault("container_engine", d.ContainerEngine)
	v.SetDefault("image.base", d.Image.Base)
	v.SetDefault("image.tag", d.Image.Tag)
	v.SetDefault("image.workdir", d.Image.Workdir)
	v.SetDefault("image.context_dir", d.Image.ContextDir)
	v.SetDefault("image.no_cache", d.Image.NoCache)
	v.SetDefault("browser.package", d.Browser.Package)
	v.SetDefault("browser.binary", d.Browser.Binary)
	v.SetDefault("browser.min_version", d.Browser.MinVersion)
	v.SetDefault("source.url", d.Source.URL)
	v.SetDefault("source.suite", d.Source.Suite)
	v.SetDefault("source.components", d.Source.Components)
	v.SetDefault("source.arch", d.Source.Arch)
	v.SetDefault("source.key_url", d.Source.KeyURL)
	v.SetDefault("source.keyring", d.Source.Keyring)
	v.SetDefault("source.list_path", d.Source.ListPath)
	v.SetDefault("source.trust_mode", d.Source.TrustMode)
	v.SetDefault("os_packages", d.OSPackages)
	v.SetDefault("manifest", d.Manifest)
	v.SetDefault("env.unbuffered", d.Env.Unbuffered)
	v.SetDefault("env.headless", d.Env.Headless)
	v.SetDefault("launch.server", d.Launch.Server)
	v.SetDefault("launch.app", d.Launch.App)
	v.SetDefault("launch.host", d.Launch.Host)
	v.SetDefault("launch.port", d.Launch.Port)
	v.SetDefault("launch.workers", d.Launch.Workers)
	v.SetDefault("launch.timeout", d.Launch.Timeout)
	v.SetDefault("ui.verbose", d.UI.Verbose)
}

// loadCUEIntoViper validates a CUE file against the #Config schema and merges
// its contents into Viper over the defaults.
func loadCUEIntoViper(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	configMap, err := cueutil.ValidateToMap(configSchema, data, "#Config", path)
	if err != nil {
		return err
	}

	if err := v.MergeConfigMap(configMap); err != nil {
		return fmt.Errorf("failed to merge config: %w", err)
	}
	return nil
}

// fileExists checks if a file exists and is not a directory
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteDefault writes the default configuration to path.
// It refuses to overwrite an existing file unless force is set.
func WriteDefault(path string, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(GenerateCUE(DefaultConfig())), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// GenerateCUE generates a CUE representation of the configuration
func GenerateCUE(cfg *Config) string {
	var sb strings.Builder

	sb.WriteString("// dashboot configuration\n\n")

	fmt.Fprintf(&sb, "target: %q\n", cfg.Target)
	fmt.Fprintf(&sb, "container_engine: %q\n", cfg.ContainerEngine)

	sb.WriteString("\nimage: {\n")
	fmt.Fprintf(&sb, "\tbase: %q\n", cfg.Image.Base)
	fmt.Fprintf(&sb, "\ttag: %q\n", cfg.Image.Tag)
	fmt.Fprintf(&sb, "\tworkdir: %q\n", cfg.Image.Workdir)
	fmt.Fprintf(&sb, "\tcontext_dir: %q\n", cfg.Image.ContextDir)
	fmt.Fprintf(&sb, "\tno_cache: %v\n", cfg.Image.NoCache)
	sb.WriteString("}\n")

	sb.WriteString("\nbrowser: {\n")
	fmt.Fprintf(&sb, "\tpackage: %q\n", cfg.Browser.Package)
	fmt.Fprintf(&sb, "\tbinary: %q\n", cfg.Browser.Binary)
	fmt.Fprintf(&sb, "\tmin_version: %q\n", cfg.Browser.MinVersion)
	sb.WriteString("}\n")

	sb.WriteString("\nsource: {\n")
	fmt.Fprintf(&sb, "\turl: %q\n", cfg.Source.URL)
	fmt.Fprintf(&sb, "\tsuite: %q\n", cfg.Source.Suite)
	fmt.Fprintf(&sb, "\tcomponents: %s\n", cueList(cfg.Source.Components))
	fmt.Fprintf(&sb, "\tarch: %q\n", cfg.Source.Arch)
	fmt.Fprintf(&sb, "\tkey_url: %q\n", cfg.Source.KeyURL)
	fmt.Fprintf(&sb, "\tkeyring: %q\n", cfg.Source.Keyring)
	fmt.Fprintf(&sb, "\tlist_path: %q\n", cfg.Source.ListPath)
	sb.WriteString("\t// \"keyring\" (signed-by) or \"legacy\" (apt-key); empty uses the target default\n")
	fmt.Fprintf(&sb, "\ttrust_mode: %q\n", cfg.Source.TrustMode)
	sb.WriteString("}\n")

	fmt.Fprintf(&sb, "\nos_packages: %s\n", cueList(cfg.OSPackages))
	fmt.Fprintf(&sb, "manifest: %q\n", cfg.Manifest)

	sb.WriteString("\nenv: {\n")
	fmt.Fprintf(&sb, "\tunbuffered: %v\n", cfg.Env.Unbuffered)
	fmt.Fprintf(&sb, "\theadless: %v\n", cfg.Env.Headless)
	sb.WriteString("}\n")

	sb.WriteString("\nlaunch: {\n")
	fmt.Fprintf(&sb, "\tserver: %q\n", cfg.Launch.Server)
	fmt.Fprintf(&sb, "\tapp: %q\n", cfg.Launch.App)
	fmt.Fprintf(&sb, "\thost: %q\n", cfg.Launch.Host)
	fmt.Fprintf(&sb, "\tport: %d\n", cfg.Launch.Port)
	fmt.Fprintf(&sb, "\tworkers: %d\n", cfg.Launch.Workers)
	fmt.Fprintf(&sb, "\ttimeout: %d\n", cfg.Launch.Timeout)
	sb.WriteString("}\n")

	sb.WriteString("\nui: {\n")
	fmt.Fprintf(&sb, "\tverbose: %v\n", cfg.UI.Verbose)
	sb.WriteString("}\n")

	return sb.String()
}

func cueList(items []string) string {
	quoted := make([]string, len(items))
	for i, it := range items {
		quoted[i] = fmt.Sprintf("%q", it)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}
