// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invowk/dashboot/internal/aptsource"
	"github.com/invowk/dashboot/internal/launch"
	"github.com/invowk/dashboot/internal/manifest"
	"github.com/invowk/dashboot/internal/selftest"
	"github.com/invowk/dashboot/internal/trust"
)

const (
	// TargetImage produces an immutable container image.
	TargetImage Target = "image"
	// TargetHost provisions the running host in place.
	TargetHost Target = "host"

	// ContainerEnginePodman uses Podman as the container runtime.
	ContainerEnginePodman ContainerEngine = "podman"
	// ContainerEngineDocker uses Docker as the container runtime.
	ContainerEngineDocker ContainerEngine = "docker"

	// TrustModeDefault selects the target's default trust mode.
	TrustModeDefault TrustMode = ""
	// TrustModeKeyring scopes the signing key to the vendor source.
	TrustModeKeyring TrustMode = "keyring"
	// TrustModeLegacy imports the signing key into the global apt-key store.
	TrustModeLegacy TrustMode = "legacy"

	// DefaultBaseImage is the image the dashboard image is built from.
	DefaultBaseImage = "python:3.11-slim"
	// DefaultWorkdir is the application directory inside the image.
	DefaultWorkdir = "/app"
)

var (
	// ErrInvalidTarget is returned when a Target value is not recognized.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrInvalidContainerEngine is returned when a ContainerEngine value is not recognized.
	ErrInvalidContainerEngine = errors.New("invalid container engine")
	// ErrInvalidTrustMode is returned when a TrustMode value is not recognized.
	ErrInvalidTrustMode = errors.New("invalid trust mode")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// Target selects the provisioning target.
	Target string

	// InvalidTargetError is returned when a Target value is not recognized.
	InvalidTargetError struct {
		Value Target
	}

	// ContainerEngine specifies which container runtime builds the image.
	ContainerEngine string

	// InvalidContainerEngineError is returned when a ContainerEngine value is not recognized.
	InvalidContainerEngineError struct {
		Value ContainerEngine
	}

	// TrustMode specifies how the vendor signing key is trusted.
	// The zero value defers to the target: keyring for image, legacy for host.
	TrustMode string

	// InvalidTrustModeError is returned when a TrustMode value is not recognized.
	InvalidTrustModeError struct {
		Value TrustMode
	}

	// InvalidConfigError collects every field error found by Config.Validate.
	InvalidConfigError struct {
		FieldErrs []error
	}

	// Config holds the application configuration.
	Config struct {
		// Target selects the provisioning target
		Target Target `json:"target" mapstructure:"target"`
		// ContainerEngine specifies whether to build with podman or docker
		ContainerEngine ContainerEngine `json:"container_engine" mapstructure:"container_engine"`
		// Image configures the image build
		Image ImageConfig `json:"image" mapstructure:"image"`
		// Browser configures the browser engine package and its probe
		Browser BrowserConfig `json:"browser" mapstructure:"browser"`
		// Source configures the vendor package repository and its signing key
		Source SourceConfig `json:"source" mapstructure:"source"`
		// OSPackages are installed before the signing key is fetched
		OSPackages []string `json:"os_packages" mapstructure:"os_packages"`
		// Manifest is the language dependency manifest
		Manifest string `json:"manifest" mapstructure:"manifest"`
		// Env is the process-wide runtime environment
		Env EnvConfig `json:"env" mapstructure:"env"`
		// Launch is the application server invocation
		Launch LaunchConfig `json:"launch" mapstructure:"launch"`
		// UI configures the user interface
		UI UIConfig `json:"ui" mapstructure:"ui"`
	}

	// ImageConfig configures the image build.
	ImageConfig struct {
		Base    string `json:"base" mapstructure:"base"`
		Tag     string `json:"tag" mapstructure:"tag"`
		Workdir string `json:"workdir" mapstructure:"workdir"`
		// ContextDir is the application source directory copied into the image
		ContextDir string `json:"context_dir" mapstructure:"context_dir"`
		NoCache    bool   `json:"no_cache" mapstructure:"no_cache"`
	}

	// BrowserConfig configures the browser engine.
	BrowserConfig struct {
		Package string `json:"package" mapstructure:"package"`
		Binary  string `json:"binary" mapstructure:"binary"`
		// MinVersion is an optional semver constraint, e.g. ">= 114"
		MinVersion string `json:"min_version" mapstructure:"min_version"`
	}

	// SourceConfig configures the vendor package repository.
	SourceConfig struct {
		URL        string    `json:"url" mapstructure:"url"`
		Suite      string    `json:"suite" mapstructure:"suite"`
		Components []string  `json:"components" mapstructure:"components"`
		Arch       string    `json:"arch" mapstructure:"arch"`
		KeyURL     string    `json:"key_url" mapstructure:"key_url"`
		Keyring    string    `json:"keyring" mapstructure:"keyring"`
		ListPath   string    `json:"list_path" mapstructure:"list_path"`
		TrustMode  TrustMode `json:"trust_mode" mapstructure:"trust_mode"`
	}

	// EnvConfig is the runtime environment.
	EnvConfig struct {
		Unbuffered bool `json:"unbuffered" mapstructure:"unbuffered"`
		Headless   bool `json:"headless" mapstructure:"headless"`
	}

	// LaunchConfig is the application server invocation.
	LaunchConfig struct {
		Server  string `json:"server" mapstructure:"server"`
		App     string `json:"app" mapstructure:"app"`
		Host    string `json:"host" mapstructure:"host"`
		Port    int    `json:"port" mapstructure:"port"`
		Workers int    `json:"workers" mapstructure:"workers"`
		// Timeout is the worker timeout in seconds
		Timeout int `json:"timeout" mapstructure:"timeout"`
	}

	// UIConfig configures the user interface.
	UIConfig struct {
		// Verbose enables debug logging and issue pages on failure
		Verbose bool `json:"verbose" mapstructure:"verbose"`
	}
)

// Error implements the error interface.
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q (valid: image, host)", e.Value)
}

// Unwrap returns ErrInvalidTarget for errors.Is() compatibility.
func (e *InvalidTargetError) Unwrap() error { return ErrInvalidTarget }

// Validate returns an error if the Target is not image or host.
func (t Target) Validate() error {
	switch t {
	case TargetImage, TargetHost:
		return nil
	default:
		return &InvalidTargetError{Value: t}
	}
}

// String returns the string representation of the Target.
func (t Target) String() string { return string(t) }

// Error implements the error interface.
func (e *InvalidContainerEngineError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: podman, docker)", e.Value)
}

// Unwrap returns ErrInvalidContainerEngine for errors.Is() compatibility.
func (e *InvalidContainerEngineError) Unwrap() error { return ErrInvalidContainerEngine }

// Validate returns an error if the ContainerEngine is not podman or docker.
func (ce ContainerEngine) Validate() error {
	switch ce {
	case ContainerEnginePodman, ContainerEngineDocker:
		return nil
	default:
		return &InvalidContainerEngineError{Value: ce}
	}
}

// String returns the string representation of the ContainerEngine.
func (ce ContainerEngine) String() string { return string(ce) }

// Error implements the error interface.
func (e *InvalidTrustModeError) Error() string {
	return fmt.Sprintf("invalid trust mode %q (valid: keyring, legacy, or empty for the target default)", e.Value)
}

// Unwrap returns ErrInvalidTrustMode for errors.Is() compatibility.
func (e *InvalidTrustModeError) Unwrap() error { return ErrInvalidTrustMode }

// Validate returns an error if the TrustMode is not recognized.
// The zero value is valid.
func (m TrustMode) Validate() error {
	switch m {
	case TrustModeDefault, TrustModeKeyring, TrustModeLegacy:
		return nil
	default:
		return &InvalidTrustModeError{Value: m}
	}
}

// String returns the string representation of the TrustMode.
func (m TrustMode) String() string { return string(m) }

// Resolve returns the concrete trust mode for target.
func (m TrustMode) Resolve(target Target) trust.Mode {
	switch {
	case m != TrustModeDefault:
		return trust.Mode(m)
	case target == TargetHost:
		return trust.ModeLegacy
	default:
		return trust.ModeKeyring
	}
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %v", errors.Join(e.FieldErrs...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// Validate checks every typed field and every derived value.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Target.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.ContainerEngine.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Source.TrustMode.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Contract().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Source.TrustMode.Validate() == nil && c.Target.Validate() == nil {
		if err := c.PackageSource().Validate(); err != nil {
			errs = append(errs, err)
		}
		if err := c.KeyImport().Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := selftest.ValidateConstraint(c.Browser.MinVersion); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Browser.Package) == "" {
		errs = append(errs, errors.New("browser.package is required"))
	}
	if strings.TrimSpace(c.Browser.Binary) == "" {
		errs = append(errs, errors.New("browser.binary is required"))
	}
	if strings.TrimSpace(c.Manifest) == "" {
		errs = append(errs, errors.New("manifest is required"))
	}
	if c.Target == TargetImage && strings.TrimSpace(c.Image.Base) == "" {
		errs = append(errs, errors.New("image.base is required for the image target"))
	}

	if len(errs) > 0 {
		return &InvalidConfigError{FieldErrs: errs}
	}
	return nil
}

// TrustMode returns the concrete trust mode for the configured target.
func (c *Config) TrustMode() trust.Mode {
	return c.Source.TrustMode.Resolve(c.Target)
}

// PackageSource returns the vendor repository registration.
func (c *Config) PackageSource() aptsource.Source {
	return aptsource.Source{
		URL:        c.Source.URL,
		Suite:      c.Source.Suite,
		Components: c.Source.Components,
		Arch:       c.Source.Arch,
		Keyring:    c.Source.Keyring,
		ListPath:   c.Source.ListPath,
		Mode:       c.TrustMode(),
	}
}

// KeyImport returns the signing key import description.
func (c *Config) KeyImport() trust.Import {
	return trust.Import{
		URL:         c.Source.KeyURL,
		Mode:        c.TrustMode(),
		KeyringPath: c.Source.Keyring,
	}
}

// Contract returns the launch contract.
// The bind port is taken from the config only; the process environment is never consulted.
func (c *Config) Contract() launch.Contract {
	return launch.Contract{
		Server:  c.Launch.Server,
		App:     c.Launch.App,
		Host:    c.Launch.Host,
		Port:    launch.Port(clampPort(c.Launch.Port)),
		Workers: c.Launch.Workers,
		Timeout: time.Duration(c.Launch.Timeout) * time.Second,
	}
}

// RuntimeEnv returns the runtime environment value.
func (c *Config) RuntimeEnv() launch.Env {
	return launch.Env{Unbuffered: c.Env.Unbuffered, Headless: c.Env.Headless}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	contract := launch.DefaultContract()
	env := launch.DefaultEnv()
	src := aptsource.Default(trust.ModeKeyring)

	return &Config{
		Target:          TargetImage,
		ContainerEngine: ContainerEnginePodman,
		Image: ImageConfig{
			Base:       DefaultBaseImage,
			Tag:        "", // cache-keyed tag when empty
			Workdir:    DefaultWorkdir,
			ContextDir: ".",
		},
		Browser: BrowserConfig{
			Package: "google-chrome-stable",
			Binary:  "google-chrome",
		},
		Source: SourceConfig{
			URL:        src.URL,
			Suite:      src.Suite,
			Components: src.Components,
			Arch:       src.Arch,
			KeyURL:     trust.DefaultKeyURL,
			Keyring:    src.Keyring,
			ListPath:   src.ListPath,
			TrustMode:  TrustModeDefault,
		},
		OSPackages: []string{"wget", "gnupg", "unzip", "curl"},
		Manifest:   manifest.DefaultPath,
		Env: EnvConfig{
			Unbuffered: env.Unbuffered,
			Headless:   env.Headless,
		},
		Launch: LaunchConfig{
			Server:  contract.Server,
			App:     contract.App,
			Host:    contract.Host,
			Port:    int(contract.Port),
			Workers: contract.Workers,
			Timeout: contract.TimeoutSeconds(),
		},
	}
}

// clampPort maps out-of-range values to 0 so that contract validation rejects them.
func clampPort(p int) uint16 {
	if p <= 0 || p > 65535 {
		return 0
	}
	return uint16(p)
}
