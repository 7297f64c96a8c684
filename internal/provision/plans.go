// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/invowk/dashboot/internal/aptsource"
	"github.com/invowk/dashboot/internal/launch"
	"github.com/invowk/dashboot/internal/manifest"
	"github.com/invowk/dashboot/internal/selftest"
	"github.com/invowk/dashboot/internal/shell"
	"github.com/invowk/dashboot/internal/trust"
)

const (
	// TargetImage produces an immutable container image.
	TargetImage Target = "image"
	// TargetHost provisions the running host in place.
	TargetHost Target = "host"
)

var (
	// ErrInvalidTarget is returned for unknown targets.
	ErrInvalidTarget = errors.New("invalid target")
	// ErrNotImageTarget is returned when an image plan runs on a non-image executor.
	ErrNotImageTarget = errors.New("executor cannot assemble an image")
)

type (
	// Target selects the provisioning target.
	Target string

	// Config is everything a plan needs to know about the dashboard's environment.
	Config struct {
		// OSPackages are installed before the signing key is fetched (image only).
		OSPackages []string
		Key        trust.Import
		Source     aptsource.Source
		// BrowserPackage is the APT package name of the browser engine.
		BrowserPackage string
		// BrowserBinary is probed with --version.
		BrowserBinary string
		// MinVersion is an optional semver constraint on the probed version.
		MinVersion string
		// Manifest is the dependency manifest name, relative to ManifestDir.
		Manifest string
		// ManifestDir is where the manifest is resolved: the image build context
		// or the host working directory.
		ManifestDir string
		Env         launch.Env
		Contract    launch.Contract
	}

	// PlanOptions selects the optional parts of a plan.
	PlanOptions struct {
		// Build adds the build-image step (image target only).
		Build bool
		// SelfTest adds the verify-browser probe where the target can run it.
		SelfTest bool
		// ResolveManifest parses the manifest before installing it so that a
		// malformed file fails as manifest-resolution.
		ResolveManifest bool
	}
)

// Validate returns an error wrapping ErrInvalidTarget for unknown targets.
func (t Target) Validate() error {
	switch t {
	case TargetImage, TargetHost:
		return nil
	default:
		return fmt.Errorf("%w %q (valid: image, host)", ErrInvalidTarget, t)
	}
}

// String returns the string representation of the Target.
func (t Target) String() string { return string(t) }

// NewPlan returns the plan for target.
func NewPlan(target Target, cfg Config, opts PlanOptions) (*Plan, error) {
	switch target {
	case TargetImage:
		return ImagePlan(cfg, opts), nil
	case TargetHost:
		return HostPlan(cfg, opts), nil
	default:
		return nil, target.Validate()
	}
}

// ImagePlan returns the container image plan. Without opts.Build the plan ends
// at the declared start command; the self-test needs a built image.
func ImagePlan(cfg Config, opts PlanOptions) *Plan {
	steps := []Step{
		{
			ID:        StepInstallOSPackages,
			Milestone: StateOSDepsReady,
			Kind:      KindPackageManager,
			Summary:   "install " + strings.Join(cfg.OSPackages, ", "),
			Apply: func(ctx context.Context, x Executor) error {
				install := append(shell.Command{"apt-get", "install", "-y", "--no-install-recommends"}, cfg.OSPackages...)
				return x.Run(ctx, shell.AndThen("apt-get update", install.String()))
			},
		},
		importKeyStep(cfg),
		registerSourceStep(cfg),
		{
			ID:        StepInstallBrowser,
			Milestone: StateEngineInstalled,
			Kind:      KindPackageManager,
			Summary:   "install " + cfg.BrowserPackage + " from the vendor source",
			Apply: func(ctx context.Context, x Executor) error {
				return x.Run(ctx, shell.AndThen("apt-get update", shell.Command{"apt-get", "install", "-y", cfg.BrowserPackage}.String()))
			},
		},
		{
			ID:        StepPurgePackageCaches,
			Milestone: StateEngineInstalled,
			Kind:      KindPackageManager,
			Summary:   "purge package caches in the install layer",
			Apply: func(ctx context.Context, x Executor) error {
				return x.Run(ctx, shell.AndThen("apt-get clean", "rm -rf /var/lib/apt/lists/*"))
			},
		},
		{
			ID:        StepSetRuntimeEnv,
			Milestone: StateLangDepsReady,
			Kind:      KindPackageManager,
			Summary:   "set " + strings.Join(cfg.Env.Environ(), " "),
			Apply: func(ctx context.Context, x Executor) error {
				return x.SetEnv(ctx, cfg.Env.Vars())
			},
		},
		{
			ID:        StepInstallLanguageDeps,
			Milestone: StateLangDepsReady,
			Kind:      KindManifestResolution,
			Summary:   "install " + cfg.Manifest + " without a download cache, then copy the application",
			Apply: func(ctx context.Context, x Executor) error {
				img, ok := x.(ImageTarget)
				if !ok {
					return ErrNotImageTarget
				}
				if opts.ResolveManifest {
					if err := resolveManifest(ctx, cfg); err != nil {
						return err
					}
				}
				if err := img.CopyIn(ctx, cfg.Manifest, cfg.Manifest); err != nil {
					return err
				}
				install := shell.Command{"pip", "install", "--no-cache-dir", "-r", cfg.Manifest}
				if err := x.Run(ctx, install.String()); err != nil {
					return err
				}
				return img.CopyIn(ctx, ".", ".")
			},
		},
		{
			ID:        StepDeclareLaunch,
			Milestone: StateReady,
			Kind:      KindImageBuild,
			Summary:   "expose " + cfg.Contract.Port.String() + " and start " + strings.Join(cfg.Contract.Argv(), " "),
			Apply: func(ctx context.Context, x Executor) error {
				img, ok := x.(ImageTarget)
				if !ok {
					return ErrNotImageTarget
				}
				return img.Declare(ctx, cfg.Contract)
			},
		},
	}

	if opts.Build {
		steps = append(steps, Step{
			ID:        StepBuildImage,
			Milestone: StateReady,
			Kind:      KindImageBuild,
			Summary:   "build the image with the container engine",
			Apply: func(ctx context.Context, x Executor) error {
				b, ok := x.(Builder)
				if !ok {
					return errors.New("executor cannot build images")
				}
				tag, err := b.Build(ctx)
				if err != nil {
					return err
				}
				log.FromContext(ctx).Info("image built", "tag", tag)
				return nil
			},
		})
		if opts.SelfTest {
			steps = append(steps, verifyBrowserStep(cfg))
		}
	}

	return &Plan{Target: TargetImage, Steps: steps}
}

// HostPlan returns the in-place host plan. It never declares a start command;
// the hosting platform launches the server from the exported contract.
func HostPlan(cfg Config, opts PlanOptions) *Plan {
	steps := []Step{
		{
			ID:        StepUpgradeInstaller,
			Milestone: StateOSDepsReady,
			Kind:      KindPackageManager,
			Summary:   "upgrade pip",
			Apply: func(ctx context.Context, x Executor) error {
				return x.Run(ctx, "pip install --upgrade pip")
			},
		},
		{
			ID:        StepInstallLanguageDeps,
			Milestone: StateLangDepsReady,
			Kind:      KindManifestResolution,
			Summary:   "install " + cfg.Manifest,
			Apply: func(ctx context.Context, x Executor) error {
				if opts.ResolveManifest {
					if err := resolveManifest(ctx, cfg); err != nil {
						return err
					}
				}
				return x.Run(ctx, shell.Command{"pip", "install", "-r", cfg.Manifest}.String())
			},
		},
		importKeyStep(cfg),
		registerSourceStep(cfg),
		{
			ID:        StepInstallBrowser,
			Milestone: StateEngineInstalled,
			Kind:      KindPackageManager,
			Summary:   "install " + cfg.BrowserPackage + " from the vendor source",
			Apply: func(ctx context.Context, x Executor) error {
				if err := x.Run(ctx, "apt-get update"); err != nil {
					return err
				}
				return x.Run(ctx, shell.Command{"apt-get", "install", "-y", cfg.BrowserPackage}.String())
			},
		},
	}

	verify := verifyBrowserStep(cfg)
	if !opts.SelfTest {
		// Without a probe the version check is still emitted as a plain command.
		verify.Apply = func(ctx context.Context, x Executor) error {
			return x.Run(ctx, shell.Command{cfg.BrowserBinary, "--version"}.String())
		}
	}
	steps = append(steps, verify)

	return &Plan{Target: TargetHost, Steps: steps}
}

func importKeyStep(cfg Config) Step {
	summary := "import " + cfg.Key.URL + " into the global apt-key store"
	if cfg.Key.Mode.Scoped() {
		summary = "import " + cfg.Key.URL + " into " + cfg.Key.KeyringPath
	}
	return Step{
		ID:        StepImportSigningKey,
		Milestone: StateTrustEstablished,
		Kind:      KindTrustImport,
		Summary:   summary,
		Apply: func(ctx context.Context, x Executor) error {
			return x.ImportKey(ctx, cfg.Key)
		},
	}
}

func registerSourceStep(cfg Config) Step {
	return Step{
		ID:        StepRegisterPackageSource,
		Milestone: StateSourceRegistered,
		Kind:      KindPackageManager,
		Summary:   "write `" + cfg.Source.Line() + "` to " + cfg.Source.ListPath,
		Apply: func(ctx context.Context, x Executor) error {
			return x.WriteFile(ctx, cfg.Source.ListPath, cfg.Source.Content())
		},
	}
}

func verifyBrowserStep(cfg Config) Step {
	argv := []string{cfg.BrowserBinary, "--version"}
	return Step{
		ID:        StepVerifyBrowser,
		Milestone: StateReady,
		Kind:      KindSelfTest,
		Summary:   "run `" + strings.Join(argv, " ") + "` and require a version",
		Apply: func(ctx context.Context, x Executor) error {
			p, ok := x.(Prober)
			if !ok {
				return x.Run(ctx, shell.Command(argv).String())
			}
			out, err := p.Probe(ctx, argv)
			if err != nil {
				return err
			}
			res, err := selftest.Verify(out, cfg.MinVersion)
			if err != nil {
				return err
			}
			log.FromContext(ctx).Info("browser verified", "version", res.Version)
			return nil
		},
	}
}

// resolveManifest loads and parses the manifest so a bad file fails before pip runs.
func resolveManifest(ctx context.Context, cfg Config) error {
	m, err := manifest.Load(filepath.Join(cfg.ManifestDir, cfg.Manifest))
	if err != nil {
		return err
	}
	log.FromContext(ctx).Debug("manifest resolved", "path", m.Path, "requirements", len(m.Requirements))
	return nil
}
