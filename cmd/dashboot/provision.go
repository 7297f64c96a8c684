// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/invowk/dashboot/internal/config"
	"github.com/invowk/dashboot/internal/container"
	"github.com/invowk/dashboot/internal/issue"
	"github.com/invowk/dashboot/internal/provision"
)

const (
	reportText = "text"
	reportJSON = "json"
)

// provisionOptions are the flags of `dashboot provision`.
type provisionOptions struct {
	target       string
	tag          string
	report       string
	root         string
	noCache      bool
	forceRebuild bool
	skipSelfTest bool
	dryRun       bool
}

func newProvisionCommand(app *App, flags *rootFlags) *cobra.Command {
	opts := provisionOptions{}

	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Provision the dashboard image or this host",
		Long: `Provision the dashboard environment.

With --target image (the default) the steps become Dockerfile instructions and
the image is built with podman or docker, then the browser version probe runs
inside it. With --target host the same steps run on this machine through the
embedded POSIX shell.

--dry-run prints the Dockerfile or shell script instead of executing anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProvision(cmd, app, flags, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.target, "target", "t", "", "provisioning target: image or host (default from config)")
	cmd.Flags().StringVar(&opts.tag, "tag", "", "image tag (default is a content-addressed dashboard:<hash>)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "build the image without the engine layer cache")
	cmd.Flags().BoolVar(&opts.forceRebuild, "force-rebuild", false, "rebuild even when the tagged image exists")
	cmd.Flags().BoolVar(&opts.skipSelfTest, "skip-self-test", false, "skip the browser version probe")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "print the Dockerfile or script without executing it")
	cmd.Flags().StringVar(&opts.report, "report", reportText, "report format: text or json")
	cmd.Flags().StringVar(&opts.root, "root", "", "host target: write files below this directory instead of /")

	return cmd
}

func runProvision(cmd *cobra.Command, app *App, flags *rootFlags, opts provisionOptions) error {
	ctx := cmd.Context()

	if opts.report != reportText && opts.report != reportJSON {
		return fmt.Errorf("invalid report format %q (valid: text, json)", opts.report)
	}

	cfg, _, err := app.loadConfig(ctx, flags)
	if err != nil {
		renderIssue(app.stderr, issue.ConfigLoadFailedId, flags.verbose)
		return err
	}
	if err := applyTarget(cfg, opts.target); err != nil {
		return err
	}
	if opts.tag != "" {
		cfg.Image.Tag = opts.tag
	}
	if opts.noCache {
		cfg.Image.NoCache = true
	}

	if opts.dryRun {
		out, err := renderArtifact(ctx, cfg)
		if err != nil {
			return err
		}
		fmt.Fprint(app.stdout, out)
		return nil
	}

	target := provision.Target(cfg.Target)
	plan, err := provision.NewPlan(target, provisionConfig(cfg), provision.PlanOptions{
		Build:           target == provision.TargetImage,
		SelfTest:        !opts.skipSelfTest,
		ResolveManifest: true,
	})
	if err != nil {
		return err
	}

	x, err := app.newExecutor(cfg, opts)
	if err != nil {
		fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, flags.verbose))
		renderIssue(app.stderr, issue.ContainerEngineNotFoundId, flags.verbose)
		cmd.SilenceErrors = true
		return &ExitError{Code: 1, Err: err}
	}

	pipeline := provision.NewPipeline(provision.WithLogger(app.newLogger(flags.verbose)))
	report, runErr := pipeline.Run(ctx, plan, x)

	if report != nil {
		if err := writeReport(app.stdout, report, opts.report); err != nil {
			return err
		}
	}

	if runErr != nil {
		fmt.Fprintln(app.stderr, ErrorStyle.Render("Error: ")+formatErrorForDisplay(stepFailure(runErr), flags.verbose))
		var se *provision.StepError
		if errors.As(runErr, &se) {
			renderIssue(app.stderr, se.Kind.IssueID(), flags.verbose)
		}
		cmd.SilenceErrors = true
		return &ExitError{Code: provision.ExitCode(runErr), Err: runErr}
	}

	return nil
}

// applyTarget overrides the configured target and revalidates the whole
// configuration, since required fields depend on the target.
func applyTarget(cfg *config.Config, override string) error {
	if override != "" {
		cfg.Target = config.Target(override)
	}
	return cfg.Validate()
}

// provisionConfig maps the loaded configuration onto the pipeline's inputs.
// The manifest resolves against the image build context, or the working
// directory on the host.
func provisionConfig(cfg *config.Config) provision.Config {
	manifestDir := "."
	if cfg.Target == config.TargetImage {
		manifestDir = cfg.Image.ContextDir
	}
	return provision.Config{
		OSPackages:     cfg.OSPackages,
		Key:            cfg.KeyImport(),
		Source:         cfg.PackageSource(),
		BrowserPackage: cfg.Browser.Package,
		BrowserBinary:  cfg.Browser.Binary,
		MinVersion:     cfg.Browser.MinVersion,
		Manifest:       cfg.Manifest,
		ManifestDir:    manifestDir,
		Env:            cfg.RuntimeEnv(),
		Contract:       cfg.Contract(),
	}
}

func imageOptions(cfg *config.Config) provision.ImageOptions {
	return provision.ImageOptions{
		Base:       cfg.Image.Base,
		Workdir:    cfg.Image.Workdir,
		ContextDir: cfg.Image.ContextDir,
		Tag:        cfg.Image.Tag,
		NoCache:    cfg.Image.NoCache,
	}
}

// newExecutor returns the live executor for the configured target. Command
// output goes to stderr so that stdout carries only the report.
func (a *App) newExecutor(cfg *config.Config, opts provisionOptions) (provision.Executor, error) {
	if cfg.Target == config.TargetHost {
		hopts := []provision.HostExecutorOption{
			provision.WithHostFetcher(a.Fetcher),
			provision.WithOutput(a.stderr, a.stderr),
		}
		if opts.root != "" {
			hopts = append(hopts, provision.WithRoot(opts.root))
		}
		return provision.NewHostExecutor(a.Runner, hopts...), nil
	}

	engine, err := a.Engines(container.EngineType(cfg.ContainerEngine))
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("select container engine").
			WithResource(string(cfg.ContainerEngine)).
			WithSuggestion("Install podman or docker and make sure it is on PATH").
			WithSuggestion("Use --target host to provision this machine instead").
			Wrap(err).
			BuildError()
	}

	iopts := imageOptions(cfg)
	iopts.ForceRebuild = opts.forceRebuild
	iopts.Env = cfg.RuntimeEnv().Environ()
	iopts.Stdout = a.stderr
	iopts.Stderr = a.stderr
	return provision.NewImageExecutor(iopts,
		provision.WithEngine(engine),
		provision.WithFetcher(a.Fetcher),
	), nil
}

// stepFailure wraps a pipeline failure with the suggestions for its kind.
func stepFailure(err error) error {
	var se *provision.StepError
	if !errors.As(err, &se) {
		return err
	}

	ctx := issue.NewErrorContext().
		WithOperation("provision step " + se.Step.String()).
		WithResource(se.State.String())

	switch se.Kind {
	case provision.KindNetworkFetch:
		ctx.WithSuggestion("Check network access to the vendor key URL and package mirrors")
	case provision.KindTrustImport:
		ctx.WithSuggestions(
			"Verify the key URL serves an OpenPGP public key",
			"Set source.trust_mode to legacy on hosts without keyring support",
		)
	case provision.KindManifestResolution:
		ctx.WithSuggestion("Create requirements.txt next to the application, even if empty")
	case provision.KindImageBuild:
		ctx.WithSuggestion("Rebuild with --no-cache if a cached layer is stale")
	case provision.KindSelfTest:
		ctx.WithSuggestion("Run the browser with --version manually to inspect its output")
	default:
		ctx.WithSuggestion("Re-run with --verbose to see the failing command's output")
	}

	return ctx.Wrap(err).BuildError()
}

// writeReport prints the run report as JSON or as styled text.
func writeReport(w io.Writer, report *provision.Report, format string) error {
	if format == reportJSON {
		return report.WriteJSON(w)
	}

	fmt.Fprintf(w, "%s %s %s\n", TitleStyle.Render("Run"), report.RunID, SubtitleStyle.Render("("+report.Target.String()+")"))
	for _, tr := range report.Transitions {
		style := SuccessStyle
		if tr.To == provision.StateFailed {
			style = ErrorStyle
		}
		fmt.Fprintf(w, "  %s -> %s  %s %s\n",
			tr.From, style.Render(tr.To.String()), CmdStyle.Render(tr.Step.String()),
			SubtitleStyle.Render(tr.Duration.Round(time.Millisecond).String()))
	}

	if report.Succeeded() {
		fmt.Fprintf(w, "%s %s in %s\n", reportLabelStyle.Render("Result:"), SuccessStyle.Render(report.Final.String()),
			report.Duration.Round(time.Millisecond))
		return nil
	}
	fmt.Fprintf(w, "%s %s at %s (%s, exit %d)\n", reportLabelStyle.Render("Result:"), ErrorStyle.Render(report.Final.String()),
		CmdStyle.Render(report.FailedStep.String()), report.Kind, report.ExitCode)
	return nil
}

// renderArtifact runs the configured target's plan through a render-only
// executor and returns the Dockerfile or the shell script.
func renderArtifact(ctx context.Context, cfg *config.Config) (string, error) {
	target := provision.Target(cfg.Target)
	plan, err := provision.NewPlan(target, provisionConfig(cfg), provision.PlanOptions{
		SelfTest: target == provision.TargetHost,
	})
	if err != nil {
		return "", err
	}

	pipeline := provision.NewPipeline()
	if target == provision.TargetHost {
		x := provision.NewScriptExecutor()
		if _, err := pipeline.Run(ctx, plan, x); err != nil {
			return "", err
		}
		return x.Render()
	}

	x := provision.NewImageExecutor(imageOptions(cfg))
	if _, err := pipeline.Run(ctx, plan, x); err != nil {
		return "", err
	}
	return x.Dockerfile(), nil
}
