// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/invowk/dashboot/internal/issue"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// NewRootCommand builds the command tree for app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "dashboot",
		Short: "Provision and launch the headless-browser dashboard",
		Long: TitleStyle.Render("dashboot") + SubtitleStyle.Render(" - Provision and launch the headless-browser dashboard") + `

dashboot prepares an environment for the dashboard web service: OS packages,
the browser vendor's signing key and package source, the browser engine and
the Python dependencies. It either assembles a container image or provisions
the current host, and both end with the same gunicorn launch contract.

` + SubtitleStyle.Render("Examples:") + `
  dashboot provision                   Build the dashboard image
  dashboot provision --target host     Provision this host in place
  dashboot render dockerfile           Print the rendered Dockerfile
  dashboot plan --target host          Show the host provisioning steps
  dashboot contract --format yaml      Print the launch contract
  dashboot launch                      Start the application server`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/dashboot/config.cue)")

	rootCmd.AddCommand(newProvisionCommand(app, flags))
	rootCmd.AddCommand(newRenderCommand(app, flags))
	rootCmd.AddCommand(newPlanCommand(app, flags))
	rootCmd.AddCommand(newContractCommand(app, flags))
	rootCmd.AddCommand(newLaunchCommand(app, flags))
	rootCmd.AddCommand(newConfigCommand(app, flags))

	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	return rootCmd
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the code of the first failing command.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// renderIssue prints the issue page for id when verbose is set.
func renderIssue(w io.Writer, id issue.Id, verbose bool) {
	if !verbose {
		return
	}
	page := issue.Get(id)
	if page == nil {
		return
	}
	rendered, err := page.Render("dark")
	if err != nil {
		return
	}
	fmt.Fprint(w, rendered)
}
