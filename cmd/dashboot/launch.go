// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"os"
	"os/exec"

	"github.com/spf13/cobra"

	"github.com/invowk/dashboot/internal/issue"
)

func newLaunchCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "launch",
		Short: "Start the application server with the launch contract",
		Long: `Start the WSGI server exactly as the image's start command does.

The bind address comes from the contract only. A PORT variable in the
environment is passed through to the application but never changes the bind.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}

			c := cfg.Contract()
			if err := c.Validate(); err != nil {
				return issue.WrapWithOperation(err, "validate launch contract")
			}

			argv := c.Argv()
			server := app.Exec(cmd.Context(), argv[0], argv[1:]...)
			server.Env = cfg.RuntimeEnv().Merge(os.Environ())
			server.Stdin = os.Stdin
			server.Stdout = app.stdout
			server.Stderr = app.stderr

			app.newLogger(flags.verbose).Debug("launching", "bind", c.Bind(), "argv", argv)

			if err := server.Run(); err != nil {
				var exitErr *exec.ExitError
				if errors.As(err, &exitErr) {
					cmd.SilenceErrors = true
					return &ExitError{Code: exitErr.ExitCode(), Err: err}
				}
				return issue.WrapWithContext(err, "start application server", argv[0])
			}
			return nil
		},
	}
}
