// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/invowk/dashboot/internal/launch"
)

func newContractCommand(app *App, flags *rootFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "contract",
		Short: "Print the launch contract and runtime environment",
		Long: `Print the launch contract: the application server command line, its bind
address and the process-wide environment. This is the handoff a platform needs
to start a host-provisioned dashboard the same way the image does.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := launch.Format(format)
			if err := f.Validate(); err != nil {
				return err
			}

			cfg, _, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}

			c := cfg.Contract()
			if err := c.Validate(); err != nil {
				return err
			}
			return launch.Export(app.stdout, launch.NewHandoff(c, cfg.RuntimeEnv()), f)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(launch.FormatJSON), "output format: json, yaml, toml, procfile or argv")
	return cmd
}
