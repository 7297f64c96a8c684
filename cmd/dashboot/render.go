// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/invowk/dashboot/internal/config"
)

const (
	artifactDockerfile = "dockerfile"
	artifactScript     = "script"
)

func newRenderCommand(app *App, flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:       "render dockerfile|script",
		Short:     "Print the rendered Dockerfile or host script",
		Long:      "Print the Dockerfile (image target) or the POSIX shell script (host target) without executing anything.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{artifactDockerfile, artifactScript},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}

			target := config.TargetImage
			if args[0] == artifactScript {
				target = config.TargetHost
			}
			if err := applyTarget(cfg, string(target)); err != nil {
				return err
			}

			out, err := renderArtifact(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}
}
