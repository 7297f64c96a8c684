// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/invowk/dashboot/internal/provision"
)

func newPlanCommand(app *App, flags *rootFlags) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show the provisioning steps for a target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := app.loadConfig(cmd.Context(), flags)
			if err != nil {
				return err
			}
			if err := applyTarget(cfg, target); err != nil {
				return err
			}

			t := provision.Target(cfg.Target)
			plan, err := provision.NewPlan(t, provisionConfig(cfg), provision.PlanOptions{
				Build:           t == provision.TargetImage,
				SelfTest:        true,
				ResolveManifest: true,
			})
			if err != nil {
				return err
			}

			out, err := glamour.Render(planMarkdown(plan), "dark")
			if err != nil {
				return fmt.Errorf("failed to render plan: %w", err)
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&target, "target", "t", "", "provisioning target: image or host (default from config)")
	return cmd
}

// planMarkdown renders a plan as a markdown table, one row per step.
func planMarkdown(plan *provision.Plan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s plan\n\n", plan.Target)
	b.WriteString("| # | Step | Reaches | Fails as | Summary |\n")
	b.WriteString("|---|------|---------|----------|---------|\n")
	for i, s := range plan.Steps {
		summary := strings.ReplaceAll(s.Summary, "|", `\|`)
		fmt.Fprintf(&b, "| %d | `%s` | %s | %s | %s |\n", i+1, s.ID, s.Milestone, s.Kind, summary)
	}
	return b.String()
}
