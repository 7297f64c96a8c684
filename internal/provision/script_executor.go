// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"

	"github.com/invowk/dashboot/internal/launch"
	"github.com/invowk/dashboot/internal/shell"
	"github.com/invowk/dashboot/internal/trust"
)

// Compile-time interface checks
var (
	_ Executor  = (*ScriptExecutor)(nil)
	_ StepAware = (*ScriptExecutor)(nil)
)

// ScriptExecutor records steps as a fail-fast bash script instead of running
// them, for hosting platforms that run their own build command.
type ScriptExecutor struct {
	script *shell.Script
}

// NewScriptExecutor creates an empty ScriptExecutor.
func NewScriptExecutor() *ScriptExecutor {
	return &ScriptExecutor{script: shell.NewScript()}
}

// BeginStep writes the step summary as a comment.
func (x *ScriptExecutor) BeginStep(step Step) {
	x.script.Comment("%s (%s)", step.ID, step.Milestone)
}

// Run appends line.
func (x *ScriptExecutor) Run(_ context.Context, line string) error {
	x.script.Line(line)
	return nil
}

// WriteFile appends printf commands that write content to path.
func (x *ScriptExecutor) WriteFile(_ context.Context, path string, content []byte) error {
	for _, line := range shell.WriteFileLines(path, content) {
		x.script.Line(line)
	}
	return nil
}

// ImportKey appends a download piped into gpg or apt-key.
func (x *ScriptExecutor) ImportKey(_ context.Context, imp trust.Import) error {
	if err := imp.Validate(); err != nil {
		return err
	}
	fetch := shell.Command{"wget", "-q", "-O", "-", imp.URL}
	sink := shell.Command{"apt-key", "add", "-"}
	if imp.Mode.Scoped() {
		sink = shell.Command{"gpg", "--dearmor", "-o", imp.KeyringPath}
	}
	x.script.Line(shell.Pipeline{fetch, sink}.String())
	return nil
}

// SetEnv appends export statements.
func (x *ScriptExecutor) SetEnv(_ context.Context, vars []launch.Var) error {
	for _, v := range vars {
		x.script.Line("export " + v.Name + "=" + shell.Quote(v.Value))
	}
	return nil
}

// Render returns the canonical form of the script, failing if it is not valid bash.
func (x *ScriptExecutor) Render() (string, error) {
	return x.script.Format()
}
