// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invowk/dashboot/internal/launch"
)

type (
	// Dockerfile accumulates instructions. Consecutive RUN instructions added
	// under the same milestone are merged into one layer.
	Dockerfile struct {
		instructions []instruction
	}

	instruction struct {
		op        string
		args      string
		milestone State
		comment   string
	}
)

// NewDockerfile starts a Dockerfile from base with the given working directory.
func NewDockerfile(base, workdir string) *Dockerfile {
	d := &Dockerfile{}
	d.add(instruction{op: "FROM", args: base, milestone: StateStart})
	if workdir != "" {
		d.add(instruction{op: "WORKDIR", args: workdir, milestone: StateStart})
	}
	return d
}

// Comment attaches a comment line to the next instruction.
func (d *Dockerfile) Comment(milestone State, text string) {
	d.add(instruction{op: "#", args: text, milestone: milestone})
}

// Run adds a RUN instruction, merging it into the previous RUN when both belong
// to the same milestone.
func (d *Dockerfile) Run(milestone State, line string) {
	if n := len(d.instructions); n > 0 {
		last := &d.instructions[n-1]
		if last.op == "RUN" && last.milestone == milestone {
			last.args += " && " + line
			return
		}
	}
	d.add(instruction{op: "RUN", args: line, milestone: milestone})
}

// Copy adds a COPY instruction.
func (d *Dockerfile) Copy(milestone State, src, dst string) {
	d.add(instruction{op: "COPY", args: src + " " + dst, milestone: milestone})
}

// Env adds one ENV instruction per variable.
func (d *Dockerfile) Env(milestone State, vars []launch.Var) {
	for _, v := range vars {
		d.add(instruction{op: "ENV", args: v.Name + "=" + v.Value, milestone: milestone})
	}
}

// Expose adds an EXPOSE instruction.
func (d *Dockerfile) Expose(milestone State, port launch.Port) {
	d.add(instruction{op: "EXPOSE", args: port.String(), milestone: milestone})
}

// Cmd adds an exec-form CMD instruction.
func (d *Dockerfile) Cmd(milestone State, argv []string) error {
	data, err := json.Marshal(argv)
	if err != nil {
		return fmt.Errorf("encode CMD: %w", err)
	}
	d.add(instruction{op: "CMD", args: string(data), milestone: milestone})
	return nil
}

// String renders the Dockerfile. A blank line separates milestones.
func (d *Dockerfile) String() string {
	var sb strings.Builder
	for i, in := range d.instructions {
		if i > 0 && in.milestone != d.instructions[i-1].milestone {
			sb.WriteString("\n")
		}
		if in.op == "#" {
			fmt.Fprintf(&sb, "# %s\n", in.args)
			continue
		}
		fmt.Fprintf(&sb, "%s %s\n", in.op, in.args)
	}
	return sb.String()
}

// Instructions returns the number of instructions, excluding comments.
func (d *Dockerfile) Instructions() int {
	n := 0
	for _, in := range d.instructions {
		if in.op != "#" {
			n++
		}
	}
	return n
}

func (d *Dockerfile) add(in instruction) {
	d.instructions = append(d.instructions, in)
}
