// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"errors"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// ErrEmptyCommand is returned when a Command has no program name.
var ErrEmptyCommand = errors.New("empty command")

type (
	// Command is an argv-style command: the program followed by its arguments.
	Command []string

	// Pipeline is a sequence of commands whose stdout feeds the next command's stdin.
	Pipeline []Command
)

// Validate returns ErrEmptyCommand if the command has no program.
func (c Command) Validate() error {
	if len(c) == 0 || strings.TrimSpace(c[0]) == "" {
		return ErrEmptyCommand
	}
	return nil
}

// String renders the command as a single shell-quoted line.
// Arguments that cannot be represented in bash (e.g. NUL bytes) are rendered with %q.
func (c Command) String() string {
	parts := make([]string, 0, len(c))
	for _, arg := range c {
		parts = append(parts, Quote(arg))
	}
	return strings.Join(parts, " ")
}

// String renders the pipeline joined with " | ".
func (p Pipeline) String() string {
	parts := make([]string, 0, len(p))
	for _, c := range p {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, " | ")
}

// Quote returns arg quoted for bash, leaving plain words untouched.
func Quote(arg string) string {
	q, err := syntax.Quote(arg, syntax.LangBash)
	if err != nil {
		return fmt.Sprintf("%q", arg)
	}
	return q
}

// AndThen joins command lines with " && " the way a Dockerfile RUN chains steps.
func AndThen(lines ...string) string {
	return strings.Join(lines, " && ")
}

// WriteFileLines returns command lines that write content to target, one
// printf per line with the first truncating the file.
func WriteFileLines(target string, content []byte) []string {
	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	out := make([]string, 0, len(lines))
	for i, l := range lines {
		redirect := ">>"
		if i == 0 {
			redirect = ">"
		}
		out = append(out, fmt.Sprintf(`printf '%%s\n' %s %s %s`, Quote(l), redirect, Quote(target)))
	}
	return out
}
