// SPDX-License-Identifier: MPL-2.0

package shell

import (
	"bytes"
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Script accumulates command lines into a fail-fast bash script.
type Script struct {
	lines []string
}

// NewScript starts a script with the bash shebang and errexit enabled.
func NewScript() *Script {
	return &Script{lines: []string{"#!/usr/bin/env bash", "set -e"}}
}

// Comment appends a "# text" line.
func (s *Script) Comment(format string, args ...any) {
	s.lines = append(s.lines, "", "# "+fmt.Sprintf(format, args...))
}

// Line appends a raw command line.
func (s *Script) Line(line string) {
	s.lines = append(s.lines, line)
}

// Command appends a quoted command.
func (s *Script) Command(c Command) {
	s.Line(c.String())
}

// String returns the script text as written.
func (s *Script) String() string {
	return strings.Join(s.lines, "\n") + "\n"
}

// Format parses the script and prints it back in canonical form, which also
// proves the rendered script is syntactically valid bash.
func (s *Script) Format() (string, error) {
	src := s.String()
	prog, err := Parse(src)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := syntax.NewPrinter(syntax.Indent(2), syntax.SpaceRedirects(true)).Print(&buf, prog); err != nil {
		return "", fmt.Errorf("failed to print script: %w", err)
	}
	return buf.String(), nil
}
