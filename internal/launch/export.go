// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/invowk/dashboot/internal/shell"
)

const (
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
	FormatTOML     Format = "toml"
	FormatProcfile Format = "procfile"
	FormatArgv     Format = "argv"
)

// ErrInvalidFormat is returned when an export Format is not recognized.
var ErrInvalidFormat = errors.New("invalid export format")

type (
	// Format selects how Export renders the handoff.
	Format string

	// Handoff is the platform-facing view of the contract: what to run and with
	// which environment.
	Handoff struct {
		Command        []string `json:"command" yaml:"command" toml:"command"`
		Contract       Contract `json:"contract" yaml:"contract" toml:"contract"`
		TimeoutSeconds int      `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
		Env            []Var    `json:"env" yaml:"env" toml:"env"`
	}
)

// Formats lists every supported export format.
func Formats() []Format {
	return []Format{FormatJSON, FormatYAML, FormatTOML, FormatProcfile, FormatArgv}
}

// Validate returns an error wrapping ErrInvalidFormat for unknown formats.
func (f Format) Validate() error {
	switch f {
	case FormatJSON, FormatYAML, FormatTOML, FormatProcfile, FormatArgv:
		return nil
	default:
		return fmt.Errorf("%w %q (valid: json, yaml, toml, procfile, argv)", ErrInvalidFormat, f)
	}
}

// NewHandoff builds the handoff for a contract and environment.
func NewHandoff(c Contract, env Env) Handoff {
	return Handoff{
		Command:        c.Argv(),
		Contract:       c,
		TimeoutSeconds: c.TimeoutSeconds(),
		Env:            env.Vars(),
	}
}

// Export writes the handoff in the requested format.
func Export(w io.Writer, h Handoff, format Format) error {
	if err := format.Validate(); err != nil {
		return err
	}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(h)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(h); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatTOML:
		if err := toml.NewEncoder(w).Encode(h); err != nil {
			return fmt.Errorf("failed to encode toml: %w", err)
		}
		return nil
	case FormatProcfile:
		_, err := fmt.Fprintf(w, "web: %s%s\n", envPrefix(h.Env), shell.Command(h.Command).String())
		return err
	default:
		_, err := fmt.Fprintln(w, shell.Command(h.Command).String())
		return err
	}
}

func envPrefix(vars []Var) string {
	var sb strings.Builder
	for _, v := range vars {
		sb.WriteString(v.Name)
		sb.WriteString("=")
		sb.WriteString(shell.Quote(v.Value))
		sb.WriteString(" ")
	}
	return sb.String()
}
