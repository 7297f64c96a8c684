// SPDX-License-Identifier: MPL-2.0

package launch

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

func TestExport_Procfile(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Export(&buf, NewHandoff(DefaultContract(), DefaultEnv()), FormatProcfile); err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	want := "web: PYTHONUNBUFFERED=1 HEADLESS=true gunicorn --bind 0.0.0.0:5000 --workers 1 --timeout 120 dashboard:app\n"
	if buf.String() != want {
		t.Errorf("procfile = %q, want %q", buf.String(), want)
	}
}

func TestExport_Argv(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Export(&buf, NewHandoff(DefaultContract(), DefaultEnv()), FormatArgv); err != nil {
		t.Fatalf("Export() error: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "gunicorn --bind 0.0.0.0:5000 --workers 1 --timeout 120 dashboard:app" {
		t.Errorf("argv = %q", buf.String())
	}
}

func TestExport_StructuredFormats(t *testing.T) {
	t.Parallel()

	h := NewHandoff(DefaultContract(), DefaultEnv())

	decoders := map[Format]func([]byte, any) error{
		FormatJSON: json.Unmarshal,
		FormatYAML: yaml.Unmarshal,
		FormatTOML: toml.Unmarshal,
	}

	for format, decode := range decoders {
		t.Run(string(format), func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := Export(&buf, h, format); err != nil {
				t.Fatalf("Export(%s) error: %v", format, err)
			}

			var got struct {
				Command        []string `json:"command" yaml:"command" toml:"command"`
				TimeoutSeconds int      `json:"timeout_seconds" yaml:"timeout_seconds" toml:"timeout_seconds"`
				Contract       struct {
					Port int `json:"port" yaml:"port" toml:"port"`
				} `json:"contract" yaml:"contract" toml:"contract"`
			}
			if err := decode(buf.Bytes(), &got); err != nil {
				t.Fatalf("decode %s: %v\n%s", format, err, buf.String())
			}
			if got.Contract.Port != 5000 || got.TimeoutSeconds != 120 || len(got.Command) != 8 {
				t.Errorf("%s round trip lost fields: %+v", format, got)
			}
		})
	}
}

func TestExport_InvalidFormat(t *testing.T) {
	t.Parallel()

	err := Export(&bytes.Buffer{}, Handoff{}, Format("ini"))
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Export(ini) = %v, want ErrInvalidFormat", err)
	}
}
