// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"strings"
	"testing"

	"github.com/invowk/dashboot/internal/shell"
	"github.com/invowk/dashboot/internal/trust"
)

func renderScript(t *testing.T, mode trust.Mode) string {
	t.Helper()

	x := NewScriptExecutor()
	plan := HostPlan(testConfig(t.TempDir(), mode), PlanOptions{SelfTest: true})
	report, err := NewPipeline().Run(context.Background(), plan, x)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if report.Final != StateReady {
		t.Fatalf("Final = %s, want READY", report.Final)
	}
	script, err := x.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return script
}

func TestScriptRenderLegacyHost(t *testing.T) {
	t.Parallel()

	script := renderScript(t, trust.ModeLegacy)

	ordered := []string{
		"#!/usr/bin/env bash\n",
		"set -e\n",
		"pip install --upgrade pip\n",
		"pip install -r requirements.txt\n",
		"wget -q -O - https://dl-ssl.google.com/linux/linux_signing_key.pub | apt-key add -\n",
		"echo 'deb [arch=amd64] http://dl.google.com/linux/chrome/deb/ stable main' > /etc/apt/sources.list.d/google-chrome.list\n",
		"apt-get update\n",
		"apt-get install -y google-chrome-stable\n",
		"google-chrome --version\n",
	}
	rest := script
	for _, want := range ordered {
		i := strings.Index(rest, want)
		if i < 0 {
			t.Fatalf("script missing %q in order:\n%s", want, script)
		}
		rest = rest[i+len(want):]
	}
	if strings.Contains(script, "gunicorn") {
		t.Error("the host script must not start the server")
	}
}

func TestScriptRenderKeyringHost(t *testing.T) {
	t.Parallel()

	script := renderScript(t, trust.ModeKeyring)
	if !strings.Contains(script, "| gpg --dearmor -o /usr/share/keyrings/google-chrome.gpg\n") {
		t.Errorf("keyring mode should dearmor into the keyring:\n%s", script)
	}
	if strings.Contains(script, "apt-key") {
		t.Errorf("keyring mode must not use apt-key:\n%s", script)
	}
}

func TestScriptStepComments(t *testing.T) {
	t.Parallel()

	script := renderScript(t, trust.ModeLegacy)
	for _, want := range []string{
		"# upgrade-installer (OS_DEPS_READY)",
		"# import-signing-key (TRUST_ESTABLISHED)",
		"# verify-browser (READY)",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing comment %q", want)
		}
	}
}

func TestScriptParsesAsBash(t *testing.T) {
	t.Parallel()

	script := renderScript(t, trust.ModeLegacy)
	if _, err := shell.Parse(script); err != nil {
		t.Errorf("rendered script does not parse: %v", err)
	}
}

func TestScriptSetEnvAndMultilineFile(t *testing.T) {
	t.Parallel()

	x := NewScriptExecutor()
	ctx := context.Background()
	if err := x.SetEnv(ctx, testConfig("", trust.ModeLegacy).Env.Vars()); err != nil {
		t.Fatalf("SetEnv() error = %v", err)
	}
	if err := x.WriteFile(ctx, "/etc/dashboard.conf", []byte("alpha\nbeta\n")); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	script, err := x.Render()
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, want := range []string{
		"export PYTHONUNBUFFERED=1\n",
		"export HEADLESS=true\n",
		"printf '%s\\n' alpha > /etc/dashboard.conf\n",
		"printf '%s\\n' beta >> /etc/dashboard.conf\n",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("script missing %q:\n%s", want, script)
		}
	}
}
