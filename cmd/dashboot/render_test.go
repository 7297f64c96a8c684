// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"strings"
	"testing"

	"github.com/invowk/dashboot/internal/config"
	"github.com/invowk/dashboot/internal/provision"
)

func TestRender_Dockerfile(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, testConfig(t.TempDir()), Dependencies{})
	if err := app.run(t, "render", "dockerfile"); err != nil {
		t.Fatalf("render dockerfile: %v", err)
	}

	out := app.stdout.String()
	if !strings.HasPrefix(out, "FROM python:3.11-slim\n") {
		t.Errorf("Dockerfile does not start with the base image:\n%s", out)
	}
	for _, want := range []string{
		"gpg --dearmor -o /usr/share/keyrings/google-chrome.gpg",
		"signed-by=/usr/share/keyrings/google-chrome.gpg",
		"ENV PYTHONUNBUFFERED=1\n",
		"ENV HEADLESS=true\n",
		"EXPOSE 5000\n",
		`CMD ["gunicorn","--bind","0.0.0.0:5000","--workers","1","--timeout","120","dashboard:app"]`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Dockerfile missing %q:\n%s", want, out)
		}
	}
}

func TestRender_Script(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, testConfig(t.TempDir()), Dependencies{})
	if err := app.run(t, "render", "script"); err != nil {
		t.Fatalf("render script: %v", err)
	}

	out := app.stdout.String()
	for _, want := range []string{
		"apt-key add -",
		"pip install -r requirements.txt",
		"google-chrome --version",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("script missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "gunicorn") {
		t.Errorf("host script must not declare a start command:\n%s", out)
	}
}

func TestRender_RejectsUnknownArtifact(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, testConfig(t.TempDir()), Dependencies{})
	if err := app.run(t, "render", "compose"); err == nil {
		t.Fatal("render compose succeeded, want error")
	}
}

func TestPlanMarkdown(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t.TempDir())
	cfg.Target = config.TargetHost
	plan, err := provision.NewPlan(provision.TargetHost, provisionConfig(cfg), provision.PlanOptions{SelfTest: true})
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	md := planMarkdown(plan)
	if !strings.HasPrefix(md, "# host plan\n") {
		t.Errorf("markdown heading = %q", strings.SplitN(md, "\n", 2)[0])
	}
	if rows := strings.Count(md, "\n| "); rows != len(plan.Steps)+1 {
		t.Errorf("table has %d rows, want header plus %d steps:\n%s", rows, len(plan.Steps), md)
	}
	for _, id := range plan.IDs() {
		if !strings.Contains(md, "`"+id.String()+"`") {
			t.Errorf("markdown missing step %s", id)
		}
	}
}

func TestPlan_Command(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, testConfig(t.TempDir()), Dependencies{})
	if err := app.run(t, "plan", "--target", "image"); err != nil {
		t.Fatalf("plan: %v", err)
	}
	if strings.TrimSpace(app.stdout.String()) == "" {
		t.Error("plan printed nothing")
	}
	if err := app.run(t, "plan", "--target", "vm"); err == nil {
		t.Error("plan --target vm succeeded, want error")
	}
}
