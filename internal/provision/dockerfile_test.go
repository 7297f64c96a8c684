// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"strings"
	"testing"

	"github.com/invowk/dashboot/internal/launch"
)

func TestDockerfileMergesRunsWithinMilestone(t *testing.T) {
	t.Parallel()

	d := NewDockerfile("python:3.11-slim", "/app")
	d.Run(StateEngineInstalled, "apt-get update")
	d.Run(StateEngineInstalled, "apt-get clean")
	d.Run(StateLangDepsReady, "pip install -r requirements.txt")

	got := d.String()
	want := "FROM python:3.11-slim\n" +
		"WORKDIR /app\n" +
		"\n" +
		"RUN apt-get update && apt-get clean\n" +
		"\n" +
		"RUN pip install -r requirements.txt\n"
	if got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
	if n := d.Instructions(); n != 4 {
		t.Errorf("Instructions() = %d, want 4", n)
	}
}

func TestDockerfileDoesNotMergeAcrossOtherInstructions(t *testing.T) {
	t.Parallel()

	d := NewDockerfile("python:3.11-slim", "")
	d.Run(StateLangDepsReady, "true")
	d.Copy(StateLangDepsReady, "requirements.txt", "requirements.txt")
	d.Run(StateLangDepsReady, "false")

	if got := strings.Count(d.String(), "RUN "); got != 2 {
		t.Errorf("RUN count = %d, want 2:\n%s", got, d.String())
	}
	if strings.Contains(d.String(), "WORKDIR") {
		t.Error("empty workdir should not emit WORKDIR")
	}
}

func TestDockerfileEnvExposeCmd(t *testing.T) {
	t.Parallel()

	d := NewDockerfile("python:3.11-slim", "/app")
	d.Env(StateLangDepsReady, launch.DefaultEnv().Vars())
	d.Expose(StateReady, launch.DefaultPort)
	if err := d.Cmd(StateReady, launch.DefaultContract().Argv()); err != nil {
		t.Fatalf("Cmd() error = %v", err)
	}

	got := d.String()
	for _, want := range []string{
		"ENV PYTHONUNBUFFERED=1\n",
		"ENV HEADLESS=true\n",
		"EXPOSE 5000\n",
		`CMD ["gunicorn","--bind","0.0.0.0:5000","--workers","1","--timeout","120","dashboard:app"]` + "\n",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("Dockerfile missing %q:\n%s", want, got)
		}
	}
}

func TestDockerfileCommentsAreNotInstructions(t *testing.T) {
	t.Parallel()

	d := NewDockerfile("python:3.11-slim", "/app")
	d.Comment(StateOSDepsReady, "OS_DEPS_READY")
	d.Run(StateOSDepsReady, "apt-get update")

	if !strings.Contains(d.String(), "\n\n# OS_DEPS_READY\nRUN apt-get update\n") {
		t.Errorf("unexpected layout:\n%s", d.String())
	}
	if n := d.Instructions(); n != 3 {
		t.Errorf("Instructions() = %d, want 3", n)
	}
}
