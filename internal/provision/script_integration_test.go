// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"

	"github.com/invowk/dashboot/internal/container"
	"github.com/invowk/dashboot/internal/testutil"
	"github.com/invowk/dashboot/internal/trust"
)

// checkTestcontainersAvailable reports whether a container provider can be
// reached. Provider detection panics on some hosts without a daemon.
func checkTestcontainersAvailable() (available bool) {
	defer func() {
		if r := recover(); r != nil {
			available = false
		}
	}()

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		return false
	}
	defer provider.Close()
	return true
}

// TestHostScriptInContainer checks the rendered host script with bash -n inside
// a Debian container, the same base the hosting platforms build on.
func TestHostScriptInContainer(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	engine, err := container.AutoDetectEngine()
	if err != nil || !engine.Available() {
		t.Skip("skipping container integration test: no container engine available")
	}
	if !checkTestcontainersAvailable() {
		t.Skip("skipping container integration test: testcontainers provider not available")
	}

	sem := testutil.ContainerSemaphore()
	sem <- struct{}{}
	defer func() { <-sem }()

	for _, mode := range []trust.Mode{trust.ModeLegacy, trust.ModeKeyring} {
		t.Run(string(mode), func(t *testing.T) {
			script := renderScript(t, mode)

			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
			defer cancel()

			c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
				ContainerRequest: testcontainers.ContainerRequest{
					Image: "debian:stable-slim",
					Cmd:   []string{"sleep", "infinity"},
					Files: []testcontainers.ContainerFile{{
						Reader:            strings.NewReader(script),
						ContainerFilePath: "/tmp/build.sh",
						FileMode:          0o755,
					}},
				},
				Started: true,
			})
			testcontainers.CleanupContainer(t, c)
			if err != nil {
				t.Fatalf("failed to start container: %v", err)
			}

			code, _, err := c.Exec(ctx, []string{"bash", "-n", "/tmp/build.sh"})
			if err != nil {
				t.Fatalf("Exec() error = %v", err)
			}
			if code != 0 {
				t.Errorf("bash -n exited %d", code)
			}
		})
	}
}
