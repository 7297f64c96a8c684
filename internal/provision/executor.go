// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"

	"github.com/invowk/dashboot/internal/launch"
	"github.com/invowk/dashboot/internal/trust"
)

// ErrNotBuilt is returned when an image probe runs before the image was built.
var ErrNotBuilt = errors.New("image has not been built")

type (
	// Executor realizes plan steps against one target.
	Executor interface {
		// Run executes one shell command line.
		Run(ctx context.Context, line string) error
		// WriteFile places content at an absolute path on the target.
		WriteFile(ctx context.Context, path string, content []byte) error
		// ImportKey establishes trust in the vendor signing key.
		ImportKey(ctx context.Context, imp trust.Import) error
		// SetEnv sets process-wide environment variables for every later step
		// and for the launched process.
		SetEnv(ctx context.Context, vars []launch.Var) error
	}

	// ImageTarget is an Executor that assembles a container image.
	ImageTarget interface {
		Executor
		// CopyIn copies src from the application context to dst in the image.
		CopyIn(ctx context.Context, src, dst string) error
		// Declare records the exposed port and the start command.
		Declare(ctx context.Context, c launch.Contract) error
	}

	// Prober is implemented by executors that can run a command on the
	// provisioned target and capture its output.
	Prober interface {
		Probe(ctx context.Context, argv []string) (string, error)
	}

	// Builder is implemented by executors that produce an artifact after the
	// declarative steps, such as a container image.
	Builder interface {
		Build(ctx context.Context) (string, error)
	}

	// StepAware is implemented by executors that group work by step, such as
	// merging RUN instructions that share a milestone.
	StepAware interface {
		BeginStep(step Step)
	}

	// ProbeError is returned when a probe command exits non-zero.
	ProbeError struct {
		Argv     []string
		ExitCode int
	}
)

// Error implements the error interface.
func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %v exited with status %d", e.Argv, e.ExitCode)
}
