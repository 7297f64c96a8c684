// SPDX-License-Identifier: MPL-2.0

package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	// EngineTypePodman selects the Podman CLI.
	EngineTypePodman EngineType = "podman"
	// EngineTypeDocker selects the Docker CLI.
	EngineTypeDocker EngineType = "docker"
)

var (
	// ErrEngineNotAvailable is the sentinel error wrapped by EngineNotAvailableError.
	ErrEngineNotAvailable = errors.New("container engine not available")

	// ErrInvalidEngineType is the sentinel error wrapped by InvalidEngineTypeError.
	ErrInvalidEngineType = errors.New("invalid container engine type")

	// ErrInvalidBuildOptions is returned when BuildOptions fail validation.
	ErrInvalidBuildOptions = errors.New("invalid build options")

	// ErrInvalidRunOptions is returned when RunOptions fail validation.
	ErrInvalidRunOptions = errors.New("invalid run options")
)

type (
	// Engine defines the container operations the provisioner needs.
	Engine interface {
		// Name returns the engine name (docker or podman)
		Name() string
		// Available checks if the engine is available on the system
		Available() bool
		// Version returns the engine version
		Version(ctx context.Context) (string, error)
		// Build builds an image from a Dockerfile
		Build(ctx context.Context, opts BuildOptions) error
		// Run runs a command in a new container
		Run(ctx context.Context, opts RunOptions) (*RunResult, error)
		// ImageExists checks if an image exists locally
		ImageExists(ctx context.Context, image string) (bool, error)
		// RemoveImage removes an image
		RemoveImage(ctx context.Context, image string, force bool) error
	}

	// EngineType identifies the container engine type.
	EngineType string

	// InvalidEngineTypeError is returned when an EngineType is not recognized.
	InvalidEngineTypeError struct {
		Value EngineType
	}

	// BuildOptions contains options for building an image.
	BuildOptions struct {
		// ContextDir is the build context directory
		ContextDir string
		// Dockerfile is the path to the Dockerfile (relative to ContextDir)
		Dockerfile string
		// Tag is the image tag
		Tag string
		// NoCache disables the build cache
		NoCache bool
		// Stdout is where to write build output
		Stdout io.Writer
		// Stderr is where to write build errors
		Stderr io.Writer
	}

	// RunOptions contains options for running a one-off container.
	RunOptions struct {
		// Image is the image to run
		Image string
		// Command overrides the image CMD
		Command []string
		// Env holds NAME=value pairs, in order
		Env []string
		// Remove automatically removes the container after exit
		Remove bool
		// Stdout is where to write standard output
		Stdout io.Writer
		// Stderr is where to write standard error
		Stderr io.Writer
	}

	// RunResult contains the result of running a container.
	RunResult struct {
		// ExitCode is the exit code of the container command
		ExitCode int
		// Error is set for failures that produced no exit code
		Error error
	}

	// EngineNotAvailableError is returned when no usable engine binary was found.
	EngineNotAvailableError struct {
		Engine string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidEngineTypeError) Error() string {
	return fmt.Sprintf("invalid container engine %q (valid: podman, docker)", e.Value)
}

// Unwrap returns ErrInvalidEngineType for errors.Is() compatibility.
func (e *InvalidEngineTypeError) Unwrap() error { return ErrInvalidEngineType }

// Validate returns an error if the EngineType is not podman or docker.
func (t EngineType) Validate() error {
	switch t {
	case EngineTypePodman, EngineTypeDocker:
		return nil
	default:
		return &InvalidEngineTypeError{Value: t}
	}
}

// String returns the string representation of the EngineType.
func (t EngineType) String() string { return string(t) }

// Error implements the error interface.
func (e *EngineNotAvailableError) Error() string {
	return fmt.Sprintf("container engine '%s' is not available: %s", e.Engine, e.Reason)
}

// Unwrap returns ErrEngineNotAvailable for errors.Is() compatibility.
func (e *EngineNotAvailableError) Unwrap() error { return ErrEngineNotAvailable }

// Validate checks that the build has a context directory and a Dockerfile inside it.
func (o BuildOptions) Validate() error {
	if strings.TrimSpace(o.ContextDir) == "" {
		return fmt.Errorf("%w: context directory is required", ErrInvalidBuildOptions)
	}
	if strings.ContainsAny(o.Tag, " \t\n") {
		return fmt.Errorf("%w: tag %q contains whitespace", ErrInvalidBuildOptions, o.Tag)
	}
	if _, err := ResolveDockerfilePath(o.ContextDir, o.Dockerfile); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBuildOptions, err)
	}
	return nil
}

// Validate checks that the run names an image and well-formed env pairs.
func (o RunOptions) Validate() error {
	if strings.TrimSpace(o.Image) == "" {
		return fmt.Errorf("%w: image is required", ErrInvalidRunOptions)
	}
	for _, kv := range o.Env {
		if name, _, ok := strings.Cut(kv, "="); !ok || name == "" {
			return fmt.Errorf("%w: env entry %q is not NAME=value", ErrInvalidRunOptions, kv)
		}
	}
	return nil
}

// NewEngine creates a container engine of the preferred type, falling back to the
// other engine when the preferred one is not available.
func NewEngine(preferredType EngineType) (Engine, error) {
	if err := preferredType.Validate(); err != nil {
		return nil, err
	}

	candidates := []Engine{NewPodmanEngine(), NewDockerEngine()}
	if preferredType == EngineTypeDocker {
		candidates[0], candidates[1] = candidates[1], candidates[0]
	}

	for _, e := range candidates {
		if e.Available() {
			return e, nil
		}
	}
	return nil, &EngineNotAvailableError{
		Engine: string(preferredType),
		Reason: fmt.Sprintf("%s is not installed or not accessible, and %s fallback is also not available",
			candidates[0].Name(), candidates[1].Name()),
	}
}

// AutoDetectEngine tries to find an available container engine.
func AutoDetectEngine() (Engine, error) {
	// Podman first: it is the more common engine on rootless build agents.
	for _, e := range []Engine{NewPodmanEngine(), NewDockerEngine()} {
		if e.Available() {
			return e, nil
		}
	}

	return nil, &EngineNotAvailableError{
		Engine: "any",
		Reason: "no container engine (podman or docker) is available on this system",
	}
}
