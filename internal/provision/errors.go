// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/invowk/dashboot/internal/issue"
	"github.com/invowk/dashboot/internal/manifest"
	"github.com/invowk/dashboot/internal/selftest"
	"github.com/invowk/dashboot/internal/shell"
	"github.com/invowk/dashboot/internal/trust"
)

const (
	// KindNetworkFetch covers failed downloads (the signing key, package indexes).
	KindNetworkFetch ErrorKind = "network-fetch"
	// KindPackageManager covers failing package manager invocations.
	KindPackageManager ErrorKind = "package-manager"
	// KindTrustImport covers keys that cannot be validated or imported.
	KindTrustImport ErrorKind = "trust-import"
	// KindManifestResolution covers a missing or malformed dependency manifest.
	KindManifestResolution ErrorKind = "manifest-resolution"
	// KindImageBuild covers container engine build failures.
	KindImageBuild ErrorKind = "image-build"
	// KindSelfTest covers a browser version probe that fails or prints no version.
	KindSelfTest ErrorKind = "self-test"
)

var (
	// ErrStepFailed is the sentinel error wrapped by StepError.
	ErrStepFailed = errors.New("provisioning step failed")
	// ErrInvalidErrorKind is returned when an ErrorKind value is not recognized.
	ErrInvalidErrorKind = errors.New("invalid error kind")
)

type (
	// ErrorKind classifies a step failure.
	ErrorKind string

	// StepError is returned by Pipeline.Run for the first failing step.
	StepError struct {
		Step StepID
		// State is the last milestone reached before the failure.
		State State
		Kind  ErrorKind
		// ExitCode is the failing command's exit status, or 1 when there was none.
		ExitCode int
		Err      error
	}
)

// Validate returns an error if the ErrorKind is not recognized.
func (k ErrorKind) Validate() error {
	switch k {
	case KindNetworkFetch, KindPackageManager, KindTrustImport, KindManifestResolution, KindImageBuild, KindSelfTest:
		return nil
	default:
		return fmt.Errorf("%w %q", ErrInvalidErrorKind, k)
	}
}

// String returns the string representation of the ErrorKind.
func (k ErrorKind) String() string { return string(k) }

// IssueID returns the issue page describing failures of this kind.
func (k ErrorKind) IssueID() issue.Id {
	switch k {
	case KindNetworkFetch:
		return issue.KeyFetchFailedId
	case KindTrustImport:
		return issue.TrustImportFailedId
	case KindManifestResolution:
		return issue.ManifestNotFoundId
	case KindImageBuild:
		return issue.ImageBuildFailedId
	case KindSelfTest:
		return issue.SelfTestFailedId
	default:
		return issue.PackageInstallFailedId
	}
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed after %s (%s): %v", e.Step, e.State, e.Kind, e.Err)
}

// Unwrap returns both ErrStepFailed and the underlying cause.
func (e *StepError) Unwrap() []error {
	return []error{ErrStepFailed, e.Err}
}

// ExitCode maps a Pipeline.Run error to a process exit status: 0 for nil, the
// first failing command's status when known, otherwise 1.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var se *StepError
	if errors.As(err, &se) && se.ExitCode > 0 {
		return se.ExitCode
	}
	return 1
}

// newStepError classifies err for step, which started from state.
func newStepError(step Step, state State, err error) *StepError {
	return &StepError{
		Step:     step.ID,
		State:    state,
		Kind:     classify(step.Kind, err),
		ExitCode: exitCodeOf(err),
		Err:      err,
	}
}

// classify refines the step's default kind from the cause.
func classify(fallback ErrorKind, err error) ErrorKind {
	switch {
	case errors.Is(err, trust.ErrFetchFailed), errors.Is(err, trust.ErrInsecureTransport):
		return KindNetworkFetch
	case errors.Is(err, trust.ErrInvalidKey):
		return KindTrustImport
	case errors.Is(err, manifest.ErrInvalidRequirement):
		return KindManifestResolution
	case errors.Is(err, selftest.ErrNoVersion), errors.Is(err, selftest.ErrVersionTooOld):
		return KindSelfTest
	case fallback == KindManifestResolution && errors.Is(err, os.ErrNotExist):
		return KindManifestResolution
	default:
		return fallback
	}
}

// exitCodeOf extracts a process exit status from shell or exec errors.
func exitCodeOf(err error) int {
	var shErr *shell.ExitError
	if errors.As(err, &shErr) {
		return int(shErr.Code)
	}
	var execErr *exec.ExitError
	if errors.As(err, &execErr) && execErr.ExitCode() > 0 {
		return execErr.ExitCode()
	}
	var probeErr *ProbeError
	if errors.As(err, &probeErr) && probeErr.ExitCode > 0 {
		return probeErr.ExitCode
	}
	return 1
}
