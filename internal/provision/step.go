// SPDX-License-Identifier: MPL-2.0

package provision

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

// Step IDs used by the image and host plans.
const (
	StepInstallOSPackages     StepID = "install-os-packages"
	StepUpgradeInstaller      StepID = "upgrade-installer"
	StepImportSigningKey      StepID = "import-signing-key"
	StepRegisterPackageSource StepID = "register-package-source"
	StepInstallBrowser        StepID = "install-browser"
	StepPurgePackageCaches    StepID = "purge-package-caches"
	StepSetRuntimeEnv         StepID = "set-runtime-env"
	StepInstallLanguageDeps   StepID = "install-language-deps"
	StepDeclareLaunch         StepID = "declare-launch"
	StepBuildImage            StepID = "build-image"
	StepVerifyBrowser         StepID = "verify-browser"
)

// ErrInvalidPlan is the sentinel error wrapped by InvalidPlanError.
var ErrInvalidPlan = errors.New("invalid plan")

type (
	// StepID names a step.
	StepID string

	// Step is one unit of provisioning work.
	Step struct {
		ID StepID
		// Milestone is the state reached once this step (and any following steps
		// sharing the milestone) succeed.
		Milestone State
		// Kind is the default classification of this step's failures.
		Kind ErrorKind
		// Summary is a one-line description for plans and logs.
		Summary string
		// Apply performs the step through the executor.
		Apply func(ctx context.Context, x Executor) error
	}

	// Plan is the ordered step list for one target.
	Plan struct {
		Target Target
		Steps  []Step
	}

	// InvalidPlanError lists every ordering constraint a plan violates.
	InvalidPlanError struct {
		Target    Target
		Violation []error
	}
)

// String returns the string representation of the StepID.
func (id StepID) String() string { return string(id) }

// Error implements the error interface.
func (e *InvalidPlanError) Error() string {
	return fmt.Sprintf("invalid %s plan: %v", e.Target, errors.Join(e.Violation...))
}

// Unwrap returns ErrInvalidPlan for errors.Is() compatibility.
func (e *InvalidPlanError) Unwrap() error { return ErrInvalidPlan }

// Validate checks the milestone ordering constraints shared by every target:
// every milestone is produced, steps sharing a milestone are contiguous,
// OS_DEPS_READY comes first, TRUST_ESTABLISHED precedes SOURCE_REGISTERED which
// precedes ENGINE_INSTALLED, and READY comes last.
func (p *Plan) Validate() error {
	var errs []error

	if len(p.Steps) == 0 {
		return &InvalidPlanError{Target: p.Target, Violation: []error{errors.New("plan has no steps")}}
	}

	first := make(map[State]int)
	closed := make(map[State]bool)
	prev := StateStart
	for i, s := range p.Steps {
		if s.Apply == nil {
			errs = append(errs, fmt.Errorf("step %s has no action", s.ID))
		}
		if s.Milestone == StateStart || s.Milestone == StateFailed || s.Milestone.Validate() != nil {
			errs = append(errs, fmt.Errorf("step %s declares invalid milestone %s", s.ID, s.Milestone))
			continue
		}
		if s.Milestone != prev {
			if closed[s.Milestone] {
				errs = append(errs, fmt.Errorf("step %s: steps producing %s are not contiguous", s.ID, s.Milestone))
			}
			if prev != StateStart {
				closed[prev] = true
			}
			prev = s.Milestone
		}
		if _, ok := first[s.Milestone]; !ok {
			first[s.Milestone] = i
		}
	}

	for _, m := range Milestones() {
		if _, ok := first[m]; !ok {
			errs = append(errs, fmt.Errorf("no step produces %s", m))
		}
	}

	if p.Steps[0].Milestone != StateOSDepsReady {
		errs = append(errs, fmt.Errorf("first step must produce %s, not %s", StateOSDepsReady, p.Steps[0].Milestone))
	}
	if last := p.Steps[len(p.Steps)-1]; last.Milestone != StateReady {
		errs = append(errs, fmt.Errorf("last step must produce %s, not %s", StateReady, last.Milestone))
	}

	ordered := []State{StateTrustEstablished, StateSourceRegistered, StateEngineInstalled}
	for i := 1; i < len(ordered); i++ {
		a, aok := first[ordered[i-1]]
		b, bok := first[ordered[i]]
		if aok && bok && a > b {
			errs = append(errs, fmt.Errorf("%s must be reached before %s", ordered[i-1], ordered[i]))
		}
	}

	if len(errs) > 0 {
		return &InvalidPlanError{Target: p.Target, Violation: errs}
	}
	return nil
}

// IDs returns the step IDs in order.
func (p *Plan) IDs() []StepID {
	ids := make([]StepID, len(p.Steps))
	for i, s := range p.Steps {
		ids[i] = s.ID
	}
	return ids
}

// Step returns the step with the given ID.
func (p *Plan) Step(id StepID) (Step, bool) {
	i := slices.IndexFunc(p.Steps, func(s Step) bool { return s.ID == id })
	if i < 0 {
		return Step{}, false
	}
	return p.Steps[i], true
}

// reachesMilestone reports whether step i is the last step of its milestone group.
func (p *Plan) reachesMilestone(i int) bool {
	return i == len(p.Steps)-1 || p.Steps[i+1].Milestone != p.Steps[i].Milestone
}
