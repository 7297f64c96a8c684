// SPDX-License-Identifier: MPL-2.0

// Package selftest checks the browser engine's version probe output.
package selftest

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	// ErrNoVersion is returned when the probe printed no version.
	ErrNoVersion = errors.New("browser version probe printed no version")
	// ErrVersionTooOld is returned when the version does not satisfy the constraint.
	ErrVersionTooOld = errors.New("browser version does not satisfy constraint")

	versionPattern = regexp.MustCompile(`\b(\d+(?:\.\d+)+)\b`)
)

// Result is a parsed version probe.
type Result struct {
	// Output is the trimmed probe output, e.g. "Google Chrome 120.0.6099.109".
	Output string
	// Version is the full dotted version, e.g. "120.0.6099.109".
	Version string
}

// Parse extracts the dotted version from probe output.
func Parse(output string) (Result, error) {
	out := strings.TrimSpace(output)
	if out == "" {
		return Result{}, ErrNoVersion
	}
	v := versionPattern.FindString(out)
	if v == "" {
		return Result{Output: out}, fmt.Errorf("%w: %q", ErrNoVersion, out)
	}
	return Result{Output: out, Version: v}, nil
}

// Semver returns the version truncated to its first three components.
func (r Result) Semver() (*semver.Version, error) {
	parts := strings.SplitN(r.Version, ".", 4)
	if len(parts) > 3 {
		parts = parts[:3]
	}
	return semver.NewVersion(strings.Join(parts, "."))
}

// Check verifies the version against a semver constraint such as ">= 114".
// An empty constraint accepts any version.
func (r Result) Check(constraint string) error {
	if strings.TrimSpace(constraint) == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	v, err := r.Semver()
	if err != nil {
		return fmt.Errorf("parse browser version %q: %w", r.Version, err)
	}
	if !c.Check(v) {
		return fmt.Errorf("%w: %s is not %s", ErrVersionTooOld, r.Version, constraint)
	}
	return nil
}

// Verify parses probe output and checks it against constraint.
func Verify(output, constraint string) (Result, error) {
	res, err := Parse(output)
	if err != nil {
		return res, err
	}
	return res, res.Check(constraint)
}

// ValidateConstraint reports whether constraint is a usable semver constraint.
func ValidateConstraint(constraint string) error {
	if strings.TrimSpace(constraint) == "" {
		return nil
	}
	if _, err := semver.NewConstraint(constraint); err != nil {
		return fmt.Errorf("invalid version constraint %q: %w", constraint, err)
	}
	return nil
}
