// SPDX-License-Identifier: MPL-2.0

// Package aptsource models the APT package source entry for the browser vendor repository.
package aptsource

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/invowk/dashboot/internal/trust"
)

const (
	// DefaultURL is the browser vendor's package repository.
	DefaultURL = "http://dl.google.com/linux/chrome/deb/"
	// DefaultSuite is the repository suite.
	DefaultSuite = "stable"
	// DefaultArch restricts the source to one architecture.
	DefaultArch = "amd64"
	// DefaultListPath is where the source entry is written.
	DefaultListPath = "/etc/apt/sources.list.d/google-chrome.list"
)

// ErrInvalidSource is the sentinel error wrapped by InvalidSourceError.
var ErrInvalidSource = errors.New("invalid package source")

type (
	// Source is one APT repository registration.
	Source struct {
		URL        string
		Suite      string
		Components []string
		// Arch is the optional architecture constraint.
		Arch string
		// Keyring is the signed-by keyring path. Only rendered in keyring trust mode.
		Keyring  string
		ListPath string
		Mode     trust.Mode
	}

	// InvalidSourceError lists every problem found in a Source.
	InvalidSourceError struct {
		FieldErrs []error
	}
)

// Error implements the error interface.
func (e *InvalidSourceError) Error() string {
	return fmt.Sprintf("invalid package source: %v", errors.Join(e.FieldErrs...))
}

// Unwrap returns ErrInvalidSource for errors.Is() compatibility.
func (e *InvalidSourceError) Unwrap() error { return ErrInvalidSource }

// Default returns the vendor source for the given trust mode.
func Default(mode trust.Mode) Source {
	return Source{
		URL:        DefaultURL,
		Suite:      DefaultSuite,
		Components: []string{"main"},
		Arch:       DefaultArch,
		Keyring:    trust.DefaultKeyringPath,
		ListPath:   DefaultListPath,
		Mode:       mode,
	}
}

// Validate checks that the source can be rendered and written.
func (s Source) Validate() error {
	var errs []error

	if u, err := url.Parse(s.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("repository URL %q is not absolute", s.URL))
	}
	if s.Suite == "" || strings.ContainsAny(s.Suite, " \t") {
		errs = append(errs, fmt.Errorf("suite %q must be a single non-empty word", s.Suite))
	}
	if len(s.Components) == 0 {
		errs = append(errs, errors.New("at least one component is required"))
	}
	if err := s.Mode.Validate(); err != nil {
		errs = append(errs, err)
	}
	if s.Mode.Scoped() && !path.IsAbs(s.Keyring) {
		errs = append(errs, fmt.Errorf("keyring path %q must be absolute", s.Keyring))
	}
	if !path.IsAbs(s.ListPath) || path.Ext(s.ListPath) != ".list" {
		errs = append(errs, fmt.Errorf("list path %q must be an absolute .list file", s.ListPath))
	}

	if len(errs) > 0 {
		return &InvalidSourceError{FieldErrs: errs}
	}
	return nil
}

// Options returns the bracketed option list, or "" when there are none.
func (s Source) Options() string {
	var opts []string
	if s.Arch != "" {
		opts = append(opts, "arch="+s.Arch)
	}
	if s.Mode.Scoped() && s.Keyring != "" {
		opts = append(opts, "signed-by="+s.Keyring)
	}
	if len(opts) == 0 {
		return ""
	}
	return "[" + strings.Join(opts, " ") + "]"
}

// Line renders the one-line source entry, e.g.
//
//	deb [arch=amd64 signed-by=/usr/share/keyrings/google-chrome.gpg] http://dl.google.com/linux/chrome/deb/ stable main
func (s Source) Line() string {
	fields := []string{"deb"}
	if opts := s.Options(); opts != "" {
		fields = append(fields, opts)
	}
	fields = append(fields, s.URL, s.Suite)
	fields = append(fields, s.Components...)
	return strings.Join(fields, " ")
}

// Content is the list file body.
func (s Source) Content() []byte {
	return []byte(s.Line() + "\n")
}
