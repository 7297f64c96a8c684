// SPDX-License-Identifier: MPL-2.0

// Package manifest reads the language dependency manifest (a pip requirements file).
//
// The provisioning pipeline never interprets requirements beyond validation and
// reporting: installation is delegated to the package installer, which receives the
// file itself. Option lines (-r, --index-url, ...) are kept verbatim.
package manifest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

// DefaultPath is the conventional manifest file name.
const DefaultPath = "requirements.txt"

var (
	// ErrInvalidRequirement is the sentinel error wrapped by InvalidRequirementError.
	ErrInvalidRequirement = errors.New("invalid requirement")

	// PEP 508 project name, optional extras, then the rest of the line.
	requirementPattern = regexp.MustCompile(`^([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*(\[[^\]]*\])?\s*(.*)$`)
	specifierPattern   = regexp.MustCompile(`^(?:(?:===|==|!=|~=|<=|>=|<|>)\s*[^,;\s()]+\s*,?\s*)+$`)
	// pip starts a comment at a '#' that opens the line or follows whitespace.
	commentPattern = regexp.MustCompile(`(^|\s)#.*$`)
	// Per-requirement options (--hash, --config-settings, ...) follow the requirement.
	optionPattern = regexp.MustCompile(`\s--[A-Za-z]`)
)

type (
	// Requirement is a single package requirement line.
	Requirement struct {
		// Name is the project name as written.
		Name string
		// Extras is the bracketed extras list without brackets, if any.
		Extras string
		// Specifier is the version specifier (e.g. "==2.0.0"), empty when unpinned.
		Specifier string
		// Marker is the environment marker after ';', if any.
		Marker string
		// Options are per-requirement installer options such as --hash.
		Options []string
		// Line is the 1-based line number in the manifest.
		Line int
	}

	// Manifest is the ordered content of a requirements file.
	Manifest struct {
		Path         string
		Requirements []Requirement
		// Options are installer option lines, kept in order.
		Options []string
	}

	// InvalidRequirementError reports a line that is not a valid requirement.
	InvalidRequirementError struct {
		Path string
		Line int
		Text string
	}
)

// Error implements the error interface.
func (e *InvalidRequirementError) Error() string {
	return fmt.Sprintf("%s:%d: invalid requirement %q", e.Path, e.Line, e.Text)
}

// Unwrap returns ErrInvalidRequirement for errors.Is() compatibility.
func (e *InvalidRequirementError) Unwrap() error { return ErrInvalidRequirement }

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open manifest: %w", err)
	}
	defer func() { _ = f.Close() }() // Read-only file; close error non-critical

	return Parse(f, path)
}

// Parse parses requirements from r. path is used in error messages only.
// Lines ending in a backslash are joined with the next one; errors report the
// line the joined requirement starts on.
func Parse(r io.Reader, path string) (*Manifest, error) {
	m := &Manifest{Path: path}

	scanner := bufio.NewScanner(r)
	lineNo, start := 0, 0
	var pending strings.Builder
	for scanner.Scan() {
		lineNo++
		raw := scanner.Text()
		if pending.Len() == 0 {
			start = lineNo
		}
		if body, ok := strings.CutSuffix(raw, `\`); ok {
			pending.WriteString(body)
			pending.WriteByte(' ')
			continue
		}
		pending.WriteString(raw)
		text := pending.String()
		pending.Reset()

		if err := m.add(text, start); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}
	if pending.Len() > 0 {
		if err := m.add(pending.String(), start); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *Manifest) add(raw string, line int) error {
	text := stripComment(raw)
	if text == "" {
		return nil
	}
	if strings.HasPrefix(text, "-") {
		m.Options = append(m.Options, text)
		return nil
	}
	if isDirectReference(text) {
		m.Requirements = append(m.Requirements, Requirement{Name: text, Line: line})
		return nil
	}

	req, ok := parseRequirement(text)
	if !ok {
		return &InvalidRequirementError{Path: m.Path, Line: line, Text: text}
	}
	req.Line = line
	m.Requirements = append(m.Requirements, req)
	return nil
}

// Empty reports whether the manifest has no requirements.
func (m *Manifest) Empty() bool {
	return len(m.Requirements) == 0
}

// Names returns the requirement names in manifest order.
func (m *Manifest) Names() []string {
	names := make([]string, 0, len(m.Requirements))
	for _, r := range m.Requirements {
		names = append(names, r.Name)
	}
	return names
}

// Pinned reports whether the requirement is pinned to one exact version.
func (r Requirement) Pinned() bool {
	return strings.HasPrefix(r.Specifier, "==") && !strings.Contains(r.Specifier, ",")
}

// String renders the requirement in canonical form.
func (r Requirement) String() string {
	s := r.Name
	if r.Extras != "" {
		s += "[" + r.Extras + "]"
	}
	s += r.Specifier
	if r.Marker != "" {
		s += "; " + r.Marker
	}
	return s
}

func stripComment(line string) string {
	return strings.TrimSpace(commentPattern.ReplaceAllString(line, ""))
}

func isDirectReference(text string) bool {
	return strings.Contains(text, "://") || strings.Contains(text, " @ ") ||
		strings.HasPrefix(text, ".") || strings.HasPrefix(text, "/")
}

func parseRequirement(text string) (Requirement, bool) {
	var options []string
	if loc := optionPattern.FindStringIndex(text); loc != nil {
		options = strings.Fields(text[loc[0]:])
		text = text[:loc[0]]
	}

	body, marker, _ := strings.Cut(text, ";")
	m := requirementPattern.FindStringSubmatch(strings.TrimSpace(body))
	if m == nil {
		return Requirement{}, false
	}

	spec := strings.Join(strings.Fields(m[3]), "")
	if inner, ok := strings.CutPrefix(spec, "("); ok {
		if spec, ok = strings.CutSuffix(inner, ")"); !ok {
			return Requirement{}, false
		}
	}
	if spec != "" && !specifierPattern.MatchString(spec) {
		return Requirement{}, false
	}

	return Requirement{
		Name:      m[1],
		Extras:    strings.Trim(m[2], "[]"),
		Specifier: spec,
		Marker:    strings.TrimSpace(marker),
		Options:   options,
	}, true
}
