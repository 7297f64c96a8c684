// SPDX-License-Identifier: MPL-2.0

package trust

import (
	"errors"
	"fmt"
)

const (
	// ModeKeyring imports the key into a dedicated keyring file referenced by the
	// package source with signed-by=, scoping trust to that one source.
	ModeKeyring Mode = "keyring"
	// ModeLegacy imports the key into the global apt-key trust store.
	ModeLegacy Mode = "legacy"

	// DefaultKeyURL is the browser vendor's public signing key.
	DefaultKeyURL = "https://dl-ssl.google.com/linux/linux_signing_key.pub"
	// DefaultKeyringPath is the dedicated keyring file for the vendor source.
	DefaultKeyringPath = "/usr/share/keyrings/google-chrome.gpg"
)

// ErrInvalidMode is returned when a Mode value is not recognized.
var ErrInvalidMode = errors.New("invalid trust mode")

type (
	// Mode selects how the signing key is trusted.
	Mode string

	// Import describes where the signing key comes from and how it is trusted.
	Import struct {
		URL         string
		Mode        Mode
		KeyringPath string
	}
)

// Validate returns an error wrapping ErrInvalidMode for unknown modes.
// The zero value is not valid; resolve target defaults before validating.
func (m Mode) Validate() error {
	switch m {
	case ModeKeyring, ModeLegacy:
		return nil
	default:
		return fmt.Errorf("%w %q (valid: keyring, legacy)", ErrInvalidMode, m)
	}
}

// String returns the string representation of the Mode.
func (m Mode) String() string { return string(m) }

// Scoped reports whether the mode binds the key to a single source.
func (m Mode) Scoped() bool { return m == ModeKeyring }

// Validate checks the import description.
func (i Import) Validate() error {
	var errs []error
	if err := CheckURL(i.URL); err != nil {
		errs = append(errs, err)
	}
	if err := i.Mode.Validate(); err != nil {
		errs = append(errs, err)
	}
	if i.Mode == ModeKeyring && i.KeyringPath == "" {
		errs = append(errs, errors.New("keyring mode requires a keyring path"))
	}
	return errors.Join(errs...)
}
