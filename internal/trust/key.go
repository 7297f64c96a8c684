// SPDX-License-Identifier: MPL-2.0

package trust

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/openpgp"       //nolint:staticcheck // Only key parsing is used; no encryption or signing.
	"golang.org/x/crypto/openpgp/armor" //nolint:staticcheck // Same as above.
)

const (
	armorHeader = "-----BEGIN PGP PUBLIC KEY BLOCK-----"
	armorFooter = "-----END PGP PUBLIC KEY BLOCK-----"
)

// ErrInvalidKey is returned when fetched data is not an OpenPGP public key.
var ErrInvalidKey = errors.New("invalid signing key")

// Key is a validated OpenPGP public key.
type Key struct {
	// Armored is the ASCII-armored key, as served by the vendor.
	// Empty when the key was fetched in binary form.
	Armored []byte
	// Keyring is the binary (dearmored) keyring, as written by gpg --dearmor.
	Keyring []byte
	// Fingerprints are the primary key fingerprints, upper-case hex.
	Fingerprints []string
}

// Parse validates data as an OpenPGP public key in armored or binary form.
// Multiple concatenated armor blocks are dearmored into one keyring.
func Parse(data []byte) (*Key, error) {
	key := &Key{}

	if bytes.Contains(data, []byte(armorHeader)) {
		bin, err := Dearmor(data)
		if err != nil {
			return nil, err
		}
		key.Armored = data
		key.Keyring = bin
	} else {
		key.Keyring = data
	}

	entities, err := openpgp.ReadKeyRing(bytes.NewReader(key.Keyring))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("%w: no public keys", ErrInvalidKey)
	}
	for _, e := range entities {
		key.Fingerprints = append(key.Fingerprints, strings.ToUpper(hex.EncodeToString(e.PrimaryKey.Fingerprint[:])))
	}
	return key, nil
}

// Dearmor decodes every public key armor block in data and concatenates the bodies.
func Dearmor(data []byte) ([]byte, error) {
	var out bytes.Buffer
	text := string(data)
	for {
		start := strings.Index(text, armorHeader)
		if start < 0 {
			break
		}
		text = text[start:]
		end := strings.Index(text, armorFooter)
		if end < 0 {
			return nil, fmt.Errorf("%w: unterminated armor block", ErrInvalidKey)
		}
		blockEnd := end + len(armorFooter)

		block, err := armor.Decode(strings.NewReader(text[:blockEnd]))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}
		if _, err := io.Copy(&out, block.Body); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}
		text = text[blockEnd:]
	}
	if out.Len() == 0 {
		return nil, fmt.Errorf("%w: no armored public key block", ErrInvalidKey)
	}
	return out.Bytes(), nil
}

// Fetch downloads and validates the key described by imp.
func Fetch(ctx context.Context, f Fetcher, imp Import) (*Key, error) {
	if err := imp.Validate(); err != nil {
		return nil, err
	}
	data, err := f.Fetch(ctx, imp.URL)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}
