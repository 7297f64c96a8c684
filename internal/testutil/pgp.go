// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"bytes"
	"testing"

	"golang.org/x/crypto/openpgp"        //nolint:staticcheck // Matches the key format apt-key and gpg accept.
	"golang.org/x/crypto/openpgp/armor"  //nolint:staticcheck // Same as above.
	"golang.org/x/crypto/openpgp/packet" //nolint:staticcheck // Same as above.
)

// SigningKey is a throwaway OpenPGP public key in both encodings.
type SigningKey struct {
	Binary  []byte
	Armored []byte
}

// NewSigningKey generates a small RSA public key for tests.
// The test fails immediately if generation fails.
func NewSigningKey(t testing.TB) SigningKey {
	t.Helper()

	entity, err := openpgp.NewEntity("Dashboard Test", "", "test@example.invalid", &packet.Config{RSABits: 1024})
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}

	var bin bytes.Buffer
	if err := entity.Serialize(&bin); err != nil {
		t.Fatalf("failed to serialize key: %v", err)
	}

	var arm bytes.Buffer
	w, err := armor.Encode(&arm, openpgp.PublicKeyType, nil)
	if err != nil {
		t.Fatalf("failed to armor key: %v", err)
	}
	if _, err := w.Write(bin.Bytes()); err != nil {
		t.Fatalf("failed to armor key: %v", err)
	}
	MustClose(t, w)

	return SigningKey{Binary: bin.Bytes(), Armored: arm.Bytes()}
}
