// SPDX-License-Identifier: MPL-2.0

package trust

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/crypto/openpgp" //nolint:staticcheck // Key type name only.

	"github.com/invowk/dashboot/internal/testutil"
)

func testPublicKey(t *testing.T) (binary, armored []byte) {
	t.Helper()
	key := testutil.NewSigningKey(t)
	return key.Binary, key.Armored
}

func TestModeValidate(t *testing.T) {
	t.Parallel()

	for _, m := range []Mode{ModeKeyring, ModeLegacy} {
		if err := m.Validate(); err != nil {
			t.Errorf("Mode(%q).Validate() = %v", m, err)
		}
	}
	for _, m := range []Mode{"", "global", "KEYRING"} {
		if err := m.Validate(); !errors.Is(err, ErrInvalidMode) {
			t.Errorf("Mode(%q).Validate() = %v, want ErrInvalidMode", m, err)
		}
	}
	if !ModeKeyring.Scoped() || ModeLegacy.Scoped() {
		t.Error("only keyring mode should be scoped")
	}
}

func TestImportValidate(t *testing.T) {
	t.Parallel()

	valid := Import{URL: DefaultKeyURL, Mode: ModeKeyring, KeyringPath: DefaultKeyringPath}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	insecure := valid
	insecure.URL = "http://dl-ssl.google.com/linux/linux_signing_key.pub"
	if err := insecure.Validate(); !errors.Is(err, ErrInsecureTransport) {
		t.Errorf("Validate() with http URL = %v, want ErrInsecureTransport", err)
	}

	noPath := valid
	noPath.KeyringPath = ""
	if err := noPath.Validate(); err == nil {
		t.Error("Validate() should require a keyring path in keyring mode")
	}

	legacy := Import{URL: DefaultKeyURL, Mode: ModeLegacy}
	if err := legacy.Validate(); err != nil {
		t.Errorf("legacy Validate() = %v", err)
	}
}

func TestArmorDelimiters(t *testing.T) {
	t.Parallel()

	if want := "-----BEGIN " + openpgp.PublicKeyType + "-----"; armorHeader != want {
		t.Errorf("armorHeader = %q, want %q", armorHeader, want)
	}
	if want := "-----END " + openpgp.PublicKeyType + "-----"; armorFooter != want {
		t.Errorf("armorFooter = %q, want %q", armorFooter, want)
	}

	_, armored := testPublicKey(t)
	if !bytes.HasPrefix(bytes.TrimSpace(armored), []byte(armorHeader)) {
		t.Errorf("armored key does not start with %q", armorHeader)
	}
}

func TestParse(t *testing.T) {
	t.Parallel()

	bin, armored := testPublicKey(t)

	t.Run("armored", func(t *testing.T) {
		t.Parallel()

		key, err := Parse(armored)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if !bytes.Equal(key.Keyring, bin) {
			t.Error("dearmored keyring should equal the binary key")
		}
		if !bytes.Equal(key.Armored, armored) {
			t.Error("Armored should hold the original text")
		}
		if len(key.Fingerprints) != 1 || len(key.Fingerprints[0]) != 40 {
			t.Errorf("Fingerprints = %v, want one 40-char fingerprint", key.Fingerprints)
		}
		if key.Fingerprints[0] != strings.ToUpper(key.Fingerprints[0]) {
			t.Errorf("fingerprint %q should be upper-case", key.Fingerprints[0])
		}
	})

	t.Run("binary", func(t *testing.T) {
		t.Parallel()

		key, err := Parse(bin)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if key.Armored != nil {
			t.Error("Armored should be empty for binary input")
		}
	})

	t.Run("concatenated blocks", func(t *testing.T) {
		t.Parallel()

		bin2, armored2 := testPublicKey(t)
		joined := append(append(append([]byte{}, armored...), '\n'), armored2...)
		key, err := Parse(joined)
		if err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if len(key.Fingerprints) != 2 {
			t.Errorf("got %d fingerprints, want 2", len(key.Fingerprints))
		}
		if !bytes.Equal(key.Keyring, append(append([]byte{}, bin...), bin2...)) {
			t.Error("keyring should be the concatenation of both keys")
		}
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()

		for _, data := range [][]byte{
			[]byte("<html>not a key</html>"),
			[]byte(armorHeader + "\n\nnot base64\n"),
		} {
			if _, err := Parse(data); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("Parse(%q) = %v, want ErrInvalidKey", data, err)
			}
		}
	})
}

func TestHTTPFetcher(t *testing.T) {
	t.Parallel()

	_, armored := testPublicKey(t)

	mux := http.NewServeMux()
	mux.HandleFunc("/linux_signing_key.pub", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(armored)
	})
	srv := httptest.NewTLSServer(mux)
	t.Cleanup(srv.Close)

	f := NewHTTPFetcher(WithHTTPClient(srv.Client()))
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		imp := Import{URL: srv.URL + "/linux_signing_key.pub", Mode: ModeKeyring, KeyringPath: DefaultKeyringPath}
		key, err := Fetch(ctx, f, imp)
		if err != nil {
			t.Fatalf("Fetch() error = %v", err)
		}
		if !bytes.Equal(key.Armored, armored) {
			t.Error("fetched key differs from served key")
		}
	})

	t.Run("not found", func(t *testing.T) {
		t.Parallel()

		_, err := f.Fetch(ctx, srv.URL+"/missing.pub")
		if !errors.Is(err, ErrFetchFailed) {
			t.Fatalf("Fetch() = %v, want ErrFetchFailed", err)
		}
		var fe *FetchError
		if !errors.As(err, &fe) || fe.Status != http.StatusNotFound {
			t.Errorf("FetchError status = %v, want 404", fe)
		}
	})

	t.Run("plain http rejected", func(t *testing.T) {
		t.Parallel()

		_, err := f.Fetch(ctx, strings.Replace(srv.URL, "https://", "http://", 1)+"/linux_signing_key.pub")
		if !errors.Is(err, ErrInsecureTransport) {
			t.Errorf("Fetch() = %v, want ErrInsecureTransport", err)
		}
	})

	t.Run("size limit", func(t *testing.T) {
		t.Parallel()

		small := NewHTTPFetcher(WithHTTPClient(srv.Client()), WithMaxBytes(16))
		if _, err := small.Fetch(ctx, srv.URL+"/linux_signing_key.pub"); !errors.Is(err, ErrFetchFailed) {
			t.Errorf("Fetch() = %v, want ErrFetchFailed", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := f.Fetch(cctx, srv.URL+"/linux_signing_key.pub"); !errors.Is(err, context.Canceled) {
			t.Errorf("Fetch() = %v, want context.Canceled", err)
		}
	})
}
