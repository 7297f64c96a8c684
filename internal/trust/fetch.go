// SPDX-License-Identifier: MPL-2.0

package trust

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultFetchTimeout = 30 * time.Second
	// defaultMaxKeyBytes bounds the key download; vendor keys are a few KiB.
	defaultMaxKeyBytes = 1 << 20
)

var (
	// ErrInsecureTransport is returned for key URLs that are not https.
	ErrInsecureTransport = errors.New("signing key must be fetched over https")
	// ErrFetchFailed is the sentinel error wrapped by FetchError.
	ErrFetchFailed = errors.New("signing key fetch failed")
)

// Compile-time interface check
var _ Fetcher = (*HTTPFetcher)(nil)

type (
	// Fetcher downloads a signing key.
	Fetcher interface {
		Fetch(ctx context.Context, keyURL string) ([]byte, error)
	}

	// HTTPFetcher fetches keys over HTTPS.
	HTTPFetcher struct {
		client   *http.Client
		maxBytes int64
	}

	// FetcherOption configures an HTTPFetcher.
	FetcherOption func(*HTTPFetcher)

	// FetchError describes a failed key download.
	FetchError struct {
		URL    string
		Status int
		Err    error
	}
)

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("fetch %s: unexpected HTTP status %d", e.URL, e.Status)
}

// Unwrap returns both ErrFetchFailed and the transport error.
func (e *FetchError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrFetchFailed, e.Err}
	}
	return []error{ErrFetchFailed}
}

// WithHTTPClient sets the HTTP client used for downloads.
func WithHTTPClient(c *http.Client) FetcherOption {
	return func(f *HTTPFetcher) {
		f.client = c
	}
}

// WithMaxBytes bounds the size of a downloaded key.
func WithMaxBytes(n int64) FetcherOption {
	return func(f *HTTPFetcher) {
		f.maxBytes = n
	}
}

// NewHTTPFetcher creates an HTTPFetcher with a bounded timeout and size.
func NewHTTPFetcher(opts ...FetcherOption) *HTTPFetcher {
	f := &HTTPFetcher{
		client:   &http.Client{Timeout: defaultFetchTimeout},
		maxBytes: defaultMaxKeyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CheckURL rejects key URLs that are malformed or not https.
func CheckURL(keyURL string) error {
	u, err := url.Parse(keyURL)
	if err != nil {
		return fmt.Errorf("invalid key URL %q: %w", keyURL, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInsecureTransport, keyURL)
	}
	return nil
}

// Fetch downloads the key at keyURL.
func (f *HTTPFetcher) Fetch(ctx context.Context, keyURL string) ([]byte, error) {
	if err := CheckURL(keyURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, keyURL, http.NoBody)
	if err != nil {
		return nil, &FetchError{URL: keyURL, Err: err}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: keyURL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }() // Response body; close error non-critical

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: keyURL, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, &FetchError{URL: keyURL, Err: err}
	}
	if int64(len(data)) > f.maxBytes {
		return nil, &FetchError{URL: keyURL, Err: fmt.Errorf("key exceeds %d bytes", f.maxBytes)}
	}
	return data, nil
}
