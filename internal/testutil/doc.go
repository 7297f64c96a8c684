// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by tests: Must* wrappers that fail
// the test on error, a deterministic clock, throwaway OpenPGP signing keys and
// a semaphore bounding concurrent container tests.
package testutil
