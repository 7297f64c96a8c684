// SPDX-License-Identifier: MPL-2.0

// Package trust fetches and validates the vendor signing key that authenticates
// the browser package repository.
//
// Keys are only fetched over HTTPS. A fetched key must parse as an OpenPGP public
// keyring; its binary (dearmored) form is what a scoped keyring file holds, and its
// armored form is what the legacy apt-key trust store imports.
package trust
