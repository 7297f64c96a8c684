// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the dashboot CLI commands.
//
// Every command is built from an App, which carries the config provider, the
// container engine factory, the host shell runner and the key fetcher. Tests
// replace those through Dependencies.
package cmd
