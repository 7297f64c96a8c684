// SPDX-License-Identifier: MPL-2.0

// Package container drives the Docker and Podman CLIs to build the dashboard image and
// run one-off probes in it.
//
// Both engines share BaseCLIEngine, which builds argument lists and executes the binary
// through an injectable ExecCommandFunc so tests can substitute a helper process.
package container
