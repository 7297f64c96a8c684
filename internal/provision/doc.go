// SPDX-License-Identifier: MPL-2.0

// Package provision drives the dashboard's provisioning pipeline.
//
// A Plan is an ordered list of steps for one target. Each step declares the
// milestone State it produces. Pipeline.Run applies the steps through an Executor
// and records the state transitions:
//
//	START → OS_DEPS_READY → TRUST_ESTABLISHED → SOURCE_REGISTERED → ENGINE_INSTALLED → LANG_DEPS_READY → READY
//
// The host target reaches LANG_DEPS_READY before TRUST_ESTABLISHED, so plans are
// checked against ordering constraints rather than one fixed sequence. Any step
// failure ends the run in FAILED; a new run always starts from START.
//
// Executors realize steps differently per target: HostExecutor mutates the running
// host, ImageExecutor renders (and optionally builds) a Dockerfile, and
// ScriptExecutor renders an equivalent fail-fast shell script.
package provision
