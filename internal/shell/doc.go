// SPDX-License-Identifier: MPL-2.0

// Package shell runs and renders POSIX shell command lines with the embedded
// mvdan/sh interpreter.
//
// Host provisioning steps are expressed as argv-style Commands. The Interpreter
// executes them (external programs are resolved from PATH by the interpreter's
// default exec handler), and Script renders the same commands into a standalone
// `set -e` bash script that can be handed to a platform build agent.
package shell
