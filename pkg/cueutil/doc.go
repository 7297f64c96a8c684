// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides shared CUE validation helpers.
//
// ValidateToMap runs the schema flow used by the configuration loader:
//
//  1. Compile the embedded schema
//  2. Compile user data and unify it with the schema definition
//  3. Validate and decode to a generic map
//
// Errors carry the file name and the JSON path of the offending field:
//
//	dashboot.cue: source.trust_mode: 2 errors in empty disjunction
package cueutil
