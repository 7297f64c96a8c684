// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the operation, resource and remediation hints of a failure.
// Issue pages are Markdown documents, rendered with glamour, that explain the failure
// classes a provisioning run can end in.
package issue
