// SPDX-License-Identifier: MPL-2.0

// Package launch defines the fixed invocation the provisioning pipeline hands off to:
// the WSGI server command line (Contract) and the process environment it runs with (Env).
//
// Both are immutable values. Consumers receive them explicitly instead of reading the
// ambient process environment, so the bind port can only ever be the declared port.
package launch
