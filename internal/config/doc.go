// SPDX-License-Identifier: MPL-2.0

// Package config handles dashboot configuration using Viper with CUE as the file format.
//
// Defaults cover the vendor browser repository, the launch contract and the runtime
// environment, so a run needs no file at all. When a file is present (--config,
// $XDG_CONFIG_HOME/dashboot/config.cue, or ./dashboot.cue) it is validated against
// the embedded #Config schema and merged over the defaults.
package config
