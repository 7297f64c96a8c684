// SPDX-License-Identifier: MPL-2.0

// Command dashboot provisions and launches the headless-browser dashboard.
package main

import cmd "github.com/invowk/dashboot/cmd/dashboot"

func main() {
	cmd.Execute()
}
