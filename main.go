// ./main.go
package main

import (
	"github.com/vmaturana/corfex-cli/cmd"
)

// main is the entry point for the corfex CLI application.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
