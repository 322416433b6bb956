// Package main is the entry point for the docsmill CLI.
// The CLI is the operator terminal tool for the build queue, priority
// patterns, sandbox limits, and database maintenance.
package main

import (
	"docsmill/cmd/cli/cmd"
	"os"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
