package main

import (
	"os"
)

// version is set at build time via -ldflags "-X main.version=<version>"
var version string

func main() {
	rootCmd := newRootCmd()
	rootCmd.AddCommand(newSetupCmd(), newExamplesCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
