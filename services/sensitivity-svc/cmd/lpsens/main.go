// Package main is the entry point for the lpsens CLI.
package main

import (
	"os"

	"production/services/sensitivity-svc/cmd/lpsens/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
