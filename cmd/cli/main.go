// Package main is the entry point for adhocctl, the operator and pipeline
// tool for the adhocdist API.
package main

import (
	"adhocdist/cmd/cli/cmd"
	"os"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
