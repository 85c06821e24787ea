// Package main is the entry point for the flatgo CLI.
//
// Usage:
//
//	flatgo [flags] <command> [args]
//
// Commands:
//
//	gen     - Generate a synthetic index and save it
//	info    - Show the header of a snapshot
//	search  - Search a snapshot
//	bench   - Measure search throughput on synthetic data
package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/flatgo/cmd/flatgo/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
