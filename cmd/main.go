package main

// Entry point: runs the cobra root command and exits non-zero on error.

import (
	"fmt"
	"os"

	"omni-trending/cmd/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
