// Command claw is an autonomous coding agent for the terminal.
package main

import (
	"fmt"
	"os"

	"github.com/klubi/claw/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
