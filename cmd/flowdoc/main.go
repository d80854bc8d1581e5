// Package main is the entry point of the flowdoc CLI.
package main

import (
	"os"

	"github.com/leapstack-labs/flowdoc/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
