// Package main provides the h1ql command-line interface.
package main

import (
	"fmt"
	"os"

	"github.com/Hacker0x01/h1ql/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
