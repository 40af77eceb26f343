// Package main is the entry point for pgedge-ducklens.
package main

import (
	"fmt"
	"os"

	"github.com/pgEdge/pgedge-ducklens/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
