// Package main is the entry point for dwctl.
package main

import (
	"fmt"
	"os"

	"github.com/GeorgeDPal/aws-datawarehouse-solution/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
