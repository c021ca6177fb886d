// Package main is the entry point for marketing-etl.
package main

import (
	"fmt"
	"os"

	"github.com/NontFakungkun/marketing-etl-analytics/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
