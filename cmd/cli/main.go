// Package main is the entry point for the budgetiq operator CLI.
package main

import (
	"os"

	"github.com/dvloznov/budgetiq/cmd/cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
