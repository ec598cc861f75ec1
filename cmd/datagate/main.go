package main

import (
	"os"

	"github.com/wonny/datagate/cmd/datagate/commands"
)

// main is the entry point for the datagate CLI
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
