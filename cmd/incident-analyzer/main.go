package main

import (
	"os"

	"github.com/miradorstack/incident-analyzer/cmd/incident-analyzer/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
