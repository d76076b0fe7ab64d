package main

import (
	"os"

	"github.com/vsinha/moplan/pkg/interfaces/cli/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
