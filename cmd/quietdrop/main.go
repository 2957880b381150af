package main

import (
	"os"

	"quietdrop/cmd/quietdrop/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
