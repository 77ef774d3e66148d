package main

import (
	"os"

	"github.com/JonMunkholm/bulkedit/cmd/bulkedit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
