package main

import (
	"os"

	"github.com/wonny/altsignals/cmd/altsignals/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
