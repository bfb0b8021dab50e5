package main

import (
	"fmt"
	"os"

	"github.com/hagronnestad/code-deck/cmd/codedeck/commands"
)

// Version information - set during build
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "codedeck:", err)
		os.Exit(1)
	}
}
