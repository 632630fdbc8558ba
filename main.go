package main

import (
	"os"

	"github.com/mrlokans/booklook/internal/cli"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	// "serve" is the default when no command is given
	args := os.Args[1:]
	if len(args) == 0 {
		args = []string{"serve"}
	}

	root := cli.NewRootCommand(Version, Commit)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
