package main

import (
	"github.com/khatadev/khata/cmd"

	// Subcommands register themselves on the root command via init().
	_ "github.com/khatadev/khata/cmd/cli"
	_ "github.com/khatadev/khata/cmd/server"
)

func main() {
	cmd.Execute()
}
