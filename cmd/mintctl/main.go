package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "mintctl",
		Usage: "SkunkSquad mint service CLI",
		Description: `A command-line tool for operating and debugging the mint service.

Use this CLI to inspect contract state, run a backend credit-card mint by
hand, check server health, and list intents awaiting reconciliation.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			contractCommands(),
			serverCommands(),
			ledgerCommands(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
