package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"squadmint/internal/ledger"
)

func ledgerCommands() *cli.Command {
	return &cli.Command{
		Name:  "ledger",
		Usage: "Minted-intent ledger inspection commands",
		Subcommands: []*cli.Command{
			ledgerFailuresCommand(),
			ledgerGetCommand(),
		},
	}
}

func ledgerStoreFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "database-url",
			Usage:   "Postgres connection URL (preferred over --ledger-path)",
			EnvVars: []string{"DATABASE_URL"},
		},
		&cli.StringFlag{
			Name:    "ledger-path",
			Usage:   "File-backed ledger path",
			Value:   "data/minted-intents.json",
			EnvVars: []string{"LEDGER_PATH"},
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output as JSON",
		},
	}
}

func openStore(c *cli.Context) (ledger.Store, func(), error) {
	if dsn := c.String("database-url"); dsn != "" {
		pg, err := ledger.NewPostgresStore(c.Context, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		return pg, pg.Close, nil
	}
	fs, err := ledger.NewFileStore(c.String("ledger-path"))
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger file: %w", err)
	}
	return fs, func() {}, nil
}

func ledgerFailuresCommand() *cli.Command {
	return &cli.Command{
		Name:  "failures",
		Usage: "List paid intents awaiting manual reconciliation",
		Flags: ledgerStoreFlags(),
		Action: func(c *cli.Context) error {
			store, closeFn, err := openStore(c)
			if err != nil {
				return err
			}
			defer closeFn()

			failures, err := store.Failures(c.Context)
			if err != nil {
				return fmt.Errorf("list failures: %w", err)
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(failures)
			}

			if len(failures) == 0 {
				fmt.Println("No intents awaiting reconciliation.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INTENT\tWALLET\tQTY\tAMOUNT\tREASON")
			for _, f := range failures {
				fmt.Fprintf(w, "%s\t%s\t%d\t$%.2f\t%s\n",
					f.IntentID, f.WalletAddress, f.Quantity,
					float64(f.AmountCents)/100, f.FailureReason)
			}
			return w.Flush()
		},
	}
}

func ledgerGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show one ledger entry by payment intent id",
		ArgsUsage: "INTENT_ID",
		Flags:     ledgerStoreFlags(),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("intent id is required")
			}

			store, closeFn, err := openStore(c)
			if err != nil {
				return err
			}
			defer closeFn()

			entry, err := store.Get(c.Context, c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("get entry: %w", err)
			}
			if entry == nil {
				return fmt.Errorf("no ledger entry for %s", c.Args().Get(0))
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entry)
		},
	}
}
