package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"
)

func serverCommands() *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "Mint service utility commands",
		Subcommands: []*cli.Command{
			healthCommand(),
			supplyCommand(),
		},
	}
}

func serverFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Value:   "http://localhost:3002",
			Usage:   "HTTP server URL",
			EnvVars: []string{"SQUADMINT_SERVER_URL"},
		},
	}
}

func healthCommand() *cli.Command {
	return &cli.Command{
		Name:  "health",
		Usage: "Check mint service health",
		Flags: serverFlags(),
		Action: func(c *cli.Context) error {
			return fetchAndPrint(c.String("server") + "/api/health")
		},
	}
}

func supplyCommand() *cli.Command {
	return &cli.Command{
		Name:  "supply",
		Usage: "Fetch the storefront display data",
		Flags: serverFlags(),
		Action: func(c *cli.Context) error {
			return fetchAndPrint(c.String("server") + "/api/supply")
		},
	}
}

func fetchAndPrint(url string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("request %s: %w", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var pretty json.RawMessage
	if err := json.Unmarshal(body, &pretty); err != nil {
		fmt.Println(string(body))
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pretty); err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server answered %s", resp.Status)
	}
	return nil
}
