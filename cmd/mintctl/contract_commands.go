package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"squadmint/internal/contract"
)

func contractCommands() *cli.Command {
	return &cli.Command{
		Name:  "contract",
		Usage: "NFT contract inspection and minting commands",
		Subcommands: []*cli.Command{
			contractStatusCommand(),
			creditMintCommand(),
		},
	}
}

func rpcFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "rpc-url",
			Usage:    "Ethereum JSON-RPC endpoint",
			EnvVars:  []string{"RPC_URL"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "contract",
			Usage:    "NFT contract address",
			EnvVars:  []string{"CONTRACT_ADDRESS"},
			Required: true,
		},
		&cli.BoolFlag{
			Name:    "json",
			Aliases: []string{"j"},
			Usage:   "Output as JSON",
		},
	}
}

func contractStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Print price, supply, and sold-out state",
		Flags: rpcFlags(),
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, 30*time.Second)
			defer cancel()

			reader, err := contract.NewReader(ctx, c.String("rpc-url"), c.String("contract"), contract.NFTABI)
			if err != nil {
				return fmt.Errorf("connect: %w", err)
			}

			price, err := reader.Price(ctx)
			if err != nil {
				return fmt.Errorf("read price: %w", err)
			}
			total, err := reader.TotalSupply(ctx)
			if err != nil {
				return fmt.Errorf("read total supply: %w", err)
			}
			max, err := reader.MaxSupply(ctx)
			if err != nil {
				return fmt.Errorf("read max supply: %w", err)
			}

			status := struct {
				Contract    string `json:"contract"`
				PriceWei    string `json:"priceWei"`
				TotalSupply int64  `json:"totalSupply"`
				MaxSupply   int64  `json:"maxSupply"`
				Remaining   int64  `json:"remaining"`
				SoldOut     bool   `json:"soldOut"`
			}{
				Contract:    c.String("contract"),
				PriceWei:    price.String(),
				TotalSupply: total.Int64(),
				MaxSupply:   max.Int64(),
				Remaining:   max.Int64() - total.Int64(),
				SoldOut:     total.Cmp(max) >= 0,
			}

			if c.Bool("json") {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			fmt.Printf("Contract:     %s\n", status.Contract)
			fmt.Printf("Price (wei):  %s\n", status.PriceWei)
			fmt.Printf("Minted:       %d / %d\n", status.TotalSupply, status.MaxSupply)
			fmt.Printf("Remaining:    %d\n", status.Remaining)
			if status.SoldOut {
				fmt.Println("SOLD OUT")
			}
			return nil
		},
	}
}

func creditMintCommand() *cli.Command {
	flags := append(rpcFlags(),
		&cli.StringFlag{
			Name:     "private-key",
			Usage:    "Backend minter private key (hex)",
			EnvVars:  []string{"MINTER_PRIVATE_KEY"},
			Required: true,
		},
		&cli.StringFlag{
			Name:     "to",
			Usage:    "Recipient wallet address",
			Required: true,
		},
		&cli.Int64Flag{
			Name:  "quantity",
			Usage: "Number of tokens to mint",
			Value: 1,
		},
		&cli.BoolFlag{
			Name:  "wait",
			Usage: "Block until the transaction is mined",
		},
	)

	return &cli.Command{
		Name:  "credit-mint",
		Usage: "Run a backend-signed mint by hand (reconciliation tool)",
		Flags: flags,
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(c.Context, 5*time.Minute)
			defer cancel()

			minter, err := contract.NewMinter(ctx, contract.MinterConfig{
				RPCURL:          c.String("rpc-url"),
				PrivateKeyHex:   c.String("private-key"),
				ContractAddress: c.String("contract"),
			})
			if err != nil {
				return fmt.Errorf("minter: %w", err)
			}

			txHash, err := minter.CreditCardMint(ctx, c.String("to"), c.Int64("quantity"))
			if err != nil {
				return fmt.Errorf("mint: %w", err)
			}
			fmt.Printf("Submitted: %s\n", txHash)

			if !c.Bool("wait") {
				return nil
			}

			record, err := minter.WaitForReceipt(ctx, txHash)
			if err != nil {
				return fmt.Errorf("wait for receipt: %w", err)
			}
			fmt.Printf("Status:    %s (block %d)\n", record.Status, record.BlockNumber)
			return nil
		},
	}
}
