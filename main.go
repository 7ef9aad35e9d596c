package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"hhn/ledger-bridge/cmd/extract"
	"hhn/ledger-bridge/cmd/load"
	"hhn/ledger-bridge/cmd/root"
	"hhn/ledger-bridge/cmd/transfer"
	"hhn/ledger-bridge/cmd/watermark"
	"hhn/ledger-bridge/internal/config"
)

func init() {
	// .env values must be in the environment before viper reads it
	_, _ = config.LoadEnv()

	root.Init()

	root.Cmd.AddCommand(transfer.Cmd)
	root.Cmd.AddCommand(extract.Cmd)
	root.Cmd.AddCommand(load.Cmd)
	root.Cmd.AddCommand(watermark.Cmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.Cmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
