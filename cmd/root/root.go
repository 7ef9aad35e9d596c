// Package root contains the root command for the application
package root

import (
	"fmt"

	"hhn/ledger-bridge/internal/config"
	"hhn/ledger-bridge/internal/container"
	"hhn/ledger-bridge/internal/logging"

	"github.com/spf13/cobra"
)

// GlobalFlags holds the persistent flags shared by every command.
type GlobalFlags struct {
	ConfigFile string
	LogLevel   string
	LogFormat  string
}

var (
	// Cmd is the root command
	Cmd = &cobra.Command{
		Use:   "ledger-bridge",
		Short: "Transfer shop invoices into the accounting ledger as sales receipts.",
		Long: `ledger-bridge extracts invoices from the shop database, reconciles customers,
items, tax codes and payment methods against the accounting ledger, and loads one
sales receipt per invoice. Runs are incremental: only invoices newer than the last
imported receipt are transferred.`,
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if appContainer == nil {
				return
			}
			if err := appContainer.Close(); err != nil {
				appContainer.GetLogger().WithError(err).Warn("Failed to close container")
			}
		},
		SilenceUsage: true,
	}

	// Flags holds the values of the persistent flags.
	Flags = GlobalFlags{}

	appContainer *container.Container
)

// Init registers the persistent flags.
func Init() {
	Cmd.PersistentFlags().StringVarP(&Flags.ConfigFile, "config", "c", "", "Config file (default: ./config.yaml or $HOME/.ledger-bridge/config.yaml)")
	Cmd.PersistentFlags().StringVar(&Flags.LogLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	Cmd.PersistentFlags().StringVar(&Flags.LogFormat, "log-format", "", "Log format (text or json)")
}

func setup(cmd *cobra.Command) error {
	cfg, err := config.InitializeConfig(Flags.ConfigFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = Flags.LogLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.Log.Format = Flags.LogFormat
	}

	c, err := container.NewContainer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	appContainer = c
	return nil
}

// GetContainer returns the container built for the running command.
func GetContainer() *container.Container {
	return appContainer
}

// GetLogger returns the configured logger, or a default one before setup.
func GetLogger() logging.Logger {
	if appContainer == nil {
		return logging.NewLogrusAdapter("info", "text")
	}
	return appContainer.GetLogger()
}
