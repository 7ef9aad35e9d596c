// Package transfer implements the transfer command
package transfer

import (
	"context"

	"hhn/ledger-bridge/cmd/common"
	"hhn/ledger-bridge/cmd/root"
	"hhn/ledger-bridge/internal/batch"
	"hhn/ledger-bridge/internal/container"

	"github.com/spf13/cobra"
)

var dryRun bool

// Cmd represents the transfer command
var Cmd = &cobra.Command{
	Use:   "transfer",
	Short: "Transfer new shop invoices into the ledger",
	Long: `Transfer extracts the invoices created since the last imported sales receipt,
builds one sales receipt per invoice and loads them into the ledger.

If any invoice cannot be transformed, every failure is reported and nothing is loaded.

Example:
  ledger-bridge transfer --config config.yaml
  ledger-bridge transfer --dry-run`,
	Run: transferFunc,
}

func init() {
	Cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Transform and log receipts without loading them")
}

func transferFunc(cmd *cobra.Command, args []string) {
	logger := root.GetLogger()
	report, err := Run(cmd.Context(), root.GetContainer(), dryRun)
	common.Finish(logger, "transfer", report, err)
}

// Run performs one transfer with the dependencies of c.
func Run(ctx context.Context, c *container.Container, dryRun bool) (batch.Report, error) {
	controller, err := c.Controller(container.ModeTransfer, dryRun)
	if err != nil {
		return batch.Report{}, err
	}
	return controller.Transfer(ctx)
}
