// Package load implements the load command
package load

import (
	"context"
	"errors"

	"hhn/ledger-bridge/cmd/common"
	"hhn/ledger-bridge/cmd/root"
	"hhn/ledger-bridge/internal/batch"
	"hhn/ledger-bridge/internal/container"

	"github.com/spf13/cobra"
)

var (
	input  string
	dryRun bool
)

// Cmd represents the load command
var Cmd = &cobra.Command{
	Use:   "load",
	Short: "Load a snapshot file into the ledger",
	Long: `Load transforms the invoices of a snapshot written by extract and loads the
resulting sales receipts into the ledger.

Example:
  ledger-bridge load -i invoices.yaml`,
	Run: loadFunc,
}

func init() {
	Cmd.Flags().StringVarP(&input, "input", "i", "invoices.yaml", "Snapshot file to read")
	Cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Transform and log receipts without loading them")
}

func loadFunc(cmd *cobra.Command, args []string) {
	logger := root.GetLogger()
	report, err := Run(cmd.Context(), root.GetContainer(), input, dryRun)
	common.Finish(logger, "load", report, err)
}

// Run loads the snapshot at path.
func Run(ctx context.Context, c *container.Container, path string, dryRun bool) (batch.Report, error) {
	if path == "" {
		return batch.Report{}, errors.New("an input file must be specified")
	}
	controller, err := c.Controller(container.ModeLoad, dryRun)
	if err != nil {
		return batch.Report{}, err
	}
	return controller.LoadSnapshot(ctx, path)
}
