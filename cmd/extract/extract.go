// Package extract implements the extract command
package extract

import (
	"context"
	"errors"

	"hhn/ledger-bridge/cmd/common"
	"hhn/ledger-bridge/cmd/root"
	"hhn/ledger-bridge/internal/batch"
	"hhn/ledger-bridge/internal/container"

	"github.com/spf13/cobra"
)

var output string

// Cmd represents the extract command
var Cmd = &cobra.Command{
	Use:   "extract",
	Short: "Extract shop invoices to a snapshot file",
	Long: `Extract reads the invoices created after transfer.max_lookback from the shop
database and writes them to a YAML snapshot. The ledger is not contacted.

Example:
  ledger-bridge extract -o invoices.yaml`,
	Run: extractFunc,
}

func init() {
	Cmd.Flags().StringVarP(&output, "output", "o", "invoices.yaml", "Snapshot file to write")
}

func extractFunc(cmd *cobra.Command, args []string) {
	logger := root.GetLogger()
	report, err := Run(cmd.Context(), root.GetContainer(), output)
	common.Finish(logger, "extract", report, err)
}

// Run extracts invoices to path.
func Run(ctx context.Context, c *container.Container, path string) (batch.Report, error) {
	if path == "" {
		return batch.Report{}, errors.New("an output file must be specified")
	}
	controller, err := c.Controller(container.ModeExtract, false)
	if err != nil {
		return batch.Report{}, err
	}
	return controller.Extract(ctx, path)
}
