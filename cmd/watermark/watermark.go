// Package watermark implements the watermark command
package watermark

import (
	"context"
	"fmt"
	"io"
	"time"

	"hhn/ledger-bridge/cmd/root"
	"hhn/ledger-bridge/internal/container"
	"hhn/ledger-bridge/internal/dateutils"
	"hhn/ledger-bridge/internal/ledger"

	"github.com/spf13/cobra"
)

var offline bool

// Cmd represents the watermark command
var Cmd = &cobra.Command{
	Use:   "watermark",
	Short: "Print the date after which invoices would be extracted",
	Long: `Watermark resolves the extraction lower bound from the last imported sales
receipt, falling back to transfer.max_lookback, and prints it.

Example:
  ledger-bridge watermark
  ledger-bridge watermark --offline`,
	Run: watermarkFunc,
}

func init() {
	Cmd.Flags().BoolVar(&offline, "offline", false, "Print the lookback date without querying the ledger")
}

func watermarkFunc(cmd *cobra.Command, args []string) {
	logger := root.GetLogger()
	if err := Run(cmd.Context(), root.GetContainer(), offline, cmd.OutOrStdout()); err != nil {
		logger.WithError(err).Fatal("Failed to resolve watermark")
	}
}

// Run writes the resolved watermark to out.
func Run(ctx context.Context, c *container.Container, offline bool, out io.Writer) error {
	var (
		ts  time.Time
		err error
	)
	if offline {
		ts, err = c.Watermark(nil).ResolveOffline()
	} else {
		gateway, gwErr := c.Gateway()
		if gwErr != nil {
			return gwErr
		}
		ts, err = c.Watermark(ledger.NewQueryDataSource(gateway, c.GetLogger())).ResolveMinimumDate(ctx)
	}
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, dateutils.FormatFull(ts))
	return err
}
