// Package common contains shared functionality for command handlers
package common

import (
	"errors"

	"hhn/ledger-bridge/internal/batch"
	"hhn/ledger-bridge/internal/etlerror"
	"hhn/ledger-bridge/internal/logging"
)

// ReportFailure logs err in detail. Every row failure of an aggregate error
// is logged on its own line with its invoice identity.
func ReportFailure(log logging.Logger, report batch.Report, err error) {
	var aggErr *etlerror.AggregateError
	if errors.As(err, &aggErr) {
		for _, row := range aggErr.Rows {
			log.Error("Invoice failed",
				logging.F(logging.FieldRunID, report.RunID),
				logging.F(logging.FieldInvoiceID, row.InvoiceID),
				logging.F(logging.FieldDocNumber, row.OrderName),
				logging.F(logging.FieldStage, row.Stage),
				logging.F(logging.FieldError, row.Msg))
		}
	}
	log.WithError(err).Error("Run failed", report.Fields()...)
}

// Finish logs the outcome of a run and exits with a failure status when err
// is set.
func Finish(log logging.Logger, operation string, report batch.Report, err error) {
	if err != nil {
		ReportFailure(log, report, err)
		log.Fatal("Aborting", logging.F(logging.FieldOperation, operation))
		return
	}
	log.Info("Run completed", append(report.Fields(), logging.F(logging.FieldOperation, operation))...)
}
