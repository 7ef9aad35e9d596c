package sink

import (
	"context"

	"hhn/ledger-bridge/internal/etlerror"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"
)

// ReceiptWriter submits a sales receipt to the ledger.
type ReceiptWriter interface {
	AddSalesReceipt(ctx context.Context, txn models.TargetTransaction) (models.TargetTransaction, error)
}

// LedgerSink submits receipts one at a time. The first rejected receipt
// stops the load; receipts already accepted stay in the ledger.
type LedgerSink struct {
	writer ReceiptWriter
	logger logging.Logger
	loaded []models.TargetTransaction
}

// NewLedgerSink creates a LedgerSink.
func NewLedgerSink(writer ReceiptWriter, logger logging.Logger) *LedgerSink {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &LedgerSink{writer: writer, logger: logger}
}

// Write implements Sink.
func (s *LedgerSink) Write(ctx context.Context, txns []models.TargetTransaction) error {
	for _, txn := range txns {
		if err := ctx.Err(); err != nil {
			return &etlerror.LoadError{Sink: "ledger", DocNumber: txn.DocNumber, Err: err}
		}
		stored, err := s.writer.AddSalesReceipt(ctx, txn)
		if err != nil {
			return &etlerror.LoadError{Sink: "ledger", DocNumber: txn.DocNumber, Err: err}
		}
		s.loaded = append(s.loaded, stored)
		s.logger.Info("Sales receipt loaded",
			logging.F(logging.FieldDocNumber, stored.DocNumber),
			logging.F(logging.FieldReferenceID, string(stored.ID)))
	}
	return nil
}

// Loaded returns the receipts accepted by the ledger, as stored.
func (s *LedgerSink) Loaded() []models.TargetTransaction {
	return s.loaded
}
