// Package sink writes the sales receipts produced by a run.
package sink

import (
	"context"

	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"
)

// Sink receives the receipts of a run once every invoice was transformed.
type Sink interface {
	Write(ctx context.Context, txns []models.TargetTransaction) error
}

// MultiSink writes to each sink in turn and stops at the first failure.
type MultiSink []Sink

// Write implements Sink.
func (m MultiSink) Write(ctx context.Context, txns []models.TargetTransaction) error {
	for _, s := range m {
		if err := s.Write(ctx, txns); err != nil {
			return err
		}
	}
	return nil
}

// LogSink logs the receipts it is given and writes nothing. It backs dry
// runs.
type LogSink struct {
	logger logging.Logger
}

// NewLogSink creates a LogSink.
func NewLogSink(logger logging.Logger) *LogSink {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &LogSink{logger: logger}
}

// Write implements Sink.
func (s *LogSink) Write(_ context.Context, txns []models.TargetTransaction) error {
	for _, txn := range txns {
		s.logger.Info("Dry run: sales receipt not loaded",
			logging.F(logging.FieldDocNumber, txn.DocNumber),
			logging.F("total", txn.Total().StringFixed(2)),
			logging.F("lines", len(txn.Lines)))
	}
	return nil
}
