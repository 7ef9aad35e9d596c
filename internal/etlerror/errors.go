// Package etlerror defines the error taxonomy of a transfer run. Extraction,
// ledger and load errors abort the run. Row errors drop a single invoice and
// are reported together through AggregateError once every row was attempted.
package etlerror

import (
	"errors"
	"fmt"
	"strings"
)

// ExtractionError represents a failure reading from the source ledger or
// resolving where extraction should start.
type ExtractionError struct {
	Source string
	Reason string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("extraction from %s failed: %s", e.Source, e.Reason)
	}
	return fmt.Sprintf("extraction from %s failed: %s: %v", e.Source, e.Reason, e.Err)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// RowError is a recoverable failure transforming one invoice.
type RowError struct {
	InvoiceID int
	OrderName string
	Stage     string
	Msg       string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("invoice %d (order %s) %s: %s", e.InvoiceID, e.OrderName, e.Stage, e.Msg)
}

// LedgerError represents a connectivity or protocol failure talking to the
// target ledger. StatusCode is zero when no HTTP response was received.
type LedgerError struct {
	Operation  string
	Entity     string
	StatusCode int
	Err        error
}

func (e *LedgerError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ledger %s %s failed with status %d: %v", e.Operation, e.Entity, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ledger %s %s failed: %v", e.Operation, e.Entity, e.Err)
}

func (e *LedgerError) Unwrap() error {
	return e.Err
}

// LoadError represents a failure writing a produced transaction to an
// output sink.
type LoadError struct {
	Sink      string
	DocNumber string
	Err       error
}

func (e *LoadError) Error() string {
	if e.DocNumber == "" {
		return fmt.Sprintf("%s: load failed: %v", e.Sink, e.Err)
	}
	return fmt.Sprintf("%s: load of %s failed: %v", e.Sink, e.DocNumber, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// AggregateHeader prefixes the message of an AggregateError.
const AggregateHeader = "errors encountered during data transformation:"

// AggregateError carries every row failure of a run.
type AggregateError struct {
	Rows []*RowError
}

// NewAggregateError returns nil when rows is empty.
func NewAggregateError(rows []*RowError) error {
	if len(rows) == 0 {
		return nil
	}
	return &AggregateError{Rows: rows}
}

// Messages returns the row messages in the order they were recorded.
func (e *AggregateError) Messages() []string {
	msgs := make([]string, len(e.Rows))
	for i, r := range e.Rows {
		msgs[i] = r.Error()
	}
	return msgs
}

func (e *AggregateError) Error() string {
	return AggregateHeader + "\n" + strings.Join(e.Messages(), "\n")
}

// IsRowError reports whether err is, or wraps, a RowError.
func IsRowError(err error) bool {
	var rowErr *RowError
	return errors.As(err, &rowErr)
}

// IsFatal reports whether err must abort a run immediately. Row errors are
// the only recoverable kind.
func IsFatal(err error) bool {
	return err != nil && !IsRowError(err)
}
