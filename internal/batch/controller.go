package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"hhn/ledger-bridge/internal/dateutils"
	"hhn/ledger-bridge/internal/etlerror"
	"hhn/ledger-bridge/internal/ledger"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"
	"hhn/ledger-bridge/internal/sink"
	"hhn/ledger-bridge/internal/source"
	"hhn/ledger-bridge/internal/transform"

	"github.com/google/uuid"
)

// WatermarkResolver computes the lower bound for extraction.
type WatermarkResolver interface {
	ResolveMinimumDate(ctx context.Context) (time.Time, error)
	ResolveOffline() (time.Time, error)
}

// Dependencies groups the collaborators of a Controller. Ledger, Customers
// and Sink may be nil for a controller that only extracts; Source may be
// nil for one that only loads snapshots.
type Dependencies struct {
	Source    source.Provider
	Ledger    ledger.DataSource
	Customers transform.CustomerCreator
	Sink      sink.Sink
	Watermark WatermarkResolver
	Settings  transform.Settings
	Logger    logging.Logger
}

// Controller drives extract, transform and load for one run at a time.
type Controller struct {
	deps   Dependencies
	logger logging.Logger
	now    func() time.Time
}

// NewController creates a Controller.
func NewController(deps Dependencies) *Controller {
	logger := deps.Logger
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Controller{deps: deps, logger: logger, now: time.Now}
}

// Transfer resolves the watermark against the ledger, extracts invoices
// created after it and processes them.
func (c *Controller) Transfer(ctx context.Context) (Report, error) {
	started := c.now()
	report := Report{RunID: uuid.NewString()}
	logger := c.logger.WithField(logging.FieldRunID, report.RunID)

	if c.deps.Watermark == nil || c.deps.Source == nil {
		return report, errors.New("transfer requires a watermark resolver and an invoice source")
	}
	after, err := c.deps.Watermark.ResolveMinimumDate(ctx)
	if err != nil {
		return report, err
	}
	report.Watermark = after

	batch, err := c.deps.Source.FetchInvoices(ctx, after)
	if err != nil {
		return report, err
	}
	logger.Info("Invoices extracted",
		logging.F(logging.FieldCount, batch.Len()),
		logging.F(logging.FieldWatermark, dateutils.FormatFull(after)))

	err = c.process(ctx, logger, batch, &report)
	report.Duration = c.now().Sub(started)
	logger.Info("Transfer finished", report.Fields()...)
	return report, err
}

// Process transforms batch and, when every invoice succeeded, writes the
// receipts to the sink. An empty batch touches neither the ledger nor the
// sink.
func (c *Controller) Process(ctx context.Context, batch models.InvoiceBatch) (Report, error) {
	started := c.now()
	report := Report{RunID: uuid.NewString()}
	logger := c.logger.WithField(logging.FieldRunID, report.RunID)

	err := c.process(ctx, logger, batch, &report)
	report.Duration = c.now().Sub(started)
	return report, err
}

// Extract fetches invoices created after the maximum lookback date and
// stores them at path without contacting the ledger.
func (c *Controller) Extract(ctx context.Context, path string) (Report, error) {
	started := c.now()
	report := Report{RunID: uuid.NewString()}
	logger := c.logger.WithField(logging.FieldRunID, report.RunID)

	if c.deps.Watermark == nil || c.deps.Source == nil {
		return report, errors.New("extract requires a watermark resolver and an invoice source")
	}
	after, err := c.deps.Watermark.ResolveOffline()
	if err != nil {
		return report, err
	}
	report.Watermark = after

	batch, err := c.deps.Source.FetchInvoices(ctx, after)
	if err != nil {
		return report, err
	}
	report.Extracted = batch.Len()
	report.Invoices = invoiceDateRange(batch.Invoices)
	detectDuplicateOrders(batch.Invoices, logger)

	snapshot := models.Snapshot{
		Version:     models.SnapshotVersion,
		ExtractedAt: c.now().UTC(),
		After:       after,
		Batch:       batch,
	}
	if err := sink.WriteSnapshot(path, snapshot); err != nil {
		return report, err
	}
	report.Duration = c.now().Sub(started)
	logger.Info("Snapshot written",
		logging.F(logging.FieldOutputFile, path),
		logging.F(logging.FieldCount, report.Extracted))
	return report, nil
}

// LoadSnapshot processes a batch previously stored by Extract.
func (c *Controller) LoadSnapshot(ctx context.Context, path string) (Report, error) {
	snapshot, err := sink.ReadSnapshot(path)
	if err != nil {
		return Report{}, err
	}
	c.logger.Info("Snapshot read",
		logging.F(logging.FieldInputFile, path),
		logging.F(logging.FieldCount, snapshot.Batch.Len()))

	report, err := c.Process(ctx, snapshot.Batch)
	report.Watermark = snapshot.After
	c.logger.Info("Load finished", report.Fields()...)
	return report, err
}

func (c *Controller) process(ctx context.Context, logger logging.Logger, batch models.InvoiceBatch, report *Report) error {
	report.Extracted = batch.Len()
	if batch.IsEmpty() {
		logger.Info("No invoices to transfer")
		return nil
	}
	if c.deps.Ledger == nil || c.deps.Customers == nil || c.deps.Sink == nil {
		return errors.New("processing requires a ledger, a customer creator and a sink")
	}
	report.Invoices = invoiceDateRange(batch.Invoices)
	detectDuplicateOrders(batch.Invoices, logger)

	caches, err := transform.BuildCaches(ctx, c.deps.Ledger, batch, c.deps.Settings.PaymentNames, logger)
	if err != nil {
		return cacheError(err)
	}
	resolver := transform.NewCustomerResolver(caches.Customers, c.deps.Customers, logger)
	pipeline := transform.NewPipeline(c.deps.Settings, caches, resolver, logger)

	outcome, err := pipeline.Run(ctx, batch.Invoices)
	report.Transformed = len(outcome.Succeeded)
	report.Failed = len(outcome.Failed)
	if err != nil {
		return err
	}
	if aggErr := outcome.Err(); aggErr != nil {
		logger.Error("Invoices failed to transform, nothing was loaded",
			logging.F(logging.FieldFailed, report.Failed),
			logging.F(logging.FieldCount, report.Extracted))
		return aggErr
	}

	if err := c.deps.Sink.Write(ctx, outcome.Succeeded); err != nil {
		return err
	}
	report.Loaded = len(outcome.Succeeded)
	return nil
}

// cacheError makes sure cache construction failures surface as ledger
// errors.
func cacheError(err error) error {
	var ledgerErr *etlerror.LedgerError
	if errors.As(err, &ledgerErr) {
		return fmt.Errorf("failed to build lookup caches: %w", err)
	}
	return &etlerror.LedgerError{Operation: "query", Entity: "lookup caches", Err: err}
}
