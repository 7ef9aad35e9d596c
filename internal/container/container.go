// Package container provides dependency injection for ledger-bridge.
// It centralizes the creation and wiring of the transfer dependencies,
// making them explicit and testable.
package container

import (
	"database/sql"
	"fmt"
	"time"

	"hhn/ledger-bridge/internal/batch"
	"hhn/ledger-bridge/internal/config"
	"hhn/ledger-bridge/internal/ledger"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/sink"
	"hhn/ledger-bridge/internal/source"
	"hhn/ledger-bridge/internal/store"
	"hhn/ledger-bridge/internal/transform"
	"hhn/ledger-bridge/internal/watermark"
)

// Mode selects which collaborators a controller is built with.
type Mode int

const (
	// ModeTransfer reads the shop database and writes to the ledger.
	ModeTransfer Mode = iota
	// ModeExtract reads the shop database only.
	ModeExtract
	// ModeLoad writes a snapshot to the ledger.
	ModeLoad
	// ModeWatermark queries the ledger only.
	ModeWatermark
)

func (m Mode) needsSource() bool { return m == ModeTransfer || m == ModeExtract }
func (m Mode) needsLedger() bool { return m != ModeExtract }

// Option customizes a Container.
type Option func(*Container)

// WithGateway makes the container use gateway instead of the HTTP client.
func WithGateway(gateway ledger.Gateway) Option {
	return func(c *Container) { c.gateway = gateway }
}

// WithProvider makes the container use provider instead of MySQL.
func WithProvider(provider source.Provider) Option {
	return func(c *Container) { c.provider = provider }
}

// WithLogger replaces the logger built from configuration.
func WithLogger(logger logging.Logger) Option {
	return func(c *Container) { c.logger = logger }
}

// Container holds the application dependencies. Ledger and database
// connections are opened on first use so that a command only needs the
// credentials of the systems it touches.
type Container struct {
	logger   logging.Logger
	config   *config.Config
	settings transform.Settings

	gateway  ledger.Gateway
	provider source.Provider
	db       *sql.DB
}

// NewContainer creates the container and loads the tax code table.
func NewContainer(cfg *config.Config, opts ...Option) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	c := &Container{config: cfg}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)
	}

	fileCodes, err := store.NewTaxCodeStore(cfg.Transfer.TaxCodeFile, c.logger).Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load tax codes: %w", err)
	}
	taxCodes := store.Merge(cfg.Transfer.TaxCodeTable(), fileCodes)
	c.settings = transform.SettingsFromConfig(cfg.Transfer, taxCodes)

	c.logger.Debug("Container initialized",
		logging.F("tax_codes", len(taxCodes)),
		logging.F("shipping_item", cfg.Transfer.ShippingSKU != ""))
	return c, nil
}

// Gateway returns the ledger connection, creating the HTTP client on first
// use.
func (c *Container) Gateway() (ledger.Gateway, error) {
	if c.gateway != nil {
		return c.gateway, nil
	}
	if err := c.config.ValidateTarget(); err != nil {
		return nil, err
	}
	target := c.config.Target
	client, err := ledger.NewHTTPClient(ledger.HTTPConfig{
		BaseURL:           target.BaseURL,
		RealmID:           target.RealmID,
		AccessToken:       target.AccessToken,
		MinorVersion:      target.MinorVersion,
		Timeout:           time.Duration(target.TimeoutSeconds) * time.Second,
		RequestsPerMinute: target.RequestsPerMinute,
	}, c.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create ledger client: %w", err)
	}
	c.gateway = client
	return client, nil
}

// Provider returns the invoice source, opening the shop database on first
// use.
func (c *Container) Provider() (source.Provider, error) {
	if c.provider != nil {
		return c.provider, nil
	}
	if err := c.config.ValidateSource(); err != nil {
		return nil, err
	}
	db, err := source.OpenMySQL(c.config.Source)
	if err != nil {
		return nil, err
	}
	c.db = db
	c.provider = source.NewMySQLProvider(db, c.logger)
	return c.provider, nil
}

// Sink returns the output for produced receipts. A dry run logs receipts
// instead of loading them. The CSV report is added when configured.
func (c *Container) Sink(gateway ledger.WriteGateway, dryRun bool) sink.Sink {
	var primary sink.Sink
	if dryRun {
		primary = sink.NewLogSink(c.logger)
	} else {
		primary = sink.NewLedgerSink(gateway, c.logger)
	}
	if path := c.config.Output.ReportFile; path != "" {
		return sink.MultiSink{primary, sink.NewCSVReportSink(path, c.logger)}
	}
	return primary
}

// Watermark returns a resolver reading the last imported receipt through
// data. data may be nil when only the offline lookback is needed.
func (c *Container) Watermark(data ledger.DataSource) *watermark.Resolver {
	return watermark.NewResolver(data, watermark.Settings{
		DocNumberPrefix:  c.config.Transfer.DocNumberPrefix,
		InvoiceDateField: c.config.Transfer.InvoiceDateField,
		MaxLookback:      c.config.Transfer.MaxLookback,
	}, c.logger)
}

// Controller builds a batch controller with the collaborators mode needs.
func (c *Container) Controller(mode Mode, dryRun bool) (*batch.Controller, error) {
	deps := batch.Dependencies{
		Settings: c.settings,
		Logger:   c.logger,
	}

	if mode.needsSource() {
		provider, err := c.Provider()
		if err != nil {
			return nil, err
		}
		deps.Source = provider
	}

	var data ledger.DataSource
	if mode.needsLedger() {
		gateway, err := c.Gateway()
		if err != nil {
			return nil, err
		}
		data = ledger.NewQueryDataSource(gateway, c.logger)
		deps.Ledger = data
		deps.Customers = ledger.NewCustomerCreator(data, gateway, c.logger)
		deps.Sink = c.Sink(gateway, dryRun)
	}
	deps.Watermark = c.Watermark(data)

	return batch.NewController(deps), nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// Settings returns the transform settings derived from configuration.
func (c *Container) Settings() transform.Settings {
	return c.settings
}

// Close releases the database connection if one was opened.
func (c *Container) Close() error {
	if c.db == nil {
		return nil
	}
	err := c.db.Close()
	c.db = nil
	return err
}
