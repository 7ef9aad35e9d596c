// Package config provides Viper-based hierarchical configuration management
package config

import (
	"errors"
	"fmt"
	"strings"

	"hhn/ledger-bridge/internal/dateutils"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Source   SourceConfig   `mapstructure:"source" yaml:"source"`
	Target   TargetConfig   `mapstructure:"target" yaml:"target"`
	Transfer TransferConfig `mapstructure:"transfer" yaml:"transfer"`
	Output   OutputConfig   `mapstructure:"output" yaml:"output"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// SourceConfig describes the shop database.
type SourceConfig struct {
	Host           string `mapstructure:"host" yaml:"host"`
	Port           int    `mapstructure:"port" yaml:"port"`
	Database       string `mapstructure:"database" yaml:"database"`
	User           string `mapstructure:"user" yaml:"user"`
	Password       string `mapstructure:"password" yaml:"-"` // Never serialize credentials
	TimeoutSeconds int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
}

// TargetConfig describes the accounting ledger API.
type TargetConfig struct {
	BaseURL           string `mapstructure:"base_url" yaml:"base_url"`
	RealmID           string `mapstructure:"realm_id" yaml:"realm_id"`
	AccessToken       string `mapstructure:"access_token" yaml:"-"` // Never serialize credentials
	MinorVersion      int    `mapstructure:"minor_version" yaml:"minor_version"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds" yaml:"timeout_seconds"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// PaymentMethodNames maps each payment tag to the ledger payment method name.
type PaymentMethodNames struct {
	Card   string `mapstructure:"card" yaml:"card"`
	PayPal string `mapstructure:"paypal" yaml:"paypal"`
}

// TaxCodeMapping translates a shop tax code name into a ledger tax code name.
// Stored as a list because viper lower-cases map keys and tax code names are
// compared case-sensitively.
type TaxCodeMapping struct {
	Source string `mapstructure:"source" yaml:"source"`
	Target string `mapstructure:"target" yaml:"target"`
}

// TransferConfig holds every setting the transform stages and the watermark
// resolver read.
type TransferConfig struct {
	// InvoiceDateField is the 1-based custom field slot holding the source
	// timestamp. Zero means unset.
	InvoiceDateField int                `mapstructure:"invoice_date_field" yaml:"invoice_date_field"`
	ClassName        string             `mapstructure:"class_name" yaml:"class_name"`
	DepositAccount   string             `mapstructure:"deposit_account" yaml:"deposit_account"`
	PaymentMethods   PaymentMethodNames `mapstructure:"payment_methods" yaml:"payment_methods"`
	ShippingSKU      string             `mapstructure:"shipping_sku" yaml:"shipping_sku"`
	TimeDiffHours    int                `mapstructure:"time_diff_hours" yaml:"time_diff_hours"`
	MaxLookback      string             `mapstructure:"max_lookback" yaml:"max_lookback"`
	DocNumberPrefix  string             `mapstructure:"doc_number_prefix" yaml:"doc_number_prefix"`
	TaxCodes         []TaxCodeMapping   `mapstructure:"tax_codes" yaml:"tax_codes"`
	TaxCodeFile      string             `mapstructure:"tax_code_file" yaml:"tax_code_file"`
}

// OutputConfig configures optional file outputs.
type OutputConfig struct {
	ReportFile string `mapstructure:"report_file" yaml:"report_file"`
}

// InitializeConfig loads configuration from defaults, an optional config
// file and LEDGER_* environment variables, in increasing precedence. When
// configFile is empty the standard locations are searched and a missing file
// is not an error.
func InitializeConfig(configFile string) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Config file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("$HOME/.ledger-bridge")
		v.AddConfigPath(".ledger-bridge")
		v.AddConfigPath(".")
	}

	// 3. Environment variables
	v.SetEnvPrefix("LEDGER")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 4. Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file %s: %w", v.ConfigFileUsed(), err)
		}
	}

	// 5. Credentials commonly come from the deployment environment
	if err := v.BindEnv("target.access_token", "LEDGER_TARGET_ACCESS_TOKEN", "QBO_ACCESS_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind access token environment variable: %w", err)
	}
	if err := v.BindEnv("source.password", "LEDGER_SOURCE_PASSWORD", "MAGENTO_DB_PASSWORD"); err != nil {
		return nil, fmt.Errorf("failed to bind source password environment variable: %w", err)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Validate configuration
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("source.host", "localhost")
	v.SetDefault("source.port", 3306)
	v.SetDefault("source.database", "magento")
	v.SetDefault("source.user", "")
	v.SetDefault("source.password", "")
	v.SetDefault("source.timeout_seconds", 30)

	v.SetDefault("target.base_url", "https://quickbooks.api.intuit.com")
	v.SetDefault("target.realm_id", "")
	v.SetDefault("target.access_token", "")
	v.SetDefault("target.minor_version", 65)
	v.SetDefault("target.timeout_seconds", 30)
	v.SetDefault("target.requests_per_minute", 400)

	v.SetDefault("transfer.invoice_date_field", 0)
	v.SetDefault("transfer.class_name", "")
	v.SetDefault("transfer.deposit_account", "")
	v.SetDefault("transfer.payment_methods.card", "")
	v.SetDefault("transfer.payment_methods.paypal", "")
	v.SetDefault("transfer.shipping_sku", "")
	v.SetDefault("transfer.time_diff_hours", 0)
	v.SetDefault("transfer.max_lookback", "2015-01-01 00:00:00")
	v.SetDefault("transfer.doc_number_prefix", "CAN")
	v.SetDefault("transfer.tax_codes", []TaxCodeMapping{})
	v.SetDefault("transfer.tax_code_file", "")

	v.SetDefault("output.report_file", "")
}

// validateConfig validates the configuration values
func validateConfig(config *Config) error {
	if _, err := logrus.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", config.Log.Level)
	}

	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("invalid log format: %s (must be 'text' or 'json')", config.Log.Format)
	}

	if config.Transfer.InvoiceDateField < 0 {
		return fmt.Errorf("transfer.invoice_date_field must be a 1-based position, got: %d", config.Transfer.InvoiceDateField)
	}

	if config.Transfer.TimeDiffHours < -24 || config.Transfer.TimeDiffHours > 24 {
		return fmt.Errorf("transfer.time_diff_hours must be between -24 and 24, got: %d", config.Transfer.TimeDiffHours)
	}

	if _, err := dateutils.ParseFull(config.Transfer.MaxLookback); err != nil {
		return fmt.Errorf("transfer.max_lookback: %w", err)
	}

	for i, m := range config.Transfer.TaxCodes {
		if m.Source == "" || m.Target == "" {
			return fmt.Errorf("transfer.tax_codes[%d] needs both source and target", i)
		}
	}

	if config.Target.RequestsPerMinute < 1 || config.Target.RequestsPerMinute > 1000 {
		return fmt.Errorf("target.requests_per_minute must be between 1 and 1000, got: %d", config.Target.RequestsPerMinute)
	}

	if config.Target.TimeoutSeconds < 1 || config.Target.TimeoutSeconds > 300 {
		return fmt.Errorf("target.timeout_seconds must be between 1 and 300, got: %d", config.Target.TimeoutSeconds)
	}

	return nil
}

// ValidateTarget checks the settings needed to talk to the ledger.
func (c *Config) ValidateTarget() error {
	var missing []string
	if c.Target.BaseURL == "" {
		missing = append(missing, "target.base_url")
	}
	if c.Target.RealmID == "" {
		missing = append(missing, "target.realm_id")
	}
	if c.Target.AccessToken == "" {
		missing = append(missing, "target.access_token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// ValidateSource checks the settings needed to query the shop database.
func (c *Config) ValidateSource() error {
	var missing []string
	if c.Source.Host == "" {
		missing = append(missing, "source.host")
	}
	if c.Source.Database == "" {
		missing = append(missing, "source.database")
	}
	if c.Source.User == "" {
		missing = append(missing, "source.user")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// TaxCodeTable returns the inline tax code translation as a map.
func (t TransferConfig) TaxCodeTable() map[string]string {
	table := make(map[string]string, len(t.TaxCodes))
	for _, m := range t.TaxCodes {
		if _, exists := table[m.Source]; !exists {
			table[m.Source] = m.Target
		}
	}
	return table
}
