package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"
)

// CustomerCreator adds shop customers to the ledger under a unique display
// name.
type CustomerCreator struct {
	source DataSource
	writer WriteGateway
	logger logging.Logger
}

// NewCustomerCreator creates a CustomerCreator.
func NewCustomerCreator(source DataSource, writer WriteGateway, logger logging.Logger) *CustomerCreator {
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &CustomerCreator{source: source, writer: writer, logger: logger}
}

// Create adds customer to the ledger and returns the stored record.
func (c *CustomerCreator) Create(ctx context.Context, customer models.Customer) (models.TargetCustomer, error) {
	fullName := customer.FullName()
	if fullName == "" {
		fullName = customer.Key()
	}

	// The ledger query language cannot take an apostrophe inside LIKE.
	searchName := strings.ReplaceAll(fullName, "'", "")
	matches, err := c.source.CustomersByDisplayNamePrefix(ctx, searchName)
	if err != nil {
		return models.TargetCustomer{}, fmt.Errorf("failed to look up display names for %q: %w", fullName, err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m.DisplayName)
	}
	record := models.NewTargetCustomer(customer)
	record.DisplayName = NextDisplayName(fullName, names)

	created, err := c.writer.AddCustomer(ctx, record)
	if err != nil {
		return models.TargetCustomer{}, fmt.Errorf("failed to create customer %q: %w", record.DisplayName, err)
	}

	c.logger.Info("Created ledger customer",
		logging.Field{Key: logging.FieldDisplayName, Value: created.DisplayName},
		logging.Field{Key: logging.FieldEmail, Value: customer.Key()},
		logging.Field{Key: logging.FieldReferenceID, Value: string(created.ID)})
	return created, nil
}

// NextDisplayName returns the display name to use for fullName given the
// display names already in the ledger. Only names equal to fullName or of the
// form "fullName #NNNNN" count; the highest suffix among them is incremented.
// New customers always carry a suffix.
func NextDisplayName(fullName string, existing []string) string {
	next := 1
	for _, name := range existing {
		n, ok := displayNameSuffix(fullName, name)
		if ok && n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s #%05d", fullName, next)
}

// displayNameSuffix reports the numeric suffix of name when it belongs to
// fullName. A bare fullName has suffix 0. Apostrophes and case are ignored.
func displayNameSuffix(fullName, name string) (int, bool) {
	base := strings.ToLower(strings.ReplaceAll(fullName, "'", ""))
	candidate := strings.ToLower(strings.ReplaceAll(name, "'", ""))
	if !strings.HasPrefix(candidate, base) {
		return 0, false
	}
	rest := strings.TrimPrefix(candidate, base)
	if rest == "" {
		return 0, true
	}
	rest = strings.TrimPrefix(rest, " ")
	if !strings.HasPrefix(rest, "#") {
		return 0, false
	}
	digits := strings.TrimLeftFunc(rest[1:], unicode.IsSpace)
	if digits == "" || strings.IndexFunc(digits, func(r rune) bool { return !unicode.IsDigit(r) }) >= 0 {
		return 0, false
	}
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return n, true
}
