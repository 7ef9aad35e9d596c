package lookup

import (
	"context"
	"fmt"
	"sync"

	"hhn/ledger-bridge/internal/ledger"
	"hhn/ledger-bridge/internal/logging"
	"hhn/ledger-bridge/internal/models"
)

// CustomerCache maps normalized customer emails to ledger customer ids. It
// is the only cache written to after construction, through Upsert.
type CustomerCache struct {
	mu      sync.Mutex
	entries map[string]models.ReferenceID
}

// NewCustomerCache loads the ledger customers whose primary email is in
// emails. Emails are compared case-insensitively; when two ledger customers
// share an email the first returned wins.
func NewCustomerCache(ctx context.Context, source ledger.DataSource, emails []string, logger logging.Logger) (*CustomerCache, error) {
	normalized := make([]string, 0, len(emails))
	seen := make(map[string]bool, len(emails))
	for _, e := range emails {
		key := models.NormalizeEmail(e)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		normalized = append(normalized, key)
	}

	customers, err := source.CustomersByEmail(ctx, normalized)
	if err != nil {
		return nil, fmt.Errorf("customer cache: %w", err)
	}

	c := &CustomerCache{entries: make(map[string]models.ReferenceID, len(customers))}
	for _, cust := range customers {
		key := models.NormalizeEmail(cust.Email())
		if key == "" || cust.ID == "" {
			continue
		}
		if _, exists := c.entries[key]; !exists {
			c.entries[key] = cust.ID
		}
	}
	logBuilt(orDefault(logger), "customer", len(c.entries))
	return c, nil
}

// Lookup returns the id of the customer with the given email. An empty
// email never matches.
func (c *CustomerCache) Lookup(email string) (models.ReferenceID, bool) {
	key := models.NormalizeEmail(email)
	if key == "" {
		return "", false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.entries[key]
	return id, ok
}

// Upsert records id for email, replacing any previous entry. An empty email
// is ignored.
func (c *CustomerCache) Upsert(email string, id models.ReferenceID) {
	key := models.NormalizeEmail(email)
	if key == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = id
}

// Len returns the number of cached customers.
func (c *CustomerCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
