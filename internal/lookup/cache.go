// Package lookup resolves shop-side business keys into ledger reference ids.
// Caches are built for a single transfer run and never invalidated: bulk
// caches are filled by one query at construction, the lazy cache fills one
// entry per first miss.
package lookup

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"hhn/ledger-bridge/internal/logging"
)

// bulkCache is an immutable map built from one query result. When several
// records share a key the earliest one is kept.
type bulkCache[K comparable, V any] struct {
	name    string
	entries map[K]V
}

func newBulkCache[K comparable, V any, R any](name string, records []R, entry func(R) (K, V, bool)) *bulkCache[K, V] {
	c := &bulkCache[K, V]{name: name, entries: make(map[K]V, len(records))}
	for _, rec := range records {
		key, value, ok := entry(rec)
		if !ok {
			continue
		}
		if _, exists := c.entries[key]; exists {
			continue
		}
		c.entries[key] = value
	}
	return c
}

func (c *bulkCache[K, V]) lookup(key K) (V, bool) {
	v, ok := c.entries[key]
	return v, ok
}

// Len returns the number of cached entries.
func (c *bulkCache[K, V]) Len() int {
	return len(c.entries)
}

// String renders the cached pairs sorted by key, for error reports.
func (c *bulkCache[K, V]) String() string {
	return renderEntries(c.entries)
}

// lazyCache fills one entry per first miss. Keys the ledger does not know
// are not remembered, so asking again queries again.
type lazyCache[K comparable, V any] struct {
	name    string
	entries map[K]V
	fetch   func(ctx context.Context, key K) (V, bool, error)
}

func newLazyCache[K comparable, V any](name string, fetch func(ctx context.Context, key K) (V, bool, error)) *lazyCache[K, V] {
	return &lazyCache[K, V]{name: name, entries: make(map[K]V), fetch: fetch}
}

func (c *lazyCache[K, V]) lookup(ctx context.Context, key K) (V, bool, error) {
	if v, ok := c.entries[key]; ok {
		return v, true, nil
	}
	v, ok, err := c.fetch(ctx, key)
	if err != nil {
		var zero V
		return zero, false, fmt.Errorf("%s cache: %w", c.name, err)
	}
	if ok {
		c.entries[key] = v
	}
	return v, ok, nil
}

// Len returns the number of cached entries.
func (c *lazyCache[K, V]) Len() int {
	return len(c.entries)
}

// String renders the cached pairs sorted by key, for error reports.
func (c *lazyCache[K, V]) String() string {
	return renderEntries(c.entries)
}

func renderEntries[K comparable, V any](entries map[K]V) string {
	pairs := make([]string, 0, len(entries))
	for k, v := range entries {
		pairs = append(pairs, fmt.Sprintf("[%v, %v]", k, v))
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ", ")
}

func logBuilt(logger logging.Logger, name string, size int) {
	logger.Debug("Lookup cache built",
		logging.Field{Key: logging.FieldCacheName, Value: name},
		logging.Field{Key: logging.FieldCount, Value: size})
}

func orDefault(logger logging.Logger) logging.Logger {
	if logger == nil {
		return logging.NewLogrusAdapter("info", "text")
	}
	return logger
}
