// Package pricecache holds the latest known price per symbol inside the
// order service. It is fed by the price-topic consumer and read on every
// order placement.
package pricecache

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Cache is safe for one writer stream and many concurrent readers.
// Last write wins; no history is kept. After a restart the cache is empty
// and Get falls back to the default price until the next feed tick.
type Cache struct {
	mu           sync.RWMutex
	prices       map[string]decimal.Decimal
	defaultPrice decimal.Decimal
}

func New(defaultPrice decimal.Decimal) *Cache {
	return &Cache{
		prices:       make(map[string]decimal.Decimal),
		defaultPrice: defaultPrice,
	}
}

// Get returns the latest price for symbol, or the configured default for a
// symbol that has never been quoted. A missing quote is not an error.
func (c *Cache) Get(symbol string) decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()

	price, ok := c.prices[symbol]
	if !ok {
		return c.defaultPrice
	}
	return price
}

// Set overwrites the price for symbol unconditionally.
func (c *Cache) Set(symbol string, price decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prices[symbol] = price
}
