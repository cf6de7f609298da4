// Package pending is a short-TTL relay for two-step form interactions: a
// modal submission cannot carry request state in the submission itself, so
// the first step parks the decoded request here keyed by a one-time token.
// Entries are a relay only, never a source of truth; when one expires the
// rendered card is decoded instead.
package pending

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultSize = 256
	defaultTTL  = 15 * time.Minute
)

// Cache holds values for the single next step of an interaction.
type Cache[V any] struct {
	lru *expirable.LRU[string, V]
}

// New creates a relay cache with the default size and TTL.
func New[V any]() *Cache[V] {
	return NewWithTTL[V](defaultSize, defaultTTL)
}

// NewWithTTL creates a relay cache with an explicit size and TTL.
func NewWithTTL[V any](size int, ttl time.Duration) *Cache[V] {
	return &Cache[V]{lru: expirable.NewLRU[string, V](size, nil, ttl)}
}

// Put parks a value under a token.
func (c *Cache[V]) Put(token string, v V) {
	c.lru.Add(token, v)
}

// Take removes and returns the value for a token. ok is false when the
// token is unknown or the entry expired.
func (c *Cache[V]) Take(token string) (V, bool) {
	v, ok := c.lru.Get(token)
	if ok {
		c.lru.Remove(token)
	}
	return v, ok
}
