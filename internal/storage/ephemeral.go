package storage

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"storefront/internal/domain"
)

// KeyOrderConfirmation holds the last placed order until it is shown.
const KeyOrderConfirmation = "orderConfirmation"

type ephemeralEntry struct {
	value   string
	expires time.Time
}

// Ephemeral is a process-local store whose entries expire after a TTL.
// It plays the part of tab-scoped session storage.
type Ephemeral struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]ephemeralEntry
}

// NewEphemeral returns a store; ttl <= 0 keeps entries for the life of the process.
func NewEphemeral(ttl time.Duration) *Ephemeral {
	return &Ephemeral{ttl: ttl, now: time.Now, entries: make(map[string]ephemeralEntry)}
}

func (e *Ephemeral) Get(key string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry, ok := e.entries[key]
	if !ok {
		return "", false
	}
	if !entry.expires.IsZero() && !e.now().Before(entry.expires) {
		delete(e.entries, key)
		return "", false
	}
	return entry.value, true
}

func (e *Ephemeral) Set(key, value string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	entry := ephemeralEntry{value: value}
	if e.ttl > 0 {
		entry.expires = e.now().Add(e.ttl)
	}
	e.entries[key] = entry
}

func (e *Ephemeral) Remove(key string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.entries, key)
}

// OrderConfirmation returns nil when none is held.
func (e *Ephemeral) OrderConfirmation() (*domain.OrderConfirmation, error) {
	raw, ok := e.Get(KeyOrderConfirmation)
	if !ok {
		return nil, nil
	}
	var out domain.OrderConfirmation
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, KeyOrderConfirmation, err)
	}
	return &out, nil
}

func (e *Ephemeral) SetOrderConfirmation(c domain.OrderConfirmation) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode %s: %w", KeyOrderConfirmation, err)
	}
	e.Set(KeyOrderConfirmation, string(raw))
	return nil
}
