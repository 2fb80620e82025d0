// Package feed defines price sources and the latest-tick cache the
// desk reads between updates.
package feed

import (
	"context"
	"sync"
	"time"

	"atticus-desk/internal/models"
)

// Source supplies reference prices for the underlying. Implementations
// must be safe for concurrent use.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Price returns the current price and traded volume.
	Price(ctx context.Context) (price, volume float64, err error)
	// Healthy reports whether the source is currently usable.
	Healthy() bool
}

// LatestPrice caches the most recent tick so readers never wait on the
// source. A zero LatestPrice is empty and ready to use.
type LatestPrice struct {
	mu   sync.RWMutex
	tick models.PriceTick
	set  bool
}

// Set stores a new tick, replacing any previous one.
func (l *LatestPrice) Set(tick models.PriceTick) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tick = tick
	l.set = true
}

// Get returns the cached tick and whether one has been stored.
func (l *LatestPrice) Get() (models.PriceTick, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.tick, l.set
}

// Age returns how stale the cached tick is, or a negative duration if
// no tick has been stored.
func (l *LatestPrice) Age(now time.Time) time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.set {
		return -1
	}
	return now.Sub(l.tick.Time)
}
