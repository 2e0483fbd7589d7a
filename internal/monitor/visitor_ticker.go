// Package monitor hosts the background visitor ticker.
package monitor

import (
	"log"
	"math/rand"
	"time"

	"github.com/khatadev/khata/internal/live"
	"github.com/khatadev/khata/internal/models"
	"github.com/khatadev/khata/internal/store"
)

// VisitorTicker periodically bumps the synthetic visitor counter and
// broadcasts the new value to live clients. The counter is persisted but
// never meaningful as an exact count.
type VisitorTicker struct {
	store    *store.Store
	notifier live.Notifier
	interval time.Duration
}

// NewVisitorTicker creates and returns a new instance of VisitorTicker.
// interval determines how frequently the counter is bumped.
func NewVisitorTicker(st *store.Store, notifier live.Notifier, interval time.Duration) *VisitorTicker {
	return &VisitorTicker{store: st, notifier: notifier, interval: interval}
}

// Start launches the periodic increment loop.
// This is a blocking function that runs indefinitely until the program stops.
func (t *VisitorTicker) Start() {
	log.Printf("[MONITOR] Starting visitor ticker with interval of %v...", t.interval)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for range ticker.C {
		t.tick()
	}
}

// tick adds a small random increment, persists and broadcasts.
func (t *VisitorTicker) tick() {
	bump := 1 + rand.Intn(3)
	if err := t.store.Update(func(st *models.State) {
		st.Visitors += bump
	}); err != nil {
		log.Printf("[MONITOR] visitor tick persist failed: %v", err)
	}
	t.notifier.PublishVisitors()
}
