/*
scheduler.go - Automated contract status refresher

PURPOSE:
  Lateness and default transitions happen purely through time passing, not
  through any user action. This scheduler periodically re-resolves every
  non-terminal contract's status against the clock and persists the
  changes, so listings and reports stay honest between payments.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Skips terminal contracts (RESCINDED, CLOSED)
  - Only writes contracts whose status actually changed

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewStatusScheduler(settlements)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RefreshStatuses endpoint (manual trigger)
  - caisse/settlement.go: RefreshAll
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/caisse-engine/caisse"
)

// StatusScheduler periodically persists time-driven status transitions.
type StatusScheduler struct {
	Settlements   *caisse.SettlementService
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewStatusScheduler creates a new scheduler.
func NewStatusScheduler(settlements *caisse.SettlementService) *StatusScheduler {
	return &StatusScheduler{
		Settlements:   settlements,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (ss *StatusScheduler) Start() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if !ss.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	ss.ticker = time.NewTicker(ss.CheckInterval)
	ss.wg.Add(1)

	go ss.run()

	log.Printf("[Scheduler] Started with check interval: %v", ss.CheckInterval)
}

// Stop stops the scheduler.
func (ss *StatusScheduler) Stop() {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	if ss.ticker != nil {
		ss.ticker.Stop()
		close(ss.stop)
		ss.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (ss *StatusScheduler) run() {
	defer ss.wg.Done()

	// Run immediately on start
	ss.refresh()

	for {
		select {
		case <-ss.ticker.C:
			ss.refresh()
		case <-ss.stop:
			return
		}
	}
}

func (ss *StatusScheduler) refresh() {
	updated, err := ss.Settlements.RefreshAll(context.Background())
	if err != nil {
		log.Printf("[Scheduler] Status refresh failed: %v", err)
		return
	}
	if updated > 0 {
		log.Printf("[Scheduler] Updated %d contract status(es)", updated)
	}
}
