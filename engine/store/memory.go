// Package store provides ContractStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/caisse-engine/engine"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	contracts map[engine.ContractID]*engine.Contract
}

func NewMemory() *Memory {
	return &Memory{contracts: make(map[engine.ContractID]*engine.Contract)}
}

// Save stores a clone so later caller mutations don't leak into the store.
func (m *Memory) Save(_ context.Context, c *engine.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contracts[c.ID] = c.Clone()
	return nil
}

func (m *Memory) Load(_ context.Context, id engine.ContractID) (*engine.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contracts[id]
	if !ok {
		return nil, engine.ErrContractNotFound
	}
	return c.Clone(), nil
}

func (m *Memory) List(_ context.Context) ([]*engine.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*engine.Contract, 0, len(m.contracts))
	for _, c := range m.contracts {
		out = append(out, c.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}
