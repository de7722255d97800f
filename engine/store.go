/*
store.go - Persistence interface for the contract aggregate

PURPOSE:
  Defines the contract between the engine's callers and the database.
  The engine itself never performs I/O: services load an aggregate, apply
  pure operations, and save the result atomically with the triggering
  input. Per-contract mutual exclusion is the store user's responsibility;
  different contracts are independent and may be processed in parallel.

IMPLEMENTATIONS:
  - engine/store/memory.go: in-memory, for tests and development
  - store/sqlite/sqlite.go: SQLite persistence
*/
package engine

import "context"

// ContractStore persists contract aggregates. Save replaces the whole
// aggregate; Load and List return copies the caller may mutate freely.
type ContractStore interface {
	// Save persists the aggregate, replacing any previous state.
	Save(ctx context.Context, c *Contract) error

	// Load returns the aggregate, or ErrContractNotFound.
	Load(ctx context.Context, id ContractID) (*Contract, error)

	// List returns all contracts, ordered by start date then ID.
	List(ctx context.Context) ([]*Contract, error)
}
