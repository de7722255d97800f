// Package caisse orchestrates the settlement engine for savings-fund
// administration: it routes payments through the advance-priority rule,
// enforces the sequential-payment invariant, applies penalties, and drives
// the refund workflow, persisting contract aggregates through a
// ContractStore. All business rules live in the engine; this package is
// the calling layer that owns I/O ordering and configuration lookup.
package caisse

import (
	"time"

	"github.com/warp/caisse-engine/engine"
)

// =============================================================================
// CAISSE TYPES
// =============================================================================

// Well-known caisse types. Settings may define others; these are the ones
// the fund operates today.
const (
	CaisseStandard = "standard"
	CaisseScolaire = "scolaire"
	CaisseLibre    = "libre" // open contracts, no fixed period target
)

// Well-known contract types for support advance bounds.
const (
	ContractIndividual = "individual"
	ContractGroup      = "group"
)

// =============================================================================
// EXTERNAL COLLABORATORS
// =============================================================================

// Settings supplies per-caisse-type penalty rules and per-contract-type
// support advance bounds. A missing penalty rule is fail-soft (zero
// penalty); missing support bounds reject the grant.
type Settings interface {
	PenaltyRules(caisseType string) (engine.PenaltyRules, bool)
	SupportBounds(contractType string) (engine.SupportBounds, bool)
}

// EligibilityOracle decides whether a contract may receive a support
// advance. The engine trusts the boolean and does not recompute it.
type EligibilityOracle interface {
	EligibleForAdvance(c *engine.Contract) bool
}

// AlwaysEligible is the permissive default oracle.
type AlwaysEligible struct{}

func (AlwaysEligible) EligibleForAdvance(*engine.Contract) bool { return true }

// SystemClock reads the wall clock. The only place the process time enters
// the settlement path.
type SystemClock struct{}

func (SystemClock) Now() engine.TimePoint { return engine.At(time.Now().UTC()) }
