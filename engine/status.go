/*
status.go - Contract-level status derivation

PURPOSE:
  Derives the whole-contract status from the period set and elapsed time,
  and finds the next due period. One closed enum, matched exhaustively:
  the scattered status strings of the old administration screens collapse
  into this single derivation.

PRECEDENCE:
  CLOSED and RESCINDED are terminal and win over everything.
  Refund-pending states rank above lateness.
  DRAFT before activation.
  Otherwise lateness buckets measured against the next due period:

    0 days late        ACTIVE
    1..3               LATE_NO_PENALTY
    4..12              LATE_WITH_PENALTY
    > 12               DEFAULTED

  All periods paid with no refund in flight is ACTIVE: the contract waits
  for its final refund.
*/
package engine

// =============================================================================
// CONTRACT STATUS - Flat enum, no sub-machine
// =============================================================================

type ContractStatus string

const (
	StatusDraft              ContractStatus = "DRAFT"
	StatusActive             ContractStatus = "ACTIVE"
	StatusLateNoPenalty      ContractStatus = "LATE_NO_PENALTY"
	StatusLateWithPenalty    ContractStatus = "LATE_WITH_PENALTY"
	StatusDefaulted          ContractStatus = "DEFAULTED"
	StatusEarlyRefundPending ContractStatus = "EARLY_REFUND_PENDING"
	StatusFinalRefundPending ContractStatus = "FINAL_REFUND_PENDING"
	StatusRescinded          ContractStatus = "RESCINDED"
	StatusClosed             ContractStatus = "CLOSED"
)

// Terminal reports whether no further contributions or refunds are accepted.
func (s ContractStatus) Terminal() bool {
	return s == StatusRescinded || s == StatusClosed
}

// defaultAfterDays is the lateness bucket boundary past which an unresolved
// contract is considered defaulted. Penalty accrual does NOT stop here.
const defaultAfterDays = 12

// =============================================================================
// RESOLUTION
// =============================================================================

// StatusInput is the snapshot ResolveStatus derives from. The rescinded and
// closed flags are external triggers (administration, refund payout), not
// computed here.
type StatusInput struct {
	Activated bool
	Rescinded bool
	Closed    bool

	// PendingRefund is the type of the non-archived refund request in
	// flight, if any.
	PendingRefund *RefundType

	Periods []*Period
	Rules   PenaltyRules
	Now     TimePoint
}

// ResolveStatus derives the contract status from the snapshot.
func ResolveStatus(in StatusInput) ContractStatus {
	switch {
	case in.Rescinded:
		return StatusRescinded
	case in.Closed:
		return StatusClosed
	case !in.Activated:
		return StatusDraft
	}

	if in.PendingRefund != nil {
		switch *in.PendingRefund {
		case RefundEarly:
			return StatusEarlyRefundPending
		case RefundFinal:
			return StatusFinalRefundPending
		}
	}

	idx, ok := NextDueIndex(in.Periods)
	if !ok {
		return StatusActive
	}

	var due TimePoint
	for _, p := range in.Periods {
		if p.Index == idx {
			due = p.DueDate
			break
		}
	}
	daysLate := DaysBetween(due, in.Now)

	threshold := in.Rules.PenaltyThresholdDays
	if threshold <= 0 {
		threshold = 4
	}

	switch {
	case daysLate <= 0:
		return StatusActive
	case daysLate < threshold:
		return StatusLateNoPenalty
	case daysLate <= defaultAfterDays:
		return StatusLateWithPenalty
	default:
		return StatusDefaulted
	}
}

// NextDueIndex returns the lowest period index whose status is not PAID.
// The second return is false when every period is PAID (or none exist).
func NextDueIndex(periods []*Period) (int, bool) {
	next := -1
	for _, p := range periods {
		if p.Status == PeriodPaid {
			continue
		}
		if next == -1 || p.Index < next {
			next = p.Index
		}
	}
	if next == -1 {
		return 0, false
	}
	return next, true
}

// AllPeriodsPaid reports whether every period in the schedule is PAID.
// False when no periods exist yet.
func AllPeriodsPaid(periods []*Period) bool {
	if len(periods) == 0 {
		return false
	}
	for _, p := range periods {
		if p.Status != PeriodPaid {
			return false
		}
	}
	return true
}
