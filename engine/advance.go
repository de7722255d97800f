/*
advance.go - Emergency support advance and repayment priority

PURPOSE:
  A support advance is an emergency cash grant against a contract that must
  be fully repaid before normal contributions resume.

THE PRIORITY RULE:
  While an advance is ACTIVE, every incoming payment on the contract routes
  through ApplyPayment first. The advance swallows the payment up to its
  remaining balance; only a surplus flows on to the contribution ledger.
  No ordinary contribution may be recorded until the advance is REPAID.

AT-MOST-ONCE:
  ApplyPayment performs no deduplication. Re-applying the same physical
  payment double-counts; the caller guarantees at-most-once invocation.

INVARIANTS:
  - At most one ACTIVE advance per contract (enforced by GrantAdvance).
  - amountRemaining = amount - repaid, never negative.
  - REPAID is terminal.
*/
package engine

// =============================================================================
// SUPPORT ADVANCE
// =============================================================================

type AdvanceStatus string

const (
	AdvanceActive AdvanceStatus = "ACTIVE"
	AdvanceRepaid AdvanceStatus = "REPAID"
)

// Repayment is one repayment event against an advance.
type Repayment struct {
	At          TimePoint
	Amount      Amount
	PeriodIndex int // which due period the triggering payment targeted
}

type SupportAdvance struct {
	ID        AdvanceID
	Amount    Amount
	Repaid    Amount
	Status    AdvanceStatus
	GrantedAt TimePoint

	Repayments []Repayment
}

// Remaining returns the amount still owed on the advance.
func (a *SupportAdvance) Remaining() Amount {
	return a.Amount.Sub(a.Repaid)
}

// SupportBounds are the configured min/max grant amounts per contract type.
type SupportBounds struct {
	Min Amount
	Max Amount
}

// =============================================================================
// OPERATIONS
// =============================================================================

// GrantAdvance creates a new ACTIVE advance. existing is the contract's
// current advance, nil when none was ever granted.
//
// Fails with ErrAdvanceActive when an ACTIVE advance exists, and with
// ErrAmountOutOfRange (a BoundsError) when amount falls outside bounds.
// Eligibility is decided upstream by the oracle; this function trusts
// that the caller already consulted it.
func GrantAdvance(id AdvanceID, existing *SupportAdvance, amount Amount, bounds SupportBounds, grantedAt TimePoint) (*SupportAdvance, error) {
	if existing != nil && existing.Status == AdvanceActive {
		return nil, ErrAdvanceActive
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if amount.LessThan(bounds.Min) || amount.GreaterThan(bounds.Max) {
		return nil, &BoundsError{Requested: amount, Min: bounds.Min, Max: bounds.Max}
	}

	return &SupportAdvance{
		ID:        id,
		Amount:    amount,
		Repaid:    ZeroAmount(),
		Status:    AdvanceActive,
		GrantedAt: grantedAt,
	}, nil
}

// PaymentSplit is the outcome of routing a payment through an advance.
type PaymentSplit struct {
	// RepaymentAmount is the portion consumed by the advance.
	RepaymentAmount Amount

	// RemainderForContribution is the surplus to record as a normal
	// contribution for the current due period. Zero while the advance
	// still swallows the full payment.
	RemainderForContribution Amount

	// Repaid reports whether this payment brought the advance to REPAID.
	Repaid bool
}

// ApplyPayment routes an incoming payment through the advance:
//
//	incoming <  remaining : full partial repayment, advance stays ACTIVE
//	incoming >= remaining : repays exactly remaining, surplus flows on,
//	                        advance transitions to REPAID (terminal)
//
// The advance is mutated only on success; a repayment event is recorded
// with the date and the period the payment targeted.
func ApplyPayment(adv *SupportAdvance, incoming Amount, at TimePoint, periodIndex int) (PaymentSplit, error) {
	if adv == nil || adv.Status != AdvanceActive {
		return PaymentSplit{}, ErrAdvanceRepaid
	}
	if !incoming.IsPositive() {
		return PaymentSplit{}, ErrInvalidAmount
	}

	remaining := adv.Remaining()
	split := PaymentSplit{RemainderForContribution: ZeroAmount()}

	if incoming.LessThan(remaining) {
		split.RepaymentAmount = incoming
	} else {
		split.RepaymentAmount = remaining
		split.RemainderForContribution = incoming.Sub(remaining)
		split.Repaid = true
	}

	adv.Repaid = adv.Repaid.Add(split.RepaymentAmount)
	adv.Repayments = append(adv.Repayments, Repayment{
		At:          at,
		Amount:      split.RepaymentAmount,
		PeriodIndex: periodIndex,
	})
	if split.Repaid {
		adv.Status = AdvanceRepaid
	}
	return split, nil
}
