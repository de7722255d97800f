/*
ledger.go - Contribution accumulation and period status

PURPOSE:
  A Period is one due slot (a month, or a day-grouped month for daily
  contracts) with its own target and an ordered list of contributions.
  Recording a contribution appends it, recomputes the accumulated amount
  and re-derives the period's status.

STATUS DERIVATION:
  PAID     accumulated >= target (open contracts: any positive amount)
  PARTIAL  0 < accumulated < target
  DUE      accumulated == 0
  REFUSED  administrative mark, never derived here

INVARIANTS:
  - Contributions are never deleted; corrections replace a record in place
    via ReplaceContribution and recompute.
  - An operation that returns an error leaves the period untouched.
  - Idempotency is NOT provided: recording the same contribution twice
    double-counts. At-most-once delivery is the caller's contract.
  - Group contracts: contributions from several payers sum into the same
    period; a period is "touched" on a date if any contribution lands there.

The sequential-payment rule (period N accepts contributions only once all
earlier periods are PAID) is enforced by the caller using NextDueIndex,
because only the caller knows whether it is an administrative backfill.
*/
package engine

// =============================================================================
// PERIOD - One due slot within a contract's schedule
// =============================================================================

type PeriodStatus string

const (
	PeriodDue     PeriodStatus = "DUE"
	PeriodPartial PeriodStatus = "PARTIAL"
	PeriodPaid    PeriodStatus = "PAID"
	PeriodRefused PeriodStatus = "REFUSED"
)

type Period struct {
	Index   int
	DueDate TimePoint

	// Target is the amount that completes this period. Nil for open
	// ("free") contracts, where any positive accumulation completes
	// the slot.
	Target *Amount

	Accumulated Amount
	Status      PeriodStatus

	// Penalty bookkeeping for this period.
	Penalty     Amount
	PenaltyDays int

	Contributions []Contribution
}

// NewPeriod creates an empty DUE period.
func NewPeriod(index int, dueDate TimePoint, target *Amount) *Period {
	return &Period{
		Index:       index,
		DueDate:     dueDate,
		Target:      target,
		Accumulated: ZeroAmount(),
		Penalty:     ZeroAmount(),
		Status:      PeriodDue,
	}
}

// =============================================================================
// RECORDING
// =============================================================================

// RecordContribution appends a contribution to the period and re-derives
// its accumulated amount and status.
//
// Preconditions: the contribution date must not precede contractStart
// (ErrDateBeforeStart) and the amount must be positive (ErrInvalidAmount).
// On error the period is unchanged.
func (p *Period) RecordContribution(contractStart TimePoint, c Contribution) error {
	if !c.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if c.PaidAt.Before(contractStart) {
		return ErrDateBeforeStart
	}
	if !ValidPaymentMode(c.Mode) {
		return ErrInvalidPaymentMode
	}

	p.Contributions = append(p.Contributions, c)
	if c.Penalty.IsPositive() {
		p.Penalty = p.Penalty.Add(c.Penalty)
	}
	if c.DaysLate > p.PenaltyDays {
		p.PenaltyDays = c.DaysLate
	}
	p.recompute()
	return nil
}

// ReplaceContribution swaps the amount, date, mode and proof of an existing
// contribution, identified by ID, and recomputes the period. This is the
// explicit correction operation; ordinary contributions are immutable.
func (p *Period) ReplaceContribution(contractStart TimePoint, id ContributionID, amount Amount, paidAt TimePoint, mode PaymentMode, proof DocumentRef) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if paidAt.Before(contractStart) {
		return ErrDateBeforeStart
	}
	if !ValidPaymentMode(mode) {
		return ErrInvalidPaymentMode
	}

	for i := range p.Contributions {
		if p.Contributions[i].ID == id {
			p.Contributions[i].Amount = amount
			p.Contributions[i].PaidAt = paidAt
			p.Contributions[i].Mode = mode
			p.Contributions[i].Proof = proof
			p.recompute()
			return nil
		}
	}
	return ErrContributionNotFound
}

// recompute re-derives Accumulated and Status from the contribution list.
func (p *Period) recompute() {
	total := ZeroAmount()
	for _, c := range p.Contributions {
		total = total.Add(c.Amount)
	}
	p.Accumulated = total

	switch {
	case p.isComplete(total):
		p.Status = PeriodPaid
	case total.IsPositive():
		p.Status = PeriodPartial
	default:
		p.Status = PeriodDue
	}
}

func (p *Period) isComplete(total Amount) bool {
	if p.Target == nil {
		// Open contract: any positive amount completes the slot.
		return total.IsPositive()
	}
	return total.GreaterOrEqual(*p.Target)
}

// Remaining returns the amount still owed on this period. Zero for open
// contracts and completed periods.
func (p *Period) Remaining() Amount {
	if p.Target == nil || p.Accumulated.GreaterOrEqual(*p.Target) {
		return ZeroAmount()
	}
	return p.Target.Sub(p.Accumulated)
}

// TouchedOn reports whether any contribution was paid on the given day.
// Used to render and query payment calendars for group contracts.
func (p *Period) TouchedOn(day TimePoint) bool {
	for _, c := range p.Contributions {
		if c.PaidAt.SameDay(day) {
			return true
		}
	}
	return false
}

// Payers returns the distinct payer identities on this period, in first
// contribution order. Empty payer IDs (individual contracts) are skipped.
func (p *Period) Payers() []MemberID {
	seen := make(map[MemberID]bool)
	var payers []MemberID
	for _, c := range p.Contributions {
		if c.PayerID == "" || seen[c.PayerID] {
			continue
		}
		seen[c.PayerID] = true
		payers = append(payers, c.PayerID)
	}
	return payers
}
