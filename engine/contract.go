/*
contract.go - The contract aggregate

PURPOSE:
  A Contract owns its period schedule, its zero-or-one support advance, its
  refund requests and its running totals. All engine operations act on this
  aggregate under the caller's per-contract mutual-exclusion boundary; the
  aggregate itself performs no I/O.

LIFECYCLE:
  DRAFT on creation, ACTIVE on first activation. Periods are built eagerly
  for the planned schedule (BuildSchedule) or created lazily on first
  relevant contribution (EnsurePeriod); they are never deleted, only
  appended to. Identity fields are immutable once periods exist; only
  status and totals mutate.
*/
package engine

// Contract is the aggregate root of the settlement engine.
type Contract struct {
	ID      ContractID
	Cadence Cadence

	// OwnerID is the member, or the group, the contract belongs to.
	OwnerID MemberID
	// Group marks group-owned contracts (several payers per period).
	Group bool

	// CaisseType selects the penalty rules; ContractType selects the
	// support advance bounds.
	CaisseType   string
	ContractType string

	// Target is the amount due per period. Nil for open ("free")
	// contracts where each slot accepts any positive amount.
	Target *Amount

	// PlannedPeriods is the planned schedule length.
	PlannedPeriods int

	StartDate TimePoint
	Status    ContractStatus

	// Running totals, mutated only by the engine.
	TotalNominal   Amount
	TotalBonus     Amount
	TotalPenalties Amount

	Periods []*Period
	Advance *SupportAdvance
	Refunds []*RefundRequest
}

// NewContract creates a DRAFT contract with no periods.
func NewContract(id ContractID, owner MemberID, cadence Cadence, caisseType, contractType string, target *Amount, plannedPeriods int, start TimePoint) *Contract {
	return &Contract{
		ID:             id,
		OwnerID:        owner,
		Cadence:        cadence,
		CaisseType:     caisseType,
		ContractType:   contractType,
		Target:         target,
		PlannedPeriods: plannedPeriods,
		StartDate:      start,
		Status:         StatusDraft,
		TotalNominal:   ZeroAmount(),
		TotalBonus:     ZeroAmount(),
		TotalPenalties: ZeroAmount(),
	}
}

// BuildSchedule eagerly creates the full planned period set with clamped
// due dates. Safe to call once at setup; existing periods are kept.
func (c *Contract) BuildSchedule() {
	for i := len(c.Periods); i < c.PlannedPeriods; i++ {
		c.Periods = append(c.Periods, NewPeriod(i, PeriodDueDate(c.StartDate, i), c.Target))
	}
}

// EnsurePeriod returns the period with the given index, creating it (and
// any gap before it) lazily with the contract-level target.
func (c *Contract) EnsurePeriod(index int) *Period {
	for i := len(c.Periods); i <= index; i++ {
		c.Periods = append(c.Periods, NewPeriod(i, PeriodDueDate(c.StartDate, i), c.Target))
	}
	return c.Periods[index]
}

// PeriodByIndex returns the period with the given index, or nil.
func (c *Contract) PeriodByIndex(index int) *Period {
	for _, p := range c.Periods {
		if p.Index == index {
			return p
		}
	}
	return nil
}

// Activate transitions DRAFT -> ACTIVE.
func (c *Contract) Activate() error {
	if c.Status.Terminal() {
		return ErrContractTerminal
	}
	if c.Status == StatusDraft {
		c.Status = StatusActive
	}
	return nil
}

// Rescind sets the administrative terminal state. No further contributions
// or refunds are accepted afterwards.
func (c *Contract) Rescind() error {
	if c.Status.Terminal() {
		return ErrContractTerminal
	}
	c.Status = StatusRescinded
	return nil
}

// HasContribution reports whether at least one contribution exists across
// any period.
func (c *Contract) HasContribution() bool {
	for _, p := range c.Periods {
		if len(p.Contributions) > 0 {
			return true
		}
	}
	return false
}

// ActiveAdvance returns the advance while it is ACTIVE, else nil.
func (c *Contract) ActiveAdvance() *SupportAdvance {
	if c.Advance != nil && c.Advance.Status == AdvanceActive {
		return c.Advance
	}
	return nil
}

// ActiveRefund returns the non-archived, non-paid request of the given
// type, or nil.
func (c *Contract) ActiveRefund(typ RefundType) *RefundRequest {
	for _, r := range c.Refunds {
		if r.Type != typ {
			continue
		}
		if r.Status == RefundPending || r.Status == RefundApproved {
			return r
		}
	}
	return nil
}

// PendingRefundType returns the type of the refund request currently in
// flight, if any, for status resolution. Early requests take precedence
// only by creation order; at most one per type can be in flight.
func (c *Contract) PendingRefundType() *RefundType {
	for _, r := range c.Refunds {
		if r.Status == RefundPending || r.Status == RefundApproved {
			typ := r.Type
			return &typ
		}
	}
	return nil
}

// RefundByID returns the refund request with the given ID.
func (c *Contract) RefundByID(id RefundID) *RefundRequest {
	for _, r := range c.Refunds {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// RefreshStatus re-derives the contract status from the period set.
// Terminal and draft states are preserved; refund-pending states come from
// the in-flight request.
func (c *Contract) RefreshStatus(rules PenaltyRules, now TimePoint) {
	c.Status = ResolveStatus(StatusInput{
		Activated:     c.Status != StatusDraft,
		Rescinded:     c.Status == StatusRescinded,
		Closed:        c.Status == StatusClosed,
		PendingRefund: c.PendingRefundType(),
		Periods:       c.Periods,
		Rules:         rules,
		Now:           now,
	})
}

// NextDueDate returns the due date of the next unpaid period, if any.
func (c *Contract) NextDueDate() (TimePoint, bool) {
	idx, ok := NextDueIndex(c.Periods)
	if !ok {
		return TimePoint{}, false
	}
	p := c.PeriodByIndex(idx)
	if p == nil {
		return TimePoint{}, false
	}
	return p.DueDate, true
}

// Close marks the contract CLOSED. Called by the refund workflow when a
// request reaches PAID.
func (c *Contract) Close() {
	c.Status = StatusClosed
}

// Clone returns a deep copy of the aggregate. Stores hand out clones so
// two callers never share mutable state.
func (c *Contract) Clone() *Contract {
	out := *c

	out.Periods = make([]*Period, len(c.Periods))
	for i, p := range c.Periods {
		cp := *p
		cp.Contributions = append([]Contribution(nil), p.Contributions...)
		if p.Target != nil {
			t := *p.Target
			cp.Target = &t
		}
		out.Periods[i] = &cp
	}

	if c.Target != nil {
		t := *c.Target
		out.Target = &t
	}

	if c.Advance != nil {
		adv := *c.Advance
		adv.Repayments = append([]Repayment(nil), c.Advance.Repayments...)
		out.Advance = &adv
	}

	out.Refunds = make([]*RefundRequest, len(c.Refunds))
	for i, r := range c.Refunds {
		cr := *r
		out.Refunds[i] = &cr
	}

	return &out
}
