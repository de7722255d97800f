/*
settlement.go - Payment routing and contract administration

PURPOSE:
  SettlementService is the single entry point for money arriving on a
  contract. One payment flows through, in order:

    1. Advance priority: an ACTIVE support advance swallows the payment up
       to its remaining balance; only the surplus continues.
    2. Period resolution: the surplus targets the next due period
       (sequential-payment invariant), or an explicit period for the
       administrative late-payment tool.
    3. Penalty: computed against the period's due date under the caisse
       type's tiered rules; a missing rule set fails soft to zero.
    4. Ledger: the contribution is recorded and the period re-derived.
    5. Totals and status: nominal/penalty/bonus totals updated, contract
       status re-resolved, aggregate saved.

  Every operation loads the aggregate, applies pure engine functions, and
  saves the result - the store write is the atomicity boundary, and callers
  must serialize operations per contract.
*/
package caisse

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/caisse-engine/engine"
)

// SettlementService orchestrates payments and contract administration.
type SettlementService struct {
	Store    engine.ContractStore
	Settings Settings
	Clock    engine.Clock
	Oracle   EligibilityOracle

	// BonusRatePercent is credited on each fully paid period's target,
	// accruing the bonus payable on final refund. Zero disables accrual.
	BonusRatePercent decimal.Decimal
}

// NewSettlementService wires a service with the default oracle and clock.
func NewSettlementService(store engine.ContractStore, settings Settings) *SettlementService {
	return &SettlementService{
		Store:            store,
		Settings:         settings,
		Clock:            SystemClock{},
		Oracle:           AlwaysEligible{},
		BonusRatePercent: decimal.NewFromInt(2),
	}
}

// =============================================================================
// CONTRACT LIFECYCLE
// =============================================================================

// NewContractParams describe a contract to create.
type NewContractParams struct {
	OwnerID        engine.MemberID
	Group          bool
	Cadence        engine.Cadence
	CaisseType     string
	ContractType   string
	Target         *engine.Amount // nil for open contracts
	PlannedPeriods int
	StartDate      engine.TimePoint
}

// CreateContract creates a DRAFT contract with its full planned schedule.
func (s *SettlementService) CreateContract(ctx context.Context, p NewContractParams) (*engine.Contract, error) {
	if p.Target != nil && !p.Target.IsPositive() {
		return nil, engine.ErrInvalidAmount
	}

	c := engine.NewContract(
		engine.ContractID(uuid.NewString()),
		p.OwnerID, p.Cadence, p.CaisseType, p.ContractType,
		p.Target, p.PlannedPeriods, p.StartDate,
	)
	c.Group = p.Group
	c.BuildSchedule()

	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Activate transitions a contract DRAFT -> ACTIVE.
func (s *SettlementService) Activate(ctx context.Context, id engine.ContractID) (*engine.Contract, error) {
	c, err := s.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Activate(); err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Rescind sets the administrative terminal state.
func (s *SettlementService) Rescind(ctx context.Context, id engine.ContractID) (*engine.Contract, error) {
	c, err := s.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.Rescind(); err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns a contract with its status refreshed against the clock.
// The refreshed status is not persisted; it is a read-time view.
func (s *SettlementService) Get(ctx context.Context, id engine.ContractID) (*engine.Contract, error) {
	c, err := s.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	c.RefreshStatus(s.rules(c), s.Clock.Now())
	return c, nil
}

// List returns all contracts with read-time statuses.
func (s *SettlementService) List(ctx context.Context) ([]*engine.Contract, error) {
	cs, err := s.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	for _, c := range cs {
		c.RefreshStatus(s.rules(c), now)
	}
	return cs, nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentInput is one physical payment arriving on a contract.
type PaymentInput struct {
	Amount  engine.Amount
	PaidAt  engine.TimePoint
	Mode    engine.PaymentMode
	PayerID engine.MemberID // group contracts: which member paid
	Proof   engine.DocumentRef

	// TargetIndex pins the payment to a specific period. Nil targets the
	// next due period. A pinned index ahead of the next due period is
	// rejected with an OrderingError.
	TargetIndex *int
}

// SettlementResult reports what one payment did.
type SettlementResult struct {
	Contract *engine.Contract

	// Advance routing.
	AdvanceRepayment engine.Amount
	AdvanceRepaid    bool

	// Contribution recording. Contribution is nil when the advance
	// swallowed the whole payment.
	PeriodIndex  int
	Contribution *engine.Contribution
	Penalty      engine.PenaltyResult

	// PeriodsBehind cross-checks the payment date against the calendar
	// schedule: how many periods past the one this payment funded the
	// date resolves to. Zero when the payer is on plan.
	PeriodsBehind int

	// MissingRules flags a penalty-rule configuration gap the caller
	// should log; the payment still went through with zero penalty.
	MissingRules bool
}

// ProcessPayment routes one payment through the settlement flow.
func (s *SettlementService) ProcessPayment(ctx context.Context, id engine.ContractID, in PaymentInput) (*SettlementResult, error) {
	c, err := s.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.apply(c, in, false)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	res.Contract = c
	return res, nil
}

// RecordLatePayment is the administrative backfill tool: it records a
// payment against an explicit period, bypassing the sequential-payment
// check but still routing through the advance and penalty rules.
func (s *SettlementService) RecordLatePayment(ctx context.Context, id engine.ContractID, periodIndex int, in PaymentInput) (*SettlementResult, error) {
	c, err := s.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	in.TargetIndex = &periodIndex
	res, err := s.apply(c, in, true)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	res.Contract = c
	return res, nil
}

// apply runs the in-memory settlement flow on the aggregate. backfill
// bypasses the ordering check only.
func (s *SettlementService) apply(c *engine.Contract, in PaymentInput, backfill bool) (*SettlementResult, error) {
	if c.Status.Terminal() {
		return nil, engine.ErrContractTerminal
	}
	if c.Status == engine.StatusDraft {
		return nil, engine.ErrContractNotActive
	}
	if !in.Amount.IsPositive() {
		return nil, engine.ErrInvalidAmount
	}
	if !engine.ValidPaymentMode(in.Mode) {
		return nil, engine.ErrInvalidPaymentMode
	}
	// Checked before advance routing so a rejected payment never leaves a
	// half-applied repayment behind.
	if in.PaidAt.Before(c.StartDate) {
		return nil, engine.ErrDateBeforeStart
	}

	res := &SettlementResult{
		AdvanceRepayment: engine.ZeroAmount(),
		Penalty:          engine.PenaltyResult{Penalty: engine.ZeroAmount()},
	}

	// Resolve the target period up front so a full rejection leaves the
	// aggregate untouched.
	dueIdx, hasDue := engine.NextDueIndex(c.Periods)
	targetIdx := dueIdx
	if in.TargetIndex != nil {
		targetIdx = *in.TargetIndex
		if !backfill && hasDue && targetIdx != dueIdx {
			return nil, &engine.OrderingError{TargetIndex: targetIdx, DueIndex: dueIdx}
		}
		if c.PeriodByIndex(targetIdx) == nil {
			return nil, engine.ErrPeriodNotFound
		}
	}

	remainder := in.Amount

	// 1. Advance priority.
	if adv := c.ActiveAdvance(); adv != nil {
		if in.Amount.GreaterThan(adv.Remaining()) && !hasDue && in.TargetIndex == nil {
			// Surplus would have no due period to land on.
			return nil, engine.ErrAllPeriodsPaid
		}
		split, err := engine.ApplyPayment(adv, in.Amount, in.PaidAt, targetIdx)
		if err != nil {
			return nil, err
		}
		res.AdvanceRepayment = split.RepaymentAmount
		res.AdvanceRepaid = split.Repaid
		remainder = split.RemainderForContribution
		if !remainder.IsPositive() {
			// The repayment event was attributed to targetIdx; report
			// the same index even though no contribution was recorded.
			res.PeriodIndex = targetIdx
			c.RefreshStatus(s.rules(c), s.Clock.Now())
			return res, nil
		}
	}

	if in.TargetIndex == nil && !hasDue {
		return nil, engine.ErrAllPeriodsPaid
	}

	period := c.EnsurePeriod(targetIdx)

	// The payment date already cleared the start-date check, so the
	// calendar resolution cannot fail here.
	if calIdx, err := engine.ResolvePeriodIndex(c.StartDate, c.Cadence, in.PaidAt); err == nil && calIdx > targetIdx {
		res.PeriodsBehind = calIdx - targetIdx
	}

	// 2. Penalty against the period's due date (contract start for a
	// period without one).
	rules, ok := s.Settings.PenaltyRules(c.CaisseType)
	res.MissingRules = !ok

	reference := period.DueDate
	if reference.IsZero() {
		reference = c.StartDate
	}
	target := engine.ZeroAmount()
	if period.Target != nil {
		target = *period.Target
	}
	res.Penalty = engine.ComputePenalty(reference, in.PaidAt, target, rules)

	// 3. Ledger.
	contribution := engine.Contribution{
		ID:       engine.ContributionID(uuid.NewString()),
		Amount:   remainder,
		PaidAt:   in.PaidAt,
		Mode:     in.Mode,
		Penalty:  res.Penalty.Penalty,
		DaysLate: res.Penalty.DaysLate,
		PayerID:  in.PayerID,
		Proof:    in.Proof,
	}

	wasPaid := period.Status == engine.PeriodPaid
	if err := period.RecordContribution(c.StartDate, contribution); err != nil {
		return nil, err
	}

	// 4. Totals.
	c.TotalNominal = c.TotalNominal.Add(remainder)
	if res.Penalty.HasPenalty {
		c.TotalPenalties = c.TotalPenalties.Add(res.Penalty.Penalty)
	}
	if !wasPaid && period.Status == engine.PeriodPaid && period.Target != nil && s.BonusRatePercent.IsPositive() {
		rate := s.BonusRatePercent.Div(decimal.NewFromInt(100))
		c.TotalBonus = c.TotalBonus.Add(period.Target.Mul(rate))
	}

	// 5. Status.
	c.RefreshStatus(rules, s.Clock.Now())

	res.PeriodIndex = targetIdx
	res.Contribution = &period.Contributions[len(period.Contributions)-1]
	return res, nil
}

// CorrectContribution replaces the amount/date/mode/proof of a recorded
// contribution and recomputes the aggregate's totals from scratch.
func (s *SettlementService) CorrectContribution(ctx context.Context, id engine.ContractID, periodIndex int, contributionID engine.ContributionID, amount engine.Amount, paidAt engine.TimePoint, mode engine.PaymentMode, proof engine.DocumentRef) (*engine.Contract, error) {
	c, err := s.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		return nil, engine.ErrContractTerminal
	}

	period := c.PeriodByIndex(periodIndex)
	if period == nil {
		return nil, engine.ErrPeriodNotFound
	}
	if err := period.ReplaceContribution(c.StartDate, contributionID, amount, paidAt, mode, proof); err != nil {
		return nil, err
	}

	// A correction can change any period's accumulation, so the nominal
	// total is re-derived rather than adjusted.
	total := engine.ZeroAmount()
	for _, p := range c.Periods {
		total = total.Add(p.Accumulated)
	}
	c.TotalNominal = total

	c.RefreshStatus(s.rules(c), s.Clock.Now())
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// =============================================================================
// SUPPORT ADVANCES
// =============================================================================

// GrantAdvance grants an emergency support advance after consulting the
// eligibility oracle and the configured bounds.
func (s *SettlementService) GrantAdvance(ctx context.Context, id engine.ContractID, amount engine.Amount) (*engine.SupportAdvance, error) {
	c, err := s.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status.Terminal() {
		return nil, engine.ErrContractTerminal
	}
	if c.Status == engine.StatusDraft {
		return nil, engine.ErrContractNotActive
	}
	if !s.Oracle.EligibleForAdvance(c) {
		return nil, engine.ErrAdvanceNotEligible
	}

	bounds, ok := s.Settings.SupportBounds(c.ContractType)
	if !ok {
		return nil, engine.ErrSupportBoundsMissing
	}

	adv, err := engine.GrantAdvance(engine.AdvanceID(uuid.NewString()), c.Advance, amount, bounds, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	c.Advance = adv

	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return adv, nil
}

// RefreshAll re-resolves every non-terminal contract's status against the
// clock and persists the ones that changed. Lateness and default transitions
// happen purely through time passing, so this is what keeps stored statuses
// honest between payments. Returns the number of contracts updated.
func (s *SettlementService) RefreshAll(ctx context.Context) (int, error) {
	cs, err := s.Store.List(ctx)
	if err != nil {
		return 0, err
	}

	now := s.Clock.Now()
	updated := 0
	for _, c := range cs {
		if c.Status.Terminal() {
			continue
		}
		before := c.Status
		c.RefreshStatus(s.rules(c), now)
		if c.Status == before {
			continue
		}
		if err := s.Store.Save(ctx, c); err != nil {
			return updated, err
		}
		updated++
	}
	return updated, nil
}

// rules returns the caisse type's penalty rules, or the zero value when
// none are configured (fail-soft).
func (s *SettlementService) rules(c *engine.Contract) engine.PenaltyRules {
	rules, _ := s.Settings.PenaltyRules(c.CaisseType)
	return rules
}
