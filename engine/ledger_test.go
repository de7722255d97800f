package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/caisse-engine/engine"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func contractStart() engine.TimePoint {
	return engine.NewTimePoint(2025, time.January, 10)
}

func targetPeriod(target int64) *engine.Period {
	t := engine.NewAmount(target)
	return engine.NewPeriod(0, contractStart(), &t)
}

func contribution(id string, amount int64, paidAt engine.TimePoint) engine.Contribution {
	return engine.Contribution{
		ID:      engine.ContributionID(id),
		Amount:  engine.NewAmount(amount),
		PaidAt:  paidAt,
		Mode:    engine.ModeCash,
		Penalty: engine.ZeroAmount(),
	}
}

// =============================================================================
// ACCUMULATION AND STATUS DERIVATION
// =============================================================================

func TestRecordContribution_PartialThenPaid(t *testing.T) {
	// GIVEN: A period with a 10,000 target
	// WHEN: Recording 4,000 then 6,000
	// THEN: The period moves DUE -> PARTIAL -> PAID and accumulates exactly

	p := targetPeriod(10000)
	if p.Status != engine.PeriodDue {
		t.Fatalf("expected DUE, got %s", p.Status)
	}

	if err := p.RecordContribution(contractStart(), contribution("c1", 4000, contractStart())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != engine.PeriodPartial {
		t.Errorf("expected PARTIAL, got %s", p.Status)
	}
	if !p.Remaining().Equal(engine.NewAmount(6000)) {
		t.Errorf("expected 6000 remaining, got %v", p.Remaining())
	}

	if err := p.RecordContribution(contractStart(), contribution("c2", 6000, contractStart().AddDays(1))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != engine.PeriodPaid {
		t.Errorf("expected PAID, got %s", p.Status)
	}
	if !p.Accumulated.Equal(engine.NewAmount(10000)) {
		t.Errorf("expected 10000 accumulated, got %v", p.Accumulated)
	}
}

func TestRecordContribution_Overshoot_StaysPaid(t *testing.T) {
	// GIVEN: A period with a 10,000 target
	// WHEN: Recording 12,000 in one payment
	// THEN: PAID, the surplus stays on this period's accumulation

	p := targetPeriod(10000)
	if err := p.RecordContribution(contractStart(), contribution("c1", 12000, contractStart())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != engine.PeriodPaid {
		t.Errorf("expected PAID, got %s", p.Status)
	}
	if !p.Accumulated.Equal(engine.NewAmount(12000)) {
		t.Errorf("expected 12000 accumulated, got %v", p.Accumulated)
	}
}

func TestRecordContribution_OpenContract_AnyPositiveAmountCompletes(t *testing.T) {
	// GIVEN: A period without a target (open contract)
	// WHEN: Recording any positive amount
	// THEN: The period is PAID

	p := engine.NewPeriod(0, contractStart(), nil)
	if err := p.RecordContribution(contractStart(), contribution("c1", 500, contractStart())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != engine.PeriodPaid {
		t.Errorf("expected PAID, got %s", p.Status)
	}
}

func TestRecordContribution_RejectsInvalidInput(t *testing.T) {
	// GIVEN: A period on a contract starting 2025-01-10
	// WHEN: Recording a zero amount, a pre-start date, and an unknown mode
	// THEN: Each is rejected and the period stays untouched

	p := targetPeriod(10000)

	zero := contribution("c1", 0, contractStart())
	if err := p.RecordContribution(contractStart(), zero); !errors.Is(err, engine.ErrInvalidAmount) {
		t.Errorf("zero amount: expected ErrInvalidAmount, got %v", err)
	}

	early := contribution("c2", 1000, contractStart().AddDays(-1))
	if err := p.RecordContribution(contractStart(), early); !errors.Is(err, engine.ErrDateBeforeStart) {
		t.Errorf("pre-start date: expected ErrDateBeforeStart, got %v", err)
	}

	bad := contribution("c3", 1000, contractStart())
	bad.Mode = "barter"
	if err := p.RecordContribution(contractStart(), bad); !errors.Is(err, engine.ErrInvalidPaymentMode) {
		t.Errorf("unknown mode: expected ErrInvalidPaymentMode, got %v", err)
	}

	if len(p.Contributions) != 0 || !p.Accumulated.IsZero() {
		t.Error("rejected contributions must not touch the period")
	}
}

func TestRecordContribution_DuplicateDelivery_CountsTwice(t *testing.T) {
	// GIVEN: A period that already recorded a contribution
	// WHEN: The same contribution is recorded again
	// THEN: It counts twice; at-most-once delivery is the caller's contract,
	//       the ledger does not deduplicate

	p := targetPeriod(10000)
	c := contribution("c1", 6000, contractStart())

	if err := p.RecordContribution(contractStart(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.RecordContribution(contractStart(), c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.Accumulated.Equal(engine.NewAmount(12000)) {
		t.Errorf("expected 12000 accumulated, got %v", p.Accumulated)
	}
}

// =============================================================================
// CORRECTIONS
// =============================================================================

func TestRecordContribution_PenaltyBookkeeping(t *testing.T) {
	// GIVEN: A period receiving a penalized then a tolerance-window contribution
	// WHEN: Recording both with their computed lateness
	// THEN: Penalty amounts accumulate and PenaltyDays keeps the worst lateness

	p := targetPeriod(10000)

	late := contribution("c1", 4000, contractStart().AddDays(6))
	late.Penalty = engine.NewAmount(600)
	late.DaysLate = 6
	if err := p.RecordContribution(contractStart(), late); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PenaltyDays != 6 {
		t.Errorf("expected 6 penalty days, got %d", p.PenaltyDays)
	}
	if !p.Penalty.Equal(engine.NewAmount(600)) {
		t.Errorf("expected 600 penalty, got %v", p.Penalty)
	}

	// A later, less-late contribution must not shrink the day count.
	tolerance := contribution("c2", 6000, contractStart().AddDays(2))
	tolerance.DaysLate = 2
	if err := p.RecordContribution(contractStart(), tolerance); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PenaltyDays != 6 {
		t.Errorf("expected penalty days to stay 6, got %d", p.PenaltyDays)
	}
	if !p.Penalty.Equal(engine.NewAmount(600)) {
		t.Errorf("expected penalty to stay 600, got %v", p.Penalty)
	}
}

func TestReplaceContribution_RederivesStatus(t *testing.T) {
	// GIVEN: A PAID period whose single contribution was keyed in wrong
	// WHEN: Correcting the amount below the target
	// THEN: The period drops back to PARTIAL with the corrected amount

	p := targetPeriod(10000)
	if err := p.RecordContribution(contractStart(), contribution("c1", 10000, contractStart())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Status != engine.PeriodPaid {
		t.Fatalf("expected PAID, got %s", p.Status)
	}

	err := p.ReplaceContribution(contractStart(), "c1",
		engine.NewAmount(7000), contractStart(), engine.ModeMobileMoney, "receipt-77")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if p.Status != engine.PeriodPartial {
		t.Errorf("expected PARTIAL after correction, got %s", p.Status)
	}
	if !p.Accumulated.Equal(engine.NewAmount(7000)) {
		t.Errorf("expected 7000 accumulated, got %v", p.Accumulated)
	}
	if p.Contributions[0].Mode != engine.ModeMobileMoney {
		t.Errorf("expected corrected mode, got %s", p.Contributions[0].Mode)
	}
}

func TestReplaceContribution_UnknownID_Rejected(t *testing.T) {
	// GIVEN: A period with one contribution
	// WHEN: Correcting an ID that does not exist
	// THEN: ErrContributionNotFound

	p := targetPeriod(10000)
	if err := p.RecordContribution(contractStart(), contribution("c1", 5000, contractStart())); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := p.ReplaceContribution(contractStart(), "missing",
		engine.NewAmount(5000), contractStart(), engine.ModeCash, "")
	if !errors.Is(err, engine.ErrContributionNotFound) {
		t.Errorf("expected ErrContributionNotFound, got %v", err)
	}
}

// =============================================================================
// GROUP QUERIES
// =============================================================================

func TestPayers_ListsDistinctMembers(t *testing.T) {
	// GIVEN: A group period with contributions from two members, one twice
	// WHEN: Listing payers
	// THEN: Each member appears once

	p := targetPeriod(30000)
	for _, c := range []engine.Contribution{
		{ID: "c1", Amount: engine.NewAmount(10000), PaidAt: contractStart(), Mode: engine.ModeCash, PayerID: "m1"},
		{ID: "c2", Amount: engine.NewAmount(10000), PaidAt: contractStart(), Mode: engine.ModeCash, PayerID: "m2"},
		{ID: "c3", Amount: engine.NewAmount(10000), PaidAt: contractStart(), Mode: engine.ModeCash, PayerID: "m1"},
	} {
		if err := p.RecordContribution(contractStart(), c); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	payers := p.Payers()
	if len(payers) != 2 {
		t.Errorf("expected 2 distinct payers, got %d (%v)", len(payers), payers)
	}
}

func TestTouchedOn_MatchesContributionDay(t *testing.T) {
	// GIVEN: A period with one contribution on 2025-01-12
	// WHEN: Checking activity per day
	// THEN: Only that day reports activity

	p := targetPeriod(10000)
	day := contractStart().AddDays(2)
	if err := p.RecordContribution(contractStart(), contribution("c1", 5000, day)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !p.TouchedOn(day) {
		t.Error("expected activity on the contribution day")
	}
	if p.TouchedOn(day.AddDays(1)) {
		t.Error("expected no activity the day after")
	}
}
