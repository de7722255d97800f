package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/caisse-engine/engine"
)

func advanceBounds() engine.SupportBounds {
	return engine.SupportBounds{
		Min: engine.NewAmount(5000),
		Max: engine.NewAmount(200000),
	}
}

func grantDay() engine.TimePoint {
	return engine.NewTimePoint(2025, time.April, 1)
}

// =============================================================================
// GRANTING
// =============================================================================

func TestGrantAdvance_CreatesActiveAdvance(t *testing.T) {
	// GIVEN: No prior advance on the contract
	// WHEN: Granting 20,000 within bounds
	// THEN: An ACTIVE advance with the full amount outstanding

	adv, err := engine.GrantAdvance("adv-1", nil, engine.NewAmount(20000), advanceBounds(), grantDay())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if adv.Status != engine.AdvanceActive {
		t.Errorf("expected ACTIVE, got %s", adv.Status)
	}
	if !adv.Remaining().Equal(engine.NewAmount(20000)) {
		t.Errorf("expected 20000 remaining, got %v", adv.Remaining())
	}
}

func TestGrantAdvance_SecondActiveAdvance_Rejected(t *testing.T) {
	// GIVEN: An ACTIVE advance on the contract
	// WHEN: Granting another
	// THEN: ErrAdvanceActive; a REPAID advance does not block a new grant

	first, err := engine.GrantAdvance("adv-1", nil, engine.NewAmount(20000), advanceBounds(), grantDay())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = engine.GrantAdvance("adv-2", first, engine.NewAmount(10000), advanceBounds(), grantDay())
	if !errors.Is(err, engine.ErrAdvanceActive) {
		t.Errorf("expected ErrAdvanceActive, got %v", err)
	}

	if _, err := engine.ApplyPayment(first, engine.NewAmount(20000), grantDay().AddDays(10), 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := engine.GrantAdvance("adv-2", first, engine.NewAmount(10000), advanceBounds(), grantDay().AddDays(11)); err != nil {
		t.Errorf("a repaid advance must not block a new grant, got %v", err)
	}
}

func TestGrantAdvance_BoundsEnforced(t *testing.T) {
	// GIVEN: Bounds of 5,000 - 200,000
	// WHEN: Granting below the minimum and above the maximum
	// THEN: A BoundsError carrying ErrAmountOutOfRange

	for _, amount := range []int64{4999, 200001} {
		_, err := engine.GrantAdvance("adv-1", nil, engine.NewAmount(amount), advanceBounds(), grantDay())
		if !errors.Is(err, engine.ErrAmountOutOfRange) {
			t.Errorf("%d: expected ErrAmountOutOfRange, got %v", amount, err)
		}
		var bounds *engine.BoundsError
		if !errors.As(err, &bounds) {
			t.Errorf("%d: expected a BoundsError, got %T", amount, err)
		}
	}
}

// =============================================================================
// REPAYMENT PRIORITY SPLIT
// =============================================================================

func TestApplyPayment_PartialThenSurplus(t *testing.T) {
	// GIVEN: A 20,000 advance
	// WHEN: A 15,000 payment arrives, then an 8,000 payment
	// THEN: The first is swallowed whole; the second repays the 5,000
	//       remaining, flows 3,000 on, and retires the advance

	adv, err := engine.GrantAdvance("adv-1", nil, engine.NewAmount(20000), advanceBounds(), grantDay())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	first, err := engine.ApplyPayment(adv, engine.NewAmount(15000), grantDay().AddDays(5), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.RepaymentAmount.Equal(engine.NewAmount(15000)) {
		t.Errorf("expected 15000 repayment, got %v", first.RepaymentAmount)
	}
	if first.RemainderForContribution.IsPositive() || first.Repaid {
		t.Errorf("first payment must be fully swallowed: %+v", first)
	}
	if adv.Status != engine.AdvanceActive {
		t.Errorf("expected advance still ACTIVE, got %s", adv.Status)
	}

	second, err := engine.ApplyPayment(adv, engine.NewAmount(8000), grantDay().AddDays(35), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !second.RepaymentAmount.Equal(engine.NewAmount(5000)) {
		t.Errorf("expected 5000 repayment, got %v", second.RepaymentAmount)
	}
	if !second.RemainderForContribution.Equal(engine.NewAmount(3000)) {
		t.Errorf("expected 3000 remainder, got %v", second.RemainderForContribution)
	}
	if !second.Repaid || adv.Status != engine.AdvanceRepaid {
		t.Errorf("expected advance REPAID, got %s", adv.Status)
	}

	if len(adv.Repayments) != 2 {
		t.Fatalf("expected 2 repayment events, got %d", len(adv.Repayments))
	}
	if adv.Repayments[1].PeriodIndex != 4 {
		t.Errorf("expected repayment tagged with period 4, got %d", adv.Repayments[1].PeriodIndex)
	}
}

func TestApplyPayment_ExactRemaining_Retires(t *testing.T) {
	// GIVEN: A 20,000 advance
	// WHEN: A payment of exactly 20,000 arrives
	// THEN: REPAID with zero remainder

	adv, _ := engine.GrantAdvance("adv-1", nil, engine.NewAmount(20000), advanceBounds(), grantDay())

	split, err := engine.ApplyPayment(adv, engine.NewAmount(20000), grantDay().AddDays(5), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !split.Repaid || split.RemainderForContribution.IsPositive() {
		t.Errorf("expected exact retirement, got %+v", split)
	}
}

func TestApplyPayment_OnRepaidAdvance_Rejected(t *testing.T) {
	// GIVEN: A retired advance
	// WHEN: Routing another payment through it
	// THEN: ErrAdvanceRepaid; the caller records a plain contribution instead

	adv, _ := engine.GrantAdvance("adv-1", nil, engine.NewAmount(10000), advanceBounds(), grantDay())
	if _, err := engine.ApplyPayment(adv, engine.NewAmount(10000), grantDay().AddDays(1), 1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := engine.ApplyPayment(adv, engine.NewAmount(5000), grantDay().AddDays(2), 2)
	if !errors.Is(err, engine.ErrAdvanceRepaid) {
		t.Errorf("expected ErrAdvanceRepaid, got %v", err)
	}
}
