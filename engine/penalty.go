/*
penalty.go - Tiered late-payment penalty calculation

PURPOSE:
  Computes the penalty owed when a payment lands after its period's due
  date, under the fund's tiered policy:

    daysLate <= 0   on time, no penalty
    1..3            tolerance window - late, flagged, but free
    >= 4            penalty = perDayRate% x periodTarget x daysLate

  The formula is linear in days late and deliberately uncapped: accrual
  keeps growing past the 12-day default threshold.

FAIL-SOFT CONFIGURATION:
  Penalty rules come from per-caisse-type settings. When no rate is
  configured the payment still goes through with a zero penalty; blocking
  a member's money over missing configuration is worse than under-charging.
*/
package engine

import "github.com/shopspring/decimal"

// PenaltyRules is the tiered policy supplied by the settings provider.
type PenaltyRules struct {
	// ToleranceDays is the last late day that stays penalty-free.
	ToleranceDays int

	// PenaltyThresholdDays is the first late day that accrues a penalty.
	PenaltyThresholdDays int

	// PerDayRatePercent is the daily rate applied to the period target,
	// e.g. 1 means 1% of the target per late day. Zero disables penalties.
	PerDayRatePercent decimal.Decimal
}

// DefaultPenaltyRules returns the standard 3-day tolerance / day-4 threshold
// policy with the given daily rate.
func DefaultPenaltyRules(perDayRatePercent float64) PenaltyRules {
	return PenaltyRules{
		ToleranceDays:        3,
		PenaltyThresholdDays: 4,
		PerDayRatePercent:    decimal.NewFromFloat(perDayRatePercent),
	}
}

// PenaltyResult reports lateness and the penalty owed, if any.
type PenaltyResult struct {
	DaysLate   int
	Penalty    Amount
	HasPenalty bool
}

// ComputePenalty computes the late-payment penalty for a payment made at
// paymentDate against referenceDue. referenceDue is the period's due date
// when known, else the contract start date (first-period special case).
// Both operands are compared at day granularity.
func ComputePenalty(referenceDue, paymentDate TimePoint, periodTarget Amount, rules PenaltyRules) PenaltyResult {
	daysLate := DaysBetween(referenceDue, paymentDate)
	result := PenaltyResult{DaysLate: daysLate, Penalty: ZeroAmount()}

	if daysLate <= 0 {
		result.DaysLate = 0
		return result
	}

	threshold := rules.PenaltyThresholdDays
	if threshold <= 0 {
		threshold = rules.ToleranceDays + 1
	}
	if daysLate < threshold {
		// Tolerance window: lateness is reported for display, not charged.
		return result
	}

	if !rules.PerDayRatePercent.IsPositive() {
		// ConfigurationGap: fail soft with zero penalty.
		return result
	}

	rate := rules.PerDayRatePercent.Div(decimal.NewFromInt(100))
	result.Penalty = periodTarget.Mul(rate).Mul(decimal.NewFromInt(int64(daysLate)))
	result.HasPenalty = true
	return result
}
