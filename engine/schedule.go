/*
schedule.go - Date-to-period resolution

PURPOSE:
  Maps calendar dates to a contract's zero-based due-period index, for both
  monthly and daily cadence contracts, and computes the due date of any
  period with month-length irregularities handled correctly.

THE BOUNDARY RULE:
  A contract starting Jan 31 owes its second period in February. February
  has no 31st, so the rolled due date clamps to February's last day (Feb 29
  in a leap year) instead of overflowing into March. The period index itself
  counts calendar-month boundaries crossed: any date in February is index 1,
  any date in March index 2, regardless of the start's day-of-month.

DAILY CONTRACTS:
  Daily contracts still track monthly objectives: they resolve to the same
  monthly period index, while each elapsed calendar day is a distinct
  contribution slot inside that period (see DaySlot).

DETERMINISM:
  Pure functions of their arguments. No reads of "now".
*/
package engine

import "time"

// ResolvePeriodIndex resolves a calendar date to the zero-based due-period
// index of a contract starting at start. Both cadences group contributions
// into monthly periods.
//
// Returns ErrNotYetStarted when target (day-normalized) precedes start.
func ResolvePeriodIndex(start TimePoint, cadence Cadence, target TimePoint) (int, error) {
	if target.Before(start) {
		return 0, ErrNotYetStarted
	}
	_ = cadence // monthly and daily cadences share the monthly grouping
	return monthsCrossed(start, target), nil
}

// monthsCrossed counts calendar-month boundaries between two dates, indexes
// being anchored on the start month. Monotonically non-decreasing as target
// advances, with no gaps at 28-31 day months or leap years.
func monthsCrossed(start, target TimePoint) int {
	return (target.Year()-start.Year())*12 + int(target.Month()) - int(start.Month())
}

// PeriodDueDate returns the due date of period index for a contract starting
// at start: start advanced by index months, with the day-of-month clamped to
// the destination month's last day. Never overflows into the next month.
func PeriodDueDate(start TimePoint, index int) TimePoint {
	year := start.Year()
	month := int(start.Month()) + index
	year += (month - 1) / 12
	month = (month-1)%12 + 1

	day := start.Day()
	if last := lastDayOfMonth(year, time.Month(month)); day > last {
		day = last
	}
	return NewTimePoint(year, time.Month(month), day)
}

// DaySlot returns the zero-based contribution slot of target within a daily
// contract: the count of whole calendar days elapsed since start.
//
// Returns ErrNotYetStarted when target precedes start.
func DaySlot(start, target TimePoint) (int, error) {
	if target.Before(start) {
		return 0, ErrNotYetStarted
	}
	return DaysBetween(start, target), nil
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
