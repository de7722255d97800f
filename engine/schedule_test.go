package engine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/caisse-engine/engine"
)

// =============================================================================
// PERIOD INDEX RESOLUTION
// =============================================================================

func TestResolvePeriodIndex_StartDay_IsIndexZero(t *testing.T) {
	// GIVEN: A monthly contract starting 2024-01-31
	// WHEN: Resolving the start day itself
	// THEN: The index is 0

	start := engine.NewTimePoint(2024, time.January, 31)

	idx, err := engine.ResolvePeriodIndex(start, engine.CadenceMonthly, start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 0 {
		t.Errorf("expected index 0, got %d", idx)
	}
}

func TestResolvePeriodIndex_MonthBoundary_CountsCalendarMonths(t *testing.T) {
	// GIVEN: A monthly contract starting 2024-01-31
	// WHEN: Resolving dates through February and into March
	// THEN: Any February date is index 1, the first March date is index 2

	start := engine.NewTimePoint(2024, time.January, 31)

	cases := []struct {
		target engine.TimePoint
		want   int
	}{
		{engine.NewTimePoint(2024, time.February, 1), 1},
		{engine.NewTimePoint(2024, time.February, 29), 1},
		{engine.NewTimePoint(2024, time.March, 1), 2},
		{engine.NewTimePoint(2024, time.December, 31), 11},
		{engine.NewTimePoint(2025, time.January, 1), 12},
	}

	for _, c := range cases {
		idx, err := engine.ResolvePeriodIndex(start, engine.CadenceMonthly, c.target)
		if err != nil {
			t.Fatalf("%v: unexpected error: %v", c.target, err)
		}
		if idx != c.want {
			t.Errorf("%v: expected index %d, got %d", c.target, c.want, idx)
		}
	}
}

func TestResolvePeriodIndex_BeforeStart_Rejected(t *testing.T) {
	// GIVEN: A contract starting 2024-06-15
	// WHEN: Resolving a date before the start
	// THEN: ErrNotYetStarted

	start := engine.NewTimePoint(2024, time.June, 15)
	target := engine.NewTimePoint(2024, time.June, 14)

	_, err := engine.ResolvePeriodIndex(start, engine.CadenceMonthly, target)
	if !errors.Is(err, engine.ErrNotYetStarted) {
		t.Errorf("expected ErrNotYetStarted, got %v", err)
	}
}

// =============================================================================
// DUE DATES AND MONTH-END CLAMPING
// =============================================================================

func TestPeriodDueDate_ClampsToLastDayOfShorterMonth(t *testing.T) {
	// GIVEN: A contract starting on the 31st
	// WHEN: Computing due dates for months without a 31st
	// THEN: The due day clamps to the month's last day and does not drift

	start := engine.NewTimePoint(2024, time.January, 31)

	cases := []struct {
		index int
		want  engine.TimePoint
	}{
		{0, engine.NewTimePoint(2024, time.January, 31)},
		{1, engine.NewTimePoint(2024, time.February, 29)}, // leap year
		{2, engine.NewTimePoint(2024, time.March, 31)},
		{3, engine.NewTimePoint(2024, time.April, 30)},
		{13, engine.NewTimePoint(2025, time.February, 28)}, // non-leap
	}

	for _, c := range cases {
		got := engine.PeriodDueDate(start, c.index)
		if !got.Equal(c.want) {
			t.Errorf("index %d: expected %v, got %v", c.index, c.want, got)
		}
	}
}

func TestPeriodDueDate_MidMonthStart_KeepsDay(t *testing.T) {
	// GIVEN: A contract starting mid-month
	// WHEN: Computing due dates a year ahead
	// THEN: The day of month is preserved

	start := engine.NewTimePoint(2024, time.March, 15)

	got := engine.PeriodDueDate(start, 12)
	want := engine.NewTimePoint(2025, time.March, 15)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

// =============================================================================
// DAILY CADENCE
// =============================================================================

func TestDaySlot_CountsDaysFromStart(t *testing.T) {
	// GIVEN: A daily-cadence contract starting 2024-05-01
	// WHEN: Resolving slots for subsequent days
	// THEN: Slot n is exactly n days after the start

	start := engine.NewTimePoint(2024, time.May, 1)

	slot, err := engine.DaySlot(start, engine.NewTimePoint(2024, time.May, 6))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if slot != 5 {
		t.Errorf("expected slot 5, got %d", slot)
	}

	_, err = engine.DaySlot(start, engine.NewTimePoint(2024, time.April, 30))
	if !errors.Is(err, engine.ErrNotYetStarted) {
		t.Errorf("expected ErrNotYetStarted, got %v", err)
	}
}
