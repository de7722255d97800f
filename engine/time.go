package engine

import (
	"time"
)

// =============================================================================
// TIME POINT - Day-granularity time abstraction
// =============================================================================

// TimePoint wraps a calendar instant. All due-date arithmetic in the engine
// is day-granular: comparisons and DaysBetween discard time-of-day, so a
// payment at 23:59 on the due date is on time.
type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func At(t time.Time) TimePoint { return TimePoint{Time: t} }

// Comparison (day-normalized)
func (tp TimePoint) Before(other TimePoint) bool { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool  { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool  { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether both points fall on the same calendar day.
func (tp TimePoint) SameDay(other TimePoint) bool { return tp.Equal(other) }

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

func (tp TimePoint) String() string { return tp.Time.Format("2006-01-02") }

// DaysBetween returns whole calendar days from - to, day-normalized.
// Positive when to is after from.
func DaysBetween(from, to TimePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

// =============================================================================
// CLOCK - Injected time source
// =============================================================================

// Clock supplies "now" to status resolution. The engine never reads
// time.Now() itself, so results are deterministic and testable.
type Clock interface {
	Now() TimePoint
}

// FixedClock always returns the same instant. For tests.
type FixedClock struct {
	At TimePoint
}

func (c FixedClock) Now() TimePoint { return c.At }
