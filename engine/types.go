/*
Package engine provides the contract settlement engine for caisse
(savings-fund) administration.

PURPOSE:
  This package contains the pure calculation and state-machine logic for
  periodic savings contracts: mapping calendar dates to due periods,
  accumulating contributions and deriving period/contract status, computing
  tiered late-payment penalties, enforcing repayment priority of emergency
  support advances, and driving the refund request workflow.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A monetary quantity with a currency (decimal-backed)
  - Contribution: One recorded payment event ("versement") on a period
  - PaymentMode: The closed set of payment channels
  - Contract/Period/Advance/Refund IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Purity: No I/O, no framework, no implicit "now" - the caller injects
     a Clock and persists state
  2. Precision: Uses decimal.Decimal to avoid floating-point errors
  3. Atomicity: Every operation either fully applies or leaves state untouched
  4. Closed enums: One tagged set per concept, matched exhaustively

USAGE:
  target := engine.NewAmount(100000)
  idx, err := engine.ResolvePeriodIndex(start, engine.CadenceMonthly, paidAt)

SEE ALSO:
  - schedule.go: Date-to-period resolution
  - ledger.go:   Contribution accumulation and period status
  - status.go:   Contract-level status derivation
  - advance.go:  Support advance and repayment priority
  - refund.go:   Refund request state machine
*/
package engine

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Monetary quantity (always currency-based for this system)
// =============================================================================

type Currency string

// DefaultCurrency is the fund's operating currency.
const DefaultCurrency Currency = "XAF"

type Amount struct {
	Value    decimal.Decimal
	Currency Currency
}

func NewAmount(value int64) Amount {
	return Amount{Value: decimal.NewFromInt(value), Currency: DefaultCurrency}
}

func NewAmountFromFloat(value float64) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Currency: DefaultCurrency}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func ZeroAmount() Amount { return Amount{Value: decimal.Zero, Currency: DefaultCurrency} }

func (a Amount) Add(b Amount) Amount          { return Amount{Value: a.Value.Add(b.Value), Currency: a.Currency} }
func (a Amount) Sub(b Amount) Amount          { return Amount{Value: a.Value.Sub(b.Value), Currency: a.Currency} }
func (a Amount) Mul(s decimal.Decimal) Amount { return Amount{Value: a.Value.Mul(s), Currency: a.Currency} }
func (a Amount) Neg() Amount                  { return Amount{Value: a.Value.Neg(), Currency: a.Currency} }
func (a Amount) IsZero() bool                 { return a.Value.IsZero() }
func (a Amount) IsPositive() bool             { return a.Value.IsPositive() }
func (a Amount) IsNegative() bool             { return a.Value.IsNegative() }
func (a Amount) Equal(b Amount) bool          { return a.Value.Equal(b.Value) }
func (a Amount) GreaterThan(b Amount) bool    { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool       { return a.Value.LessThan(b.Value) }
func (a Amount) GreaterOrEqual(b Amount) bool { return a.Value.GreaterThanOrEqual(b.Value) }

func (a Amount) String() string { return a.Value.String() + " " + string(a.Currency) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ContractID string
type MemberID string
type ContributionID string
type AdvanceID string
type RefundID string

// DocumentRef is an opaque handle to an externally stored document
// (supporting file, withdrawal proof). The engine never inspects bytes.
type DocumentRef string

// =============================================================================
// CADENCE - How a contract's due periods are laid out
// =============================================================================

type Cadence string

const (
	CadenceMonthly Cadence = "MONTHLY"
	CadenceDaily   Cadence = "DAILY"
)

// =============================================================================
// PAYMENT MODE - Closed set of payment channels
// =============================================================================

type PaymentMode string

const (
	ModeCash          PaymentMode = "cash"
	ModeMobileMoney   PaymentMode = "mobile_money"
	ModeOrangeMoney   PaymentMode = "orange_money"
	ModeBankTransfer  PaymentMode = "bank_transfer"
	ModeCheque        PaymentMode = "cheque"
	ModeInternalLedger PaymentMode = "internal"
)

// ValidPaymentMode reports whether m is one of the known channels.
func ValidPaymentMode(m PaymentMode) bool {
	switch m {
	case ModeCash, ModeMobileMoney, ModeOrangeMoney, ModeBankTransfer, ModeCheque, ModeInternalLedger:
		return true
	}
	return false
}

// =============================================================================
// CONTRIBUTION - One recorded payment event ("versement")
// =============================================================================

// Contribution is immutable once recorded; corrections go through
// Period.ReplaceContribution which swaps the whole record.
type Contribution struct {
	ID      ContributionID
	Amount  Amount
	PaidAt  TimePoint
	Mode    PaymentMode
	Penalty Amount // per-contribution penalty, zero when none

	// DaysLate is the lateness measured against the period's reference
	// date when this contribution was recorded. Non-zero inside the
	// tolerance window too, where Penalty stays zero.
	DaysLate int

	// PayerID identifies which member paid, for group contracts.
	// Empty for individual contracts.
	PayerID MemberID

	// Proof is an optional receipt reference.
	Proof DocumentRef
}
