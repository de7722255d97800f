/*
errors.go - Centralized error types for the settlement engine

PURPOSE:
  All engine errors in one place for consistency and discoverability.
  Callers match with errors.Is / errors.As; nothing here is fatal to the
  process, and no operation that returns an error mutates state.

ERROR CATEGORIES:
  1. Validation errors - bad input, surfaced for user correction
  2. Invariant violations - ordering/duplication conflicts, rejected whole
  3. Not-found errors - missing contract/period/contribution

Missing penalty configuration is deliberately NOT an error: the penalty
calculator fails soft and yields a zero penalty (see penalty.go).

SEE ALSO:
  - ledger.go, advance.go, refund.go: producers of these errors
  - api/handlers.go: maps categories to HTTP status codes
*/
package engine

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNotYetStarted is returned when a date precedes the contract start.
	ErrNotYetStarted = errors.New("date precedes contract start")

	// ErrInvalidAmount is returned for non-positive monetary input.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrDateBeforeStart is returned when a contribution is dated before
	// the contract start date.
	ErrDateBeforeStart = errors.New("contribution date before contract start")

	// ErrInvalidPaymentMode is returned for a channel outside the closed set.
	ErrInvalidPaymentMode = errors.New("unknown payment mode")

	// ErrOutOfOrderPayment is returned when a contribution targets a period
	// while an earlier period is still unpaid. Administrative backfill
	// bypasses this check explicitly.
	ErrOutOfOrderPayment = errors.New("earlier period still unpaid")

	// ErrContractTerminal is returned when an operation targets a rescinded
	// or closed contract.
	ErrContractTerminal = errors.New("contract is terminal")

	// ErrContractNotActive is returned when payments arrive on a draft contract.
	ErrContractNotActive = errors.New("contract not activated")

	// ErrAdvanceActive is returned when granting a second advance while one
	// is still being repaid.
	ErrAdvanceActive = errors.New("an active support advance already exists")

	// ErrAdvanceRepaid is returned when routing a payment through an advance
	// that has already reached its terminal state.
	ErrAdvanceRepaid = errors.New("support advance already repaid")

	// ErrAmountOutOfRange is returned when an advance amount falls outside
	// the configured min/max bounds.
	ErrAmountOutOfRange = errors.New("advance amount outside configured bounds")

	// ErrAdvanceNotEligible is returned when the eligibility oracle refuses
	// a support advance for this contract.
	ErrAdvanceNotEligible = errors.New("contract not eligible for support advance")

	// Refund workflow errors.
	ErrReasonRequired         = errors.New("refund reason required")
	ErrNotAllPeriodsPaid      = errors.New("final refund requires all periods paid")
	ErrNoContributionYet      = errors.New("early refund requires at least one contribution")
	ErrAllPeriodsPaid         = errors.New("contract fully paid, request a final refund")
	ErrDuplicateRequest       = errors.New("a non-archived request of this type already exists")
	ErrDocumentRequired       = errors.New("supporting document required before approval")
	ErrDocumentAttached       = errors.New("cannot cancel once a document is attached")
	ErrCancelFinal            = errors.New("final refund requests cannot be cancelled")
	ErrProofRequired          = errors.New("withdrawal proof required")
	ErrWithdrawalDateRequired = errors.New("withdrawal date required")
	ErrWithdrawalTimeRequired = errors.New("withdrawal time required")

	// Not-found errors.
	ErrContractNotFound     = errors.New("contract not found")
	ErrPeriodNotFound       = errors.New("period not found")
	ErrContributionNotFound = errors.New("contribution not found")
	ErrRefundNotFound       = errors.New("refund request not found")

	// ErrSupportBoundsMissing is returned when no advance bounds are
	// configured for the contract type. Unlike penalty rules, advance
	// grants without configuration are a hard failure.
	ErrSupportBoundsMissing = errors.New("no support bounds configured for contract type")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// StateError reports a refund transition attempted from the wrong state.
type StateError struct {
	Op   string // attempted operation, e.g. "approve"
	From RefundStatus
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s a refund request in state %s", e.Op, e.From)
}

// OrderingError details a sequential-payment violation.
type OrderingError struct {
	TargetIndex int
	DueIndex    int
}

func (e *OrderingError) Error() string {
	return fmt.Sprintf("period %d targeted while period %d is still due", e.TargetIndex, e.DueIndex)
}

func (e *OrderingError) Unwrap() error { return ErrOutOfOrderPayment }

// BoundsError details an advance amount rejection.
type BoundsError struct {
	Requested Amount
	Min       Amount
	Max       Amount
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("advance of %v outside bounds [%v, %v]",
		e.Requested.Value, e.Min.Value, e.Max.Value)
}

func (e *BoundsError) Unwrap() error { return ErrAmountOutOfRange }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsValidation returns true for bad-input errors the user can correct.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidPaymentMode) ||
		errors.Is(err, ErrReasonRequired) ||
		errors.Is(err, ErrDocumentRequired) ||
		errors.Is(err, ErrProofRequired) ||
		errors.Is(err, ErrWithdrawalDateRequired) ||
		errors.Is(err, ErrWithdrawalTimeRequired)
}

// IsInvariant returns true for rule violations rejected with no mutation.
func IsInvariant(err error) bool {
	if errors.Is(err, ErrDateBeforeStart) ||
		errors.Is(err, ErrOutOfOrderPayment) ||
		errors.Is(err, ErrContractTerminal) ||
		errors.Is(err, ErrContractNotActive) ||
		errors.Is(err, ErrAdvanceActive) ||
		errors.Is(err, ErrAdvanceRepaid) ||
		errors.Is(err, ErrAmountOutOfRange) ||
		errors.Is(err, ErrAdvanceNotEligible) ||
		errors.Is(err, ErrNotAllPeriodsPaid) ||
		errors.Is(err, ErrNoContributionYet) ||
		errors.Is(err, ErrAllPeriodsPaid) ||
		errors.Is(err, ErrDuplicateRequest) ||
		errors.Is(err, ErrDocumentAttached) ||
		errors.Is(err, ErrCancelFinal) ||
		errors.Is(err, ErrNotYetStarted) {
		return true
	}
	var stateErr *StateError
	return errors.As(err, &stateErr)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrContractNotFound) ||
		errors.Is(err, ErrPeriodNotFound) ||
		errors.Is(err, ErrContributionNotFound) ||
		errors.Is(err, ErrRefundNotFound)
}
