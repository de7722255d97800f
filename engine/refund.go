/*
refund.go - Refund request state machine

PURPOSE:
  Governs early-withdrawal and final-refund requests through approval and
  payout:

      PENDING ──▶ APPROVED ──▶ PAID
         │
         └──▶ ARCHIVED   (cancellation: EARLY only, pre-document only)

  No transition skips a state and none goes backward.

SNAPSHOT SEMANTIC:
  The nominal and bonus amounts are copied from the contract's running
  totals when the request is created and frozen, so contributions recorded
  while a request is in flight never drift the payout.

GATES:
  - A supporting document must be attached before approval.
  - Payout requires withdrawal date, time and proof.
  - At most one non-archived request per type per contract.
  - PAID triggers the contract-level transition to CLOSED (early payouts
    close the contract too).
*/
package engine

// =============================================================================
// REFUND REQUEST
// =============================================================================

type RefundType string

const (
	RefundEarly RefundType = "EARLY"
	RefundFinal RefundType = "FINAL"
)

type RefundStatus string

const (
	RefundPending  RefundStatus = "PENDING"
	RefundApproved RefundStatus = "APPROVED"
	RefundPaid     RefundStatus = "PAID"
	RefundArchived RefundStatus = "ARCHIVED"
)

type RefundRequest struct {
	ID     RefundID
	Type   RefundType
	Status RefundStatus

	// Reason is required and immutable once set.
	Reason string

	// Snapshot of the contract totals at request time.
	AmountNominal Amount
	AmountBonus   Amount

	// Document is the supporting document, required before approval.
	// Replacing it discards the prior reference.
	Document DocumentRef

	// Payout fields, set by MarkPaid.
	WithdrawalDate TimePoint
	WithdrawalTime string
	WithdrawalProof DocumentRef

	CreatedAt TimePoint
}

// =============================================================================
// CREATION
// =============================================================================

// NewRefundRequest validates eligibility against the contract and creates a
// PENDING request with the amounts snapshotted from the contract totals.
//
// FINAL requires every period PAID. EARLY requires at least one contribution
// and a contract that is not already fully paid. A non-archived request of
// the same type must not exist.
func NewRefundRequest(id RefundID, c *Contract, typ RefundType, reason string, now TimePoint) (*RefundRequest, error) {
	if reason == "" {
		return nil, ErrReasonRequired
	}
	if c.Status.Terminal() {
		return nil, ErrContractTerminal
	}
	if c.ActiveRefund(typ) != nil {
		return nil, ErrDuplicateRequest
	}

	switch typ {
	case RefundFinal:
		if !AllPeriodsPaid(c.Periods) {
			return nil, ErrNotAllPeriodsPaid
		}
	case RefundEarly:
		if !c.HasContribution() {
			return nil, ErrNoContributionYet
		}
		if AllPeriodsPaid(c.Periods) {
			return nil, ErrAllPeriodsPaid
		}
	}

	return &RefundRequest{
		ID:            id,
		Type:          typ,
		Status:        RefundPending,
		Reason:        reason,
		AmountNominal: c.TotalNominal,
		AmountBonus:   c.TotalBonus,
		CreatedAt:     now,
	}, nil
}

// =============================================================================
// TRANSITIONS
// =============================================================================

// AttachDocument sets the supporting document while PENDING. Attaching a
// second document replaces the first; the engine reports the discarded
// reference so the caller can delete the stored file.
func (r *RefundRequest) AttachDocument(doc DocumentRef) (replaced DocumentRef, err error) {
	if r.Status != RefundPending {
		return "", &StateError{Op: "attach a document to", From: r.Status}
	}
	if doc == "" {
		return "", ErrDocumentRequired
	}
	replaced = r.Document
	r.Document = doc
	return replaced, nil
}

// Approve transitions PENDING -> APPROVED. A supporting document must be
// attached first.
func (r *RefundRequest) Approve() error {
	if r.Status != RefundPending {
		return &StateError{Op: "approve", From: r.Status}
	}
	if r.Document == "" {
		return ErrDocumentRequired
	}
	r.Status = RefundApproved
	return nil
}

// Cancel transitions PENDING -> ARCHIVED. Only EARLY requests may be
// cancelled, and only before a document is attached.
func (r *RefundRequest) Cancel() error {
	if r.Status != RefundPending {
		return &StateError{Op: "cancel", From: r.Status}
	}
	if r.Type != RefundEarly {
		return ErrCancelFinal
	}
	if r.Document != "" {
		return ErrDocumentAttached
	}
	r.Status = RefundArchived
	return nil
}

// MarkPaid transitions APPROVED -> PAID with the withdrawal details. The
// caller closes the contract on success.
func (r *RefundRequest) MarkPaid(withdrawalDate TimePoint, withdrawalTime string, proof DocumentRef) error {
	if r.Status != RefundApproved {
		return &StateError{Op: "pay", From: r.Status}
	}
	if proof == "" {
		return ErrProofRequired
	}
	if withdrawalDate.IsZero() {
		return ErrWithdrawalDateRequired
	}
	if withdrawalTime == "" {
		return ErrWithdrawalTimeRequired
	}
	r.WithdrawalDate = withdrawalDate
	r.WithdrawalTime = withdrawalTime
	r.WithdrawalProof = proof
	r.Status = RefundPaid
	return nil
}

// Total returns nominal + bonus, the full payout.
func (r *RefundRequest) Total() Amount {
	return r.AmountNominal.Add(r.AmountBonus)
}
