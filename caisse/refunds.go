/*
refunds.go - Refund workflow orchestration

PURPOSE:
  Drives refund requests over the store: creation with eligibility checks
  and the amount snapshot, document attachment, approval, cancellation and
  payout. A payout (early or final) closes the contract.

  The state machine itself lives in engine/refund.go; this service only
  loads the aggregate, applies the transition, and saves.
*/
package caisse

import (
	"context"

	"github.com/google/uuid"

	"github.com/warp/caisse-engine/engine"
)

// RefundService orchestrates the refund request workflow.
type RefundService struct {
	Store engine.ContractStore
	Clock engine.Clock
}

func NewRefundService(store engine.ContractStore) *RefundService {
	return &RefundService{Store: store, Clock: SystemClock{}}
}

// Request creates a PENDING refund request with amounts snapshotted from
// the contract's totals at this instant.
func (s *RefundService) Request(ctx context.Context, id engine.ContractID, typ engine.RefundType, reason string) (*engine.RefundRequest, error) {
	c, err := s.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	r, err := engine.NewRefundRequest(engine.RefundID(uuid.NewString()), c, typ, reason, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	c.Refunds = append(c.Refunds, r)

	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return r, nil
}

// AttachDocument attaches (or replaces) the supporting document. The
// returned reference is the replaced document, to be deleted by the
// document store; empty when none was attached before.
func (s *RefundService) AttachDocument(ctx context.Context, id engine.ContractID, refundID engine.RefundID, doc engine.DocumentRef) (*engine.RefundRequest, engine.DocumentRef, error) {
	var replaced engine.DocumentRef
	r, err := s.transition(ctx, id, refundID, func(r *engine.RefundRequest, _ *engine.Contract) error {
		var err error
		replaced, err = r.AttachDocument(doc)
		return err
	})
	return r, replaced, err
}

// Approve transitions PENDING -> APPROVED.
func (s *RefundService) Approve(ctx context.Context, id engine.ContractID, refundID engine.RefundID) (*engine.RefundRequest, error) {
	return s.transition(ctx, id, refundID, func(r *engine.RefundRequest, _ *engine.Contract) error {
		return r.Approve()
	})
}

// Cancel archives a pre-document EARLY request.
func (s *RefundService) Cancel(ctx context.Context, id engine.ContractID, refundID engine.RefundID) (*engine.RefundRequest, error) {
	return s.transition(ctx, id, refundID, func(r *engine.RefundRequest, _ *engine.Contract) error {
		return r.Cancel()
	})
}

// MarkPaid records the payout and closes the contract.
func (s *RefundService) MarkPaid(ctx context.Context, id engine.ContractID, refundID engine.RefundID, withdrawalDate engine.TimePoint, withdrawalTime string, proof engine.DocumentRef) (*engine.RefundRequest, error) {
	return s.transition(ctx, id, refundID, func(r *engine.RefundRequest, c *engine.Contract) error {
		if err := r.MarkPaid(withdrawalDate, withdrawalTime, proof); err != nil {
			return err
		}
		c.Close()
		return nil
	})
}

// transition loads the aggregate, applies fn to the request, and saves.
func (s *RefundService) transition(ctx context.Context, id engine.ContractID, refundID engine.RefundID, fn func(*engine.RefundRequest, *engine.Contract) error) (*engine.RefundRequest, error) {
	c, err := s.Store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	r := c.RefundByID(refundID)
	if r == nil {
		return nil, engine.ErrRefundNotFound
	}
	if err := fn(r, c); err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, c); err != nil {
		return nil, err
	}
	return r, nil
}
