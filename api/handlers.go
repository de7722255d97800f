/*
handlers.go - HTTP API handlers for the contract settlement engine

PURPOSE:
  Exposes the settlement engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Contracts:
    GET    /api/contracts                List all contracts
    POST   /api/contracts                Create contract (DRAFT)
    GET    /api/contracts/{id}           Full aggregate view
    POST   /api/contracts/{id}/activate  DRAFT -> ACTIVE
    POST   /api/contracts/{id}/rescind   Administrative termination

  Payments:
    POST   /api/contracts/{id}/payments           Route one payment
    POST   /api/contracts/{id}/payments/backfill  Admin late-payment tool
    POST   /api/contracts/{id}/corrections        Replace a contribution

  Advances:
    POST   /api/contracts/{id}/advance   Grant a support advance

  Refunds:
    POST   /api/contracts/{id}/refunds                        Open request
    POST   /api/contracts/{id}/refunds/{refundID}/document    Attach form
    POST   /api/contracts/{id}/refunds/{refundID}/approve     PENDING -> APPROVED
    POST   /api/contracts/{id}/refunds/{refundID}/cancel      PENDING -> ARCHIVED
    POST   /api/contracts/{id}/refunds/{refundID}/paid        APPROVED -> PAID

  Admin:
    POST   /api/admin/refresh-statuses   Persist time-driven status changes

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input (go-playground/validator struct tags)
  3. Call domain logic (settlement / refund services)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Domain errors map to HTTP status via the engine's error categories:
  - 400: Validation errors, invalid input
  - 404: Contract / period / refund not found
  - 409: Invariant breaches (ordering, duplicate advance, bad transition)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/warp/caisse-engine/caisse"
	"github.com/warp/caisse-engine/engine"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Settlements *caisse.SettlementService
	Refunds     *caisse.RefundService

	validate *validator.Validate
}

// NewHandler creates a new handler over the two domain services.
func NewHandler(settlements *caisse.SettlementService, refunds *caisse.RefundService) *Handler {
	return &Handler{
		Settlements: settlements,
		Refunds:     refunds,
		validate:    validator.New(),
	}
}

// decode parses and validates a JSON request body.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns all contracts with read-time statuses.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	contracts, err := h.Settlements.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list contracts", err)
		return
	}

	dtos := make([]ContractDTO, len(contracts))
	for i, c := range contracts {
		dtos[i] = toContractDTO(c, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetContract returns the full aggregate view of one contract.
func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))

	c, err := h.Settlements.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, true))
}

// CreateContract opens a new DRAFT contract with its planned schedule.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req CreateContractRequest
	if !h.decode(w, r, &req) {
		return
	}

	start, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date format (use YYYY-MM-DD)", err)
		return
	}

	var target *engine.Amount
	if req.Target != nil {
		a := engine.NewAmountFromFloat(*req.Target)
		target = &a
	}

	c, err := h.Settlements.CreateContract(r.Context(), caisse.NewContractParams{
		OwnerID:        engine.MemberID(req.OwnerID),
		Group:          req.Group,
		Cadence:        engine.Cadence(req.Cadence),
		CaisseType:     req.CaisseType,
		ContractType:   req.ContractType,
		Target:         target,
		PlannedPeriods: req.PlannedPeriods,
		StartDate:      engine.At(start),
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractDTO(c, true))
}

// ActivateContract transitions a contract DRAFT -> ACTIVE.
func (h *Handler) ActivateContract(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))

	c, err := h.Settlements.Activate(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, false))
}

// RescindContract sets the administrative terminal state.
func (h *Handler) RescindContract(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))

	c, err := h.Settlements.Rescind(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, false))
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// SubmitPayment routes one payment through the settlement flow.
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))

	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	in, ok := h.paymentInput(w, req)
	if !ok {
		return
	}

	res, err := h.Settlements.ProcessPayment(r.Context(), id, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSettlementResultDTO(res))
}

// BackfillPayment is the administrative late-payment tool: it records a
// payment against an explicit period, bypassing the sequential check.
func (h *Handler) BackfillPayment(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))

	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.PeriodIndex == nil {
		writeError(w, http.StatusBadRequest, "period_index is required for backfill", nil)
		return
	}
	in, ok := h.paymentInput(w, req)
	if !ok {
		return
	}

	res, err := h.Settlements.RecordLatePayment(r.Context(), id, *req.PeriodIndex, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSettlementResultDTO(res))
}

// CorrectContribution replaces a recorded contribution's fields and
// recomputes the aggregate's totals.
func (h *Handler) CorrectContribution(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))

	var req CorrectionRequest
	if !h.decode(w, r, &req) {
		return
	}

	paidAt, err := time.Parse("2006-01-02", req.PaidAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paid_at format (use YYYY-MM-DD)", err)
		return
	}

	c, err := h.Settlements.CorrectContribution(r.Context(), id,
		req.PeriodIndex,
		engine.ContributionID(req.ContributionID),
		engine.NewAmountFromFloat(req.Amount),
		engine.At(paidAt),
		engine.PaymentMode(req.Mode),
		engine.DocumentRef(req.Proof),
	)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(c, true))
}

func (h *Handler) paymentInput(w http.ResponseWriter, req PaymentRequest) (caisse.PaymentInput, bool) {
	paidAt, err := time.Parse("2006-01-02", req.PaidAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid paid_at format (use YYYY-MM-DD)", err)
		return caisse.PaymentInput{}, false
	}
	return caisse.PaymentInput{
		Amount:      engine.NewAmountFromFloat(req.Amount),
		PaidAt:      engine.At(paidAt),
		Mode:        engine.PaymentMode(req.Mode),
		PayerID:     engine.MemberID(req.PayerID),
		Proof:       engine.DocumentRef(req.Proof),
		TargetIndex: req.PeriodIndex,
	}, true
}

func toSettlementResultDTO(res *caisse.SettlementResult) SettlementResultDTO {
	dto := SettlementResultDTO{
		ContractID:       string(res.Contract.ID),
		Status:           string(res.Contract.Status),
		AdvanceRepayment: amountFloat(res.AdvanceRepayment),
		AdvanceRepaid:    res.AdvanceRepaid,
		PeriodIndex:      res.PeriodIndex,
		PenaltyDays:      res.Penalty.DaysLate,
		Penalty:          amountFloat(res.Penalty.Penalty),
		PeriodsBehind:    res.PeriodsBehind,
	}
	if res.Contribution != nil {
		cb := toContributionDTO(*res.Contribution)
		dto.Contribution = &cb
	}
	return dto
}

// =============================================================================
// ADVANCE HANDLERS
// =============================================================================

// GrantAdvance grants an emergency support advance on a contract.
func (h *Handler) GrantAdvance(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))

	var req GrantAdvanceRequest
	if !h.decode(w, r, &req) {
		return
	}

	adv, err := h.Settlements.GrantAdvance(r.Context(), id, engine.NewAmountFromFloat(req.Amount))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAdvanceDTO(adv))
}

// =============================================================================
// REFUND HANDLERS
// =============================================================================

// OpenRefund opens an EARLY or FINAL refund request.
func (h *Handler) OpenRefund(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))

	var req CreateRefundRequest
	if !h.decode(w, r, &req) {
		return
	}

	ref, err := h.Refunds.Request(r.Context(), id, engine.RefundType(req.Type), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRefundDTO(ref))
}

// AttachRefundDocument attaches (or replaces) the signed withdrawal form.
func (h *Handler) AttachRefundDocument(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))
	refundID := engine.RefundID(chi.URLParam(r, "refundID"))

	var req AttachDocumentRequest
	if !h.decode(w, r, &req) {
		return
	}

	ref, _, err := h.Refunds.AttachDocument(r.Context(), id, refundID, engine.DocumentRef(req.Document))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundDTO(ref))
}

// ApproveRefund transitions a refund PENDING -> APPROVED.
func (h *Handler) ApproveRefund(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))
	refundID := engine.RefundID(chi.URLParam(r, "refundID"))

	ref, err := h.Refunds.Approve(r.Context(), id, refundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundDTO(ref))
}

// CancelRefund archives a pending early-refund request.
func (h *Handler) CancelRefund(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))
	refundID := engine.RefundID(chi.URLParam(r, "refundID"))

	ref, err := h.Refunds.Cancel(r.Context(), id, refundID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundDTO(ref))
}

// MarkRefundPaid records the physical hand-over and closes the contract.
func (h *Handler) MarkRefundPaid(w http.ResponseWriter, r *http.Request) {
	id := engine.ContractID(chi.URLParam(r, "id"))
	refundID := engine.RefundID(chi.URLParam(r, "refundID"))

	var req MarkPaidRequest
	if !h.decode(w, r, &req) {
		return
	}

	date, err := time.Parse("2006-01-02", req.WithdrawalDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid withdrawal_date format (use YYYY-MM-DD)", err)
		return
	}

	ref, err := h.Refunds.MarkPaid(r.Context(), id, refundID,
		engine.At(date), req.WithdrawalTime, engine.DocumentRef(req.Proof))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRefundDTO(ref))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RefreshStatuses re-resolves every non-terminal contract's status and
// persists the changes. The scheduler calls the same service method.
func (h *Handler) RefreshStatuses(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Settlements.RefreshAll(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to refresh statuses", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors onto HTTP status codes through the
// engine's error categories.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case engine.IsNotFound(err):
		writeError(w, http.StatusNotFound, err.Error(), nil)
	case engine.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case engine.IsInvariant(err):
		writeError(w, http.StatusConflict, err.Error(), nil)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
