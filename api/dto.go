/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Request types carry go-playground/validator struct tags; handlers run
  them through the shared validator instance before touching the domain.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/contract.go: The aggregate these views are built from
*/
package api

import (
	"time"

	"github.com/warp/caisse-engine/engine"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CreateContractRequest is the request to open a new contract.
type CreateContractRequest struct {
	OwnerID        string   `json:"owner_id" validate:"required"`
	Group          bool     `json:"group"`
	Cadence        string   `json:"cadence" validate:"required,oneof=MONTHLY DAILY"`
	CaisseType     string   `json:"caisse_type" validate:"required"`
	ContractType   string   `json:"contract_type" validate:"required"`
	Target         *float64 `json:"target,omitempty" validate:"omitempty,gt=0"`
	PlannedPeriods int      `json:"planned_periods" validate:"min=0"`
	StartDate      string   `json:"start_date" validate:"required,datetime=2006-01-02"`
}

// PaymentRequest is one physical payment arriving on a contract.
type PaymentRequest struct {
	Amount  float64 `json:"amount" validate:"required,gt=0"`
	PaidAt  string  `json:"paid_at" validate:"required,datetime=2006-01-02"`
	Mode    string  `json:"mode" validate:"required"`
	PayerID string  `json:"payer_id,omitempty"`
	Proof   string  `json:"proof,omitempty"`

	// PeriodIndex pins the payment to a specific period; omit to target
	// the next due period.
	PeriodIndex *int `json:"period_index,omitempty"`
}

// CorrectionRequest replaces a recorded contribution's fields.
type CorrectionRequest struct {
	PeriodIndex    int     `json:"period_index" validate:"min=0"`
	ContributionID string  `json:"contribution_id" validate:"required"`
	Amount         float64 `json:"amount" validate:"required,gt=0"`
	PaidAt         string  `json:"paid_at" validate:"required,datetime=2006-01-02"`
	Mode           string  `json:"mode" validate:"required"`
	Proof          string  `json:"proof,omitempty"`
}

// GrantAdvanceRequest grants an emergency support advance.
type GrantAdvanceRequest struct {
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// CreateRefundRequest opens a refund workflow on a contract.
type CreateRefundRequest struct {
	Type   string `json:"type" validate:"required,oneof=EARLY FINAL"`
	Reason string `json:"reason" validate:"required"`
}

// AttachDocumentRequest attaches the signed withdrawal form.
type AttachDocumentRequest struct {
	Document string `json:"document" validate:"required"`
}

// MarkPaidRequest records the physical hand-over of a refund.
type MarkPaidRequest struct {
	WithdrawalDate string `json:"withdrawal_date" validate:"required,datetime=2006-01-02"`
	WithdrawalTime string `json:"withdrawal_time" validate:"required"`
	Proof          string `json:"proof" validate:"required"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ContractDTO represents a contract in API responses.
type ContractDTO struct {
	ID             string      `json:"id"`
	OwnerID        string      `json:"owner_id"`
	Group          bool        `json:"group"`
	Cadence        string      `json:"cadence"`
	CaisseType     string      `json:"caisse_type"`
	ContractType   string      `json:"contract_type"`
	Target         *float64    `json:"target,omitempty"`
	PlannedPeriods int         `json:"planned_periods"`
	StartDate      string      `json:"start_date"`
	Status         string      `json:"status"`
	TotalNominal   float64     `json:"total_nominal"`
	TotalBonus     float64     `json:"total_bonus"`
	TotalPenalties float64     `json:"total_penalties"`
	NextDueDate    *string     `json:"next_due_date,omitempty"`
	Periods        []PeriodDTO `json:"periods,omitempty"`
	Advance        *AdvanceDTO `json:"advance,omitempty"`
	Refunds        []RefundDTO `json:"refunds,omitempty"`
}

// PeriodDTO represents one due slot of a contract's schedule.
type PeriodDTO struct {
	Index         int               `json:"index"`
	DueDate       string            `json:"due_date"`
	Target        *float64          `json:"target,omitempty"`
	Accumulated   float64           `json:"accumulated"`
	Remaining     *float64          `json:"remaining,omitempty"`
	Status        string            `json:"status"`
	Penalty       float64           `json:"penalty"`
	PenaltyDays   int               `json:"penalty_days"`
	Contributions []ContributionDTO `json:"contributions,omitempty"`
}

// ContributionDTO represents one recorded payment event.
type ContributionDTO struct {
	ID      string  `json:"id"`
	Amount  float64 `json:"amount"`
	PaidAt  string  `json:"paid_at"`
	Mode    string  `json:"mode"`
	Penalty float64 `json:"penalty"`
	PayerID string  `json:"payer_id,omitempty"`
	Proof   string  `json:"proof,omitempty"`
}

// AdvanceDTO represents a support advance and its repayment history.
type AdvanceDTO struct {
	ID         string         `json:"id"`
	Amount     float64        `json:"amount"`
	Repaid     float64        `json:"repaid"`
	Remaining  float64        `json:"remaining"`
	Status     string         `json:"status"`
	GrantedAt  string         `json:"granted_at"`
	Repayments []RepaymentDTO `json:"repayments,omitempty"`
}

// RepaymentDTO is one repayment event against an advance.
type RepaymentDTO struct {
	At          string  `json:"at"`
	Amount      float64 `json:"amount"`
	PeriodIndex int     `json:"period_index"`
}

// RefundDTO represents a refund request.
type RefundDTO struct {
	ID             string  `json:"id"`
	Type           string  `json:"type"`
	Status         string  `json:"status"`
	Reason         string  `json:"reason"`
	AmountNominal  float64 `json:"amount_nominal"`
	AmountBonus    float64 `json:"amount_bonus"`
	AmountTotal    float64 `json:"amount_total"`
	Document       string  `json:"document,omitempty"`
	WithdrawalDate string  `json:"withdrawal_date,omitempty"`
	WithdrawalTime string  `json:"withdrawal_time,omitempty"`
	Proof          string  `json:"proof,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// SettlementResultDTO reports what one payment did.
type SettlementResultDTO struct {
	ContractID       string           `json:"contract_id"`
	Status           string           `json:"status"`
	AdvanceRepayment float64          `json:"advance_repayment"`
	AdvanceRepaid    bool             `json:"advance_repaid"`
	PeriodIndex      int              `json:"period_index"`
	Contribution     *ContributionDTO `json:"contribution,omitempty"`
	PenaltyDays      int              `json:"penalty_days"`
	Penalty          float64          `json:"penalty"`
	PeriodsBehind    int              `json:"periods_behind,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toContractDTO(c *engine.Contract, full bool) ContractDTO {
	dto := ContractDTO{
		ID:             string(c.ID),
		OwnerID:        string(c.OwnerID),
		Group:          c.Group,
		Cadence:        string(c.Cadence),
		CaisseType:     c.CaisseType,
		ContractType:   c.ContractType,
		Target:         amountFloatPtr(c.Target),
		PlannedPeriods: c.PlannedPeriods,
		StartDate:      c.StartDate.Time.Format("2006-01-02"),
		Status:         string(c.Status),
		TotalNominal:   amountFloat(c.TotalNominal),
		TotalBonus:     amountFloat(c.TotalBonus),
		TotalPenalties: amountFloat(c.TotalPenalties),
	}
	if due, ok := c.NextDueDate(); ok {
		s := due.Time.Format("2006-01-02")
		dto.NextDueDate = &s
	}
	if !full {
		return dto
	}

	for _, p := range c.Periods {
		dto.Periods = append(dto.Periods, toPeriodDTO(p))
	}
	if c.Advance != nil {
		adv := toAdvanceDTO(c.Advance)
		dto.Advance = &adv
	}
	for _, r := range c.Refunds {
		dto.Refunds = append(dto.Refunds, toRefundDTO(r))
	}
	return dto
}

func toPeriodDTO(p *engine.Period) PeriodDTO {
	dto := PeriodDTO{
		Index:       p.Index,
		DueDate:     p.DueDate.Time.Format("2006-01-02"),
		Target:      amountFloatPtr(p.Target),
		Accumulated: amountFloat(p.Accumulated),
		Status:      string(p.Status),
		Penalty:     amountFloat(p.Penalty),
		PenaltyDays: p.PenaltyDays,
	}
	if p.Target != nil {
		rem := amountFloat(p.Remaining())
		dto.Remaining = &rem
	}
	for _, cb := range p.Contributions {
		dto.Contributions = append(dto.Contributions, toContributionDTO(cb))
	}
	return dto
}

func toContributionDTO(cb engine.Contribution) ContributionDTO {
	return ContributionDTO{
		ID:      string(cb.ID),
		Amount:  amountFloat(cb.Amount),
		PaidAt:  cb.PaidAt.Time.Format("2006-01-02"),
		Mode:    string(cb.Mode),
		Penalty: amountFloat(cb.Penalty),
		PayerID: string(cb.PayerID),
		Proof:   string(cb.Proof),
	}
}

func toAdvanceDTO(adv *engine.SupportAdvance) AdvanceDTO {
	dto := AdvanceDTO{
		ID:        string(adv.ID),
		Amount:    amountFloat(adv.Amount),
		Repaid:    amountFloat(adv.Repaid),
		Remaining: amountFloat(adv.Remaining()),
		Status:    string(adv.Status),
		GrantedAt: adv.GrantedAt.Time.Format(time.RFC3339),
	}
	for _, rp := range adv.Repayments {
		dto.Repayments = append(dto.Repayments, RepaymentDTO{
			At:          rp.At.Time.Format("2006-01-02"),
			Amount:      amountFloat(rp.Amount),
			PeriodIndex: rp.PeriodIndex,
		})
	}
	return dto
}

func toRefundDTO(r *engine.RefundRequest) RefundDTO {
	dto := RefundDTO{
		ID:            string(r.ID),
		Type:          string(r.Type),
		Status:        string(r.Status),
		Reason:        r.Reason,
		AmountNominal: amountFloat(r.AmountNominal),
		AmountBonus:   amountFloat(r.AmountBonus),
		AmountTotal:   amountFloat(r.Total()),
		Document:      string(r.Document),
		Proof:         string(r.WithdrawalProof),
		CreatedAt:     r.CreatedAt.Time.Format(time.RFC3339),
	}
	if !r.WithdrawalDate.IsZero() {
		dto.WithdrawalDate = r.WithdrawalDate.Time.Format("2006-01-02")
	}
	dto.WithdrawalTime = r.WithdrawalTime
	return dto
}

func amountFloat(a engine.Amount) float64 {
	f, _ := a.Value.Float64()
	return f
}

func amountFloatPtr(a *engine.Amount) *float64 {
	if a == nil {
		return nil
	}
	f := amountFloat(*a)
	return &f
}
