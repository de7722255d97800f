/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario creates contracts and runs
	payments through the real settlement flow, so the resulting state is
	exactly what production operations would produce.

AVAILABLE SCENARIOS:

	on-time-saver:    Target contract, every payment on the due date
	late-payer:       Payments past the tolerance window, penalties accrue
	support-advance:  Advance granted, repayment priority over contributions
	early-refund:     Partial contributions with a pending early refund

HOW SCENARIOS WORK:
 1. Create contracts via the settlement service
 2. Activate them
 3. Replay dated payments through ProcessPayment
 4. Optionally grant advances / open refund requests

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "late-payer"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios add data to the current store. Only use in development/demo
	environments.

SEE ALSO:
  - handlers.go: Shared handler context
  - caisse/settlement.go: The flow the scenarios exercise
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/warp/caisse-engine/caisse"
	"github.com/warp/caisse-engine/engine"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects the scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

var scenarios = []ScenarioDTO{
	{
		ID:          "on-time-saver",
		Name:        "On-Time Saver",
		Description: "Monthly target contract, every payment on the due date, bonus accruing",
	},
	{
		ID:          "late-payer",
		Name:        "Late Payer",
		Description: "Payments past the tolerance window showing tiered penalties",
	},
	{
		ID:          "support-advance",
		Name:        "Support Advance",
		Description: "Emergency advance repaid with priority over contributions",
	},
	{
		ID:          "early-refund",
		Name:        "Early Refund",
		Description: "Partial contributions with a pending early refund request",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// LoadScenario populates the store with the selected scenario's data.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}

	var err error
	switch req.ScenarioID {
	case "on-time-saver":
		err = h.loadOnTimeSaverScenario(r.Context())
	case "late-payer":
		err = h.loadLatePayerScenario(r.Context())
	case "support-advance":
		err = h.loadSupportAdvanceScenario(r.Context())
	case "early-refund":
		err = h.loadEarlyRefundScenario(r.Context())
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// seedContract creates and activates one contract.
func (h *Handler) seedContract(ctx context.Context, owner string, target int64, periods int, start engine.TimePoint) (*engine.Contract, error) {
	t := engine.NewAmount(target)
	c, err := h.Settlements.CreateContract(ctx, caisse.NewContractParams{
		OwnerID:        engine.MemberID(owner),
		Cadence:        engine.CadenceMonthly,
		CaisseType:     caisse.CaisseStandard,
		ContractType:   caisse.ContractIndividual,
		Target:         &t,
		PlannedPeriods: periods,
		StartDate:      start,
	})
	if err != nil {
		return nil, err
	}
	if _, err := h.Settlements.Activate(ctx, c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

func (h *Handler) pay(ctx context.Context, id engine.ContractID, amount int64, at engine.TimePoint) error {
	_, err := h.Settlements.ProcessPayment(ctx, id, caisse.PaymentInput{
		Amount: engine.NewAmount(amount),
		PaidAt: at,
		Mode:   engine.ModeCash,
	})
	return err
}

func (h *Handler) loadOnTimeSaverScenario(ctx context.Context) error {
	start := engine.NewTimePoint(2025, 1, 15)
	c, err := h.seedContract(ctx, "amina", 10000, 12, start)
	if err != nil {
		return err
	}
	// Six months paid exactly on the due date.
	for i := 0; i < 6; i++ {
		if err := h.pay(ctx, c.ID, 10000, engine.NewTimePoint(2025, time.Month(1+i), 15)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) loadLatePayerScenario(ctx context.Context) error {
	start := engine.NewTimePoint(2025, 1, 10)
	c, err := h.seedContract(ctx, "kofi", 20000, 12, start)
	if err != nil {
		return err
	}
	// Two days late: inside the tolerance window, no penalty.
	if err := h.pay(ctx, c.ID, 20000, engine.NewTimePoint(2025, 1, 12)); err != nil {
		return err
	}
	// Six days late: tiered penalty accrues.
	if err := h.pay(ctx, c.ID, 20000, engine.NewTimePoint(2025, 2, 16)); err != nil {
		return err
	}
	return nil
}

func (h *Handler) loadSupportAdvanceScenario(ctx context.Context) error {
	start := engine.NewTimePoint(2025, 1, 5)
	c, err := h.seedContract(ctx, "mariam", 15000, 12, start)
	if err != nil {
		return err
	}
	if err := h.pay(ctx, c.ID, 15000, engine.NewTimePoint(2025, 1, 5)); err != nil {
		return err
	}
	if _, err := h.Settlements.GrantAdvance(ctx, c.ID, engine.NewAmount(20000)); err != nil {
		return err
	}
	// Swallowed entirely by the advance.
	if err := h.pay(ctx, c.ID, 15000, engine.NewTimePoint(2025, 2, 5)); err != nil {
		return err
	}
	// Clears the advance, remainder lands on the next due period.
	if err := h.pay(ctx, c.ID, 15000, engine.NewTimePoint(2025, 3, 5)); err != nil {
		return err
	}
	return nil
}

func (h *Handler) loadEarlyRefundScenario(ctx context.Context) error {
	start := engine.NewTimePoint(2025, 1, 20)
	c, err := h.seedContract(ctx, "ibrahim", 25000, 12, start)
	if err != nil {
		return err
	}
	for i := 0; i < 3; i++ {
		if err := h.pay(ctx, c.ID, 25000, engine.NewTimePoint(2025, time.Month(1+i), 20)); err != nil {
			return err
		}
	}
	_, err = h.Refunds.Request(ctx, c.ID, engine.RefundEarly, "relocation abroad")
	return err
}
