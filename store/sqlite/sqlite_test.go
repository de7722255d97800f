package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/caisse-engine/engine"
	"github.com/warp/caisse-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func date(year int, month time.Month, day int) engine.TimePoint {
	return engine.NewTimePoint(year, month, day)
}

// fullAggregate builds a contract exercising every child table: funded
// periods, an advance with repayments, and a refund request in flight.
func fullAggregate() *engine.Contract {
	target := engine.NewAmount(10000)
	start := date(2025, time.January, 10)
	c := engine.NewContract("ct-1", "m1", engine.CadenceMonthly, "standard", "individual", &target, 3, start)
	c.Group = true
	c.BuildSchedule()
	c.Activate()

	c.Periods[0].RecordContribution(start, engine.Contribution{
		ID:      "cb-1",
		Amount:  engine.NewAmount(10000),
		PaidAt:  start,
		Mode:    engine.ModeMobileMoney,
		Penalty: engine.ZeroAmount(),
		PayerID: "m2",
		Proof:   "receipt-1",
	})
	c.Periods[1].RecordContribution(start, engine.Contribution{
		ID:       "cb-2",
		Amount:   engine.NewAmount(4000),
		PaidAt:   date(2025, time.February, 16),
		Mode:     engine.ModeCash,
		Penalty:  engine.NewAmount(600),
		DaysLate: 6,
	})
	c.TotalNominal = engine.NewAmount(14000)
	c.TotalBonus = engine.NewAmount(200)
	c.TotalPenalties = engine.NewAmount(600)

	adv, _ := engine.GrantAdvance("adv-1", nil, engine.NewAmount(20000),
		engine.SupportBounds{Min: engine.NewAmount(5000), Max: engine.NewAmount(200000)},
		date(2025, time.February, 1))
	engine.ApplyPayment(adv, engine.NewAmount(15000), date(2025, time.February, 5), 1)
	c.Advance = adv

	r, _ := engine.NewRefundRequest("rf-1", c, engine.RefundEarly, "relocation", date(2025, time.February, 20))
	r.AttachDocument("withdrawal-form-1")
	c.Refunds = append(c.Refunds, r)

	return c
}

// =============================================================================
// AGGREGATE ROUND-TRIP
// =============================================================================

func TestSaveLoad_RoundTripsFullAggregate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	saved := fullAggregate()
	require.NoError(t, store.Save(ctx, saved))

	loaded, err := store.Load(ctx, "ct-1")
	require.NoError(t, err)

	assert.Equal(t, saved.ID, loaded.ID)
	assert.Equal(t, saved.OwnerID, loaded.OwnerID)
	assert.True(t, loaded.Group)
	assert.Equal(t, engine.CadenceMonthly, loaded.Cadence)
	assert.Equal(t, saved.Status, loaded.Status)
	require.NotNil(t, loaded.Target)
	assert.True(t, loaded.Target.Equal(engine.NewAmount(10000)))
	assert.True(t, loaded.StartDate.Equal(saved.StartDate))
	assert.True(t, loaded.TotalNominal.Equal(engine.NewAmount(14000)))
	assert.True(t, loaded.TotalBonus.Equal(engine.NewAmount(200)))
	assert.True(t, loaded.TotalPenalties.Equal(engine.NewAmount(600)))

	// Periods come back in index order with their derived state.
	require.Len(t, loaded.Periods, 3)
	assert.Equal(t, engine.PeriodPaid, loaded.Periods[0].Status)
	assert.Equal(t, engine.PeriodPartial, loaded.Periods[1].Status)
	assert.Equal(t, engine.PeriodDue, loaded.Periods[2].Status)
	assert.True(t, loaded.Periods[1].Penalty.Equal(engine.NewAmount(600)))
	assert.Equal(t, 6, loaded.Periods[1].PenaltyDays)
	assert.Equal(t, 6, loaded.Periods[1].Contributions[0].DaysLate)
	assert.True(t, loaded.Periods[1].DueDate.Equal(date(2025, time.February, 10)))

	// Contributions keep payer and proof.
	require.Len(t, loaded.Periods[0].Contributions, 1)
	cb := loaded.Periods[0].Contributions[0]
	assert.Equal(t, engine.ContributionID("cb-1"), cb.ID)
	assert.Equal(t, engine.ModeMobileMoney, cb.Mode)
	assert.Equal(t, engine.MemberID("m2"), cb.PayerID)
	assert.Equal(t, engine.DocumentRef("receipt-1"), cb.Proof)

	// Advance with its repayment history.
	require.NotNil(t, loaded.Advance)
	assert.Equal(t, engine.AdvanceActive, loaded.Advance.Status)
	assert.True(t, loaded.Advance.Remaining().Equal(engine.NewAmount(5000)))
	require.Len(t, loaded.Advance.Repayments, 1)
	assert.Equal(t, 1, loaded.Advance.Repayments[0].PeriodIndex)

	// Refund request with its document.
	require.Len(t, loaded.Refunds, 1)
	assert.Equal(t, engine.RefundPending, loaded.Refunds[0].Status)
	assert.Equal(t, engine.DocumentRef("withdrawal-form-1"), loaded.Refunds[0].Document)
	assert.True(t, loaded.Refunds[0].AmountNominal.Equal(engine.NewAmount(14000)))
}

func TestSave_Upsert_ReplacesChildRows(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	c := fullAggregate()
	require.NoError(t, store.Save(ctx, c))

	// Mutate the aggregate: retire the advance, fund period 1, pay out the
	// refund, and save again.
	engine.ApplyPayment(c.Advance, engine.NewAmount(5000), date(2025, time.March, 1), 1)
	c.Periods[1].RecordContribution(c.StartDate, engine.Contribution{
		ID: "cb-3", Amount: engine.NewAmount(6000),
		PaidAt: date(2025, time.March, 1), Mode: engine.ModeCash,
	})
	c.Refunds[0].Approve()
	c.Refunds[0].MarkPaid(date(2025, time.March, 2), "09:15", "receipt-2")
	c.Close()
	require.NoError(t, store.Save(ctx, c))

	loaded, err := store.Load(ctx, "ct-1")
	require.NoError(t, err)

	assert.Equal(t, engine.StatusClosed, loaded.Status)
	assert.Equal(t, engine.AdvanceRepaid, loaded.Advance.Status)
	require.Len(t, loaded.Advance.Repayments, 2)
	assert.Equal(t, engine.PeriodPaid, loaded.Periods[1].Status)
	require.Len(t, loaded.Periods[1].Contributions, 2)

	r := loaded.Refunds[0]
	assert.Equal(t, engine.RefundPaid, r.Status)
	assert.True(t, r.WithdrawalDate.Equal(date(2025, time.March, 2)))
	assert.Equal(t, "09:15", r.WithdrawalTime)
	assert.Equal(t, engine.DocumentRef("receipt-2"), r.WithdrawalProof)
}

func TestLoad_MissingContract_NotFound(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	_, err := store.Load(ctx, "missing")
	assert.ErrorIs(t, err, engine.ErrContractNotFound)
}

func TestList_OrdersByStartDate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	later := engine.NewContract("ct-b", "m1", engine.CadenceMonthly, "standard", "individual", nil, 0, date(2025, time.June, 1))
	earlier := engine.NewContract("ct-a", "m2", engine.CadenceMonthly, "standard", "individual", nil, 0, date(2025, time.February, 1))
	require.NoError(t, store.Save(ctx, later))
	require.NoError(t, store.Save(ctx, earlier))

	contracts, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, contracts, 2)
	assert.Equal(t, engine.ContractID("ct-a"), contracts[0].ID)
	assert.Equal(t, engine.ContractID("ct-b"), contracts[1].ID)
}
