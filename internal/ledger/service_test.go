package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripledger/internal/auth"
	"tripledger/internal/store/memory"
	"tripledger/pkg/models"
	"tripledger/pkg/services"
)

var (
	admin    = models.Caller{ID: "admin-1", Role: models.RoleAdmin}
	agent    = models.Caller{ID: "agent-1", Role: models.RoleAgent}
	intruder = models.Caller{ID: "agent-2", Role: models.RoleAgent}
	client   = models.Caller{ID: "client-1", Role: models.RoleClient}
)

func seedTrip(t *testing.T, s *memory.Store, id string) *models.Trip {
	t.Helper()
	trip := &models.Trip{
		ID:        id,
		Title:     "Mediterranean cruise",
		AgentID:   agent.ID,
		ClientID:  client.ID,
		Status:    models.TripStatusDraft,
		TripType:  models.TripTypeCruise,
		CreatedAt: time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.InsertTrip(context.Background(), trip))
	return trip
}

func scenarioInput() services.RecordInput {
	return services.RecordInput{
		PracticeNumber:      "P-100",
		BookingNumber:       "B-200",
		GrossAmount:         dec("2000"),
		NetAmount:           dec("1800"),
		Discount:            dec("100"),
		ConfirmationDeposit: dec("500"),
		PracticeConfirmDate: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	s := memory.New()
	seedTrip(t, s, "trip-1")
	return NewService(s, s), s
}

func TestService_CreateRecord(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	rec, err := svc.CreateRecord(ctx, agent, "trip-1", scenarioInput())
	require.NoError(t, err)

	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "trip-1", rec.TripID)
	assert.Equal(t, models.FinancialStatusDraft, rec.Status)
	assertDecimal(t, "100", rec.GrossCommission, "gross_commission")
	assertDecimal(t, "80", rec.SupplierCommission, "supplier_commission")
	assertDecimal(t, "20", rec.AgentCommission, "agent_commission")
	assertDecimal(t, "1500", rec.BalanceDue, "balance_due")

	stored, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assertDecimal(t, "1500", stored.BalanceDue, "stored balance_due")
}

func TestService_CreateRecord_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown trip", func(t *testing.T) {
		svc, s := newTestService(t)
		_, err := svc.CreateRecord(ctx, admin, "missing", scenarioInput())
		assert.ErrorIs(t, err, ErrTripNotFound)
		assert.Equal(t, 0, s.Count(string(models.CollectionFinancialRecords)))
	})

	t.Run("duplicate", func(t *testing.T) {
		svc, s := newTestService(t)
		_, err := svc.CreateRecord(ctx, admin, "trip-1", scenarioInput())
		require.NoError(t, err)

		_, err = svc.CreateRecord(ctx, admin, "trip-1", scenarioInput())
		assert.ErrorIs(t, err, ErrDuplicateRecord)
		assert.Equal(t, 1, s.Count(string(models.CollectionFinancialRecords)))
	})

	t.Run("other agent", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.CreateRecord(ctx, intruder, "trip-1", scenarioInput())
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})

	t.Run("client", func(t *testing.T) {
		svc, _ := newTestService(t)
		_, err := svc.CreateRecord(ctx, client, "trip-1", scenarioInput())
		assert.ErrorIs(t, err, auth.ErrForbidden)
	})
}

func TestService_InstallmentRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	rec, err := svc.CreateRecord(ctx, agent, "trip-1", scenarioInput())
	require.NoError(t, err)

	inst, err := svc.AddInstallment(ctx, agent, rec.ID, services.InstallmentInput{
		Amount:      dec("700"),
		PaymentDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentTypeInstallment, inst.PaymentType)
	assert.Equal(t, rec.ID, inst.FinancialRecordID)

	stored, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assertDecimal(t, "800", stored.BalanceDue, "balance_due after add")

	removed, err := svc.RemoveInstallment(ctx, agent, inst.ID)
	require.NoError(t, err)
	assert.Equal(t, inst.ID, removed.ID)

	stored, err = s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assertDecimal(t, "1500", stored.BalanceDue, "balance_due after remove")
	assert.Equal(t, 0, s.Count("payment_installments"))
}

func TestService_AddInstallment_Errors(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	rec, err := svc.CreateRecord(ctx, admin, "trip-1", scenarioInput())
	require.NoError(t, err)

	_, err = svc.AddInstallment(ctx, admin, "missing", services.InstallmentInput{Amount: dec("10")})
	assert.ErrorIs(t, err, ErrRecordNotFound)

	_, err = svc.AddInstallment(ctx, admin, rec.ID, services.InstallmentInput{Amount: dec("10"), PaymentType: "cash"})
	assert.ErrorIs(t, err, ErrInvalidPaymentType)

	_, err = svc.AddInstallment(ctx, intruder, rec.ID, services.InstallmentInput{Amount: dec("10")})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	assert.Equal(t, 0, s.Count("payment_installments"))
}

func TestService_AddInstallment_DefaultsDate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)
	fixed := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	rec, err := svc.CreateRecord(ctx, admin, "trip-1", scenarioInput())
	require.NoError(t, err)

	inst, err := svc.AddInstallment(ctx, admin, rec.ID, services.InstallmentInput{Amount: dec("50"), PaymentType: models.PaymentTypeBalance})
	require.NoError(t, err)
	assert.True(t, fixed.Equal(inst.PaymentDate))
	assert.Equal(t, models.PaymentTypeBalance, inst.PaymentType)
}

func TestService_RemoveInstallment_Missing(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.RemoveInstallment(context.Background(), admin, "nope")
	assert.ErrorIs(t, err, ErrInstallmentNotFound)
}

func TestService_RemoveInstallment_OrphanedParent(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	require.NoError(t, s.InsertInstallment(ctx, &models.PaymentInstallment{
		ID:                "orphan",
		FinancialRecordID: "gone",
		Amount:            dec("5"),
	}))

	_, err := svc.RemoveInstallment(ctx, client, "orphan")
	assert.ErrorIs(t, err, auth.ErrForbidden)

	removed, err := svc.RemoveInstallment(ctx, agent, "orphan")
	require.NoError(t, err)
	assert.Equal(t, "gone", removed.FinancialRecordID)
	assert.Equal(t, 0, s.Count("payment_installments"))
}

func TestService_UpdateRecord(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	rec, err := svc.CreateRecord(ctx, agent, "trip-1", scenarioInput())
	require.NoError(t, err)
	_, err = svc.AddInstallment(ctx, agent, rec.ID, services.InstallmentInput{Amount: dec("700")})
	require.NoError(t, err)

	gross := dec("2500")
	paid := models.FinancialStatusPaid
	updated, err := svc.UpdateRecord(ctx, agent, rec.ID, services.RecordPatch{GrossAmount: &gross, Status: &paid})
	require.NoError(t, err)

	// 2500 - 100 - 1800 = 600; 4% of 2500 = 100
	assertDecimal(t, "600", updated.GrossCommission, "gross_commission")
	assertDecimal(t, "100", updated.SupplierCommission, "supplier_commission")
	assertDecimal(t, "500", updated.AgentCommission, "agent_commission")
	assertDecimal(t, "1300", updated.BalanceDue, "balance_due")
	assert.Equal(t, models.FinancialStatusPaid, updated.Status)
	assert.Equal(t, "P-100", updated.PracticeNumber)

	bad := models.FinancialStatus("archived")
	_, err = svc.UpdateRecord(ctx, agent, rec.ID, services.RecordPatch{Status: &bad})
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestService_UpdateRecord_AgentOnOrphanedRecord(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	rec, err := svc.CreateRecord(ctx, agent, "trip-1", scenarioInput())
	require.NoError(t, err)
	_, err = s.DeleteTrip(ctx, "trip-1")
	require.NoError(t, err)

	_, err = svc.UpdateRecord(ctx, agent, rec.ID, services.RecordPatch{})
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = svc.UpdateRecord(ctx, admin, rec.ID, services.RecordPatch{})
	assert.NoError(t, err)
}

func TestService_GetSheet(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	_, err := svc.GetSheet(ctx, admin, "trip-1")
	assert.ErrorIs(t, err, ErrRecordNotFound)

	rec, err := svc.CreateRecord(ctx, agent, "trip-1", scenarioInput())
	require.NoError(t, err)
	_, err = svc.AddInstallment(ctx, agent, rec.ID, services.InstallmentInput{Amount: dec("300")})
	require.NoError(t, err)

	// Stale derived fields are corrected on read.
	require.NoError(t, s.SetDerived(ctx, rec.ID, Calculate(Inputs{}).Fields(), time.Now()))

	sheet, err := svc.GetSheet(ctx, agent, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, rec.ID, sheet.Record.ID)
	assert.Len(t, sheet.Installments, 1)
	assertDecimal(t, "800", sheet.TotalPaid, "total_paid")
	assertDecimal(t, "1200", sheet.Record.BalanceDue, "balance_due")

	_, err = svc.GetSheet(ctx, client, "trip-1")
	assert.ErrorIs(t, err, auth.ErrForbidden)

	_, err = svc.GetSheet(ctx, intruder, "trip-1")
	assert.ErrorIs(t, err, auth.ErrForbidden)
}

func TestService_GetSheet_DuplicatesUseOldest(t *testing.T) {
	ctx := context.Background()
	svc, s := newTestService(t)

	first, err := svc.CreateRecord(ctx, admin, "trip-1", scenarioInput())
	require.NoError(t, err)
	require.NoError(t, s.InsertRecord(ctx, &models.FinancialRecord{ID: "late", TripID: "trip-1"}))

	sheet, err := svc.GetSheet(ctx, admin, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, sheet.Record.ID)
}

func TestService_ListInstallments(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	rec, err := svc.CreateRecord(ctx, admin, "trip-1", scenarioInput())
	require.NoError(t, err)
	for _, d := range []int{3, 1, 2} {
		_, err := svc.AddInstallment(ctx, admin, rec.ID, services.InstallmentInput{
			Amount:      dec("10"),
			PaymentDate: time.Date(2025, time.Month(d), 1, 0, 0, 0, 0, time.UTC),
		})
		require.NoError(t, err)
	}

	list, err := svc.ListInstallments(ctx, agent, rec.ID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, time.January, list[0].PaymentDate.Month())
	assert.Equal(t, time.March, list[2].PaymentDate.Month())

	_, err = svc.ListInstallments(ctx, admin, "missing")
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestLedgerError(t *testing.T) {
	err := NewLedgerError("AddInstallment", ErrRecordNotFound, "record r-1")
	assert.Equal(t, "ledger: AddInstallment failed: record r-1: financial record not found", err.Error())
	assert.True(t, errors.Is(err, ErrRecordNotFound))

	wrapped := WrapLedgerError("Outer", err, "ignored")
	assert.Same(t, err, wrapped)
	assert.Nil(t, WrapLedgerError("Outer", nil, ""))
}
