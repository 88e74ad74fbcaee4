package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"tripledger/internal/auth"
	"tripledger/internal/integrity"
	"tripledger/internal/ledger"
	"tripledger/internal/report"
	"tripledger/internal/store/memory"
	"tripledger/pkg/models"
)

const testSecret = "api-test-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	store  *memory.Store
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	s := memory.New()
	require.NoError(t, s.InsertTrip(context.Background(), &models.Trip{
		ID: "trip-1", Title: "Nile", AgentID: "agent-1", ClientID: "client-1", Status: models.TripStatusDraft,
	}))
	require.NoError(t, s.InsertItinerary(context.Background(), &models.Itinerary{ID: "day-1", TripID: "trip-1"}))
	require.NoError(t, s.InsertItinerary(context.Background(), &models.Itinerary{ID: "day-2", TripID: "trip-1"}))

	srv := NewServer(Deps{
		Ledger:         ledger.NewService(s, s),
		Lifecycle:      ledger.NewLifecycle(s, ledger.NewMirror(s)),
		Integrity:      integrity.NewManager(s, nil),
		Reports:        report.NewBuilder(s, s),
		Verifier:       auth.NewTokenVerifier(testSecret),
		RequestTimeout: 5 * time.Second,
	})
	return &testEnv{store: s, router: srv.Router()}
}

func token(t *testing.T, userID string, role models.Role) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    string(role),
		"exp":     time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return tok
}

func (e *testEnv) do(t *testing.T, method, path, tok string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestHealthz(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(headerRequestID))
}

func TestAuthentication(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/trips/trip-1/admin", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/api/trips/trip-1/admin", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(t, http.MethodGet, "/api/trips/trip-1/admin", token(t, "client-1", models.RoleClient), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestFinancialRecordFlow(t *testing.T) {
	e := newTestEnv(t)
	agentTok := token(t, "agent-1", models.RoleAgent)

	// No record yet.
	w := e.do(t, http.MethodGet, "/api/trips/trip-1/admin", agentTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "null", w.Body.String())

	w = e.do(t, http.MethodPost, "/api/trips/trip-1/admin", agentTok, map[string]any{
		"practice_number":      "P-1",
		"gross_amount":         2000,
		"net_amount":           1800,
		"discount":             100,
		"confirmation_deposit": 500,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var rec models.FinancialRecord
	decode(t, w, &rec)
	assert.True(t, decimal.NewFromInt(1500).Equal(rec.BalanceDue))

	w = e.do(t, http.MethodPost, "/api/trips/trip-1/admin", agentTok, map[string]any{"gross_amount": 1})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/trip-admin/"+rec.ID+"/payments", agentTok, map[string]any{"amount": "700"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var inst models.PaymentInstallment
	decode(t, w, &inst)

	w = e.do(t, http.MethodGet, "/api/trips/trip-1/admin", agentTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sheet models.FinancialSheet
	decode(t, w, &sheet)
	assert.True(t, decimal.NewFromInt(800).Equal(sheet.Record.BalanceDue))
	assert.Len(t, sheet.Installments, 1)

	w = e.do(t, http.MethodGet, "/api/trip-admin/"+rec.ID+"/payments", agentTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []models.PaymentInstallment
	decode(t, w, &list)
	assert.Len(t, list, 1)

	w = e.do(t, http.MethodDelete, "/api/payments/"+inst.ID, agentTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodDelete, "/api/payments/"+inst.ID, agentTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPut, "/api/trip-admin/"+rec.ID, agentTok, map[string]any{"discount": "200"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &rec)
	assert.True(t, decimal.NewFromInt(0).Equal(rec.GrossCommission))
	assert.True(t, decimal.NewFromInt(1500).Equal(rec.BalanceDue))

	w = e.do(t, http.MethodPut, "/api/trip-admin/"+rec.ID, agentTok, map[string]any{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/trip-admin/"+rec.ID+"/payments", token(t, "agent-2", models.RoleAgent), map[string]any{"amount": "1"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/trip-admin/"+rec.ID+"/payments", agentTok, "not an object")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChangeStatus(t *testing.T) {
	e := newTestEnv(t)
	adminTok := token(t, "admin-1", models.RoleAdmin)

	w := e.do(t, http.MethodPut, "/api/trips/trip-1/status", adminTok, map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code)
	var change models.StatusChange
	decode(t, w, &change)
	assert.Equal(t, "Trip status updated to confirmed", change.Message)

	w = e.do(t, http.MethodPut, "/api/trips/trip-1/status", adminTok, map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPut, "/api/trips/nope/status", adminTok, map[string]string{"status": "draft"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPut, "/api/trips/nope/status", adminTok, map[string]string{"status": "lost"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPut, "/api/trips/trip-1/status", adminTok, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteTripThenSweep(t *testing.T) {
	e := newTestEnv(t)
	adminTok := token(t, "admin-1", models.RoleAdmin)

	w := e.do(t, http.MethodPost, "/api/trips/trip-1/admin", adminTok, map[string]any{"gross_amount": "100"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodDelete, "/api/trips/trip-1", token(t, "agent-2", models.RoleAgent), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodDelete, "/api/trips/trip-1", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var del struct {
		Message string                `json:"message"`
		Counts  models.DeletionReport `json:"deleted_counts"`
	}
	decode(t, w, &del)
	assert.Equal(t, int64(1), del.Counts.Trip)
	assert.Equal(t, int64(1), del.Counts.FinancialRecords)
	assert.Equal(t, int64(2), del.Counts.Itineraries)

	w = e.do(t, http.MethodPost, "/api/admin/cleanup-orphaned-data", token(t, "agent-1", models.RoleAgent), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPost, "/api/admin/cleanup-orphaned-data?dry_run=true", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sweep struct {
		TotalDeleted int64 `json:"total_deleted"`
		DryRun       bool  `json:"dry_run"`
	}
	decode(t, w, &sweep)
	assert.Zero(t, sweep.TotalDeleted)
	assert.True(t, sweep.DryRun)

	w = e.do(t, http.MethodPost, "/api/admin/reconcile", adminTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReports(t *testing.T) {
	e := newTestEnv(t)
	adminTok := token(t, "admin-1", models.RoleAdmin)
	agentTok := token(t, "agent-1", models.RoleAgent)

	w := e.do(t, http.MethodPost, "/api/trips/trip-1/admin", adminTok, map[string]any{
		"gross_amount":          "2000",
		"net_amount":            "1800",
		"discount":              "100",
		"practice_confirm_date": time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC),
	})
	require.Equal(t, http.StatusOK, w.Code)
	w = e.do(t, http.MethodPut, "/api/trips/trip-1/status", adminTok, map[string]string{"status": "confirmed"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodGet, "/api/reports/financial?year=2025", agentTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rep struct {
		Totals struct {
			TotalTrips int `json:"total_trips"`
		} `json:"totals"`
		MonthlyBreakdown []json.RawMessage `json:"monthly_breakdown"`
		CanExportExcel   bool              `json:"can_export_excel"`
	}
	decode(t, w, &rep)
	assert.Equal(t, 1, rep.Totals.TotalTrips)
	assert.Len(t, rep.MonthlyBreakdown, 12)
	assert.False(t, rep.CanExportExcel)

	w = e.do(t, http.MethodGet, "/api/analytics/agent-commissions?month=3", adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/reports/financial?year=soon", adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodGet, "/api/reports/financial/export?year=2025&month=3", agentTok, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodGet, "/api/reports/financial/export?year=2025&month=3", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "financial_report_2025_03.xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(report.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{auth.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("wrapped: %w", auth.ErrForbidden), http.StatusForbidden},
		{ledger.NewLedgerError("Op", ledger.ErrRecordNotFound, ""), http.StatusNotFound},
		{integrity.NewIntegrityError("Op", integrity.ErrTripNotFound, ""), http.StatusNotFound},
		{ledger.ErrDuplicateRecord, http.StatusConflict},
		{ledger.ErrTripIncomplete, http.StatusBadRequest},
		{report.ErrInvalidFilter, http.StatusBadRequest},
		{errors.New("mongo: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
