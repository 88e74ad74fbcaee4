// Package report builds commission analytics and financial reports over
// confirmed financial records. Stored derived fields are reported as they
// are; Repair in the integrity package is what keeps them current.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"tripledger/internal/auth"
	"tripledger/internal/logger"
	"tripledger/internal/store"
	"tripledger/pkg/models"
)

// ErrInvalidFilter is returned for a month outside 1..12 or a month without a year.
var ErrInvalidFilter = errors.New("invalid report filter")

// Filter selects the records a report covers. Zero values mean "all".
type Filter struct {
	Year    int    `json:"year,omitempty"`
	Month   int    `json:"month,omitempty"`
	AgentID string `json:"agent_id,omitempty"`
}

// Validate checks the period fields.
func (f Filter) Validate() error {
	if f.Month != 0 && f.Year == 0 {
		return fmt.Errorf("%w: month requires a year", ErrInvalidFilter)
	}
	if f.Month < 0 || f.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidFilter, f.Month)
	}
	if f.Year < 0 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidFilter, f.Year)
	}
	return nil
}

// window returns the half-open practice_confirm_date range of f.
func (f Filter) window() (start, end time.Time, ok bool) {
	if f.Year == 0 {
		return time.Time{}, time.Time{}, false
	}
	if f.Month == 0 {
		start = time.Date(f.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(1, 0, 0), true
	}
	start = time.Date(f.Year, time.Month(f.Month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0), true
}

// Totals aggregates a set of confirmed records.
type Totals struct {
	TotalTrips          int             `json:"total_trips"`
	GrossRevenue        decimal.Decimal `json:"gross_revenue"`
	TotalDiscounts      decimal.Decimal `json:"total_discounts"`
	GrossCommissions    decimal.Decimal `json:"gross_commissions"`
	SupplierCommissions decimal.Decimal `json:"supplier_commissions"`
	AgentCommissions    decimal.Decimal `json:"agent_commissions"`
	NetRevenue          decimal.Decimal `json:"net_revenue"`
	ClientDepartures    int             `json:"client_departures"`
}

func totalsOf(records []*models.FinancialRecord) Totals {
	t := Totals{TotalTrips: len(records)}
	trips := make(map[string]struct{}, len(records))
	for _, r := range records {
		t.GrossRevenue = t.GrossRevenue.Add(r.GrossAmount)
		t.TotalDiscounts = t.TotalDiscounts.Add(r.Discount)
		t.GrossCommissions = t.GrossCommissions.Add(r.GrossCommission)
		t.SupplierCommissions = t.SupplierCommissions.Add(r.SupplierCommission)
		t.AgentCommissions = t.AgentCommissions.Add(r.AgentCommission)
		t.NetRevenue = t.NetRevenue.Add(r.NetAmount)
		trips[r.TripID] = struct{}{}
	}
	t.ClientDepartures = len(trips)
	return t
}

// CommissionSummary is the agent commission analytics view.
type CommissionSummary struct {
	Filter
	Totals
	Records []*models.FinancialRecord `json:"trips"`
}

// MonthSummary is one month of a yearly report.
type MonthSummary struct {
	Month     int    `json:"month"`
	MonthName string `json:"month_name"`
	Totals
}

// Line is a report row: a confirmed record plus its trip's descriptive fields.
type Line struct {
	*models.FinancialRecord
	TripTitle       string `json:"trip_title"`
	TripDestination string `json:"trip_destination"`
	ClientID        string `json:"client_id"`
	AgentID         string `json:"agent_id"`
}

// FinancialReport is the period report with optional monthly breakdown.
type FinancialReport struct {
	Period           Filter         `json:"period"`
	Totals           Totals         `json:"totals"`
	MonthlyBreakdown []MonthSummary `json:"monthly_breakdown"`
	Lines            []Line         `json:"detailed_trips"`
	CanExportExcel   bool           `json:"can_export_excel"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// Builder reads records and trips to build reports.
type Builder struct {
	trips   store.TripStore
	finance store.FinanceStore
	log     zerolog.Logger
	now     func() time.Time
}

// NewBuilder creates a report builder.
func NewBuilder(trips store.TripStore, finance store.FinanceStore) *Builder {
	return &Builder{
		trips:   trips,
		finance: finance,
		log:     logger.WithComponent("report"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CommissionAnalytics totals revenue and commissions of confirmed records.
func (b *Builder) CommissionAnalytics(ctx context.Context, caller models.Caller, f Filter) (*CommissionSummary, error) {
	f, err := b.scope(caller, f)
	if err != nil {
		return nil, err
	}
	records, _, err := b.confirmed(ctx, f)
	if err != nil {
		return nil, err
	}
	return &CommissionSummary{
		Filter:  f,
		Totals:  totalsOf(records),
		Records: records,
	}, nil
}

// Financial builds the period report. A year without a month gets a
// twelve-month breakdown.
func (b *Builder) Financial(ctx context.Context, caller models.Caller, f Filter) (*FinancialReport, error) {
	f, err := b.scope(caller, f)
	if err != nil {
		return nil, err
	}
	records, trips, err := b.confirmed(ctx, f)
	if err != nil {
		return nil, err
	}

	rep := &FinancialReport{
		Period:           f,
		Totals:           totalsOf(records),
		MonthlyBreakdown: []MonthSummary{},
		Lines:            make([]Line, 0, len(records)),
		CanExportExcel:   caller.Role == models.RoleAdmin,
		GeneratedAt:      b.now(),
	}

	for _, r := range records {
		line := Line{FinancialRecord: r}
		if t, ok := trips[r.TripID]; ok {
			line.TripTitle = t.Title
			line.TripDestination = t.Destination
			line.ClientID = t.ClientID
			line.AgentID = t.AgentID
		} else {
			line.TripTitle = "Unknown Trip"
			line.TripDestination = "Unknown Destination"
		}
		rep.Lines = append(rep.Lines, line)
	}

	if f.Year != 0 && f.Month == 0 {
		byMonth := make([][]*models.FinancialRecord, 12)
		for _, r := range records {
			m := r.PracticeConfirmDate.UTC().Month()
			byMonth[m-1] = append(byMonth[m-1], r)
		}
		for i, recs := range byMonth {
			m := time.Month(i + 1)
			rep.MonthlyBreakdown = append(rep.MonthlyBreakdown, MonthSummary{
				Month:     int(m),
				MonthName: m.String(),
				Totals:    totalsOf(recs),
			})
		}
	}

	b.log.Info().
		Int("year", f.Year).
		Int("month", f.Month).
		Str("agent_id", f.AgentID).
		Int("records", len(records)).
		Str("gross_revenue", rep.Totals.GrossRevenue.String()).
		Msg("Financial report built")

	return rep, nil
}

// scope validates f and pins agents to their own trips.
func (b *Builder) scope(caller models.Caller, f Filter) (Filter, error) {
	if err := auth.RequireStaff(caller); err != nil {
		return f, err
	}
	if err := f.Validate(); err != nil {
		return f, err
	}
	if caller.Role == models.RoleAgent {
		f.AgentID = caller.ID
	}
	return f, nil
}

// confirmed returns the confirmed records selected by f, ordered by practice
// confirmation date, and the trips they point at.
func (b *Builder) confirmed(ctx context.Context, f Filter) ([]*models.FinancialRecord, map[string]*models.Trip, error) {
	tripList, err := b.trips.ListTrips(ctx, f.AgentID)
	if err != nil {
		return nil, nil, fmt.Errorf("list trips: %w", err)
	}
	trips := make(map[string]*models.Trip, len(tripList))
	for _, t := range tripList {
		trips[t.ID] = t
	}

	all, err := b.finance.ListRecords(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list financial records: %w", err)
	}

	start, end, windowed := f.window()
	var out []*models.FinancialRecord
	for _, r := range all {
		if r.Status != models.FinancialStatusConfirmed {
			continue
		}
		if f.AgentID != "" {
			if _, ok := trips[r.TripID]; !ok {
				continue
			}
		}
		if windowed {
			d := r.PracticeConfirmDate
			if d.Before(start) || !d.Before(end) {
				continue
			}
		}
		out = append(out, r)
	}
	sortByConfirmDate(out)
	return out, trips, nil
}

func sortByConfirmDate(records []*models.FinancialRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PracticeConfirmDate.Before(records[j].PracticeConfirmDate)
	})
}
