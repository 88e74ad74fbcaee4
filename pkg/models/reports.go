package models

import "time"

// DeletionReport is the audit trail of one cascade deletion: how many
// documents were removed per collection.
type DeletionReport struct {
	TripID              string   `json:"trip_id"`
	Trip                int64    `json:"trip"`
	FinancialRecords    int64    `json:"financial_records"`
	PaymentInstallments int64    `json:"payment_installments"`
	Itineraries         int64    `json:"itineraries"`
	CruiseInfo          int64    `json:"cruise_info"`
	ClientNotes         int64    `json:"client_notes"`
	ClientPhotos        int64    `json:"client_photos"`
	FailedSteps         []string `json:"failed_steps,omitempty"`
}

// Total returns the number of documents deleted across all collections.
func (r *DeletionReport) Total() int64 {
	return r.Trip + r.FinancialRecords + r.PaymentInstallments + r.Itineraries +
		r.CruiseInfo + r.ClientNotes + r.ClientPhotos
}

// SweepReport is the result of one orphan sweep.
type SweepReport struct {
	Details        map[string]int64 `json:"details"`
	TotalDeleted   int64            `json:"total_deleted"`
	RemainingTrips int              `json:"remaining_trips"`
	DryRun         bool             `json:"dry_run"`
	StartedAt      time.Time        `json:"started_at"`
	CompletedAt    time.Time        `json:"completed_at"`
}

// RepairReport is the result of one reconciliation pass over financial
// records whose trip still exists.
type RepairReport struct {
	RecordsChecked  int       `json:"records_checked"`
	StatusRepaired  int       `json:"status_repaired"`
	DerivedRepaired int       `json:"derived_repaired"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
}

// StatusChange is the confirmation returned after a trip status change.
type StatusChange struct {
	TripID          string     `json:"trip_id"`
	Status          TripStatus `json:"status"`
	Message         string     `json:"message"`
	MirroredRecords int64      `json:"mirrored_records"`
	MirrorError     string     `json:"mirror_error,omitempty"`
}
