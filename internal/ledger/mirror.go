package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tripledger/internal/logger"
	"tripledger/internal/store"
	"tripledger/pkg/models"
)

// MirrorResult reports what a status sync touched.
type MirrorResult struct {
	// Target is the financial status written, empty when the trip status is
	// not mirrored.
	Target models.FinancialStatus

	// RecordsUpdated is the number of financial records matched by the write.
	RecordsUpdated int64
}

// MirroredStatus returns the financial status a trip status propagates to.
// Only confirmed and draft are mirrored.
func MirroredStatus(s models.TripStatus) (models.FinancialStatus, bool) {
	switch s {
	case models.TripStatusConfirmed:
		return models.FinancialStatusConfirmed, true
	case models.TripStatusDraft:
		return models.FinancialStatusDraft, true
	}
	return "", false
}

// Mirror propagates trip status changes onto the trip's financial records.
type Mirror struct {
	finance store.FinanceStore
	log     zerolog.Logger
	now     func() time.Time
}

// NewMirror creates a status mirror.
func NewMirror(finance store.FinanceStore) *Mirror {
	return &Mirror{
		finance: finance,
		log:     logger.WithComponent("mirror"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Sync writes the mirrored status onto every financial record of tripID.
// A trip without a record is not an error and no record is created.
func (m *Mirror) Sync(ctx context.Context, tripID string, status models.TripStatus, actorID string) (MirrorResult, error) {
	const op = "MirrorSync"

	target, ok := MirroredStatus(status)
	if !ok {
		return MirrorResult{}, nil
	}

	n, err := m.finance.UpdateRecordStatusByTrip(ctx, tripID, target, actorID, m.now())
	if err != nil {
		return MirrorResult{Target: target}, WrapLedgerError(op, err, "trip "+tripID)
	}

	if n == 0 {
		m.log.Warn().
			Str("trip_id", tripID).
			Str("trip_status", string(status)).
			Msg("No financial record found for trip, status not mirrored")
		return MirrorResult{Target: target}, nil
	}
	if n > 1 {
		m.log.Warn().
			Str("trip_id", tripID).
			Int64("records", n).
			Msg("Trip has more than one financial record, all were updated")
	}

	m.log.Info().
		Str("trip_id", tripID).
		Str("financial_status", string(target)).
		Int64("records", n).
		Msg("Financial record status synced with trip")

	return MirrorResult{Target: target, RecordsUpdated: n}, nil
}
