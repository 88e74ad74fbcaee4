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
)

// brokenMirrorStore fails every status mirror write.
type brokenMirrorStore struct {
	*memory.Store
}

func (b brokenMirrorStore) UpdateRecordStatusByTrip(context.Context, string, models.FinancialStatus, string, time.Time) (int64, error) {
	return 0, errors.New("connection reset")
}

func TestMirroredStatus(t *testing.T) {
	tests := []struct {
		in     models.TripStatus
		want   models.FinancialStatus
		mirror bool
	}{
		{models.TripStatusConfirmed, models.FinancialStatusConfirmed, true},
		{models.TripStatusDraft, models.FinancialStatusDraft, true},
		{models.TripStatusActive, "", false},
		{models.TripStatusCompleted, "", false},
		{models.TripStatusCancelled, "", false},
	}
	for _, tt := range tests {
		t.Run(string(tt.in), func(t *testing.T) {
			got, ok := MirroredStatus(tt.in)
			assert.Equal(t, tt.mirror, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLifecycle_MirrorsDraftConfirmedDraft(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedTrip(t, s, "trip-1")

	svc := NewService(s, s)
	rec, err := svc.CreateRecord(ctx, agent, "trip-1", scenarioInput())
	require.NoError(t, err)

	lc := NewLifecycle(s, NewMirror(s))

	var observed []models.FinancialStatus
	observe := func() {
		r, err := s.GetRecord(ctx, rec.ID)
		require.NoError(t, err)
		observed = append(observed, r.Status)
	}

	observe()
	for _, status := range []models.TripStatus{models.TripStatusConfirmed, models.TripStatusDraft} {
		change, err := lc.ChangeStatus(ctx, agent, "trip-1", status)
		require.NoError(t, err)
		assert.Equal(t, int64(1), change.MirroredRecords)
		assert.Empty(t, change.MirrorError)
		assert.Equal(t, "Trip status updated to "+string(status), change.Message)
		observe()
	}

	assert.Equal(t, []models.FinancialStatus{
		models.FinancialStatusDraft,
		models.FinancialStatusConfirmed,
		models.FinancialStatusDraft,
	}, observed)
}

func TestLifecycle_NonMirroredStatusLeavesRecord(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedTrip(t, s, "trip-1")
	rec, err := NewService(s, s).CreateRecord(ctx, admin, "trip-1", scenarioInput())
	require.NoError(t, err)

	lc := NewLifecycle(s, NewMirror(s))
	change, err := lc.ChangeStatus(ctx, admin, "trip-1", models.TripStatusCompleted)
	require.NoError(t, err)
	assert.Zero(t, change.MirroredRecords)

	trip, err := s.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusCompleted, trip.Status)
	assert.Equal(t, admin.ID, trip.UpdatedBy)

	stored, err := s.GetRecord(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FinancialStatusDraft, stored.Status)
}

func TestLifecycle_NoRecordIsNotAnError(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedTrip(t, s, "trip-1")

	lc := NewLifecycle(s, NewMirror(s))
	change, err := lc.ChangeStatus(ctx, admin, "trip-1", models.TripStatusConfirmed)
	require.NoError(t, err)
	assert.Zero(t, change.MirroredRecords)
	assert.Empty(t, change.MirrorError)
	assert.Equal(t, 0, s.Count(string(models.CollectionFinancialRecords)))
}

func TestLifecycle_MirrorFailureKeepsTripStatus(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedTrip(t, s, "trip-1")

	broken := brokenMirrorStore{s}
	lc := NewLifecycle(broken, NewMirror(broken))

	change, err := lc.ChangeStatus(ctx, admin, "trip-1", models.TripStatusConfirmed)
	require.NoError(t, err)
	assert.Contains(t, change.MirrorError, "connection reset")

	trip, err := s.GetTrip(ctx, "trip-1")
	require.NoError(t, err)
	assert.Equal(t, models.TripStatusConfirmed, trip.Status)
}

func TestLifecycle_Errors(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	seedTrip(t, s, "trip-1")
	require.NoError(t, s.InsertTrip(ctx, &models.Trip{ID: "bare", AgentID: agent.ID, Status: models.TripStatusDraft}))
	lc := NewLifecycle(s, NewMirror(s))

	_, err := lc.ChangeStatus(ctx, admin, "trip-1", "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	_, err = lc.ChangeStatus(ctx, admin, "missing", models.TripStatusActive)
	assert.ErrorIs(t, err, ErrTripNotFound)

	_, err = lc.ChangeStatus(ctx, intruder, "trip-1", models.TripStatusActive)
	assert.ErrorIs(t, err, auth.ErrForbidden)

	// Lookup and ownership are checked before the status value.
	_, err = lc.ChangeStatus(ctx, admin, "missing", "archived")
	assert.ErrorIs(t, err, ErrTripNotFound)
	_, err = lc.ChangeStatus(ctx, intruder, "trip-1", "archived")
	assert.ErrorIs(t, err, auth.ErrForbidden)

	for _, status := range []models.TripStatus{models.TripStatusActive, models.TripStatusConfirmed} {
		_, err = lc.ChangeStatus(ctx, agent, "bare", status)
		assert.ErrorIs(t, err, ErrTripIncomplete)
	}

	// Incomplete trips can still move to statuses without the guard.
	_, err = lc.ChangeStatus(ctx, agent, "bare", models.TripStatusCancelled)
	assert.NoError(t, err)
}

func TestMirror_UpdatesEveryDuplicate(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.InsertRecord(ctx, &models.FinancialRecord{ID: "a", TripID: "t", Status: models.FinancialStatusDraft}))
	require.NoError(t, s.InsertRecord(ctx, &models.FinancialRecord{ID: "b", TripID: "t", Status: models.FinancialStatusDraft}))

	res, err := NewMirror(s).Sync(ctx, "t", models.TripStatusConfirmed, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), res.RecordsUpdated)
	assert.Equal(t, models.FinancialStatusConfirmed, res.Target)

	for _, id := range []string{"a", "b"} {
		r, err := s.GetRecord(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, models.FinancialStatusConfirmed, r.Status)
	}
}
