package audit

import (
	"context"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripledger/pkg/models"
)

func TestMemory_RecentNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)

	for _, id := range []string{"t-1", "t-2", "t-3", "t-4"} {
		m.RecordDeletion(ctx, "admin-1", &models.DeletionReport{TripID: id, Trip: 1})
	}

	entries, err := m.Recent(ctx, KindDeletion, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	var newest models.DeletionReport
	require.NoError(t, json.Unmarshal(entries[0].Report, &newest))
	assert.Equal(t, "t-4", newest.TripID)

	var oldest models.DeletionReport
	require.NoError(t, json.Unmarshal(entries[2].Report, &oldest))
	assert.Equal(t, "t-2", oldest.TripID)

	two, err := m.Recent(ctx, KindDeletion, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestMemory_KindsAreSeparate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(10)

	m.RecordSweep(ctx, "admin-1", &models.SweepReport{TotalDeleted: 3})
	m.RecordRepair(ctx, "admin-1", &models.RepairReport{RecordsChecked: 5})
	m.RecordDeletion(ctx, "agent-1", &models.DeletionReport{TripID: "t", FailedSteps: []string{"itineraries"}})

	for kind, n := range map[Kind]int{KindSweep: 1, KindRepair: 1, KindDeletion: 1} {
		entries, err := m.Recent(ctx, kind, 0)
		require.NoError(t, err)
		assert.Len(t, entries, n, string(kind))
	}

	deletions, err := m.Recent(ctx, KindDeletion, 1)
	require.NoError(t, err)
	assert.True(t, deletions[0].Failed)
	assert.Equal(t, "agent-1", deletions[0].ActorID)
}

func TestKind_Valid(t *testing.T) {
	assert.True(t, KindDeletion.Valid())
	assert.True(t, KindSweep.Valid())
	assert.True(t, KindRepair.Valid())
	assert.False(t, Kind("purge").Valid())
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	r.RecordSweep(context.Background(), "x", &models.SweepReport{})
	entries, err := r.Recent(context.Background(), KindSweep, 5)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "tripledger:audit:sweep", key(KindSweep))
}
