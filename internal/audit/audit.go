// Package audit keeps a short history of destructive integrity operations:
// cascade deletions, orphan sweeps and repair passes.
//
// Recording is best effort. A recorder never fails the operation it
// documents; write errors are logged and dropped.
package audit

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"tripledger/pkg/models"
)

// Kind identifies the operation an entry documents.
type Kind string

const (
	KindDeletion Kind = "deletion"
	KindSweep    Kind = "sweep"
	KindRepair   Kind = "repair"
)

// Valid reports whether k is a known entry kind.
func (k Kind) Valid() bool {
	switch k {
	case KindDeletion, KindSweep, KindRepair:
		return true
	}
	return false
}

// Entry is one recorded operation. Report holds the JSON encoded report.
type Entry struct {
	Kind    Kind            `json:"kind"`
	ActorID string          `json:"actor_id"`
	At      time.Time       `json:"at"`
	Failed  bool            `json:"failed,omitempty"`
	Report  json.RawMessage `json:"report"`
}

// Recorder stores audit entries.
type Recorder interface {
	RecordDeletion(ctx context.Context, actorID string, r *models.DeletionReport)
	RecordSweep(ctx context.Context, actorID string, r *models.SweepReport)
	RecordRepair(ctx context.Context, actorID string, r *models.RepairReport)
	// Recent returns up to n entries of kind, newest first.
	Recent(ctx context.Context, kind Kind, n int64) ([]Entry, error)
}

func newEntry(kind Kind, actorID string, at time.Time, report any) (Entry, error) {
	raw, err := json.Marshal(report)
	if err != nil {
		return Entry{}, err
	}
	return Entry{Kind: kind, ActorID: actorID, At: at, Report: raw}, nil
}

// Nop discards every entry.
type Nop struct{}

func (Nop) RecordDeletion(context.Context, string, *models.DeletionReport) {}
func (Nop) RecordSweep(context.Context, string, *models.SweepReport)       {}
func (Nop) RecordRepair(context.Context, string, *models.RepairReport)     {}

func (Nop) Recent(context.Context, Kind, int64) ([]Entry, error) { return nil, nil }

// Memory keeps a capped history per kind in process memory.
type Memory struct {
	mu      sync.Mutex
	limit   int64
	entries map[Kind][]Entry
	now     func() time.Time
}

// NewMemory creates an in-process recorder keeping limit entries per kind.
func NewMemory(limit int64) *Memory {
	return &Memory{
		limit:   limit,
		entries: make(map[Kind][]Entry),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (m *Memory) RecordDeletion(_ context.Context, actorID string, r *models.DeletionReport) {
	m.add(KindDeletion, actorID, len(r.FailedSteps) > 0, r)
}

func (m *Memory) RecordSweep(_ context.Context, actorID string, r *models.SweepReport) {
	m.add(KindSweep, actorID, false, r)
}

func (m *Memory) RecordRepair(_ context.Context, actorID string, r *models.RepairReport) {
	m.add(KindRepair, actorID, false, r)
}

func (m *Memory) add(kind Kind, actorID string, failed bool, report any) {
	e, err := newEntry(kind, actorID, m.now(), report)
	if err != nil {
		return
	}
	e.Failed = failed

	m.mu.Lock()
	defer m.mu.Unlock()
	list := append([]Entry{e}, m.entries[kind]...)
	if int64(len(list)) > m.limit {
		list = list[:m.limit]
	}
	m.entries[kind] = list
}

// Recent implements Recorder.
func (m *Memory) Recent(_ context.Context, kind Kind, n int64) ([]Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.entries[kind]
	if n > 0 && int64(len(list)) > n {
		list = list[:n]
	}
	out := make([]Entry, len(list))
	copy(out, list)
	return out, nil
}
