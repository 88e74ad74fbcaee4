package integrity

import (
	"tripledger/internal/audit"
	"tripledger/internal/store"
	"tripledger/pkg/services"
)

// Manager bundles cascade deletion and the sweeper behind
// services.IntegrityService.
type Manager struct {
	*Cascade
	*Sweeper
}

var _ services.IntegrityService = (*Manager)(nil)

// NewManager creates a Manager sharing one store and audit recorder.
func NewManager(s store.Store, rec audit.Recorder) *Manager {
	return &Manager{
		Cascade: NewCascade(s, rec),
		Sweeper: NewSweeper(s, rec),
	}
}
