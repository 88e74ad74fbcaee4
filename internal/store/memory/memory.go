// Package memory is a process-local implementation of store.Store. Every
// document is copied on the way in and out so callers never share state with
// the store, the same as with a real document database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"tripledger/internal/store"
	"tripledger/pkg/models"
)

type childDoc struct {
	ref models.ChildRef
	doc any
}

// Store keeps all collections in maps guarded by one mutex.
type Store struct {
	mu           sync.RWMutex
	seq          int64
	trips        map[string]*models.Trip
	records      map[string]*models.FinancialRecord
	recordSeq    map[string]int64
	installments map[string]*models.PaymentInstallment
	children     map[models.ChildCollection]map[string]childDoc
}

var _ store.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	s := &Store{
		trips:        make(map[string]*models.Trip),
		records:      make(map[string]*models.FinancialRecord),
		recordSeq:    make(map[string]int64),
		installments: make(map[string]*models.PaymentInstallment),
		children:     make(map[models.ChildCollection]map[string]childDoc),
	}
	for _, coll := range models.TripChildCollections {
		if coll != models.CollectionFinancialRecords {
			s.children[coll] = make(map[string]childDoc)
		}
	}
	return s
}

func (s *Store) next() int64 {
	s.seq++
	return s.seq
}

// GetTrip implements store.TripStore.
func (s *Store) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.trips[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

// InsertTrip implements store.TripStore.
func (s *Store) InsertTrip(ctx context.Context, trip *models.Trip) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *trip
	s.trips[trip.ID] = &cp
	return nil
}

// UpdateTripStatus implements store.TripStore.
func (s *Store) UpdateTripStatus(ctx context.Context, id string, status models.TripStatus, actorID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trips[id]
	if !ok {
		return store.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = at
	t.UpdatedBy = actorID
	return nil
}

// DeleteTrip implements store.TripStore.
func (s *Store) DeleteTrip(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.trips[id]; !ok {
		return 0, nil
	}
	delete(s.trips, id)
	return 1, nil
}

// ListTripIDs implements store.TripStore.
func (s *Store) ListTripIDs(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.trips))
	for id := range s.trips {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ListTrips implements store.TripStore.
func (s *Store) ListTrips(ctx context.Context, agentID string) ([]*models.Trip, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Trip
	for _, t := range s.trips {
		if agentID != "" && t.AgentID != agentID {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// InsertRecord implements store.FinanceStore.
func (s *Store) InsertRecord(ctx context.Context, rec *models.FinancialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return fmt.Errorf("financial record %s already exists", rec.ID)
	}
	cp := *rec
	s.records[rec.ID] = &cp
	s.recordSeq[rec.ID] = s.next()
	return nil
}

// GetRecord implements store.FinanceStore.
func (s *Store) GetRecord(ctx context.Context, id string) (*models.FinancialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

// ListRecordsByTrip implements store.FinanceStore.
func (s *Store) ListRecordsByTrip(ctx context.Context, tripID string) ([]*models.FinancialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.FinancialRecord
	for _, r := range s.records {
		if r.TripID == tripID {
			cp := *r
			out = append(out, &cp)
		}
	}
	s.sortRecords(out)
	return out, nil
}

// ListRecords implements store.FinanceStore.
func (s *Store) ListRecords(ctx context.Context) ([]*models.FinancialRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.FinancialRecord, 0, len(s.records))
	for _, r := range s.records {
		cp := *r
		out = append(out, &cp)
	}
	s.sortRecords(out)
	return out, nil
}

func (s *Store) sortRecords(recs []*models.FinancialRecord) {
	sort.Slice(recs, func(i, j int) bool {
		return s.recordSeq[recs[i].ID] < s.recordSeq[recs[j].ID]
	})
}

// ReplaceRecord implements store.FinanceStore.
func (s *Store) ReplaceRecord(ctx context.Context, rec *models.FinancialRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *rec
	s.records[rec.ID] = &cp
	return nil
}

// SetDerived implements store.FinanceStore.
func (s *Store) SetDerived(ctx context.Context, id string, d store.DerivedFields, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return store.ErrNotFound
	}
	r.GrossCommission = d.GrossCommission
	r.SupplierCommission = d.SupplierCommission
	r.AgentCommission = d.AgentCommission
	r.BalanceDue = d.BalanceDue
	r.UpdatedAt = at
	return nil
}

// UpdateRecordStatusByTrip implements store.FinanceStore.
func (s *Store) UpdateRecordStatusByTrip(ctx context.Context, tripID string, status models.FinancialStatus, actorID string, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, r := range s.records {
		if r.TripID != tripID {
			continue
		}
		r.Status = status
		r.UpdatedAt = at
		r.UpdatedBy = actorID
		n++
	}
	return n, nil
}

// SetRecordStatus implements store.FinanceStore.
func (s *Store) SetRecordStatus(ctx context.Context, id string, status models.FinancialStatus, actorID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return store.ErrNotFound
	}
	r.Status = status
	r.UpdatedAt = at
	r.UpdatedBy = actorID
	return nil
}

// InsertInstallment implements store.FinanceStore.
func (s *Store) InsertInstallment(ctx context.Context, inst *models.PaymentInstallment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inst
	s.installments[inst.ID] = &cp
	return nil
}

// GetInstallment implements store.FinanceStore.
func (s *Store) GetInstallment(ctx context.Context, id string) (*models.PaymentInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.installments[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// ListInstallments implements store.FinanceStore.
func (s *Store) ListInstallments(ctx context.Context, recordID string) ([]*models.PaymentInstallment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PaymentInstallment
	for _, p := range s.installments {
		if p.FinancialRecordID == recordID {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PaymentDate.Equal(out[j].PaymentDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].PaymentDate.Before(out[j].PaymentDate)
	})
	return out, nil
}

// DeleteInstallment implements store.FinanceStore.
func (s *Store) DeleteInstallment(ctx context.Context, id string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.installments[id]; !ok {
		return 0, nil
	}
	delete(s.installments, id)
	return 1, nil
}

// DeleteInstallmentsByRecord implements store.FinanceStore.
func (s *Store) DeleteInstallmentsByRecord(ctx context.Context, recordID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, p := range s.installments {
		if p.FinancialRecordID == recordID {
			delete(s.installments, id)
			n++
		}
	}
	return n, nil
}

// ListInstallmentRefs implements store.FinanceStore.
func (s *Store) ListInstallmentRefs(ctx context.Context) ([]store.InstallmentRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.InstallmentRef, 0, len(s.installments))
	for _, p := range s.installments {
		out = append(out, store.InstallmentRef{ID: p.ID, FinancialRecordID: p.FinancialRecordID})
	}
	return out, nil
}

// DeleteInstallmentsByID implements store.FinanceStore.
func (s *Store) DeleteInstallmentsByID(ctx context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := s.installments[id]; ok {
			delete(s.installments, id)
			n++
		}
	}
	return n, nil
}

// DeleteByTrip implements store.ChildStore.
func (s *Store) DeleteByTrip(ctx context.Context, coll models.ChildCollection, tripID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	if coll == models.CollectionFinancialRecords {
		for id, r := range s.records {
			if r.TripID == tripID {
				delete(s.records, id)
				delete(s.recordSeq, id)
				n++
			}
		}
		return n, nil
	}
	docs, err := s.collection(coll)
	if err != nil {
		return 0, err
	}
	for id, d := range docs {
		if d.ref.TripID == tripID {
			delete(docs, id)
			n++
		}
	}
	return n, nil
}

// ListRefs implements store.ChildStore.
func (s *Store) ListRefs(ctx context.Context, coll models.ChildCollection) ([]models.ChildRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ChildRef
	if coll == models.CollectionFinancialRecords {
		for _, r := range s.records {
			out = append(out, models.ChildRef{ID: r.ID, TripID: r.TripID})
		}
		return out, nil
	}
	docs, err := s.collection(coll)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out = append(out, d.ref)
	}
	return out, nil
}

// DeleteByID implements store.ChildStore.
func (s *Store) DeleteByID(ctx context.Context, coll models.ChildCollection, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	if coll == models.CollectionFinancialRecords {
		for _, id := range ids {
			if _, ok := s.records[id]; ok {
				delete(s.records, id)
				delete(s.recordSeq, id)
				n++
			}
		}
		return n, nil
	}
	docs, err := s.collection(coll)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if _, ok := docs[id]; ok {
			delete(docs, id)
			n++
		}
	}
	return n, nil
}

func (s *Store) collection(coll models.ChildCollection) (map[string]childDoc, error) {
	docs, ok := s.children[coll]
	if !ok {
		return nil, fmt.Errorf("unknown collection %q", coll)
	}
	return docs, nil
}

func (s *Store) insertChild(coll models.ChildCollection, id, tripID string, doc any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children[coll][id] = childDoc{ref: models.ChildRef{ID: id, TripID: tripID}, doc: doc}
}

// InsertItinerary stores an itinerary day.
func (s *Store) InsertItinerary(ctx context.Context, it *models.Itinerary) error {
	cp := *it
	s.insertChild(models.CollectionItineraries, it.ID, it.TripID, &cp)
	return nil
}

// InsertCruiseInfo stores ship and cabin data.
func (s *Store) InsertCruiseInfo(ctx context.Context, ci *models.CruiseInfo) error {
	cp := *ci
	s.insertChild(models.CollectionCruiseInfo, ci.ID, ci.TripID, &cp)
	return nil
}

// InsertClientNote stores a client note.
func (s *Store) InsertClientNote(ctx context.Context, n *models.ClientNote) error {
	cp := *n
	s.insertChild(models.CollectionClientNotes, n.ID, n.TripID, &cp)
	return nil
}

// InsertClientPhoto stores a photo reference.
func (s *Store) InsertClientPhoto(ctx context.Context, p *models.ClientPhoto) error {
	cp := *p
	s.insertChild(models.CollectionClientPhotos, p.ID, p.TripID, &cp)
	return nil
}

// Count returns the number of documents in a child collection, or in the
// trips and payment_installments collections.
func (s *Store) Count(coll string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch coll {
	case "trips":
		return len(s.trips)
	case "payment_installments":
		return len(s.installments)
	case string(models.CollectionFinancialRecords):
		return len(s.records)
	}
	return len(s.children[models.ChildCollection(coll)])
}
