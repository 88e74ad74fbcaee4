package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tripledger/internal/store"
	"tripledger/pkg/models"
)

var oldestFirst = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

func (s *Store) records() *mongo.Collection {
	return s.coll(string(models.CollectionFinancialRecords))
}

func (s *Store) findRecords(ctx context.Context, filter bson.M) ([]*models.FinancialRecord, error) {
	cur, err := s.records().Find(ctx, filter, options.Find().SetSort(oldestFirst))
	if err != nil {
		return nil, err
	}
	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*models.FinancialRecord, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

// InsertRecord implements store.FinanceStore.
func (s *Store) InsertRecord(ctx context.Context, rec *models.FinancialRecord) error {
	_, err := s.records().InsertOne(ctx, toRecordDoc(rec))
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("financial record %s already exists: %w", rec.ID, err)
	}
	return err
}

// GetRecord implements store.FinanceStore.
func (s *Store) GetRecord(ctx context.Context, id string) (*models.FinancialRecord, error) {
	var d recordDoc
	if err := s.records().FindOne(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	return d.model(), nil
}

// ListRecordsByTrip implements store.FinanceStore.
func (s *Store) ListRecordsByTrip(ctx context.Context, tripID string) ([]*models.FinancialRecord, error) {
	return s.findRecords(ctx, bson.M{"trip_id": tripID})
}

// ListRecords implements store.FinanceStore.
func (s *Store) ListRecords(ctx context.Context) ([]*models.FinancialRecord, error) {
	return s.findRecords(ctx, bson.M{})
}

// ReplaceRecord implements store.FinanceStore.
func (s *Store) ReplaceRecord(ctx context.Context, rec *models.FinancialRecord) error {
	res, err := s.records().ReplaceOne(ctx, bson.M{"id": rec.ID}, toRecordDoc(rec))
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SetDerived implements store.FinanceStore.
func (s *Store) SetDerived(ctx context.Context, id string, d store.DerivedFields, at time.Time) error {
	res, err := s.records().UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": bson.M{
		"gross_commission":    money{d.GrossCommission},
		"supplier_commission": money{d.SupplierCommission},
		"agent_commission":    money{d.AgentCommission},
		"balance_due":         money{d.BalanceDue},
		"updated_at":          at,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// UpdateRecordStatusByTrip implements store.FinanceStore.
func (s *Store) UpdateRecordStatusByTrip(ctx context.Context, tripID string, status models.FinancialStatus, actorID string, at time.Time) (int64, error) {
	res, err := s.records().UpdateMany(ctx,
		bson.M{"trip_id": tripID},
		bson.M{"$set": bson.M{"status": status, "updated_at": at, "updated_by": actorID}},
	)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// SetRecordStatus implements store.FinanceStore.
func (s *Store) SetRecordStatus(ctx context.Context, id string, status models.FinancialStatus, actorID string, at time.Time) error {
	res, err := s.records().UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": at, "updated_by": actorID}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

// InsertInstallment implements store.FinanceStore.
func (s *Store) InsertInstallment(ctx context.Context, inst *models.PaymentInstallment) error {
	_, err := s.coll(collInstallments).InsertOne(ctx, toInstallmentDoc(inst))
	return err
}

// GetInstallment implements store.FinanceStore.
func (s *Store) GetInstallment(ctx context.Context, id string) (*models.PaymentInstallment, error) {
	var d installmentDoc
	if err := s.coll(collInstallments).FindOne(ctx, bson.M{"id": id}).Decode(&d); err != nil {
		return nil, notFound(err)
	}
	return d.model(), nil
}

// ListInstallments implements store.FinanceStore.
func (s *Store) ListInstallments(ctx context.Context, recordID string) ([]*models.PaymentInstallment, error) {
	cur, err := s.coll(collInstallments).Find(ctx,
		bson.M{"trip_admin_id": recordID},
		options.Find().SetSort(bson.D{{Key: "payment_date", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	var docs []installmentDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*models.PaymentInstallment, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

// DeleteInstallment implements store.FinanceStore.
func (s *Store) DeleteInstallment(ctx context.Context, id string) (int64, error) {
	res, err := s.coll(collInstallments).DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteInstallmentsByRecord implements store.FinanceStore.
func (s *Store) DeleteInstallmentsByRecord(ctx context.Context, recordID string) (int64, error) {
	res, err := s.coll(collInstallments).DeleteMany(ctx, refFilter("trip_admin_id", recordID))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListInstallmentRefs implements store.FinanceStore.
func (s *Store) ListInstallmentRefs(ctx context.Context) ([]store.InstallmentRef, error) {
	cur, err := s.coll(collInstallments).Find(ctx, bson.M{},
		options.Find().SetProjection(installmentRefProjection))
	if err != nil {
		return nil, err
	}
	var docs []refDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	refs := make([]store.InstallmentRef, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, store.InstallmentRef{ID: d.ID, FinancialRecordID: d.FinancialRecordID})
	}
	return refs, nil
}

// DeleteInstallmentsByID implements store.FinanceStore.
func (s *Store) DeleteInstallmentsByID(ctx context.Context, ids []string) (int64, error) {
	return s.deleteIDs(ctx, collInstallments, ids)
}
