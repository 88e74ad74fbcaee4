package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tripledger/pkg/models"
)

// DeleteByTrip implements store.ChildStore.
func (s *Store) DeleteByTrip(ctx context.Context, coll models.ChildCollection, tripID string) (int64, error) {
	res, err := s.coll(string(coll)).DeleteMany(ctx, refFilter("trip_id", tripID))
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListRefs implements store.ChildStore.
func (s *Store) ListRefs(ctx context.Context, coll models.ChildCollection) ([]models.ChildRef, error) {
	cur, err := s.coll(string(coll)).Find(ctx, bson.M{},
		options.Find().SetProjection(childRefProjection))
	if err != nil {
		return nil, err
	}
	var docs []refDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	refs := make([]models.ChildRef, 0, len(docs))
	for _, d := range docs {
		refs = append(refs, models.ChildRef{ID: d.ID, TripID: d.TripID})
	}
	return refs, nil
}

// DeleteByID implements store.ChildStore.
func (s *Store) DeleteByID(ctx context.Context, coll models.ChildCollection, ids []string) (int64, error) {
	return s.deleteIDs(ctx, string(coll), ids)
}
