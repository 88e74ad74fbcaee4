// Package mongostore implements store.Store on MongoDB. Collection and field
// names match the documents written by the booking front end, and money read
// back from doubles, integers or strings is accepted. Money is always written
// as Decimal128, so a reader that expects doubles cannot share the database
// once this store has written to it.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"tripledger/internal/logger"
	"tripledger/internal/store"
	"tripledger/pkg/models"
)

const (
	collTrips        = "trips"
	collInstallments = "payment_installments"

	// maxIDsPerDelete bounds the size of one $in filter.
	maxIDsPerDelete = 1000
)

// Store is a MongoDB backed store.Store.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	log    zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// Connect opens a client, checks it against the primary and makes sure the
// lookup indexes exist.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := New(client.Database(database))
	s.client = client
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	s.log.Info().Str("database", database).Msg("Connected to MongoDB")
	return s, nil
}

// New wraps an already opened database.
func New(db *mongo.Database) *Store {
	return &Store{
		db:  db,
		log: logger.WithComponent("mongostore"),
	}
}

// Close disconnects the client opened by Connect.
func (s *Store) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the id and parent-reference indexes. trip_id on
// trip_admin is not unique.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := func(field string) mongo.IndexModel {
		return mongo.IndexModel{
			Keys:    bson.D{{Key: field, Value: 1}},
			Options: options.Index().SetUnique(true),
		}
	}
	plain := func(field string) mongo.IndexModel {
		return mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}}
	}

	indexes := map[string][]mongo.IndexModel{
		collTrips:        {unique("id"), plain("agent_id")},
		collInstallments: {unique("id"), plain("trip_admin_id")},
	}
	for _, coll := range models.TripChildCollections {
		indexes[string(coll)] = []mongo.IndexModel{unique("id"), plain("trip_id")}
	}

	for coll, idx := range indexes {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) coll(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	return err
}

// refFilter matches documents whose parent reference equals value. An empty
// value also matches documents that lack the field or hold null.
func refFilter(field, value string) bson.M {
	if value == "" {
		return bson.M{field: bson.M{"$in": bson.A{"", nil}}}
	}
	return bson.M{field: value}
}

// deleteIDs removes documents by id in bounded batches.
func (s *Store) deleteIDs(ctx context.Context, coll string, ids []string) (int64, error) {
	var total int64
	for start := 0; start < len(ids); start += maxIDsPerDelete {
		end := min(start+maxIDsPerDelete, len(ids))
		res, err := s.coll(coll).DeleteMany(ctx, bson.M{"id": bson.M{"$in": ids[start:end]}})
		if err != nil {
			return total, err
		}
		total += res.DeletedCount
	}
	return total, nil
}

// GetTrip implements store.TripStore.
func (s *Store) GetTrip(ctx context.Context, id string) (*models.Trip, error) {
	var t models.Trip
	if err := s.coll(collTrips).FindOne(ctx, bson.M{"id": id}).Decode(&t); err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

// InsertTrip implements store.TripStore.
func (s *Store) InsertTrip(ctx context.Context, trip *models.Trip) error {
	_, err := s.coll(collTrips).InsertOne(ctx, trip)
	return err
}

// UpdateTripStatus implements store.TripStore.
func (s *Store) UpdateTripStatus(ctx context.Context, id string, status models.TripStatus, actorID string, at time.Time) error {
	res, err := s.coll(collTrips).UpdateOne(ctx,
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

// DeleteTrip implements store.TripStore.
func (s *Store) DeleteTrip(ctx context.Context, id string) (int64, error) {
	res, err := s.coll(collTrips).DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ListTripIDs implements store.TripStore.
func (s *Store) ListTripIDs(ctx context.Context) ([]string, error) {
	cur, err := s.coll(collTrips).Find(ctx, bson.M{},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 0}, {Key: "id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var refs []refDoc
	if err := cur.All(ctx, &refs); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// ListTrips implements store.TripStore.
func (s *Store) ListTrips(ctx context.Context, agentID string) ([]*models.Trip, error) {
	filter := bson.M{}
	if agentID != "" {
		filter["agent_id"] = agentID
	}
	cur, err := s.coll(collTrips).Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var trips []*models.Trip
	if err := cur.All(ctx, &trips); err != nil {
		return nil, err
	}
	return trips, nil
}
