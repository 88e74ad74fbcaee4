package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tripledger/internal/logger"
	"tripledger/pkg/models"
)

const keyPrefix = "tripledger:audit:"

// RedisRecorder keeps one capped list per kind. New entries are pushed to
// the head, so LRANGE 0..n-1 yields the newest first.
type RedisRecorder struct {
	client *redis.Client
	limit  int64
	log    zerolog.Logger
	now    func() time.Time
}

// Connect opens a Redis client and checks the connection.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

// NewRedisRecorder creates a recorder keeping limit entries per kind.
func NewRedisRecorder(client *redis.Client, limit int64) *RedisRecorder {
	return &RedisRecorder{
		client: client,
		limit:  limit,
		log:    logger.WithComponent("audit"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func key(kind Kind) string {
	return keyPrefix + string(kind)
}

func (r *RedisRecorder) RecordDeletion(ctx context.Context, actorID string, rep *models.DeletionReport) {
	r.push(ctx, KindDeletion, actorID, len(rep.FailedSteps) > 0, rep)
}

func (r *RedisRecorder) RecordSweep(ctx context.Context, actorID string, rep *models.SweepReport) {
	r.push(ctx, KindSweep, actorID, false, rep)
}

func (r *RedisRecorder) RecordRepair(ctx context.Context, actorID string, rep *models.RepairReport) {
	r.push(ctx, KindRepair, actorID, false, rep)
}

func (r *RedisRecorder) push(ctx context.Context, kind Kind, actorID string, failed bool, report any) {
	e, err := newEntry(kind, actorID, r.now(), report)
	if err != nil {
		r.log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to encode audit report")
		return
	}
	e.Failed = failed

	payload, err := json.Marshal(e)
	if err != nil {
		r.log.Error().Err(err).Str("kind", string(kind)).Msg("Failed to encode audit entry")
		return
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, key(kind), payload)
	pipe.LTrim(ctx, key(kind), 0, r.limit-1)
	if _, err := pipe.Exec(ctx); err != nil {
		r.log.Error().Err(err).Str("kind", string(kind)).Str("actor_id", actorID).Msg("Failed to record audit entry")
		return
	}

	r.log.Debug().Str("kind", string(kind)).Str("actor_id", actorID).Msg("Audit entry recorded")
}

// Recent implements Recorder.
func (r *RedisRecorder) Recent(ctx context.Context, kind Kind, n int64) ([]Entry, error) {
	if n <= 0 || n > r.limit {
		n = r.limit
	}
	raw, err := r.client.LRange(ctx, key(kind), 0, n-1).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			r.log.Warn().Err(err).Str("kind", string(kind)).Msg("Skipping unreadable audit entry")
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}
