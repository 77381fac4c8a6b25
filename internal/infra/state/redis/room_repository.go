package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"collaborative-story/internal/domain"
	"collaborative-story/internal/repository"
)

// ttlFloor keeps just-expired records briefly readable so that reads can
// report Expired (410) instead of NotFound (404) and purge the index entry
// on the way out.
const ttlFloor = time.Minute

// RedisRoomRepository is the RoomRepository implementation backed by the
// shared Redis instance. Each room is one JSON document under a prefixed
// key; the live-room index is a set of room codes.
type RedisRoomRepository struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRoomRepository creates a RedisRoomRepository.
func NewRedisRoomRepository(client *redis.Client, keyPrefix string) *RedisRoomRepository {
	if client == nil {
		panic("redis client cannot be nil for RedisRoomRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "story:"
	}
	return &RedisRoomRepository{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisRoomRepository) roomKey(roomCode string) string {
	return fmt.Sprintf("%sroom:%s", r.keyPrefix, roomCode)
}

func (r *RedisRoomRepository) indexKey() string {
	return r.keyPrefix + "rooms:live"
}

// Get implements repository.RoomRepository. A record past its logical
// expiry is purged together with its index entry and reported as expired.
func (r *RedisRoomRepository) Get(ctx context.Context, roomCode string) (*domain.RoomState, error) {
	key := r.roomKey(roomCode)
	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			// Redis' own TTL may have fired before we observed the logical
			// expiry; drop any stale index entry while we're here.
			if remErr := r.client.SRem(ctx, r.indexKey(), roomCode).Err(); remErr != nil {
				logrus.WithError(remErr).WithField("room_code", roomCode).
					Warn("redis: failed to clean index entry for missing room")
			}
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get room %s: %w", roomCode, err)
	}

	var state domain.RoomState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("redis: unmarshal room %s: %w", roomCode, err)
	}

	if state.Expired(time.Now()) {
		pipe := r.client.Pipeline()
		pipe.Del(ctx, key)
		pipe.SRem(ctx, r.indexKey(), roomCode)
		if _, err := pipe.Exec(ctx); err != nil {
			logrus.WithError(err).WithField("room_code", roomCode).
				Warn("redis: failed to purge expired room")
		}
		return nil, repository.ErrExpired
	}
	return &state, nil
}

// Save implements repository.RoomRepository using a WATCH transaction keyed
// on the stored version, closing the lost-update window between concurrent
// read-modify-write cycles.
func (r *RedisRoomRepository) Save(ctx context.Context, state *domain.RoomState, expectedVersion uint64) error {
	key := r.roomKey(state.RoomCode)

	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("redis: marshal room %s: %w", state.RoomCode, err)
	}
	ttl := time.Until(state.ExpiresAt)
	if ttl < ttlFloor {
		ttl = ttlFloor
	}

	txf := func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, key).Result()
		switch {
		case errors.Is(err, redis.Nil):
			if expectedVersion != 0 {
				// Room vanished between the caller's read and this write.
				return repository.ErrNotFound
			}
		case err != nil:
			return fmt.Errorf("redis: read-before-save room %s: %w", state.RoomCode, err)
		default:
			if expectedVersion == 0 {
				// Creation raced another creation of the same code.
				return repository.ErrVersionConflict
			}
			var stored domain.RoomState
			if err := json.Unmarshal([]byte(cur), &stored); err != nil {
				return fmt.Errorf("redis: unmarshal stored room %s: %w", state.RoomCode, err)
			}
			if stored.Version != expectedVersion {
				return repository.ErrVersionConflict
			}
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttl)
			pipe.SAdd(ctx, r.indexKey(), state.RoomCode)
			return nil
		})
		return err
	}

	err = r.client.Watch(ctx, txf, key)
	if errors.Is(err, redis.TxFailedErr) {
		// Key changed under the WATCH; same outcome as a version mismatch.
		return repository.ErrVersionConflict
	}
	if errors.Is(err, repository.ErrVersionConflict) || errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if err != nil {
		return fmt.Errorf("redis: save room %s: %w", state.RoomCode, err)
	}
	return nil
}

// Delete implements repository.RoomRepository.
func (r *RedisRoomRepository) Delete(ctx context.Context, roomCode string) error {
	pipe := r.client.Pipeline()
	pipe.Del(ctx, r.roomKey(roomCode))
	pipe.SRem(ctx, r.indexKey(), roomCode)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete room %s: %w", roomCode, err)
	}
	return nil
}

// ListLive implements repository.RoomRepository.
func (r *RedisRoomRepository) ListLive(ctx context.Context) ([]string, error) {
	codes, err := r.client.SMembers(ctx, r.indexKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list live rooms: %w", err)
	}
	return codes, nil
}
