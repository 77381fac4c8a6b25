// Package memory holds an in-process RoomRepository used by tests. An
// in-memory map cannot survive multiple server instances and must never be
// the system of record; production uses the Redis implementation.
package memory

import (
	"context"
	"sync"
	"time"

	"collaborative-story/internal/domain"
	"collaborative-story/internal/repository"
)

// RoomRepository is a mutex-guarded map with the same conditional-write and
// lazy-expiry semantics as the Redis store.
type RoomRepository struct {
	mu    sync.Mutex
	rooms map[string]*domain.RoomState
}

// NewRoomRepository creates an empty in-memory repository.
func NewRoomRepository() *RoomRepository {
	return &RoomRepository{rooms: make(map[string]*domain.RoomState)}
}

// Get implements repository.RoomRepository.
func (r *RoomRepository) Get(ctx context.Context, roomCode string) (*domain.RoomState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.rooms[roomCode]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if state.Expired(time.Now()) {
		delete(r.rooms, roomCode)
		return nil, repository.ErrExpired
	}
	return cloneState(state), nil
}

// Save implements repository.RoomRepository.
func (r *RoomRepository) Save(ctx context.Context, state *domain.RoomState, expectedVersion uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.rooms[state.RoomCode]
	if !ok {
		if expectedVersion != 0 {
			return repository.ErrNotFound
		}
	} else {
		if expectedVersion == 0 || stored.Version != expectedVersion {
			return repository.ErrVersionConflict
		}
	}
	r.rooms[state.RoomCode] = cloneState(state)
	return nil
}

// Delete implements repository.RoomRepository.
func (r *RoomRepository) Delete(ctx context.Context, roomCode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.rooms, roomCode)
	return nil
}

// ListLive implements repository.RoomRepository.
func (r *RoomRepository) ListLive(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]string, 0, len(r.rooms))
	for code := range r.rooms {
		codes = append(codes, code)
	}
	return codes, nil
}

// Expire rewinds a room's expiry for tests simulating TTL passage.
func (r *RoomRepository) Expire(roomCode string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.rooms[roomCode]; ok {
		state.ExpiresAt = time.Now().Add(-time.Second)
	}
}

func cloneState(s *domain.RoomState) *domain.RoomState {
	clone := *s
	clone.Writers = append([]string(nil), s.Writers...)
	if s.TurnEndsAt != nil {
		t := *s.TurnEndsAt
		clone.TurnEndsAt = &t
	}
	if s.TurnRemainingMS != nil {
		ms := *s.TurnRemainingMS
		clone.TurnRemainingMS = &ms
	}
	return &clone
}
