package repository

import (
	"context"

	"collaborative-story/internal/domain"
)

// RoomRepository stores one RoomState document per room code, TTL-bounded,
// with a secondary index of live room codes. Implemented by the Redis store;
// the in-memory variant under memory/ is a test double only.
type RoomRepository interface {
	// Get fetches the room. Returns ErrNotFound if the code is unknown, or
	// ErrExpired if the record's logical expiry has passed; in the latter
	// case the implementation also purges the record and its index entry.
	Get(ctx context.Context, roomCode string) (*domain.RoomState, error)

	// Save writes the whole document conditionally on its stored version.
	// expectedVersion is the version the caller read before mutating, or 0
	// when creating: the write fails with ErrVersionConflict if the stored
	// version differs (for creation, if the code already exists). The
	// store's own TTL is derived from state.ExpiresAt, floored so the
	// index-then-purge path stays uniform for just-deleted rooms.
	Save(ctx context.Context, state *domain.RoomState, expectedVersion uint64) error

	// Delete hard-removes the record and its index entry. Idempotent.
	Delete(ctx context.Context, roomCode string) error

	// ListLive returns the live-room index members. The index may lag:
	// codes of already-expired rooms linger until a Get self-heals them,
	// so callers must tolerate Get returning ErrExpired/ErrNotFound for
	// listed codes.
	ListLive(ctx context.Context) ([]string, error)
}

// ArchiveRepository persists finished stories.
type ArchiveRepository interface {
	// SaveArchive inserts a story archive row. Returns ErrDuplicateEntry
	// when the room code was already archived.
	SaveArchive(ctx context.Context, archive *domain.StoryArchive) error

	// FindByRoomCode fetches an archived story, ErrNotFound if absent.
	FindByRoomCode(ctx context.Context, roomCode string) (*domain.StoryArchive, error)
}
