// Package mocks provides testify mocks for the repository interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"collaborative-story/internal/domain"
)

// RoomRepository is a mock implementation of repository.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

func (m *RoomRepository) Get(ctx context.Context, roomCode string) (*domain.RoomState, error) {
	args := m.Called(ctx, roomCode)
	if state, ok := args.Get(0).(*domain.RoomState); ok {
		return state, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *RoomRepository) Save(ctx context.Context, state *domain.RoomState, expectedVersion uint64) error {
	args := m.Called(ctx, state, expectedVersion)
	return args.Error(0)
}

func (m *RoomRepository) Delete(ctx context.Context, roomCode string) error {
	args := m.Called(ctx, roomCode)
	return args.Error(0)
}

func (m *RoomRepository) ListLive(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if codes, ok := args.Get(0).([]string); ok {
		return codes, args.Error(1)
	}
	return nil, args.Error(1)
}

// ArchiveRepository is a mock implementation of repository.ArchiveRepository.
type ArchiveRepository struct {
	mock.Mock
}

func (m *ArchiveRepository) SaveArchive(ctx context.Context, archive *domain.StoryArchive) error {
	args := m.Called(ctx, archive)
	return args.Error(0)
}

func (m *ArchiveRepository) FindByRoomCode(ctx context.Context, roomCode string) (*domain.StoryArchive, error) {
	args := m.Called(ctx, roomCode)
	if archive, ok := args.Get(0).(*domain.StoryArchive); ok {
		return archive, args.Error(1)
	}
	return nil, args.Error(1)
}
