package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"collaborative-story/internal/domain"
	"collaborative-story/internal/repository"
)

// GormArchiveRepository is the ArchiveRepository implementation on MySQL.
type GormArchiveRepository struct {
	db *gorm.DB
}

// NewGormArchiveRepository creates a GormArchiveRepository.
func NewGormArchiveRepository(db *gorm.DB) *GormArchiveRepository {
	if db == nil {
		panic("database connection cannot be nil for GormArchiveRepository")
	}
	return &GormArchiveRepository{db: db}
}

// SaveArchive inserts the archive row. Room codes are unique; re-archiving
// the same room maps to repository.ErrDuplicateEntry so the worker can treat
// it as already done.
func (r *GormArchiveRepository) SaveArchive(ctx context.Context, archive *domain.StoryArchive) error {
	err := r.db.WithContext(ctx).Create(archive).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save archive for room %s: %w", archive.RoomCode, err)
	}
	return nil
}

// FindByRoomCode fetches an archived story by room code.
func (r *GormArchiveRepository) FindByRoomCode(ctx context.Context, roomCode string) (*domain.StoryArchive, error) {
	var archive domain.StoryArchive
	err := r.db.WithContext(ctx).Where("room_code = ?", roomCode).First(&archive).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find archive by room code '%s': %w", roomCode, err)
	}
	return &archive, nil
}
