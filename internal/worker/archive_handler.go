package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-story/internal/domain"
	"collaborative-story/internal/repository"
	"collaborative-story/internal/tasks"
)

// ArchiveHandler persists finished stories to the database.
type ArchiveHandler struct {
	archiveRepo repository.ArchiveRepository
}

// NewArchiveHandler creates an ArchiveHandler.
func NewArchiveHandler(archiveRepo repository.ArchiveRepository) *ArchiveHandler {
	return &ArchiveHandler{archiveRepo: archiveRepo}
}

// ProcessTask implements asynq.Handler for story:archive tasks. A room code
// that is already archived counts as done; the task payload carries the
// full story because the room record is gone by the time this runs.
func (h *ArchiveHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.StoryArchivePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("ArchiveHandler: failed to unmarshal task payload")
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	logCtx := logrus.WithField("room_code", payload.RoomCode)

	archive := &domain.StoryArchive{
		RoomCode:      payload.RoomCode,
		RoomName:      payload.RoomName,
		ActivityTitle: payload.ActivityTitle,
		RoomMode:      payload.RoomMode,
		Story:         payload.Story,
		WriterCount:   payload.WriterCount,
	}
	if err := h.archiveRepo.SaveArchive(ctx, archive); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logCtx.Info("ArchiveHandler: story already archived, skipping")
			return nil
		}
		logCtx.WithError(err).Error("ArchiveHandler: failed to save archive")
		return fmt.Errorf("failed to save archive for room %s: %w", payload.RoomCode, err)
	}
	logCtx.Info("ArchiveHandler: story archived")
	return nil
}
