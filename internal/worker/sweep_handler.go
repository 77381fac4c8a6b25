package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-story/internal/repository"
)

// SweepHandler prunes expired rooms from the live-room index. Correctness
// never depends on it: every read path self-heals expired entries; the
// sweep just keeps the index from accumulating dead codes between reads.
type SweepHandler struct {
	roomRepo repository.RoomRepository
}

// NewSweepHandler creates a SweepHandler.
func NewSweepHandler(roomRepo repository.RoomRepository) *SweepHandler {
	return &SweepHandler{roomRepo: roomRepo}
}

// ProcessTask implements asynq.Handler for room:sweep_expired tasks.
func (h *SweepHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	codes, err := h.roomRepo.ListLive(ctx)
	if err != nil {
		return fmt.Errorf("sweep: list live rooms: %w", err)
	}

	reaped := 0
	for _, code := range codes {
		// Get purges the record and index entry when it observes expiry.
		_, err := h.roomRepo.Get(ctx, code)
		switch {
		case errors.Is(err, repository.ErrExpired), errors.Is(err, repository.ErrNotFound):
			reaped++
		case err != nil:
			logrus.WithError(err).WithField("room_code", code).Warn("Sweep: failed to check room")
		}
	}

	logrus.WithFields(logrus.Fields{
		"checked": len(codes),
		"reaped":  reaped,
	}).Info("Sweep: expired-room pass complete")
	return nil
}
