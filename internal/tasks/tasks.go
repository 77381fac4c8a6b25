// Package tasks defines the asynq task types and payload constructors.
package tasks

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"collaborative-story/internal/domain"
)

const (
	// TypeStoryArchive persists a finished story to MySQL.
	TypeStoryArchive = "story:archive"
	// TypeRoomSweep prunes expired rooms from the live-room index.
	TypeRoomSweep = "room:sweep_expired"
)

// StoryArchivePayload carries the full story content: the room itself is
// already marked expired by the time the worker runs, so the task cannot
// re-read it from the store.
type StoryArchivePayload struct {
	RoomCode      string          `json:"room_code"`
	RoomName      string          `json:"room_name,omitempty"`
	ActivityTitle string          `json:"activity_title,omitempty"`
	RoomMode      domain.RoomMode `json:"room_mode"`
	Story         string          `json:"story"`
	WriterCount   int             `json:"writer_count"`
}

// NewStoryArchiveTask builds the archive task for a finished room.
func NewStoryArchiveTask(p StoryArchivePayload) (*asynq.Task, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("tasks: marshal story archive payload: %w", err)
	}
	return asynq.NewTask(TypeStoryArchive, payload), nil
}

// NewRoomSweepTask builds the periodic index-hygiene task.
func NewRoomSweepTask() (*asynq.Task, error) {
	return asynq.NewTask(TypeRoomSweep, nil), nil
}
