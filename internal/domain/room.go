package domain

import (
	"fmt"
	"time"
)

// RoomMode selects the story template the clients render. The coordinator
// logic never branches on it.
type RoomMode string

const (
	ModeContinuaTu RoomMode = "CONTINUA_TU"
	ModeCampbell   RoomMode = "CAMPBELL"
	ModePropp      RoomMode = "PROPP"
)

// ValidMode reports whether m is one of the known room modes.
func ValidMode(m RoomMode) bool {
	switch m {
	case ModeContinuaTu, ModeCampbell, ModePropp:
		return true
	}
	return false
}

// RoomState is the single shared document per room, stored as a whole in the
// key-value store and read-modify-written on every mutation.
//
// The turn clock is virtual: TurnEndsAt is a deadline compared against the
// wall clock at call time, never an in-process timer. Exactly one of the
// three turn states holds at any time:
//
//	active: TurnEndsAt != nil && !TurnPaused
//	paused: TurnPaused && TurnRemainingMS != nil
//	idle:   TurnEndsAt == nil && !TurnPaused
type RoomState struct {
	RoomCode      string   `json:"room_code"`
	RoomName      string   `json:"room_name,omitempty"`
	ActivityTitle string   `json:"activity_title,omitempty"`
	RoomMode      RoomMode `json:"room_mode"`
	PromptSeed    string   `json:"prompt_seed,omitempty"`
	StorySoFar    string   `json:"story_so_far"`

	// Writers is append-only; insertion order defines the round-robin order.
	Writers            []string `json:"writers"`
	CurrentWriterIndex int      `json:"current_writer_index"`

	TurnEndsAt      *time.Time `json:"turn_ends_at,omitempty"`
	TurnPaused      bool       `json:"turn_paused"`
	TurnRemainingMS *int64     `json:"turn_remaining_ms,omitempty"`

	Version   uint64    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TurnActive reports whether a turn is formally open (deadline set, not
// paused). A lapsed deadline still counts as active here; callers that care
// must also check the clock, see TurnLapsed.
func (r *RoomState) TurnActive() bool {
	return r.TurnEndsAt != nil && !r.TurnPaused
}

// TurnIdle reports whether no turn is open.
func (r *RoomState) TurnIdle() bool {
	return r.TurnEndsAt == nil && !r.TurnPaused
}

// TurnLapsed reports whether an active turn's deadline has passed.
func (r *RoomState) TurnLapsed(now time.Time) bool {
	return r.TurnActive() && !now.Before(*r.TurnEndsAt)
}

// Expired reports whether the room is logically dead.
func (r *RoomState) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// CurrentWriter returns the writer holding the pen. ok is false while the
// room has no writers.
func (r *RoomState) CurrentWriter() (string, bool) {
	if len(r.Writers) == 0 {
		return "", false
	}
	if r.CurrentWriterIndex < 0 || r.CurrentWriterIndex >= len(r.Writers) {
		return "", false
	}
	return r.Writers[r.CurrentWriterIndex], true
}

// AddWriter appends a synthesized writer slot and returns its identifier.
func (r *RoomState) AddWriter() string {
	id := fmt.Sprintf("Writer %d", len(r.Writers)+1)
	r.Writers = append(r.Writers, id)
	return id
}

// StartTurn advances to the next writer round-robin and opens a turn of the
// given duration. Any pause state is discarded. Writers must be non-empty.
func (r *RoomState) StartTurn(now time.Time, d time.Duration) {
	r.CurrentWriterIndex = (r.CurrentWriterIndex + 1) % len(r.Writers)
	ends := now.Add(d)
	r.TurnEndsAt = &ends
	r.TurnPaused = false
	r.TurnRemainingMS = nil
}

// PauseTurn freezes the running turn, banking the remaining duration.
func (r *RoomState) PauseTurn(now time.Time) {
	remaining := int64(0)
	if r.TurnEndsAt != nil && now.Before(*r.TurnEndsAt) {
		remaining = r.TurnEndsAt.Sub(now).Milliseconds()
	}
	r.TurnEndsAt = nil
	r.TurnPaused = true
	r.TurnRemainingMS = &remaining
}

// ResumeTurn reopens a paused turn with the banked remaining duration.
func (r *RoomState) ResumeTurn(now time.Time) {
	remaining := int64(0)
	if r.TurnRemainingMS != nil {
		remaining = *r.TurnRemainingMS
	}
	ends := now.Add(time.Duration(remaining) * time.Millisecond)
	r.TurnEndsAt = &ends
	r.TurnPaused = false
	r.TurnRemainingMS = nil
}

// StopTurn clears all turn state back to idle, from any state.
func (r *RoomState) StopTurn() {
	r.TurnEndsAt = nil
	r.TurnPaused = false
	r.TurnRemainingMS = nil
}

// AppendStory adds one submission to the story, newline-joined.
func (r *RoomState) AppendStory(text string) {
	if r.StorySoFar == "" {
		r.StorySoFar = text
		return
	}
	r.StorySoFar = r.StorySoFar + "\n" + text
}

// Touch bumps the version and update timestamp. Every mutating operation
// calls this exactly once before saving.
func (r *RoomState) Touch(now time.Time) {
	r.Version++
	r.UpdatedAt = now
}

// RoomSummary is the dashboard projection returned by room listings.
type RoomSummary struct {
	RoomCode        string     `json:"room_code"`
	RoomName        string     `json:"room_name,omitempty"`
	ActivityTitle   string     `json:"activity_title,omitempty"`
	RoomMode        RoomMode   `json:"room_mode"`
	WriterCount     int        `json:"writer_count"`
	CurrentWriter   string     `json:"current_writer,omitempty"`
	TurnEndsAt      *time.Time `json:"turn_ends_at,omitempty"`
	TurnPaused      bool       `json:"turn_paused"`
	TurnRemainingMS *int64     `json:"turn_remaining_ms,omitempty"`
	Version         uint64     `json:"version"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ExpiresAt       time.Time  `json:"expires_at"`
}

// Summary builds the dashboard projection for this room.
func (r *RoomState) Summary() RoomSummary {
	current, _ := r.CurrentWriter()
	return RoomSummary{
		RoomCode:        r.RoomCode,
		RoomName:        r.RoomName,
		ActivityTitle:   r.ActivityTitle,
		RoomMode:        r.RoomMode,
		WriterCount:     len(r.Writers),
		CurrentWriter:   current,
		TurnEndsAt:      r.TurnEndsAt,
		TurnPaused:      r.TurnPaused,
		TurnRemainingMS: r.TurnRemainingMS,
		Version:         r.Version,
		UpdatedAt:       r.UpdatedAt,
		ExpiresAt:       r.ExpiresAt,
	}
}
