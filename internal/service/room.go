package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-story/internal/domain"
	"collaborative-story/internal/repository"
	"collaborative-story/internal/tasks"
	"collaborative-story/internal/token"
)

// Input bounds. TTL and turn duration are clamped, not rejected.
const (
	minTTLHours    = 1
	maxTTLHours    = 24
	minTurnSeconds = 15
	maxTurnSeconds = 600
	maxPromptLen   = 600
	maxSubmitLen   = 2000
)

// casRetries bounds the optimistic-concurrency retry loop. Mutations are
// read-modify-write cycles; a conditional save that loses the race is
// re-run from a fresh read.
const casRetries = 3

// RoomService is the room coordinator: the state machine driving room
// lifecycle, the round-robin turn clock and text submission.
type RoomService struct {
	rooms       repository.RoomRepository
	codec       *token.Codec
	asynqClient *asynq.Client
	baseURL     string
}

// NewRoomService creates a RoomService. asynqClient may be nil; story
// archival is then skipped (tests run without a broker).
func NewRoomService(rooms repository.RoomRepository, codec *token.Codec, asynqClient *asynq.Client, baseURL string) *RoomService {
	if rooms == nil {
		panic("RoomRepository cannot be nil for RoomService")
	}
	if codec == nil {
		panic("token codec cannot be nil for RoomService")
	}
	return &RoomService{
		rooms:       rooms,
		codec:       codec,
		asynqClient: asynqClient,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// CreateRoomInput holds the admin-supplied room parameters.
type CreateRoomInput struct {
	TTLHours      int
	RoomMode      domain.RoomMode
	RoomName      string
	ActivityTitle string
	PromptSeed    string
}

// CreateRoom generates a fresh room in the idle state, version 1.
func (s *RoomService) CreateRoom(ctx context.Context, in CreateRoomInput) (*domain.RoomState, error) {
	if !domain.ValidMode(in.RoomMode) {
		return nil, fmt.Errorf("%w: unknown room mode %q", ErrValidation, in.RoomMode)
	}
	if len(in.PromptSeed) > maxPromptLen {
		return nil, fmt.Errorf("%w: prompt seed exceeds %d characters", ErrValidation, maxPromptLen)
	}
	ttl := clamp(in.TTLHours, minTTLHours, maxTTLHours)
	logCtx := logrus.WithField("room_mode", in.RoomMode)

	const maxAttempts = 10
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code, err := generateRoomCode()
		if err != nil {
			logCtx.WithError(err).Error("Failed to generate room code")
			return nil, ErrInternalServer
		}

		now := time.Now()
		state := &domain.RoomState{
			RoomCode:      code,
			RoomName:      in.RoomName,
			ActivityTitle: in.ActivityTitle,
			RoomMode:      in.RoomMode,
			PromptSeed:    in.PromptSeed,
			Writers:       []string{},
			Version:       1,
			CreatedAt:     now,
			UpdatedAt:     now,
			ExpiresAt:     now.Add(time.Duration(ttl) * time.Hour),
		}

		err = s.rooms.Save(ctx, state, 0)
		if err == nil {
			logCtx.WithFields(logrus.Fields{"room_code": code, "ttl_h": ttl}).Info("Room created")
			return state, nil
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			// Code collision; regenerate.
			logCtx.WithField("room_code", code).Warnf("Room code collision, retrying (attempt %d)", attempt+1)
			continue
		}
		logCtx.WithError(err).Error("Failed to save new room")
		return nil, ErrInternalServer
	}
	logCtx.Errorf("Failed to allocate a unique room code after %d attempts", maxAttempts)
	return nil, ErrInternalServer
}

// Join appends a synthesized writer slot and returns its identifier. Turn
// state is untouched; the new writer waits for the admin to hand out turns.
func (s *RoomService) Join(ctx context.Context, roomCode string) (string, *domain.RoomState, error) {
	var writerID string
	state, err := s.mutate(ctx, roomCode, func(r *domain.RoomState) error {
		writerID = r.AddWriter()
		return nil
	})
	if err != nil {
		return "", nil, err
	}
	logrus.WithFields(logrus.Fields{"room_code": roomCode, "writer_id": writerID}).Info("Writer joined room")
	return writerID, state, nil
}

// NextTurn advances the round-robin and opens a turn of turnSeconds
// (clamped). Requires at least one writer.
func (s *RoomService) NextTurn(ctx context.Context, roomCode string, turnSeconds int) (*domain.RoomState, error) {
	d := time.Duration(clamp(turnSeconds, minTurnSeconds, maxTurnSeconds)) * time.Second
	return s.mutate(ctx, roomCode, func(r *domain.RoomState) error {
		if len(r.Writers) == 0 {
			return ErrNoWriters
		}
		r.StartTurn(time.Now(), d)
		return nil
	})
}

// PauseTurn freezes a running turn, banking the remaining time.
func (s *RoomService) PauseTurn(ctx context.Context, roomCode string) (*domain.RoomState, error) {
	return s.mutate(ctx, roomCode, func(r *domain.RoomState) error {
		if !r.TurnActive() {
			return ErrTurnNotActive
		}
		r.PauseTurn(time.Now())
		return nil
	})
}

// ResumeTurn reopens a paused turn with the banked remaining time.
func (s *RoomService) ResumeTurn(ctx context.Context, roomCode string) (*domain.RoomState, error) {
	return s.mutate(ctx, roomCode, func(r *domain.RoomState) error {
		if !r.TurnPaused || r.TurnRemainingMS == nil {
			return ErrTurnNotPaused
		}
		r.ResumeTurn(time.Now())
		return nil
	})
}

// StopTurn clears all turn state, from any state. Idempotent.
func (s *RoomService) StopTurn(ctx context.Context, roomCode string) (*domain.RoomState, error) {
	return s.mutate(ctx, roomCode, func(r *domain.RoomState) error {
		r.StopTurn()
		return nil
	})
}

// SubmitText appends one contribution from the current writer. The deadline
// is re-validated against the wall clock here; a lapsed turn that nothing
// has reaped yet is treated as no active turn. A successful submission
// closes the turn back to idle: the admin restarts the clock explicitly
// with NextTurn, so a fast writer cannot monopolize the story.
func (s *RoomService) SubmitText(ctx context.Context, roomCode, writerID, text string) (*domain.RoomState, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	if len(text) > maxSubmitLen {
		return nil, fmt.Errorf("%w: text exceeds %d characters", ErrValidation, maxSubmitLen)
	}
	state, err := s.mutate(ctx, roomCode, func(r *domain.RoomState) error {
		now := time.Now()
		if !r.TurnActive() || r.TurnLapsed(now) {
			return ErrTurnNotActive
		}
		current, ok := r.CurrentWriter()
		if !ok || current != writerID {
			return ErrNotYourTurn
		}
		r.AppendStory(text)
		r.StopTurn()
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"room_code": roomCode, "writer_id": writerID}).Info("Text submitted")
	return state, nil
}

// PatchRoom updates the advisory prompt seed. Turn state is untouched.
func (s *RoomService) PatchRoom(ctx context.Context, roomCode, promptSeed string) (*domain.RoomState, error) {
	if len(promptSeed) > maxPromptLen {
		return nil, fmt.Errorf("%w: prompt seed exceeds %d characters", ErrValidation, maxPromptLen)
	}
	return s.mutate(ctx, roomCode, func(r *domain.RoomState) error {
		r.PromptSeed = promptSeed
		return nil
	})
}

// GetState returns the room state without mutating anything.
func (s *RoomService) GetState(ctx context.Context, roomCode string) (*domain.RoomState, error) {
	return s.getRoom(ctx, roomCode)
}

// ListRooms returns summaries of all live rooms, soonest expiry first.
// Index entries whose rooms have meanwhile expired are skipped; the Get
// self-heals them.
func (s *RoomService) ListRooms(ctx context.Context) ([]domain.RoomSummary, error) {
	codes, err := s.rooms.ListLive(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to list live rooms")
		return nil, ErrInternalServer
	}
	summaries := make([]domain.RoomSummary, 0, len(codes))
	for _, code := range codes {
		state, err := s.rooms.Get(ctx, code)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) || errors.Is(err, repository.ErrExpired) {
				continue
			}
			logrus.WithError(err).WithField("room_code", code).Error("Failed to read room during listing")
			return nil, ErrInternalServer
		}
		summaries = append(summaries, state.Summary())
	}
	sortSummaries(summaries)
	return summaries, nil
}

// DeleteRoom marks the room expired rather than hard-deleting it, so every
// subsequent read takes the same expired-then-purge path. Idempotent: a
// room that is already gone is a successful delete. Finished stories are
// handed to the archive worker.
func (s *RoomService) DeleteRoom(ctx context.Context, roomCode string) error {
	var archived *tasks.StoryArchivePayload
	_, err := s.mutate(ctx, roomCode, func(r *domain.RoomState) error {
		r.StopTurn()
		r.ExpiresAt = time.Now().Add(-time.Second)
		if r.StorySoFar != "" {
			archived = &tasks.StoryArchivePayload{
				RoomCode:      r.RoomCode,
				RoomName:      r.RoomName,
				ActivityTitle: r.ActivityTitle,
				RoomMode:      r.RoomMode,
				Story:         r.StorySoFar,
				WriterCount:   len(r.Writers),
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrRoomNotFound) || errors.Is(err, ErrRoomExpired) {
			return nil
		}
		return err
	}
	logrus.WithField("room_code", roomCode).Info("Room deleted")
	if archived != nil {
		s.enqueueArchive(*archived)
	}
	return nil
}

// CreateInvite signs a room-invite token and builds the shareable link.
func (s *RoomService) CreateInvite(ctx context.Context, roomCode string, ttlHours, turnSeconds int) (string, string, error) {
	state, err := s.getRoom(ctx, roomCode)
	if err != nil {
		return "", "", err
	}
	ttl := clamp(ttlHours, minTTLHours, maxTTLHours)
	now := time.Now()
	tok, err := s.codec.SignInvite(token.InvitePayload{
		Room:        state.RoomCode,
		TTLHours:    ttl,
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(time.Duration(ttl) * time.Hour).Unix(),
		TurnSeconds: clamp(turnSeconds, minTurnSeconds, maxTurnSeconds),
		RoomName:    state.RoomName,
	})
	if err != nil {
		logrus.WithError(err).WithField("room_code", roomCode).Error("Failed to sign invite token")
		return "", "", ErrInternalServer
	}
	link := s.baseURL + "/join?token=" + tok
	return tok, link, nil
}

// ClaimInvite verifies an invite token and checks that its room is still
// live. Claiming does not consume the token.
func (s *RoomService) ClaimInvite(ctx context.Context, tokenStr string) (*token.InvitePayload, error) {
	payload, err := s.codec.VerifyInvite(tokenStr)
	if err != nil {
		return nil, ErrAuthenticationFailed
	}
	if _, err := s.getRoom(ctx, payload.Room); err != nil {
		return nil, err
	}
	return payload, nil
}

// getRoom reads a room and maps storage errors to business errors.
func (s *RoomService) getRoom(ctx context.Context, roomCode string) (*domain.RoomState, error) {
	if roomCode == "" {
		return nil, fmt.Errorf("%w: room code is required", ErrValidation)
	}
	state, err := s.rooms.Get(ctx, roomCode)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrRoomNotFound
		case errors.Is(err, repository.ErrExpired):
			return nil, ErrRoomExpired
		}
		logrus.WithError(err).WithField("room_code", roomCode).Error("Failed to read room")
		return nil, ErrInternalServer
	}
	return state, nil
}

// mutate runs one read-modify-write cycle under optimistic concurrency:
// read the version, apply fn, save conditionally, retry from a fresh read
// when the conditional write lost the race.
func (s *RoomService) mutate(ctx context.Context, roomCode string, fn func(*domain.RoomState) error) (*domain.RoomState, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		state, err := s.getRoom(ctx, roomCode)
		if err != nil {
			return nil, err
		}
		expected := state.Version
		if err := fn(state); err != nil {
			return nil, err
		}
		state.Touch(time.Now())

		err = s.rooms.Save(ctx, state, expected)
		if err == nil {
			return state, nil
		}
		if errors.Is(err, repository.ErrVersionConflict) {
			logrus.WithFields(logrus.Fields{"room_code": roomCode, "attempt": attempt + 1}).
				Warn("Concurrent room update, retrying")
			continue
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRoomNotFound
		}
		logrus.WithError(err).WithField("room_code", roomCode).Error("Failed to save room")
		return nil, ErrInternalServer
	}
	return nil, ErrConcurrentUpdate
}

func (s *RoomService) enqueueArchive(p tasks.StoryArchivePayload) {
	if s.asynqClient == nil {
		return
	}
	task, err := tasks.NewStoryArchiveTask(p)
	if err != nil {
		logrus.WithError(err).WithField("room_code", p.RoomCode).Error("Failed to build archive task")
		return
	}
	if _, err := s.asynqClient.Enqueue(task, asynq.Queue("low"), asynq.MaxRetry(5)); err != nil {
		logrus.WithError(err).WithField("room_code", p.RoomCode).Error("Failed to enqueue archive task")
	}
}

// generateRoomCode returns 6 characters of A-Z0-9 from crypto/rand.
func generateRoomCode() (string, error) {
	const letters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	const codeLength = 6
	b := make([]byte, codeLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	for i := range b {
		b[i] = letters[int(b[i])%len(letters)]
	}
	return string(b), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sortSummaries(s []domain.RoomSummary) {
	sort.Slice(s, func(i, j int) bool {
		return s[i].ExpiresAt.Before(s[j].ExpiresAt)
	})
}
