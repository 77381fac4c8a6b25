package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	handler "collaborative-story/internal/handler/http"
	"collaborative-story/internal/repository/memory"
	"collaborative-story/internal/service"
	"collaborative-story/internal/token"
)

type testEnv struct {
	router *gin.Engine
	repo   *memory.RoomRepository
	codec  *token.Codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	codec, err := token.NewCodec("admin-secret-for-tests", "invite-secret-for-tests")
	require.NoError(t, err)
	repo := memory.NewRoomRepository()
	roomService := service.NewRoomService(repo, codec, nil, "http://localhost:8080")

	roomHandler := handler.NewRoomHandler(roomService, codec)
	inviteHandler := handler.NewInviteHandler(roomService)

	router := gin.New()
	router.POST("/api/rooms", roomHandler.HandleAction)
	router.POST("/api/invites/claim", inviteHandler.Claim)

	return &testEnv{router: router, repo: repo, codec: codec}
}

func (e *testEnv) adminToken(t *testing.T) string {
	t.Helper()
	signed, err := e.codec.SignAdmin(token.RoleAdmin, "", time.Hour)
	require.NoError(t, err)
	return signed
}

func (e *testEnv) post(t *testing.T, path, bearer string, body gin.H) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &parsed))
	return w, parsed
}

func (e *testEnv) createRoom(t *testing.T) string {
	t.Helper()
	w, body := e.post(t, "/api/rooms", e.adminToken(t), gin.H{
		"action":    "create",
		"room_mode": "CONTINUA_TU",
		"ttl_h":     4,
		"room_name": "Period 3",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	room, ok := body["room"].(string)
	require.True(t, ok)
	return room
}

func TestHandleAction_MissingAction(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.post(t, "/api/rooms", "", gin.H{"room": "A1B2C3"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "action")
}

func TestHandleAction_UnknownAction(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.post(t, "/api/rooms", "", gin.H{"action": "explode"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "explode")
}

func TestAdminActions_RequireBearerToken(t *testing.T) {
	env := newTestEnv(t)

	for _, action := range []string{"create", "next_turn", "pause_turn", "resume_turn", "stop_turn", "room_patch", "list_rooms", "delete_room"} {
		w, _ := env.post(t, "/api/rooms", "", gin.H{"action": action, "room": "A1B2C3"})
		assert.Equal(t, http.StatusUnauthorized, w.Code, "action %q must require auth", action)
	}
}

func TestAdminActions_RejectGarbageToken(t *testing.T) {
	env := newTestEnv(t)

	w, _ := env.post(t, "/api/rooms", "not-a-jwt", gin.H{"action": "list_rooms"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPublicActions_NeedNoToken(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t)

	w, body := env.post(t, "/api/rooms", "", gin.H{"action": "join", "room": room})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Writer 1", body["writer_id"])
	assert.Equal(t, true, body["ok"])

	w, _ = env.post(t, "/api/rooms", "", gin.H{"action": "get_state", "room": room})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreate_ValidationErrors(t *testing.T) {
	env := newTestEnv(t)

	// Missing room_mode fails binding.
	w, _ := env.post(t, "/api/rooms", env.adminToken(t), gin.H{"action": "create"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown mode fails in the coordinator.
	w, _ = env.post(t, "/api/rooms", env.adminToken(t), gin.H{"action": "create", "room_mode": "FREESTYLE"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTurnFlow_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	room := env.createRoom(t)

	_, body := env.post(t, "/api/rooms", "", gin.H{"action": "join", "room": room})
	writerID := body["writer_id"].(string)

	w, body := env.post(t, "/api/rooms", admin, gin.H{"action": "next_turn", "room": room, "turn_s": 60})
	require.Equal(t, http.StatusOK, w.Code)
	state := body["state"].(map[string]any)
	assert.NotNil(t, state["turn_ends_at"])

	w, _ = env.post(t, "/api/rooms", admin, gin.H{"action": "pause_turn", "room": room})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = env.post(t, "/api/rooms", admin, gin.H{"action": "resume_turn", "room": room})
	assert.Equal(t, http.StatusOK, w.Code)

	w, body = env.post(t, "/api/rooms", "", gin.H{
		"action":    "submit_text",
		"room":      room,
		"writer_id": writerID,
		"text":      "Once upon a time.",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	state = body["state"].(map[string]any)
	assert.Equal(t, "Once upon a time.", state["story_so_far"])
	assert.Nil(t, state["turn_ends_at"], "submission closes the turn")
}

func TestStatusCodes_ConflictForbiddenGone(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	room := env.createRoom(t)

	// No writers yet: next_turn conflicts.
	w, _ := env.post(t, "/api/rooms", admin, gin.H{"action": "next_turn", "room": room})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Pausing an idle turn conflicts.
	w, _ = env.post(t, "/api/rooms", admin, gin.H{"action": "pause_turn", "room": room})
	assert.Equal(t, http.StatusConflict, w.Code)

	// Submitting out of turn is forbidden.
	_, _ = env.post(t, "/api/rooms", "", gin.H{"action": "join", "room": room})
	_, _ = env.post(t, "/api/rooms", "", gin.H{"action": "join", "room": room})
	_, _ = env.post(t, "/api/rooms", admin, gin.H{"action": "next_turn", "room": room, "turn_s": 60})
	w, _ = env.post(t, "/api/rooms", "", gin.H{
		"action": "submit_text", "room": room, "writer_id": "Writer 1", "text": "cutting in line",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Unknown room is 404.
	w, _ = env.post(t, "/api/rooms", "", gin.H{"action": "get_state", "room": "NOSUCH"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Expired room is 410 on first read, 404 after the purge.
	env.repo.Expire(room)
	w, _ = env.post(t, "/api/rooms", "", gin.H{"action": "get_state", "room": room})
	assert.Equal(t, http.StatusGone, w.Code)
	w, _ = env.post(t, "/api/rooms", "", gin.H{"action": "get_state", "room": room})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRooms(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	env.createRoom(t)
	env.createRoom(t)

	w, body := env.post(t, "/api/rooms", admin, gin.H{"action": "list_rooms"})
	require.Equal(t, http.StatusOK, w.Code)
	rooms := body["rooms"].([]any)
	assert.Len(t, rooms, 2)
}

func TestDeleteRoom_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	admin := env.adminToken(t)
	room := env.createRoom(t)

	w, body := env.post(t, "/api/rooms", admin, gin.H{"action": "delete_room", "room": room})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, room, body["deleted"])

	w, _ = env.post(t, "/api/rooms", admin, gin.H{"action": "delete_room", "room": room})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestClaimInvite_HTTP(t *testing.T) {
	env := newTestEnv(t)
	room := env.createRoom(t)

	// Sign an invite directly with the shared codec.
	now := time.Now()
	tok, err := env.codec.SignInvite(token.InvitePayload{
		Room:        room,
		TTLHours:    4,
		IssuedAt:    now.Unix(),
		ExpiresAt:   now.Add(4 * time.Hour).Unix(),
		TurnSeconds: 60,
		RoomName:    "Period 3",
	})
	require.NoError(t, err)

	w, body := env.post(t, "/api/invites/claim", "", gin.H{"token": tok})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, room, body["room"])
	assert.Equal(t, float64(60), body["turn_s"])

	w, _ = env.post(t, "/api/invites/claim", "", gin.H{"token": "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
