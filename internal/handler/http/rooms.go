package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"

	"collaborative-story/internal/domain"
	"collaborative-story/internal/middleware"
	"collaborative-story/internal/service"
	"collaborative-story/internal/token"
)

// RoomHandler serves the single action-dispatch endpoint for rooms. Each
// action string selects one typed request struct that is bound and
// validated before the coordinator is called; admin-only actions are
// checked against the bearer token per request.
type RoomHandler struct {
	roomService *service.RoomService
	codec       *token.Codec
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(roomService *service.RoomService, codec *token.Codec) *RoomHandler {
	return &RoomHandler{roomService: roomService, codec: codec}
}

// adminActions is the allowlist of actions requiring an admin session.
var adminActions = map[string]bool{
	"create":      true,
	"next_turn":   true,
	"pause_turn":  true,
	"resume_turn": true,
	"stop_turn":   true,
	"room_patch":  true,
	"list_rooms":  true,
	"delete_room": true,
}

type actionEnvelope struct {
	Action string `json:"action" binding:"required"`
}

type createRoomRequest struct {
	Action        string `json:"action"`
	TTLHours      int    `json:"ttl_h"`
	RoomMode      string `json:"room_mode" binding:"required"`
	RoomName      string `json:"room_name"`
	ActivityTitle string `json:"activity_title"`
	PromptSeed    string `json:"prompt_seed"`
}

type roomCodeRequest struct {
	Action string `json:"action"`
	Room   string `json:"room" binding:"required"`
}

type nextTurnRequest struct {
	Action      string `json:"action"`
	Room        string `json:"room" binding:"required"`
	TurnSeconds int    `json:"turn_s"`
}

type submitTextRequest struct {
	Action   string `json:"action"`
	Room     string `json:"room" binding:"required"`
	WriterID string `json:"writer_id" binding:"required"`
	Text     string `json:"text" binding:"required"`
}

type roomPatchRequest struct {
	Action     string `json:"action"`
	Room       string `json:"room" binding:"required"`
	PromptSeed string `json:"prompt_seed" binding:"max=600"`
}

// HandleAction dispatches POST /api/rooms.
func (h *RoomHandler) HandleAction(c *gin.Context) {
	var env actionEnvelope
	if err := c.ShouldBindBodyWith(&env, binding.JSON); err != nil {
		logrus.WithError(err).Warn("Handler.Rooms: missing or invalid action field")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: action is required")
		return
	}

	if adminActions[env.Action] {
		tokenStr, err := middleware.BearerToken(c)
		if err != nil {
			ErrorResponse(c, http.StatusUnauthorized, "Authorization header with Bearer token is required")
			return
		}
		if _, err := h.codec.VerifyAdmin(tokenStr, token.RoleAdmin); err != nil {
			logrus.WithField("action", env.Action).Warn("Handler.Rooms: rejected admin action")
			ErrorResponse(c, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
	}

	switch env.Action {
	case "create":
		h.create(c)
	case "join":
		h.join(c)
	case "next_turn":
		h.nextTurn(c)
	case "pause_turn":
		h.turnTransition(c, h.roomService.PauseTurn)
	case "resume_turn":
		h.turnTransition(c, h.roomService.ResumeTurn)
	case "stop_turn":
		h.turnTransition(c, h.roomService.StopTurn)
	case "submit_text":
		h.submitText(c)
	case "room_patch":
		h.patch(c)
	case "get_state":
		h.getState(c)
	case "list_rooms":
		h.listRooms(c)
	case "delete_room":
		h.deleteRoom(c)
	default:
		ErrorResponse(c, http.StatusBadRequest, "Unknown action: "+env.Action)
	}
}

func (h *RoomHandler) create(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: room_mode is required")
		return
	}
	state, err := h.roomService.CreateRoom(c.Request.Context(), service.CreateRoomInput{
		TTLHours:      req.TTLHours,
		RoomMode:      domain.RoomMode(req.RoomMode),
		RoomName:      req.RoomName,
		ActivityTitle: req.ActivityTitle,
		PromptSeed:    req.PromptSeed,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OKResponse(c, http.StatusOK, gin.H{
		"room":       state.RoomCode,
		"expires_at": state.ExpiresAt,
		"state":      state,
	})
}

func (h *RoomHandler) join(c *gin.Context) {
	var req roomCodeRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: room is required")
		return
	}
	writerID, state, err := h.roomService.Join(c.Request.Context(), req.Room)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OKResponse(c, http.StatusOK, gin.H{
		"writer_id": writerID,
		"state":     state,
	})
}

func (h *RoomHandler) nextTurn(c *gin.Context) {
	var req nextTurnRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: room is required")
		return
	}
	state, err := h.roomService.NextTurn(c.Request.Context(), req.Room, req.TurnSeconds)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OKResponse(c, http.StatusOK, gin.H{"state": state})
}

func (h *RoomHandler) turnTransition(c *gin.Context, op func(ctx context.Context, roomCode string) (*domain.RoomState, error)) {
	var req roomCodeRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: room is required")
		return
	}
	state, err := op(c.Request.Context(), req.Room)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OKResponse(c, http.StatusOK, gin.H{"state": state})
}

func (h *RoomHandler) submitText(c *gin.Context) {
	var req submitTextRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: room, writer_id and text are required")
		return
	}
	state, err := h.roomService.SubmitText(c.Request.Context(), req.Room, req.WriterID, req.Text)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OKResponse(c, http.StatusOK, gin.H{"state": state})
}

func (h *RoomHandler) patch(c *gin.Context) {
	var req roomPatchRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: room is required, prompt_seed at most 600 chars")
		return
	}
	state, err := h.roomService.PatchRoom(c.Request.Context(), req.Room, req.PromptSeed)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OKResponse(c, http.StatusOK, gin.H{"state": state})
}

func (h *RoomHandler) getState(c *gin.Context) {
	var req roomCodeRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: room is required")
		return
	}
	state, err := h.roomService.GetState(c.Request.Context(), req.Room)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OKResponse(c, http.StatusOK, gin.H{"state": state})
}

func (h *RoomHandler) listRooms(c *gin.Context) {
	summaries, err := h.roomService.ListRooms(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OKResponse(c, http.StatusOK, gin.H{"rooms": summaries})
}

func (h *RoomHandler) deleteRoom(c *gin.Context) {
	var req roomCodeRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: room is required")
		return
	}
	if err := h.roomService.DeleteRoom(c.Request.Context(), req.Room); err != nil {
		HandleServiceError(c, err)
		return
	}
	OKResponse(c, http.StatusOK, gin.H{"deleted": req.Room})
}
