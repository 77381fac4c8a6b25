package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-story/internal/service"
)

// InviteHandler serves the one-shot invite pair: admin creates a signed
// invite link, participants claim it to discover the room.
type InviteHandler struct {
	roomService *service.RoomService
}

// NewInviteHandler creates an InviteHandler.
func NewInviteHandler(roomService *service.RoomService) *InviteHandler {
	return &InviteHandler{roomService: roomService}
}

type createInviteRequest struct {
	Room        string `json:"room" binding:"required"`
	TTLHours    int    `json:"ttl_h"`
	TurnSeconds int    `json:"turn_s"`
}

// Create handles POST /api/invites (admin, behind the auth middleware).
func (h *InviteHandler) Create(c *gin.Context) {
	var req createInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logrus.WithError(err).Warn("Handler.CreateInvite: invalid input")
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: room is required")
		return
	}
	tok, link, err := h.roomService.CreateInvite(c.Request.Context(), req.Room, req.TTLHours, req.TurnSeconds)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OKResponse(c, http.StatusOK, gin.H{
		"token": tok,
		"link":  link,
	})
}

type claimInviteRequest struct {
	Token string `json:"token" binding:"required"`
}

// Claim handles POST /api/invites/claim (public). Claiming does not consume
// the token; it stays redeemable until its own expiry.
func (h *InviteHandler) Claim(c *gin.Context) {
	var req claimInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid input: token is required")
		return
	}
	payload, err := h.roomService.ClaimInvite(c.Request.Context(), req.Token)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	OKResponse(c, http.StatusOK, gin.H{
		"room":      payload.Room,
		"turn_s":    payload.TurnSeconds,
		"room_name": payload.RoomName,
	})
}
