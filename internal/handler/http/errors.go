package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"collaborative-story/internal/service"
)

// HandleServiceError maps business errors to HTTP status codes in one
// place: 400 validation, 401 auth, 403 forbidden, 404 not found, 409
// conflict, 410 gone, 500 everything else.
func HandleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		ErrorResponse(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrNotYourTurn):
		ErrorResponse(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrRoomNotFound):
		ErrorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNoWriters),
		errors.Is(err, service.ErrTurnNotActive),
		errors.Is(err, service.ErrTurnNotPaused),
		errors.Is(err, service.ErrConcurrentUpdate):
		ErrorResponse(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrRoomExpired):
		ErrorResponse(c, http.StatusGone, err.Error())
	default:
		logrus.WithError(err).Error("Unhandled internal server error")
		ErrorResponse(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
