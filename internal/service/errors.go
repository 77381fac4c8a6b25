package service

import "errors"

// Business errors. The HTTP layer maps each to exactly one status code.
var (
	ErrValidation           = errors.New("invalid input")                                      // 400
	ErrAuthenticationFailed = errors.New("authentication failed")                              // 401
	ErrNotYourTurn          = errors.New("not your turn")                                      // 403
	ErrRoomNotFound         = errors.New("room not found")                                     // 404
	ErrNoWriters            = errors.New("no writers have joined the room")                    // 409
	ErrTurnNotActive        = errors.New("no turn is currently active")                        // 409
	ErrTurnNotPaused        = errors.New("turn is not paused")                                 // 409
	ErrConcurrentUpdate     = errors.New("room was modified concurrently, retry the request")  // 409
	ErrRoomExpired          = errors.New("room expired")                                       // 410
	ErrInternalServer       = errors.New("internal server error")                              // 500
)
