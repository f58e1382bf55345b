package flow

import "errors"

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomNotFull   = errors.New("room is not full")
	ErrRoomBusy      = errors.New("room is busy, try again")
	ErrStateMismatch = errors.New("game state does not match the request")

	// errStaleTimer marks a timer whose player or phase has moved on.
	errStaleTimer = errors.New("stale timer")
)
