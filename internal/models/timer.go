package models

import (
	"time"

	"github.com/google/uuid"
)

// TimerType identifies the decision a timer is waiting on.
type TimerType string

const (
	TimerBid     TimerType = "bid"
	TimerPlaying TimerType = "playing"
	TimerTrump   TimerType = "trump"
	// TimerGeneral is a room-level timer, e.g. the deal animation.
	TimerGeneral TimerType = "general"
)

// TimerTypeFor maps an actionable status to the timer type guarding it.
func TimerTypeFor(s GameStatus) (TimerType, bool) {
	switch s {
	case StatusBid:
		return TimerBid, true
	case StatusPlaying:
		return TimerPlaying, true
	case StatusChoosingTrump:
		return TimerTrump, true
	}
	return "", false
}

// GameTimer is an in-memory countdown. PlayerID is uuid.Nil for room-level timers.
type GameTimer struct {
	RoomID    uuid.UUID     `json:"roomId"`
	PlayerID  uuid.UUID     `json:"playerId,omitempty"`
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`
	Type      TimerType     `json:"type"`
	IsActive  bool          `json:"isActive"`
}

// Remaining returns the time left at now, zero once expired or inactive.
func (t GameTimer) Remaining(now time.Time) time.Duration {
	if !t.IsActive {
		return 0
	}
	left := t.Duration - now.Sub(t.StartTime)
	if left < 0 {
		return 0
	}
	return left
}
