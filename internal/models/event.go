package models

import "github.com/google/uuid"

// EventType names a server-to-client event.
type EventType string

const (
	EventGameState           EventType = "game_state"
	EventTrickWinner         EventType = "trick_winner"
	EventDealCards           EventType = "deal_cards"
	EventDealerRevealPrepare EventType = "dealer_reveal_prepare"
	EventDealerRevealStep    EventType = "dealer_reveal_step"
	EventDealerRevealDone    EventType = "dealer_reveal_done"
	EventTimerStarted        EventType = "timer_started"
	EventTimerExpired        EventType = "timer_expired"
	EventBotPlayedCard       EventType = "bot_played_card"
	EventRoomDestroyed       EventType = "room_destroyed"
	EventRoomState           EventType = "room_state"
	EventRooms               EventType = "rooms"
	EventError               EventType = "error"
	EventPong                EventType = "pong"
)

// Event is a logical event routed to a room or a single player.
type Event struct {
	Type    EventType   `json:"type"`
	RoomID  uuid.UUID   `json:"roomId"`
	Payload interface{} `json:"payload,omitempty"`
}

// DealPayload tells a player which cards they received.
type DealPayload struct {
	PlayerID uuid.UUID `json:"playerId"`
	Hand     []Card    `json:"hand"`
	Round    int       `json:"round"`
}

// RevealStep is one card drawn during dealer determination.
type RevealStep struct {
	PlayerID uuid.UUID `json:"targetPlayerId"`
	Card     Card      `json:"card"`
}

// TimerPayload accompanies timer_started and timer_expired.
type TimerPayload struct {
	Timer         GameTimer `json:"timer"`
	RemainingTime float64   `json:"remainingTime"`
}

// TrickWinnerPayload announces the resolved trick.
type TrickWinnerPayload struct {
	PlayerID uuid.UUID    `json:"winnerId"`
	Card     Card         `json:"card"`
	Trick    []PlayedCard `json:"trick"`
}

// RevealDonePayload closes the dealer reveal.
type RevealDonePayload struct {
	DealerID uuid.UUID `json:"dealerId"`
}
