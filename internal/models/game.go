package models

import (
	"time"

	"github.com/google/uuid"
)

// GameStatus is the phase of the per-room state machine.
type GameStatus string

const (
	StatusWaiting       GameStatus = "waiting"
	StatusDealing       GameStatus = "dealing"
	StatusChoosingTrump GameStatus = "choosingTrump"
	StatusTrump         GameStatus = "trump"
	StatusBid           GameStatus = "bid"
	StatusPlaying       GameStatus = "playing"
	StatusFinished      GameStatus = "finished"
)

// GameType selects the match variant.
type GameType string

const (
	// GameClassic plays 24 hands of 1..8, 9, 8..1, 9 cards.
	GameClassic GameType = "classic"
	// GameNines plays 16 hands of 9 cards.
	GameNines GameType = "nines"
)

// Valid reports whether t is a known match variant.
func (t GameType) Valid() bool {
	return t == GameClassic || t == GameNines
}

// Trump is the trump decision for the current hand.
// A drawn joker or a chosen "pass" leaves Suit empty, meaning no trump.
type Trump struct {
	Card   *Card `json:"card,omitempty"`
	Suit   Suit  `json:"suit,omitempty"`
	Chosen bool  `json:"chosen"`
}

// HandRecord is one value (bid, win or points) recorded for a hand.
type HandRecord struct {
	GameHand   int `json:"gameHand"`
	HandNumber int `json:"handNumber"`
	Value      int `json:"value"`
}

// PlayerHistory is the per-player list of HandRecords, at most one per HandNumber.
type PlayerHistory struct {
	PlayerID uuid.UUID    `json:"playerId"`
	Records  []HandRecord `json:"records"`
}

// Game is the full per-room aggregate persisted in the store.
type Game struct {
	ID     uuid.UUID `json:"id"`
	RoomID uuid.UUID `json:"roomId"`
	Type   GameType  `json:"type"`
	Hisht  int       `json:"hisht"`

	Status          GameStatus  `json:"status"`
	Players         []uuid.UUID `json:"players"`
	DealerID        uuid.UUID   `json:"dealerId"`
	CurrentPlayerID uuid.UUID   `json:"currentPlayerId"`
	CurrentHand     int         `json:"currentHand"`
	HandCount       int         `json:"handCount"`
	Trump           *Trump      `json:"trump,omitempty"`

	Hands           map[uuid.UUID][]Card `json:"hands,omitempty"`
	HandSizes       map[uuid.UUID]int    `json:"handSizes,omitempty"`
	PlayedCards     []PlayedCard         `json:"playedCards"`
	LastPlayedCards []PlayedCard         `json:"lastPlayedCards"`

	HandBids   []PlayerHistory `json:"handBids"`
	HandWins   []PlayerHistory `json:"handWins"`
	HandPoints []PlayerHistory `json:"handPoints"`
	ScoreBoard []ScoreBoardRow `json:"scoreBoard"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TrumpSuit returns the trump suit of the hand, or "" when there is none.
func (g *Game) TrumpSuit() Suit {
	if g.Trump == nil {
		return ""
	}
	return g.Trump.Suit
}

// Seat returns the index of playerID in the seat order, or -1.
func (g *Game) Seat(playerID uuid.UUID) int {
	for i, p := range g.Players {
		if p == playerID {
			return i
		}
	}
	return -1
}

// NextPlayer returns the player seated after playerID.
func (g *Game) NextPlayer(playerID uuid.UUID) uuid.UUID {
	if len(g.Players) == 0 {
		return uuid.Nil
	}
	i := g.Seat(playerID)
	if i < 0 {
		return g.Players[0]
	}
	return g.Players[(i+1)%len(g.Players)]
}

// PreviousPlayer returns the player seated before playerID.
func (g *Game) PreviousPlayer(playerID uuid.UUID) uuid.UUID {
	if len(g.Players) == 0 {
		return uuid.Nil
	}
	i := g.Seat(playerID)
	if i < 0 {
		return g.Players[len(g.Players)-1]
	}
	return g.Players[(i-1+len(g.Players))%len(g.Players)]
}

// HandsDealt reports whether any cards are currently dealt.
func (g *Game) HandsDealt() bool {
	return len(g.Hands) > 0
}

// Lookup returns the record for handNumber in the player's history.
func Lookup(histories []PlayerHistory, playerID uuid.UUID, handNumber int) (int, bool) {
	for _, h := range histories {
		if h.PlayerID != playerID {
			continue
		}
		for _, r := range h.Records {
			if r.HandNumber == handNumber {
				return r.Value, true
			}
		}
	}
	return 0, false
}

// Upsert writes value for (playerID, handNumber), overwriting an existing entry.
func Upsert(histories []PlayerHistory, playerID uuid.UUID, gameHand, handNumber, value int) []PlayerHistory {
	for i := range histories {
		if histories[i].PlayerID != playerID {
			continue
		}
		for j := range histories[i].Records {
			if histories[i].Records[j].HandNumber == handNumber {
				histories[i].Records[j].Value = value
				histories[i].Records[j].GameHand = gameHand
				return histories
			}
		}
		histories[i].Records = append(histories[i].Records, HandRecord{GameHand: gameHand, HandNumber: handNumber, Value: value})
		return histories
	}
	return append(histories, PlayerHistory{
		PlayerID: playerID,
		Records:  []HandRecord{{GameHand: gameHand, HandNumber: handNumber, Value: value}},
	})
}

// RedactFor returns a shallow copy of the game in which only viewer's hand is
// visible. Other hands are reduced to their sizes.
func (g *Game) RedactFor(viewer uuid.UUID) *Game {
	cp := *g
	cp.Hands = nil
	cp.HandSizes = nil
	if len(g.Hands) > 0 {
		cp.Hands = make(map[uuid.UUID][]Card, 1)
		cp.HandSizes = make(map[uuid.UUID]int, len(g.Hands))
		for pid, hand := range g.Hands {
			cp.HandSizes[pid] = len(hand)
			if pid == viewer {
				cp.Hands[pid] = hand
			}
		}
	}
	return &cp
}
