// Package bot decides moves for players whose turn timer ran out.
package bot

import (
	"errors"

	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
)

// ErrEmptyHand is returned when a card is requested from an empty hand.
var ErrEmptyHand = errors.New("bot: no cards in hand")

// View is the publicly known state a bot decides on, seen from PlayerID.
type View struct {
	PlayerID uuid.UUID
	Players  []uuid.UUID
	DealerID uuid.UUID
	HandSize int
	Trump    models.Suit
	Bids     map[uuid.UUID]int
	Wins     map[uuid.UUID]int
	Played   []models.PlayedCard
}

// Brain makes the three decisions a player can be forced to take.
type Brain interface {
	Bid(hand []models.Card, v View) int
	PlayCard(hand []models.Card, v View) (models.Card, error)
	// ChooseTrump returns "" to pass.
	ChooseTrump(three []models.Card) models.Suit
}

// ViewOf builds the view of g for playerID.
func ViewOf(g *models.Game, playerID uuid.UUID) View {
	v := View{
		PlayerID: playerID,
		Players:  append([]uuid.UUID(nil), g.Players...),
		DealerID: g.DealerID,
		HandSize: g.CurrentHand,
		Trump:    g.TrumpSuit(),
		Bids:     game.CurrentBids(g),
		Wins:     make(map[uuid.UUID]int, len(g.Players)),
		Played:   append([]models.PlayedCard(nil), g.PlayedCards...),
	}
	for _, pid := range g.Players {
		if w, ok := models.Lookup(g.HandWins, pid, g.HandCount); ok {
			v.Wins[pid] = w
		}
	}
	return v
}

// forbiddenBid mirrors game.ForbiddenBid for the view's player.
func (v View) forbiddenBid() (int, bool) {
	if v.PlayerID != v.DealerID {
		return 0, false
	}
	sum := 0
	for pid, b := range v.Bids {
		if pid != v.PlayerID {
			sum += b
		}
	}
	f := v.HandSize - sum
	if f < 0 || f > v.HandSize {
		return 0, false
	}
	return f, true
}
