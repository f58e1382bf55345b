package game

import (
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
)

// ValidatePlay checks that playerID may play card now and returns the card as
// held in hand, with joker annotations taken from the submitted card.
// Following suit is not enforced.
func ValidatePlay(g *models.Game, playerID uuid.UUID, card models.Card) (models.Card, error) {
	if g.Status != models.StatusPlaying {
		return models.Card{}, ErrWrongPhase
	}
	if g.CurrentPlayerID != playerID {
		return models.Card{}, ErrNotYourTurn
	}

	held, ok := findCard(g.Hands[playerID], card.ID)
	if !ok {
		return models.Card{}, ErrCardNotInHand
	}
	if !held.IsJoker() {
		return held, nil
	}

	if !card.Play.Valid() {
		return models.Card{}, ErrInvalidJokerPlay
	}
	requested := card.RequestedSuit
	if requested != "" && !requested.Valid() {
		return models.Card{}, ErrInvalidSuit
	}
	// Only the lead joker may ask for a suit.
	if len(g.PlayedCards) > 0 {
		requested = ""
	}
	return held.Annotate(card.Play, requested), nil
}

// ApplyPlay moves card from the player's hand into the current trick.
func ApplyPlay(g *models.Game, playerID uuid.UUID, card models.Card) {
	hand := g.Hands[playerID]
	for i, c := range hand {
		if c.ID == card.ID {
			g.Hands[playerID] = append(hand[:i:i], hand[i+1:]...)
			break
		}
	}
	g.PlayedCards = append(g.PlayedCards, models.PlayedCard{PlayerID: playerID, Card: card})
}

// ValidateTrumpChoice checks that playerID may pick trump now. An empty suit
// means "pass".
func ValidateTrumpChoice(g *models.Game, playerID uuid.UUID, suit models.Suit) error {
	if g.Status != models.StatusChoosingTrump {
		return ErrWrongPhase
	}
	if g.CurrentPlayerID != playerID {
		return ErrNotYourTurn
	}
	if g.Trump != nil {
		return ErrTrumpAlreadySet
	}
	if suit != "" && !suit.Valid() {
		return ErrInvalidSuit
	}
	return nil
}

func findCard(hand []models.Card, id uuid.UUID) (models.Card, bool) {
	for _, c := range hand {
		if c.ID == id {
			return c, true
		}
	}
	return models.Card{}, false
}
