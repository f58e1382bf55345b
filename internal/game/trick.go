package game

import "github.com/Luka-CB/card-game-server/internal/models"

// TrickSize is the number of cards in a complete trick.
const TrickSize = 4

// DetermineTrickWinner resolves a complete trick under the trump and joker rules.
// played must hold exactly four cards in play order; trump may be empty.
func DetermineTrickWinner(played []models.PlayedCard, trump models.Suit) (models.PlayedCard, error) {
	if len(played) != TrickSize {
		return models.PlayedCard{}, ErrIncompleteTrick
	}
	lead := played[0]

	// A later "need" joker overrides everything, the last one played wins.
	if i := lastNeedJoker(played); i > 0 {
		return played[i], nil
	}

	if lead.Card.IsJoker() && lead.Card.Play == models.JokerNeed {
		if trump != "" && lead.Card.RequestedSuit == trump {
			return lead, nil
		}
		if best, ok := highestOfSuit(played, trump, -1); ok {
			return best, nil
		}
		return lead, nil
	}

	leadSuit := lead.Card.Suit
	if lead.Card.IsJoker() {
		leadSuit = lead.Card.RequestedSuit
	}

	// A "takes" lead forces the suit but cannot win the trick itself.
	excluded := -1
	if lead.Card.IsJoker() && lead.Card.Play == models.JokerTakes {
		excluded = 0
	}

	if best, ok := highestOfSuit(played, trump, excluded); ok {
		return best, nil
	}
	if best, ok := highestOfSuit(played, leadSuit, excluded); ok {
		return best, nil
	}
	return lead, nil
}

func lastNeedJoker(played []models.PlayedCard) int {
	last := -1
	for i := 1; i < len(played); i++ {
		c := played[i].Card
		if c.IsJoker() && c.Play == models.JokerNeed {
			last = i
		}
	}
	return last
}

// highestOfSuit picks the strongest card of suit s, skipping index excluded.
// Jokers never carry a suit, so "pass" jokers are never contenders here.
func highestOfSuit(played []models.PlayedCard, s models.Suit, excluded int) (models.PlayedCard, bool) {
	if s == "" {
		return models.PlayedCard{}, false
	}
	best := -1
	for i, pc := range played {
		if i == excluded || !pc.Card.IsSuit(s) {
			continue
		}
		if best < 0 || pc.Card.Strength > played[best].Card.Strength {
			best = i
		}
	}
	if best < 0 {
		return models.PlayedCard{}, false
	}
	return played[best], true
}
