package bot

import (
	"math"

	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/models"
)

// Heuristic is the rule-based Brain used for timed-out players.
type Heuristic struct{}

var _ Brain = Heuristic{}

// chainOrder is rank order from the top, used for A, AK, AKQ... chains.
var chainOrder = []models.Rank{
	models.RankAce, models.RankKing, models.RankQueen, models.RankJack,
	models.Rank10, models.Rank9, models.Rank8, models.Rank7, models.Rank6,
}

// strength ranks cards for the bot: jokers above trumps above the rest.
func strength(c models.Card, trump models.Suit) int {
	switch {
	case c.IsJoker():
		return 100
	case c.IsSuit(trump):
		return 50 + c.Strength
	}
	return c.Strength
}

func ofSuit(hand []models.Card, s models.Suit) []models.Card {
	var out []models.Card
	for _, c := range hand {
		if c.IsSuit(s) {
			out = append(out, c)
		}
	}
	return out
}

func jokers(hand []models.Card) []models.Card {
	var out []models.Card
	for _, c := range hand {
		if c.IsJoker() {
			out = append(out, c)
		}
	}
	return out
}

func plain(hand []models.Card, trump models.Suit) []models.Card {
	var out []models.Card
	for _, c := range hand {
		if !c.IsJoker() && !c.IsSuit(trump) {
			out = append(out, c)
		}
	}
	return out
}

func chainLen(cards []models.Card) int {
	held := make(map[models.Rank]bool, len(cards))
	for _, c := range cards {
		held[c.Rank] = true
	}
	n := 0
	for _, r := range chainOrder {
		if !held[r] {
			break
		}
		n++
	}
	return n
}

// Bid estimates how many tricks the hand can take.
func (Heuristic) Bid(hand []models.Card, v View) int {
	handSize := v.HandSize
	trump := v.Trump
	jokerCount := len(jokers(hand))
	trumps := ofSuit(hand, trump)

	var jokerPot, trumpPot, plainPot float64
	jokerPot = float64(jokerCount)

	if trump == "" {
		aces := 0
		for _, c := range hand {
			if !c.IsJoker() && c.Rank == models.RankAce {
				aces++
			}
		}

		switch {
		case jokerCount >= 2:
			plainPot += float64(jokerCount + aces)
			for _, s := range models.Suits {
				cards := ofSuit(hand, s)
				if n := chainLen(cards); n >= 2 {
					plainPot += float64(n - 1)
				} else if len(cards) >= 5 {
					plainPot += 1.5
				}
			}
		case jokerCount == 1:
			if aces >= 2 {
				plainPot += float64(aces)
			} else if aces == 1 {
				plainPot += 0.8
			}
			for _, s := range models.Suits {
				cards := ofSuit(hand, s)
				if n := chainLen(cards); n >= 3 {
					plainPot += float64(n - 1)
				} else if n == 2 {
					plainPot += 0.8
				}
				if len(cards) >= 5 {
					plainPot += 1.0
				}
			}
		default:
			if aces >= 2 {
				plainPot += float64(aces - 1)
			} else if aces == 1 {
				plainPot += 0.3
			}
			for _, s := range models.Suits {
				switch n := chainLen(ofSuit(hand, s)); {
				case n >= 4:
					plainPot += 2.0
				case n == 3:
					plainPot += 1.0
				case n == 2:
					plainPot += 0.4
				}
			}
		}
	} else {
		for _, c := range trumps {
			switch c.Rank {
			case models.RankAce, models.RankKing:
				trumpPot += 1.0
			case models.RankQueen, models.RankJack:
				trumpPot += 0.7
			default:
				trumpPot += 0.35
			}
		}
		if len(trumps) >= 3 {
			trumpPot += 0.4
		}

		for _, s := range models.Suits {
			if s == trump {
				continue
			}
			switch n := chainLen(ofSuit(hand, s)); {
			case n == 0:
			case n >= 3:
				plainPot += 1.0
			case n == 2:
				if jokerCount > 0 || len(trumps) >= 2 {
					plainPot += 0.9
				} else {
					plainPot += 0.25
				}
			default:
				if jokerCount > 0 && len(trumps) >= 2 {
					plainPot += 0.25
				}
			}
		}

		if len(trumps) == 0 && jokerCount == 0 {
			plainPot *= 0.6
		}
	}

	bid := int(math.Floor(jokerPot + trumpPot + plainPot))
	bid = clamp(bid, 0, handSize)

	if handSize == 1 {
		switch {
		case jokerCount > 0:
			bid = 1
		case trump != "" && trumpPot >= 0.9:
			bid = 1
		case len(hand) > 0 && !hand[0].IsJoker() && !hand[0].IsSuit(trump) && hand[0].Rank == models.RankAce:
			bid = 1
		}
	}

	if forbidden, ok := v.forbiddenBid(); ok {
		bid = game.NearestLegalBid(bid, forbidden, handSize)
	}
	return clamp(bid, 0, handSize)
}

// PlayCard picks a card; jokers come back annotated.
func (Heuristic) PlayCard(hand []models.Card, v View) (models.Card, error) {
	if len(hand) == 0 {
		return models.Card{}, ErrEmptyHand
	}
	need := v.Bids[v.PlayerID] - v.Wins[v.PlayerID]
	if len(v.Played) == 0 {
		return playFirst(hand, v.Trump, need), nil
	}
	return playFollowing(hand, v.Played, v.Trump, need), nil
}

func playFirst(hand []models.Card, trump models.Suit, need int) models.Card {
	js := jokers(hand)

	if need > 0 {
		if len(js) > 0 {
			return js[0].Annotate(models.JokerNeed, requestedSuitNeed(hand, trump))
		}
		if trumps := ofSuit(hand, trump); len(trumps) > 0 {
			return strongest(trumps, trump)
		}
		return strongest(hand, trump)
	}

	if len(js) > 0 {
		return js[0].Annotate(models.JokerTakes, requestedSuitTakes(hand))
	}
	if rest := plain(hand, trump); len(rest) > 0 {
		return weakest(rest, trump)
	}
	return weakest(hand, trump)
}

func playFollowing(hand []models.Card, played []models.PlayedCard, trump models.Suit, need int) models.Card {
	met := need <= 0
	js := jokers(hand)
	trumps := ofSuit(hand, trump)
	lead := played[0].Card
	toBeat := strength(currentWinner(played, trump), trump)

	if lead.IsJoker() && lead.RequestedSuit.Valid() {
		requested := ofSuit(hand, lead.RequestedSuit)
		switch {
		case len(requested) > 0:
			if met {
				if safe := below(requested, toBeat, trump); len(safe) > 0 {
					return strongest(safe, trump)
				}
			}
			return strongest(requested, trump)
		case len(trumps) > 0:
			if met {
				return strongest(trumps, trump)
			}
			return weakest(trumps, trump)
		case len(js) > 0:
			if need > 0 {
				return js[0].Annotate(models.JokerNeed, "")
			}
			return js[0].Annotate(models.JokerPass, "")
		case met:
			return strongest(hand, trump)
		}
		return weakest(hand, trump)
	}

	leadSuit := leadSuitOf(lead, trump)
	if follow := ofSuit(hand, leadSuit); leadSuit != "" && len(follow) > 0 {
		if need > 0 {
			if c, ok := cheapestWinner(follow, toBeat, trump); ok {
				return c
			}
			if len(js) > 0 && len(hand) <= need {
				return js[0].Annotate(models.JokerNeed, "")
			}
			return weakest(follow, trump)
		}
		if len(js) > 0 {
			return js[0].Annotate(models.JokerPass, "")
		}
		if safe := below(follow, toBeat, trump); len(safe) > 0 {
			return strongest(safe, trump)
		}
		return strongest(follow, trump)
	}

	if met {
		if rest := plain(hand, trump); len(rest) > 0 {
			return strongest(rest, trump)
		}
		if len(trumps) > 0 {
			return strongest(trumps, trump)
		}
		if len(js) > 0 {
			return js[0].Annotate(models.JokerPass, "")
		}
		return strongest(hand, trump)
	}

	if c, ok := cheapestWinner(trumps, toBeat, trump); ok {
		return c
	}
	if len(js) > 0 {
		return js[0].Annotate(models.JokerNeed, "")
	}
	if len(trumps) > 0 {
		return strongest(trumps, trump)
	}
	return weakest(hand, trump)
}

// leadSuitOf is empty for a joker or trump lead: neither can be followed
// with plain cards.
func leadSuitOf(lead models.Card, trump models.Suit) models.Suit {
	if lead.IsJoker() || lead.IsSuit(trump) {
		return ""
	}
	return lead.Suit
}

// currentWinner approximates the trick leader by bot strength alone.
func currentWinner(played []models.PlayedCard, trump models.Suit) models.Card {
	best := played[0].Card
	for _, pc := range played[1:] {
		if strength(pc.Card, trump) > strength(best, trump) {
			best = pc.Card
		}
	}
	return best
}

func requestedSuitNeed(hand []models.Card, trump models.Suit) models.Suit {
	if trump.Valid() {
		return trump
	}
	best, score := models.Suits[0], -1
	for _, s := range models.Suits {
		for _, c := range ofSuit(hand, s) {
			if st := strength(c, trump); st > score {
				best, score = s, st
			}
		}
	}
	return best
}

func requestedSuitTakes(hand []models.Card) models.Suit {
	best, fewest := models.Suits[0], math.MaxInt
	for _, s := range models.Suits {
		if n := len(ofSuit(hand, s)); n < fewest {
			best, fewest = s, n
		}
	}
	return best
}

func below(cards []models.Card, limit int, trump models.Suit) []models.Card {
	var out []models.Card
	for _, c := range cards {
		if strength(c, trump) < limit {
			out = append(out, c)
		}
	}
	return out
}

func cheapestWinner(cards []models.Card, toBeat int, trump models.Suit) (models.Card, bool) {
	var winners []models.Card
	for _, c := range cards {
		if strength(c, trump) > toBeat {
			winners = append(winners, c)
		}
	}
	if len(winners) == 0 {
		return models.Card{}, false
	}
	return weakest(winners, trump), true
}

func weakest(cards []models.Card, trump models.Suit) models.Card {
	w := cards[0]
	for _, c := range cards[1:] {
		if strength(c, trump) < strength(w, trump) {
			w = c
		}
	}
	return w
}

func strongest(cards []models.Card, trump models.Suit) models.Card {
	s := cards[0]
	for _, c := range cards[1:] {
		if strength(c, trump) > strength(s, trump) {
			s = c
		}
	}
	return s
}

// ChooseTrump picks trump from the first three cards of a nine-card hand.
func (Heuristic) ChooseTrump(three []models.Card) models.Suit {
	counts := make(map[models.Suit][]models.Card, len(models.Suits))
	jokerCount := 0
	for _, c := range three {
		if c.IsJoker() {
			jokerCount++
			continue
		}
		counts[c.Suit] = append(counts[c.Suit], c)
	}

	for _, s := range models.Suits {
		if len(counts[s]) == 3 {
			return s
		}
	}
	for _, s := range models.Suits {
		if len(counts[s]) == 2 {
			return s
		}
	}
	if jokerCount > 0 {
		for _, s := range models.Suits {
			if len(counts[s]) != 1 {
				continue
			}
			switch counts[s][0].Rank {
			case models.RankAce, models.RankKing, models.RankQueen:
				return s
			}
		}
	}
	return ""
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
