package game

import (
	"fmt"
	"math/rand"

	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
)

// DeckSize is the number of cards in a Joker deck.
const DeckSize = 36

// NewDeck builds the 36-card deck: four suits of 6..A without the 6 of clubs
// and the 6 of spades, plus a black and a red joker. Every card gets a fresh id.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for _, s := range models.Suits {
		for _, r := range models.Ranks {
			if r == models.Rank6 && (s == models.SuitClubs || s == models.SuitSpades) {
				continue
			}
			deck = append(deck, models.NewSuitedCard(s, r))
		}
	}
	deck = append(deck, models.NewJoker("black"), models.NewJoker("red"))
	return deck
}

// Shuffle permutes deck in place with Fisher-Yates. A nil rng uses the global source.
func Shuffle(deck []models.Card, rng *rand.Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		j := intn(rng, i+1)
		deck[i], deck[j] = deck[j], deck[i]
	}
}

func intn(rng *rand.Rand, n int) int {
	if rng == nil {
		return rand.Intn(n)
	}
	return rng.Intn(n)
}

// DealCards deals n cards to each player in player order from one freshly
// shuffled deck. Leftover cards are discarded.
func DealCards(players []uuid.UUID, n int, rng *rand.Rand) (map[uuid.UUID][]models.Card, error) {
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}
	if n < 0 || n*len(players) > DeckSize {
		return nil, fmt.Errorf("%w: %d cards for %d players", ErrDeckExhausted, n, len(players))
	}

	deck := NewDeck()
	Shuffle(deck, rng)

	hands := make(map[uuid.UUID][]models.Card, len(players))
	for i, pid := range players {
		hand := make([]models.Card, n)
		copy(hand, deck[i*n:(i+1)*n])
		hands[pid] = hand
	}
	return hands, nil
}

// DealerReveal is the outcome of dealer determination plus the draw sequence
// used to replay it to observers.
type DealerReveal struct {
	DealerID uuid.UUID           `json:"dealerId"`
	Sequence []models.RevealStep `json:"sequence"`
}

// DetermineDealer has the players draw in turn from a fresh shuffled deck until
// someone draws an Ace. That player deals.
func DetermineDealer(players []uuid.UUID, rng *rand.Rand) (DealerReveal, error) {
	if len(players) == 0 {
		return DealerReveal{}, ErrNoPlayers
	}

	deck := NewDeck()
	Shuffle(deck, rng)

	var reveal DealerReveal
	seen := make(map[uuid.UUID]struct{}, len(deck))
	turn := 0
	for _, card := range deck {
		if _, dup := seen[card.ID]; dup {
			continue
		}
		seen[card.ID] = struct{}{}

		pid := players[turn]
		shown := card
		shown.ID = uuid.New()
		reveal.Sequence = append(reveal.Sequence, models.RevealStep{PlayerID: pid, Card: shown})

		if card.Kind == models.KindSuited && card.Rank == models.RankAce {
			reveal.DealerID = pid
			return reveal, nil
		}
		turn = (turn + 1) % len(players)
	}

	// Unreachable with a full deck; fall back to the first seat.
	reveal.DealerID = players[0]
	return reveal, nil
}

// Remaining returns the cards of a fresh deck that are not held in hands.
// Cards are matched by face rather than id, and each dealt joker removes one joker.
func Remaining(hands map[uuid.UUID][]models.Card) []models.Card {
	dealtFaces := make(map[string]struct{})
	jokers := 0
	for _, hand := range hands {
		for _, c := range hand {
			if c.IsJoker() {
				jokers++
				continue
			}
			dealtFaces[string(c.Suit)+"-"+string(c.Rank)] = struct{}{}
		}
	}

	var rest []models.Card
	for _, c := range NewDeck() {
		if c.IsJoker() {
			if jokers > 0 {
				jokers--
				continue
			}
			rest = append(rest, c)
			continue
		}
		if _, dealt := dealtFaces[string(c.Suit)+"-"+string(c.Rank)]; dealt {
			continue
		}
		rest = append(rest, c)
	}
	return rest
}

// DrawTrump draws the trump card from the cards not already dealt.
// An empty remainder yields ErrDeckExhausted.
func DrawTrump(hands map[uuid.UUID][]models.Card, rng *rand.Rand) (*models.Trump, error) {
	rest := Remaining(hands)
	if len(rest) == 0 {
		return nil, ErrDeckExhausted
	}
	Shuffle(rest, rng)
	card := rest[len(rest)-1]

	trump := &models.Trump{Card: &card}
	if !card.IsJoker() {
		trump.Suit = card.Suit
	}
	return trump, nil
}

// DealRemainingToNine tops every hand up to nine cards from the undealt
// remainder, one card at a time in seat order starting after the dealer.
// It returns the cards each player received.
func DealRemainingToNine(g *models.Game, rng *rand.Rand) (map[uuid.UUID][]models.Card, error) {
	if len(g.Players) == 0 {
		return nil, ErrNoPlayers
	}

	rest := Remaining(g.Hands)
	Shuffle(rest, rng)

	need := 0
	for _, pid := range g.Players {
		if missing := NineCardHand - len(g.Hands[pid]); missing > 0 {
			need += missing
		}
	}
	if need > len(rest) {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrDeckExhausted, need, len(rest))
	}

	order := make([]uuid.UUID, 0, len(g.Players))
	start := g.Seat(g.DealerID) + 1
	for i := 0; i < len(g.Players); i++ {
		order = append(order, g.Players[(start+i)%len(g.Players)])
	}

	if g.Hands == nil {
		g.Hands = make(map[uuid.UUID][]models.Card, len(g.Players))
	}
	received := make(map[uuid.UUID][]models.Card, len(g.Players))
	for need > 0 {
		for _, pid := range order {
			if len(g.Hands[pid]) >= NineCardHand {
				continue
			}
			next := rest[0]
			rest = rest[1:]
			g.Hands[pid] = append(g.Hands[pid], next)
			received[pid] = append(received[pid], next)
			need--
		}
	}
	return received, nil
}
