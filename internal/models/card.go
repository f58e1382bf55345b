package models

import (
	"fmt"

	"github.com/google/uuid"
)

// Suit of a non-joker card.
type Suit string

const (
	SuitHearts   Suit = "hearts"
	SuitDiamonds Suit = "diamonds"
	SuitClubs    Suit = "clubs"
	SuitSpades   Suit = "spades"
)

// Suits lists every suit in the fixed order used for deck building and tie-breaks.
var Suits = []Suit{SuitHearts, SuitDiamonds, SuitClubs, SuitSpades}

// Valid reports whether s names one of the four real suits.
func (s Suit) Valid() bool {
	switch s {
	case SuitHearts, SuitDiamonds, SuitClubs, SuitSpades:
		return true
	}
	return false
}

// Rank of a non-joker card.
type Rank string

const (
	Rank6     Rank = "6"
	Rank7     Rank = "7"
	Rank8     Rank = "8"
	Rank9     Rank = "9"
	Rank10    Rank = "10"
	RankJack  Rank = "J"
	RankQueen Rank = "Q"
	RankKing  Rank = "K"
	RankAce   Rank = "A"
)

// Ranks is ordered from weakest to strongest.
var Ranks = []Rank{Rank6, Rank7, Rank8, Rank9, Rank10, RankJack, RankQueen, RankKing, RankAce}

// JokerStrength is the raw strength of both jokers.
const JokerStrength = 10

// Strength returns the fixed ordinal of the rank, 6=1 through A=9.
func (r Rank) Strength() int {
	for i, rr := range Ranks {
		if rr == r {
			return i + 1
		}
	}
	return 0
}

// CardKind discriminates the two card variants.
type CardKind string

const (
	KindSuited CardKind = "suited"
	KindJoker  CardKind = "joker"
)

// JokerPlay is the annotation a player attaches to a joker when playing it.
type JokerPlay string

const (
	JokerNeed  JokerPlay = "need"
	JokerTakes JokerPlay = "takes"
	JokerPass  JokerPlay = "pass"
)

// Valid reports whether p is one of the three joker annotations.
func (p JokerPlay) Valid() bool {
	return p == JokerNeed || p == JokerTakes || p == JokerPass
}

// Card is either a suited card or a joker, distinguished by Kind.
// Suit and Rank are empty for jokers; Color, Play and RequestedSuit are only
// meaningful for jokers.
type Card struct {
	ID       uuid.UUID `json:"id"`
	Kind     CardKind  `json:"kind"`
	Suit     Suit      `json:"suit,omitempty"`
	Rank     Rank      `json:"rank,omitempty"`
	Strength int       `json:"strength"`

	Color         string    `json:"color,omitempty"`
	Play          JokerPlay `json:"type,omitempty"`
	RequestedSuit Suit      `json:"requestedSuit,omitempty"`
}

// NewSuitedCard builds a suited card with a fresh id.
func NewSuitedCard(suit Suit, rank Rank) Card {
	return Card{
		ID:       uuid.New(),
		Kind:     KindSuited,
		Suit:     suit,
		Rank:     rank,
		Strength: rank.Strength(),
	}
}

// NewJoker builds a joker of the given color with a fresh id.
func NewJoker(color string) Card {
	return Card{
		ID:       uuid.New(),
		Kind:     KindJoker,
		Strength: JokerStrength,
		Color:    color,
	}
}

// IsJoker reports whether the card is a joker.
func (c Card) IsJoker() bool {
	return c.Kind == KindJoker
}

// IsSuit reports whether the card is a suited card of suit s. Jokers never match.
func (c Card) IsSuit(s Suit) bool {
	return c.Kind == KindSuited && s != "" && c.Suit == s
}

// SameFace compares cards by identity rather than id: suit and rank for suited
// cards, joker-ness for jokers.
func (c Card) SameFace(o Card) bool {
	switch c.Kind {
	case KindJoker:
		return o.Kind == KindJoker
	case KindSuited:
		return o.Kind == KindSuited && c.Suit == o.Suit && c.Rank == o.Rank
	}
	return false
}

// Annotate returns a copy of a joker carrying the play type and requested suit.
// Suited cards are returned unchanged.
func (c Card) Annotate(play JokerPlay, requested Suit) Card {
	if c.Kind != KindJoker {
		return c
	}
	c.Play = play
	c.RequestedSuit = requested
	return c
}

func (c Card) String() string {
	switch c.Kind {
	case KindJoker:
		if c.Play != "" {
			return fmt.Sprintf("joker(%s,%s:%s)", c.Color, c.Play, c.RequestedSuit)
		}
		return fmt.Sprintf("joker(%s)", c.Color)
	default:
		return fmt.Sprintf("%s of %s", c.Rank, c.Suit)
	}
}

// PlayedCard is one card placed into the current trick.
type PlayedCard struct {
	PlayerID uuid.UUID `json:"playerId"`
	Card     Card      `json:"card"`
}
