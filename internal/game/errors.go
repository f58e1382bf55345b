package game

import "errors"

var (
	// ErrDeckExhausted means a deal or trump draw asked for more cards than remain.
	ErrDeckExhausted = errors.New("not enough cards left in the deck")
	// ErrIncompleteTrick is returned when resolving a trick without exactly four cards.
	ErrIncompleteTrick = errors.New("trick is not complete")
	// ErrNoPlayers is returned when dealing or drawing for an empty table.
	ErrNoPlayers = errors.New("no players")

	ErrWrongPhase       = errors.New("action not allowed in the current phase")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrInvalidBid       = errors.New("bid out of range")
	ErrForbiddenBid     = errors.New("bid would make the total equal the hand size")
	ErrCardNotInHand    = errors.New("card not in hand")
	ErrInvalidJokerPlay = errors.New("joker must be played as need, takes or pass")
	ErrInvalidSuit      = errors.New("invalid suit")
	ErrTrumpAlreadySet  = errors.New("trump already chosen")
)
