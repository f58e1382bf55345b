package game

import "github.com/Luka-CB/card-game-server/internal/models"

const (
	// NineCardHand is the largest hand size; it uses the chosen-trump deal.
	NineCardHand = 9
	// TrumpChoiceCards is how many cards are dealt before trump is chosen in a nine-card hand.
	TrumpChoiceCards = 3
)

var segmentSizes = map[models.GameType][models.SegmentCount]int{
	models.GameClassic: {8, 4, 8, 4},
	models.GameNines:   {4, 4, 4, 4},
}

// SegmentSizes returns the number of hands in each of the four segments.
func SegmentSizes(t models.GameType) [models.SegmentCount]int {
	if s, ok := segmentSizes[t]; ok {
		return s
	}
	return segmentSizes[models.GameClassic]
}

// TotalHands is the length of a match: 24 for classic, 16 for nines.
func TotalHands(t models.GameType) int {
	total := 0
	for _, n := range SegmentSizes(t) {
		total += n
	}
	return total
}

// HandSizeFor returns how many cards each player holds in hand number handCount.
func HandSizeFor(handCount int, t models.GameType) int {
	if handCount < 1 {
		handCount = 1
	}
	if t == models.GameNines {
		return NineCardHand
	}
	switch {
	case handCount <= 8:
		return handCount
	case handCount <= 12:
		return NineCardHand
	case handCount <= 20:
		return 21 - handCount
	default:
		return NineCardHand
	}
}

// CardsToDeal is the size of the first deal of a hand. Nine-card hands deal
// three cards first so trump can be chosen before the rest arrive.
func CardsToDeal(handSize int) int {
	if handSize == NineCardHand {
		return TrumpChoiceCards
	}
	return handSize
}

// SegmentFor maps a hand number to its segment and position within it.
func SegmentFor(handCount int, t models.GameType) (segment, index int, ok bool) {
	start := 1
	for seg, n := range SegmentSizes(t) {
		if handCount >= start && handCount < start+n {
			return seg, handCount - start, true
		}
		start += n
	}
	return 0, 0, false
}

// SegmentEndsAt reports whether handCount is the last hand of a segment.
func SegmentEndsAt(handCount int, t models.GameType) (segment int, ok bool) {
	end := 0
	for seg, n := range SegmentSizes(t) {
		end += n
		if handCount == end {
			return seg, true
		}
	}
	return 0, false
}
