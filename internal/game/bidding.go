package game

import (
	"fmt"

	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
)

// BidOrder returns the players in bidding order: starting after the dealer,
// with the dealer bidding last.
func BidOrder(g *models.Game) []uuid.UUID {
	order := make([]uuid.UUID, 0, len(g.Players))
	start := g.Seat(g.DealerID) + 1
	for i := 0; i < len(g.Players); i++ {
		order = append(order, g.Players[(start+i)%len(g.Players)])
	}
	return order
}

// CurrentBids returns the bids already placed for the current hand.
func CurrentBids(g *models.Game) map[uuid.UUID]int {
	bids := make(map[uuid.UUID]int, len(g.Players))
	for _, pid := range g.Players {
		if b, ok := models.Lookup(g.HandBids, pid, g.HandCount); ok {
			bids[pid] = b
		}
	}
	return bids
}

// ForbiddenBid returns the bid the player may not make. Only the dealer, who
// bids last, is restricted: the sum of all bids must not equal the hand size.
func ForbiddenBid(g *models.Game, playerID uuid.UUID) (int, bool) {
	if playerID != g.DealerID {
		return 0, false
	}
	sum := 0
	for pid, b := range CurrentBids(g) {
		if pid != playerID {
			sum += b
		}
	}
	forbidden := g.CurrentHand - sum
	if forbidden < 0 || forbidden > g.CurrentHand {
		return 0, false
	}
	return forbidden, true
}

// NearestLegalBid returns intended unless it is forbidden, in which case the
// closest other bid in [0, handSize] is chosen, preferring the lower one on ties.
func NearestLegalBid(intended, forbidden, handSize int) int {
	if intended != forbidden {
		return intended
	}
	best := -1
	for b := 0; b <= handSize; b++ {
		if b == forbidden {
			continue
		}
		if best < 0 || abs(b-intended) < abs(best-intended) {
			best = b
		}
	}
	if best < 0 {
		return intended
	}
	return best
}

// ValidateBid checks a bid against phase, turn, range and the forbidden-bid rule.
func ValidateBid(g *models.Game, playerID uuid.UUID, bid int) error {
	if g.Status != models.StatusBid {
		return ErrWrongPhase
	}
	if g.CurrentPlayerID != playerID {
		return ErrNotYourTurn
	}
	if bid < 0 || bid > g.CurrentHand {
		return fmt.Errorf("%w: %d not in [0, %d]", ErrInvalidBid, bid, g.CurrentHand)
	}
	if forbidden, ok := ForbiddenBid(g, playerID); ok && bid == forbidden {
		return fmt.Errorf("%w: %d", ErrForbiddenBid, bid)
	}
	return nil
}

// RecordBid stores the bid for the current hand, overwriting a previous one,
// and mirrors it into the scoreboard cell.
func RecordBid(g *models.Game, playerID uuid.UUID, bid int) {
	g.HandBids = models.Upsert(g.HandBids, playerID, g.CurrentHand, g.HandCount, bid)

	row := scoreRow(g, playerID)
	if row == nil {
		return
	}
	if seg, idx, ok := SegmentFor(g.HandCount, g.Type); ok && idx < len(row.Segments[seg]) {
		b := bid
		row.Segments[seg][idx].Bid = &b
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
