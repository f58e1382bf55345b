package game

import (
	"fmt"
	"math"
	"sort"

	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
)

// SafePassPoints is awarded for bidding zero and taking nothing.
const SafePassPoints = 50

// exactBidPoints maps an exact, non-sweeping bid to its points.
var exactBidPoints = map[int]int{
	1: 100, 2: 150, 3: 200, 4: 250,
	5: 300, 6: 350, 7: 400, 8: 450,
}

// MissPolicy scores a hand where the bid was missed and at least one trick was taken.
type MissPolicy string

const (
	// MissByWins scores win*10.
	MissByWins MissPolicy = "wins"
	// MissByDifference scores abs(win-bid)*10.
	MissByDifference MissPolicy = "difference"
)

// ParseMissPolicy accepts "wins" or "difference".
func ParseMissPolicy(s string) (MissPolicy, error) {
	switch MissPolicy(s) {
	case MissByWins, MissByDifference:
		return MissPolicy(s), nil
	case "":
		return MissByWins, nil
	}
	return "", fmt.Errorf("unknown miss policy %q", s)
}

// HandPoints scores one player's hand. hisht is the penalty magnitude for
// bidding above zero and taking nothing.
func HandPoints(bid, win, currentHand, hisht int, policy MissPolicy) int {
	switch {
	case bid == 0 && win == 0:
		return SafePassPoints
	case bid > 0 && win == 0:
		return -hisht
	case bid == win && bid == currentHand:
		return bid * 100
	case bid == win:
		return exactBidPoints[bid]
	}
	if policy == MissByDifference {
		return abs(win-bid) * 10
	}
	return win * 10
}

// CreateScoreBoard builds an empty scoreboard row per player for the match variant.
func CreateScoreBoard(g *models.Game) {
	sizes := SegmentSizes(g.Type)
	id := 1
	g.ScoreBoard = make([]models.ScoreBoardRow, 0, len(g.Players))
	for _, pid := range g.Players {
		row := models.ScoreBoardRow{PlayerID: pid}
		handNumber := 1
		for seg, n := range sizes {
			rounds := make([]models.Round, n)
			for i := range rounds {
				rounds[i] = models.Round{
					ID:         id,
					GameHand:   HandSizeFor(handNumber, g.Type),
					HandNumber: handNumber,
				}
				id++
				handNumber++
			}
			row.Segments[seg] = rounds
		}
		g.ScoreBoard = append(g.ScoreBoard, row)
	}
}

// RecordTrickWin credits playerID with one more trick in the current hand.
// Every player gets an entry for the hand, zero if they have not won yet.
func RecordTrickWin(g *models.Game, playerID uuid.UUID) {
	for _, pid := range g.Players {
		if _, ok := models.Lookup(g.HandWins, pid, g.HandCount); !ok {
			g.HandWins = models.Upsert(g.HandWins, pid, g.CurrentHand, g.HandCount, 0)
		}
	}
	wins, _ := models.Lookup(g.HandWins, playerID, g.HandCount)
	g.HandWins = models.Upsert(g.HandWins, playerID, g.CurrentHand, g.HandCount, wins+1)
}

// ScoreHand computes every player's points for the current hand, fills the
// scoreboard cells and closes the segment if this hand ends one.
func ScoreHand(g *models.Game, policy MissPolicy) {
	seg, idx, inSegment := SegmentFor(g.HandCount, g.Type)

	for _, pid := range g.Players {
		bid, _ := models.Lookup(g.HandBids, pid, g.HandCount)
		win, _ := models.Lookup(g.HandWins, pid, g.HandCount)
		points := HandPoints(bid, win, g.CurrentHand, g.Hisht, policy)
		g.HandPoints = models.Upsert(g.HandPoints, pid, g.CurrentHand, g.HandCount, points)

		row := scoreRow(g, pid)
		if row == nil || !inSegment || idx >= len(row.Segments[seg]) {
			continue
		}
		cell := &row.Segments[seg][idx]
		w := win
		cell.Win = &w
		if cell.Bid == nil {
			b := bid
			cell.Bid = &b
		}
		cell.Points.Value = points
	}

	if closing, ok := SegmentEndsAt(g.HandCount, g.Type); ok {
		CloseSegment(g, closing)
	}
}

// CloseSegment applies the bonus and cut adjustments for segment seg and
// stores each player's segment sum.
//
// A player is lucky when every bid in the segment equals the win. A lucky
// player's best hand is flagged as bonus and counted twice. A player who is
// not lucky but sits after a lucky player has their best hand flagged as cut
// and subtracted.
func CloseSegment(g *models.Game, seg int) {
	lucky := make(map[uuid.UUID]bool, len(g.ScoreBoard))
	for _, row := range g.ScoreBoard {
		lucky[row.PlayerID] = isLucky(row.Segments[seg])
	}

	for i := range g.ScoreBoard {
		row := &g.ScoreBoard[i]
		rounds := row.Segments[seg]
		bonus, cut := 0, 0

		if lucky[row.PlayerID] {
			if best := bestRound(rounds); best >= 0 {
				bonus = rounds[best].Points.Value
				rounds[best].Points.IsBonus = true
			}
		} else if lucky[g.PreviousPlayer(row.PlayerID)] {
			if best := bestRound(rounds); best >= 0 {
				cut = rounds[best].Points.Value
				rounds[best].Points.IsCut = true
			}
		}

		sum := segmentSum(rounds, bonus, cut)
		row.RoundSums[seg] = &sum
	}
}

// CalculateTotalScores sets every row's TotalSum from its closed segment sums.
func CalculateTotalScores(g *models.Game) {
	for i := range g.ScoreBoard {
		total := 0.0
		for _, s := range g.ScoreBoard[i].RoundSums {
			if s != nil {
				total += *s
			}
		}
		g.ScoreBoard[i].TotalSum = round2(total)
	}
}

// Standing is a player's final placement.
type Standing struct {
	PlayerID uuid.UUID `json:"playerId"`
	Total    float64   `json:"total"`
	Place    int       `json:"place"`
}

// Standings orders the players by total score, highest first. Equal totals
// keep seat order.
func Standings(g *models.Game) []Standing {
	out := make([]Standing, 0, len(g.ScoreBoard))
	for _, row := range g.ScoreBoard {
		out = append(out, Standing{PlayerID: row.PlayerID, Total: row.TotalSum})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	for i := range out {
		out[i].Place = i + 1
	}
	return out
}

func isLucky(rounds []models.Round) bool {
	for _, r := range rounds {
		if deref(r.Bid) != deref(r.Win) {
			return false
		}
	}
	return true
}

// bestRound returns the index of the first round holding the highest points.
func bestRound(rounds []models.Round) int {
	best := -1
	for i, r := range rounds {
		if best < 0 || r.Points.Value > rounds[best].Points.Value {
			best = i
		}
	}
	return best
}

func segmentSum(rounds []models.Round, bonus, cut int) float64 {
	total := 0
	for _, r := range rounds {
		total += r.Points.Value
	}
	if cut > 0 {
		total -= cut
	}
	if bonus > 0 {
		total += bonus
	}
	return round2(float64(total) / 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func scoreRow(g *models.Game, playerID uuid.UUID) *models.ScoreBoardRow {
	for i := range g.ScoreBoard {
		if g.ScoreBoard[i].PlayerID == playerID {
			return &g.ScoreBoard[i]
		}
	}
	return nil
}
