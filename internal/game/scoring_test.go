package game

import (
	"testing"

	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandPoints(t *testing.T) {
	cases := []struct {
		name           string
		bid, win, hand int
		policy         MissPolicy
		want           int
	}{
		{"safe pass", 0, 0, 5, MissByWins, SafePassPoints},
		{"hisht", 2, 0, 5, MissByWins, -200},
		{"exact bid", 2, 2, 5, MissByWins, 150},
		{"exact eight", 8, 8, 9, MissByWins, 450},
		{"sweep", 3, 3, 3, MissByWins, 300},
		{"sweep nine", 9, 9, 9, MissByWins, 900},
		{"miss by wins", 1, 3, 5, MissByWins, 30},
		{"miss by difference", 1, 3, 5, MissByDifference, 20},
		{"underbid by difference", 4, 1, 5, MissByDifference, 30},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, HandPoints(tc.bid, tc.win, tc.hand, 200, tc.policy))
		})
	}
}

func TestParseMissPolicy(t *testing.T) {
	p, err := ParseMissPolicy("")
	require.NoError(t, err)
	assert.Equal(t, MissByWins, p)

	p, err = ParseMissPolicy("difference")
	require.NoError(t, err)
	assert.Equal(t, MissByDifference, p)

	_, err = ParseMissPolicy("generous")
	assert.Error(t, err)
}

func TestCreateScoreBoard(t *testing.T) {
	g := &models.Game{Type: models.GameClassic, Players: fourPlayers()}
	CreateScoreBoard(g)
	require.Len(t, g.ScoreBoard, 4)

	row := g.ScoreBoard[0]
	assert.Equal(t, g.Players[0], row.PlayerID)
	for seg, n := range []int{8, 4, 8, 4} {
		assert.Len(t, row.Segments[seg], n)
		assert.Nil(t, row.RoundSums[seg])
	}
	assert.Equal(t, 1, row.Segments[0][0].GameHand)
	assert.Equal(t, 9, row.Segments[1][0].GameHand)
	assert.Equal(t, 13, row.Segments[2][0].HandNumber)
	assert.Equal(t, 8, row.Segments[2][0].GameHand)

	assert.Equal(t, 1, g.ScoreBoard[0].Segments[0][0].ID)
	assert.Equal(t, 25, g.ScoreBoard[1].Segments[0][0].ID, "cell ids are unique across rows")
}

func TestRecordTrickWin(t *testing.T) {
	g := &models.Game{Players: fourPlayers(), CurrentHand: 3, HandCount: 3}
	winner := g.Players[2]

	RecordTrickWin(g, winner)
	RecordTrickWin(g, winner)

	for _, pid := range g.Players {
		wins, ok := models.Lookup(g.HandWins, pid, 3)
		require.True(t, ok, "every player gets an entry")
		if pid == winner {
			assert.Equal(t, 2, wins)
		} else {
			assert.Zero(t, wins)
		}
	}
}

// playSegment scores the four hands of the first nines segment. bids and wins
// are indexed by seat, then by hand.
func playSegment(g *models.Game, bids, wins [4][4]int) {
	for hand := 1; hand <= 4; hand++ {
		g.HandCount = hand
		for seat, pid := range g.Players {
			RecordBid(g, pid, bids[seat][hand-1])
			g.HandWins = models.Upsert(g.HandWins, pid, g.CurrentHand, hand, wins[seat][hand-1])
		}
		ScoreHand(g, MissByWins)
	}
}

func TestScoreHandClosesSegment(t *testing.T) {
	g := &models.Game{
		Type:        models.GameNines,
		Hisht:       200,
		Players:     fourPlayers(),
		CurrentHand: NineCardHand,
	}
	CreateScoreBoard(g)
	p := g.Players

	bids := [4][4]int{
		{1, 2, 1, 1}, // lucky every hand
		{1, 0, 0, 0}, // one hisht, sits after the lucky player
		{2, 2, 2, 2}, // misses every hand
		{0, 0, 0, 0}, // safe passes, also lucky
	}
	wins := [4][4]int{
		{1, 2, 1, 1},
		{0, 0, 0, 0},
		{1, 1, 1, 1},
		{0, 0, 0, 0},
	}
	playSegment(g, bids, wins)

	points, ok := models.Lookup(g.HandPoints, p[0], 2)
	require.True(t, ok)
	assert.Equal(t, 150, points)

	a, b, c, d := g.ScoreBoard[0], g.ScoreBoard[1], g.ScoreBoard[2], g.ScoreBoard[3]
	for _, row := range g.ScoreBoard {
		require.NotNil(t, row.RoundSums[0], "segment closed for %s", row.PlayerID)
		assert.Nil(t, row.RoundSums[1])
	}

	assert.True(t, a.Segments[0][1].Points.IsBonus)
	assert.InDelta(t, 6.0, *a.RoundSums[0], 1e-9)

	assert.True(t, b.Segments[0][1].Points.IsCut)
	assert.Equal(t, -200, b.Segments[0][0].Points.Value)
	assert.InDelta(t, -1.0, *b.RoundSums[0], 1e-9)

	assert.InDelta(t, 0.4, *c.RoundSums[0], 1e-9)
	for _, r := range c.Segments[0] {
		assert.False(t, r.Points.IsBonus)
		assert.False(t, r.Points.IsCut)
		require.NotNil(t, r.Win)
		assert.Equal(t, 1, *r.Win)
	}

	assert.True(t, d.Segments[0][0].Points.IsBonus)
	assert.InDelta(t, 2.5, *d.RoundSums[0], 1e-9)

	CalculateTotalScores(g)
	standings := Standings(g)
	require.Len(t, standings, 4)
	order := []uuid.UUID{standings[0].PlayerID, standings[1].PlayerID, standings[2].PlayerID, standings[3].PlayerID}
	assert.Equal(t, []uuid.UUID{p[0], p[3], p[2], p[1]}, order)
	assert.Equal(t, 1, standings[0].Place)
	assert.InDelta(t, 6.0, standings[0].Total, 1e-9)
	assert.Equal(t, 4, standings[3].Place)
}

func TestStandingsKeepSeatOrderOnTies(t *testing.T) {
	g := &models.Game{Players: fourPlayers()}
	for _, pid := range g.Players {
		g.ScoreBoard = append(g.ScoreBoard, models.ScoreBoardRow{PlayerID: pid, TotalSum: 1.5})
	}
	standings := Standings(g)
	for i, s := range standings {
		assert.Equal(t, g.Players[i], s.PlayerID)
		assert.Equal(t, i+1, s.Place)
	}
}
