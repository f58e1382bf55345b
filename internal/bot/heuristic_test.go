package bot

import (
	"testing"

	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(s models.Suit, r models.Rank) models.Card { return models.NewSuitedCard(s, r) }

func seats() []uuid.UUID { return []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()} }

func TestChooseTrump(t *testing.T) {
	h := Heuristic{}
	joker := models.NewJoker("red")

	cases := []struct {
		name  string
		three []models.Card
		want  models.Suit
	}{
		{"three of a suit", []models.Card{
			card(models.SuitClubs, models.Rank7), card(models.SuitClubs, models.Rank9), card(models.SuitClubs, models.RankAce),
		}, models.SuitClubs},
		{"joker and a pair", []models.Card{
			joker, card(models.SuitSpades, models.Rank7), card(models.SuitSpades, models.Rank8),
		}, models.SuitSpades},
		{"plain pair", []models.Card{
			card(models.SuitDiamonds, models.Rank7), card(models.SuitHearts, models.Rank10), card(models.SuitDiamonds, models.RankJack),
		}, models.SuitDiamonds},
		{"joker and a high single", []models.Card{
			joker, card(models.SuitClubs, models.Rank7), card(models.SuitDiamonds, models.RankKing),
		}, models.SuitDiamonds},
		{"joker and low singles pass", []models.Card{
			joker, card(models.SuitClubs, models.Rank7), card(models.SuitDiamonds, models.Rank8),
		}, ""},
		{"three different suits pass", []models.Card{
			card(models.SuitHearts, models.RankAce), card(models.SuitClubs, models.RankAce), card(models.SuitSpades, models.RankAce),
		}, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, h.ChooseTrump(tc.three))
		})
	}
}

func TestBidCountsTrumpAndJokers(t *testing.T) {
	p := seats()
	v := View{PlayerID: p[1], Players: p, DealerID: p[0], HandSize: 3, Trump: models.SuitHearts, Bids: map[uuid.UUID]int{}}
	hand := []models.Card{
		card(models.SuitHearts, models.RankAce),
		card(models.SuitHearts, models.RankKing),
		models.NewJoker("black"),
	}
	assert.Equal(t, 3, Heuristic{}.Bid(hand, v))
}

func TestBidWeakHandBidsZero(t *testing.T) {
	p := seats()
	v := View{PlayerID: p[1], Players: p, DealerID: p[0], HandSize: 2, Bids: map[uuid.UUID]int{}}
	hand := []models.Card{card(models.SuitClubs, models.Rank7), card(models.SuitDiamonds, models.Rank8)}
	assert.Equal(t, 0, Heuristic{}.Bid(hand, v))
}

func TestBidDealerAvoidsForbiddenBid(t *testing.T) {
	p := seats()
	// Others bid 0 on a one-card hand, so the dealer may not bid 1.
	v := View{
		PlayerID: p[0], Players: p, DealerID: p[0], HandSize: 1,
		Bids: map[uuid.UUID]int{p[1]: 0, p[2]: 0, p[3]: 0},
	}
	hand := []models.Card{models.NewJoker("red")}
	assert.Equal(t, 0, Heuristic{}.Bid(hand, v))
}

func TestBidSingleAce(t *testing.T) {
	p := seats()
	v := View{PlayerID: p[2], Players: p, DealerID: p[0], HandSize: 1, Bids: map[uuid.UUID]int{}}
	assert.Equal(t, 1, Heuristic{}.Bid([]models.Card{card(models.SuitSpades, models.RankAce)}, v))
}

func TestPlayLeadNeedJokerRequestsTrump(t *testing.T) {
	p := seats()
	joker := models.NewJoker("red")
	hand := []models.Card{card(models.SuitClubs, models.Rank7), joker}
	v := View{PlayerID: p[0], Trump: models.SuitSpades, Bids: map[uuid.UUID]int{p[0]: 1}, Wins: map[uuid.UUID]int{}}

	got, err := Heuristic{}.PlayCard(hand, v)
	require.NoError(t, err)
	assert.Equal(t, joker.ID, got.ID)
	assert.Equal(t, models.JokerNeed, got.Play)
	assert.Equal(t, models.SuitSpades, got.RequestedSuit)
}

func TestPlayLeadShedsWeakestPlainCard(t *testing.T) {
	p := seats()
	low := card(models.SuitClubs, models.Rank7)
	hand := []models.Card{card(models.SuitSpades, models.Rank6), card(models.SuitClubs, models.RankKing), low}
	v := View{PlayerID: p[0], Trump: models.SuitSpades, Bids: map[uuid.UUID]int{p[0]: 0}, Wins: map[uuid.UUID]int{}}

	got, err := Heuristic{}.PlayCard(hand, v)
	require.NoError(t, err)
	assert.Equal(t, low.ID, got.ID)
}

func TestPlayFollowCheapestWinner(t *testing.T) {
	p := seats()
	queen := card(models.SuitHearts, models.RankQueen)
	hand := []models.Card{card(models.SuitHearts, models.RankAce), queen, card(models.SuitHearts, models.Rank6)}
	v := View{
		PlayerID: p[1], Trump: models.SuitClubs,
		Bids:   map[uuid.UUID]int{p[1]: 1},
		Wins:   map[uuid.UUID]int{},
		Played: []models.PlayedCard{{PlayerID: p[0], Card: card(models.SuitHearts, models.Rank10)}},
	}

	got, err := Heuristic{}.PlayCard(hand, v)
	require.NoError(t, err)
	assert.Equal(t, queen.ID, got.ID)
}

func TestPlayFollowPassesJokerWhenBidMet(t *testing.T) {
	p := seats()
	joker := models.NewJoker("black")
	hand := []models.Card{card(models.SuitHearts, models.RankAce), joker}
	v := View{
		PlayerID: p[1],
		Bids:     map[uuid.UUID]int{p[1]: 1},
		Wins:     map[uuid.UUID]int{p[1]: 1},
		Played:   []models.PlayedCard{{PlayerID: p[0], Card: card(models.SuitHearts, models.Rank10)}},
	}

	got, err := Heuristic{}.PlayCard(hand, v)
	require.NoError(t, err)
	assert.Equal(t, joker.ID, got.ID)
	assert.Equal(t, models.JokerPass, got.Play)
	assert.Empty(t, got.RequestedSuit)
}

func TestPlayFollowRequestedSuitStaysUnderWhenMet(t *testing.T) {
	p := seats()
	lead := models.NewJoker("red").Annotate(models.JokerTakes, models.SuitDiamonds)
	nine := card(models.SuitDiamonds, models.Rank9)
	hand := []models.Card{card(models.SuitDiamonds, models.RankAce), nine}
	v := View{
		PlayerID: p[1],
		Bids:     map[uuid.UUID]int{p[1]: 0},
		Wins:     map[uuid.UUID]int{},
		Played:   []models.PlayedCard{{PlayerID: p[0], Card: lead}},
	}

	// Nothing beats the joker by bot strength, so the highest requested card is safe.
	got, err := Heuristic{}.PlayCard(hand, v)
	require.NoError(t, err)
	assert.Equal(t, models.RankAce, got.Rank)
}

func TestPlayCardEmptyHand(t *testing.T) {
	_, err := Heuristic{}.PlayCard(nil, View{})
	assert.ErrorIs(t, err, ErrEmptyHand)
}

func TestViewOfReadsCurrentHand(t *testing.T) {
	p := seats()
	g := &models.Game{
		Players:     p,
		DealerID:    p[3],
		CurrentHand: 2,
		HandCount:   2,
		Trump:       &models.Trump{Suit: models.SuitHearts},
	}
	g.HandBids = models.Upsert(g.HandBids, p[0], 1, 1, 1)
	g.HandBids = models.Upsert(g.HandBids, p[0], 2, 2, 2)
	game.RecordTrickWin(g, p[0])

	v := ViewOf(g, p[0])
	assert.Equal(t, 2, v.Bids[p[0]])
	assert.Equal(t, 1, v.Wins[p[0]])
	assert.Equal(t, models.SuitHearts, v.Trump)
	assert.Equal(t, 2, v.HandSize)
}
