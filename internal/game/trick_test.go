package game

import (
	"testing"

	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suited(s models.Suit, r models.Rank) models.Card {
	return models.NewSuitedCard(s, r)
}

func joker(play models.JokerPlay, requested models.Suit) models.Card {
	return models.NewJoker("red").Annotate(play, requested)
}

func trick(cards ...models.Card) []models.PlayedCard {
	played := make([]models.PlayedCard, len(cards))
	for i, c := range cards {
		played[i] = models.PlayedCard{PlayerID: uuid.New(), Card: c}
	}
	return played
}

func TestDetermineTrickWinner(t *testing.T) {
	hearts, spades, diamonds, clubs := models.SuitHearts, models.SuitSpades, models.SuitDiamonds, models.SuitClubs

	cases := []struct {
		name   string
		played []models.PlayedCard
		trump  models.Suit
		winner int
	}{
		{
			name:   "highest of lead suit",
			played: trick(suited(hearts, models.Rank7), suited(hearts, models.RankKing), suited(diamonds, models.RankAce), suited(hearts, models.Rank9)),
			winner: 1,
		},
		{
			name:   "trump beats lead suit",
			played: trick(suited(hearts, models.RankAce), suited(spades, models.Rank7), suited(hearts, models.RankKing), suited(clubs, models.RankAce)),
			trump:  spades,
			winner: 1,
		},
		{
			name:   "highest trump",
			played: trick(suited(hearts, models.RankAce), suited(spades, models.Rank7), suited(spades, models.Rank10), suited(clubs, models.RankAce)),
			trump:  spades,
			winner: 2,
		},
		{
			name:   "later need joker wins",
			played: trick(suited(hearts, models.RankAce), suited(spades, models.RankAce), joker(models.JokerNeed, ""), suited(hearts, models.RankKing)),
			trump:  spades,
			winner: 2,
		},
		{
			name:   "last need joker wins",
			played: trick(suited(hearts, models.RankAce), joker(models.JokerNeed, ""), suited(hearts, models.RankKing), joker(models.JokerNeed, "")),
			winner: 3,
		},
		{
			name:   "lead need joker asking for trump",
			played: trick(joker(models.JokerNeed, spades), suited(spades, models.RankAce), suited(hearts, models.RankAce), suited(spades, models.Rank9)),
			trump:  spades,
			winner: 0,
		},
		{
			name:   "lead need joker beaten by trump",
			played: trick(joker(models.JokerNeed, hearts), suited(hearts, models.RankAce), suited(spades, models.Rank7), suited(hearts, models.RankKing)),
			trump:  spades,
			winner: 2,
		},
		{
			name:   "lead need joker holds without trump",
			played: trick(joker(models.JokerNeed, hearts), suited(hearts, models.RankAce), suited(clubs, models.Rank7), suited(hearts, models.RankKing)),
			trump:  spades,
			winner: 0,
		},
		{
			name:   "lead takes joker forces suit",
			played: trick(joker(models.JokerTakes, diamonds), suited(hearts, models.RankAce), suited(diamonds, models.Rank8), suited(diamonds, models.RankJack)),
			winner: 3,
		},
		{
			name:   "lead takes joker beaten by trump",
			played: trick(joker(models.JokerTakes, diamonds), suited(diamonds, models.RankAce), suited(clubs, models.Rank8), suited(hearts, models.RankJack)),
			trump:  clubs,
			winner: 2,
		},
		{
			name:   "lead takes joker with nobody following",
			played: trick(joker(models.JokerTakes, diamonds), suited(hearts, models.RankAce), suited(clubs, models.Rank8), suited(hearts, models.RankJack)),
			winner: 0,
		},
		{
			name:   "pass joker never wins",
			played: trick(suited(hearts, models.Rank10), joker(models.JokerPass, ""), suited(hearts, models.Rank7), suited(clubs, models.RankAce)),
			winner: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DetermineTrickWinner(tc.played, tc.trump)
			require.NoError(t, err)
			assert.Equal(t, tc.played[tc.winner].Card.ID, got.Card.ID)
			assert.Equal(t, tc.played[tc.winner].PlayerID, got.PlayerID)
		})
	}
}

func TestDetermineTrickWinnerIncomplete(t *testing.T) {
	_, err := DetermineTrickWinner(trick(suited(models.SuitHearts, models.RankAce)), "")
	assert.ErrorIs(t, err, ErrIncompleteTrick)
}
