package game

import (
	"testing"

	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestHandSizeForClassic(t *testing.T) {
	want := []int{
		1, 2, 3, 4, 5, 6, 7, 8,
		9, 9, 9, 9,
		8, 7, 6, 5, 4, 3, 2, 1,
		9, 9, 9, 9,
	}
	assert.Equal(t, len(want), TotalHands(models.GameClassic))
	for i, size := range want {
		assert.Equal(t, size, HandSizeFor(i+1, models.GameClassic), "hand %d", i+1)
	}
}

func TestHandSizeForNines(t *testing.T) {
	assert.Equal(t, 16, TotalHands(models.GameNines))
	for h := 1; h <= 16; h++ {
		assert.Equal(t, NineCardHand, HandSizeFor(h, models.GameNines))
	}
}

func TestCardsToDeal(t *testing.T) {
	assert.Equal(t, TrumpChoiceCards, CardsToDeal(NineCardHand))
	assert.Equal(t, 5, CardsToDeal(5))
}

func TestSegmentFor(t *testing.T) {
	cases := []struct {
		hand     int
		typ      models.GameType
		seg, idx int
		ok       bool
	}{
		{1, models.GameClassic, 0, 0, true},
		{8, models.GameClassic, 0, 7, true},
		{9, models.GameClassic, 1, 0, true},
		{13, models.GameClassic, 2, 0, true},
		{24, models.GameClassic, 3, 3, true},
		{25, models.GameClassic, 0, 0, false},
		{5, models.GameNines, 1, 0, true},
		{16, models.GameNines, 3, 3, true},
		{0, models.GameNines, 0, 0, false},
	}
	for _, tc := range cases {
		seg, idx, ok := SegmentFor(tc.hand, tc.typ)
		assert.Equal(t, tc.ok, ok, "hand %d %s", tc.hand, tc.typ)
		if tc.ok {
			assert.Equal(t, tc.seg, seg, "hand %d %s", tc.hand, tc.typ)
			assert.Equal(t, tc.idx, idx, "hand %d %s", tc.hand, tc.typ)
		}
	}
}

func TestSegmentEndsAt(t *testing.T) {
	ends := map[models.GameType][]int{
		models.GameClassic: {8, 12, 20, 24},
		models.GameNines:   {4, 8, 12, 16},
	}
	for typ, hands := range ends {
		for seg, h := range hands {
			got, ok := SegmentEndsAt(h, typ)
			assert.True(t, ok)
			assert.Equal(t, seg, got)
		}
	}

	_, ok := SegmentEndsAt(7, models.GameClassic)
	assert.False(t, ok)
}
