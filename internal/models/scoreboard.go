package models

import "github.com/google/uuid"

// SegmentCount is the number of scoring segments in a match.
const SegmentCount = 4

// RoundPoints holds the points of one scoreboard cell plus its adjustment flags.
type RoundPoints struct {
	Value   int  `json:"value"`
	IsCut   bool `json:"isCut"`
	IsBonus bool `json:"isBonus"`
}

// Round is one scoreboard cell: a single hand within a segment.
type Round struct {
	ID         int         `json:"id"`
	GameHand   int         `json:"gameHand"`
	HandNumber int         `json:"handNumber"`
	Bid        *int        `json:"bid"`
	Win        *int        `json:"win"`
	Points     RoundPoints `json:"points"`
}

// ScoreBoardRow is one player's scoreboard: four segments of rounds, the
// adjusted segment sums (nil until the segment closes) and the match total.
type ScoreBoardRow struct {
	PlayerID  uuid.UUID              `json:"playerId"`
	Segments  [SegmentCount][]Round  `json:"segments"`
	RoundSums [SegmentCount]*float64 `json:"roundSums"`
	TotalSum  float64                `json:"totalSum"`
}
