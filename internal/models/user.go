package models

import "github.com/google/uuid"

// User is the identity resolved from an auth token.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`

	IsGuest bool `json:"is_guest"`
}

// Placements counts finished matches by final place.
type Placements struct {
	First  int `json:"first"`
	Second int `json:"second"`
	Third  int `json:"third"`
	Fourth int `json:"fourth"`
}

// Total is the number of finished matches.
func (p Placements) Total() int {
	return p.First + p.Second + p.Third + p.Fourth
}

// Add records one finish at place (1-based). Out of range places are ignored.
func (p *Placements) Add(place int) {
	switch place {
	case 1:
		p.First++
	case 2:
		p.Second++
	case 3:
		p.Third++
	case 4:
		p.Fourth++
	}
}

// UserStats is a player's lifetime record, as stored in user_stats.
type UserStats struct {
	UserID        uuid.UUID  `json:"user_id"`
	GamesPlayed   int        `json:"games_played"`
	GamesFinished Placements `json:"games_finished"`
	GamesLeft     int        `json:"games_left"`
	Rating        float64    `json:"rating"`
}
