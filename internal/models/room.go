package models

import (
	"time"

	"github.com/google/uuid"
)

// MaxRoomUsers is the seat count of a Joker table.
const MaxRoomUsers = 4

// UserStatus is the presence status of a seated user.
type UserStatus string

const (
	UserActive   UserStatus = "active"
	UserBusy     UserStatus = "busy"
	UserInactive UserStatus = "inactive"
	UserLeft     UserStatus = "left"
)

// Valid reports whether s is a known presence status.
func (s UserStatus) Valid() bool {
	switch s {
	case UserActive, UserBusy, UserInactive, UserLeft:
		return true
	}
	return false
}

// RoomUser is a user seated in a room.
type RoomUser struct {
	ID       uuid.UUID  `json:"id"`
	Username string     `json:"username"`
	Status   UserStatus `json:"status"`
	Avatar   string     `json:"avatar,omitempty"`
}

// Room is the table a match is played at.
type Room struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Type     GameType   `json:"type"`
	Hisht    int        `json:"hisht"`
	Status   string     `json:"status"` // "public" or "private"
	Password string     `json:"password,omitempty"`
	HostID   uuid.UUID  `json:"hostId"`
	Users    []RoomUser `json:"users"`

	CreatedAt      time.Time `json:"createdAt"`
	LastActivityAt time.Time `json:"lastActivityAt"`
}

// User returns the seated user with the given id.
func (r *Room) User(id uuid.UUID) (RoomUser, bool) {
	for _, u := range r.Users {
		if u.ID == id {
			return u, true
		}
	}
	return RoomUser{}, false
}

// IsFull reports whether every seat is taken.
func (r *Room) IsFull() bool {
	return len(r.Users) >= MaxRoomUsers
}

// Public returns a copy safe to send to clients.
func (r Room) Public() Room {
	r.Password = ""
	return r
}
