// Package timer keeps the in-memory turn timers of every room.
package timer

import (
	"sync"
	"time"

	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
)

// ExpireFunc runs on its own goroutine when a timer fires. The timer has
// already been removed from the registry.
type ExpireFunc func(t models.GameTimer)

type entry struct {
	timer models.GameTimer
	t     *time.Timer
	token uint64
}

// Registry holds at most one timer per (room, player) key, or per room for
// room-level timers.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
	seq     uint64
	now     func() time.Time
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func key(roomID, playerID uuid.UUID) string {
	if playerID == uuid.Nil {
		return roomID.String()
	}
	return roomID.String() + "-" + playerID.String()
}

// Start arms a timer, replacing any timer already registered under the same key.
func (r *Registry) Start(roomID, playerID uuid.UUID, typ models.TimerType, d time.Duration, onExpire ExpireFunc) models.GameTimer {
	k := key(roomID, playerID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.entries[k]; ok {
		old.t.Stop()
	}

	r.seq++
	token := r.seq
	gt := models.GameTimer{
		RoomID:    roomID,
		PlayerID:  playerID,
		StartTime: r.now(),
		Duration:  d,
		Type:      typ,
		IsActive:  true,
	}
	e := &entry{timer: gt, token: token}
	e.t = time.AfterFunc(d, func() { r.fire(k, token, onExpire) })
	r.entries[k] = e
	return gt
}

// fire drops stale callbacks: a timer that was replaced or removed after its
// time.Timer had already fired carries an old token.
func (r *Registry) fire(k string, token uint64, onExpire ExpireFunc) {
	r.mu.Lock()
	e, ok := r.entries[k]
	if !ok || e.token != token {
		r.mu.Unlock()
		return
	}
	delete(r.entries, k)
	r.mu.Unlock()

	expired := e.timer
	expired.IsActive = false
	if onExpire != nil {
		onExpire(expired)
	}
}

// Get returns the active timer for the key.
func (r *Registry) Get(roomID, playerID uuid.UUID) (models.GameTimer, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[key(roomID, playerID)]
	if !ok {
		return models.GameTimer{}, false
	}
	return e.timer, true
}

// Remove stops and forgets the timer for the key. It reports whether one existed.
func (r *Registry) Remove(roomID, playerID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key(roomID, playerID)
	e, ok := r.entries[k]
	if !ok {
		return false
	}
	e.t.Stop()
	delete(r.entries, k)
	return true
}

// RemoveRoom drops every timer of the room and returns how many were removed.
func (r *Registry) RemoveRoom(roomID uuid.UUID) int {
	return r.removeWhere(func(t models.GameTimer) bool { return t.RoomID == roomID })
}

// ClearRoomType drops the room's timers of one type.
func (r *Registry) ClearRoomType(roomID uuid.UUID, typ models.TimerType) int {
	return r.removeWhere(func(t models.GameTimer) bool { return t.RoomID == roomID && t.Type == typ })
}

func (r *Registry) removeWhere(match func(models.GameTimer) bool) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, e := range r.entries {
		if match(e.timer) {
			e.t.Stop()
			delete(r.entries, k)
			n++
		}
	}
	return n
}

// Len is the number of armed timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
