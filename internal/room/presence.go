package room

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultDisconnectGrace is how long a seat may have no connection before
// the user counts as absent. Page reloads reconnect well within it.
const DefaultDisconnectGrace = 1500 * time.Millisecond

type seat struct {
	roomID uuid.UUID
	userID uuid.UUID
}

// Presence counts live connections per seat and reports a seat as absent
// once its last connection has been gone for the grace period.
type Presence struct {
	grace    time.Duration
	onAbsent func(roomID, userID uuid.UUID)

	mu      sync.Mutex
	conns   map[seat]int
	pending map[seat]*time.Timer
}

// NewPresence calls onAbsent on its own goroutine.
func NewPresence(grace time.Duration, onAbsent func(roomID, userID uuid.UUID)) *Presence {
	return &Presence{
		grace:    grace,
		onAbsent: onAbsent,
		conns:    make(map[seat]int),
		pending:  make(map[seat]*time.Timer),
	}
}

// Connect registers a connection for the seat and cancels a pending absence.
func (p *Presence) Connect(roomID, userID uuid.UUID) {
	k := seat{roomID, userID}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.conns[k]++
	if t, ok := p.pending[k]; ok {
		t.Stop()
		delete(p.pending, k)
	}
}

// Disconnect drops one connection. When none remain, onAbsent fires after
// the grace period unless the user reconnects first.
func (p *Presence) Disconnect(roomID, userID uuid.UUID) {
	k := seat{roomID, userID}
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conns[k] > 1 {
		p.conns[k]--
		return
	}
	delete(p.conns, k)
	if _, ok := p.pending[k]; ok {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(p.grace, func() {
		p.mu.Lock()
		if p.pending[k] != t || p.conns[k] > 0 {
			p.mu.Unlock()
			return
		}
		delete(p.pending, k)
		p.mu.Unlock()
		if p.onAbsent != nil {
			p.onAbsent(roomID, userID)
		}
	})
	p.pending[k] = t
}

// Forget drops the seat without reporting absence, e.g. after an explicit leave.
func (p *Presence) Forget(roomID, userID uuid.UUID) {
	k := seat{roomID, userID}
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.conns, k)
	if t, ok := p.pending[k]; ok {
		t.Stop()
		delete(p.pending, k)
	}
}

// Connected reports whether the seat has a live connection.
func (p *Presence) Connected(roomID, userID uuid.UUID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conns[seat{roomID, userID}] > 0
}
