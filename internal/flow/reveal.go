package flow

import (
	"time"

	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
)

// startReveal determines the dealer up front and replays the draw sequence to
// the room one card at a time. When the replay settles the result is handed to
// the next Advance, which writes it to the game.
func (o *Orchestrator) startReveal(rt *roomRuntime, g *models.Game) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed || rt.revealing || rt.revealed != nil {
		return
	}

	reveal, err := game.DetermineDealer(g.Players, nil)
	if err != nil {
		o.roomLog(g.RoomID).WithError(err).Error("cannot determine dealer")
		return
	}
	rt.revealing = true

	o.emitRoom(g.RoomID, models.EventDealerRevealPrepare, map[string]interface{}{
		"players": g.Players,
		"draws":   len(reveal.Sequence),
	})
	o.scheduleRevealStep(rt, g.RoomID, reveal, 0, o.cfg.RevealInitialDelay)
}

// scheduleRevealStep must be called with rt.mu held.
func (o *Orchestrator) scheduleRevealStep(rt *roomRuntime, roomID uuid.UUID, reveal game.DealerReveal, i int, d time.Duration) {
	rt.revealTimer = time.AfterFunc(d, func() {
		rt.mu.Lock()
		defer rt.mu.Unlock()
		if rt.closed {
			return
		}

		if i < len(reveal.Sequence) {
			o.emitRoom(roomID, models.EventDealerRevealStep, reveal.Sequence[i])
			o.scheduleRevealStep(rt, roomID, reveal, i+1, o.cfg.RevealStepDelay)
			return
		}

		o.emitRoom(roomID, models.EventDealerRevealDone, models.RevealDonePayload{DealerID: reveal.DealerID})
		rt.revealTimer = time.AfterFunc(o.cfg.RevealSettleDelay, func() {
			rt.mu.Lock()
			if rt.closed {
				rt.mu.Unlock()
				return
			}
			rt.revealing = false
			rt.revealed = &reveal
			rt.mu.Unlock()
			o.Advance(roomID)
		})
	})
}

// takeReveal hands out a settled reveal once.
func (rt *roomRuntime) takeReveal() *game.DealerReveal {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	r := rt.revealed
	rt.revealed = nil
	return r
}
