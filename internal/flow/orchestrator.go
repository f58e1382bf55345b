// Package flow runs the per-room Joker state machine: it reacts to player
// actions and timer expiries, persists every transition through game.Store
// and emits the resulting events.
package flow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Luka-CB/card-game-server/internal/bot"
	"github.com/Luka-CB/card-game-server/internal/cache"
	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/Luka-CB/card-game-server/internal/timer"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// RoomDirectory is the room/presence collaborator.
type RoomDirectory interface {
	GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error)
	UpdateUserStatus(ctx context.Context, roomID, userID uuid.UUID, status models.UserStatus) error
	TouchActivity(ctx context.Context, roomID uuid.UUID) error
	DestroyRoom(ctx context.Context, roomID uuid.UUID) error
}

// Emitter delivers events to connected clients. game_state payloads carry the
// full game; implementations must redact other players' hands per viewer.
type Emitter interface {
	EmitRoom(roomID uuid.UUID, ev models.Event)
	EmitPlayer(playerID uuid.UUID, ev models.Event)
}

// ResultRecorder persists match outcomes.
type ResultRecorder interface {
	RecordMatchResults(ctx context.Context, g *models.Game, standings []game.Standing) error
	RecordGameLeft(ctx context.Context, userID uuid.UUID) error
}

// Deps are the collaborators of an Orchestrator. Games, Rooms and Emitter are
// required; the rest fall back to in-process defaults or are skipped.
type Deps struct {
	Games   game.Store
	Rooms   RoomDirectory
	Emitter Emitter
	Timers  *timer.Registry
	Brain   bot.Brain
	Results ResultRecorder
	Actions cache.ActionPublisher
	Logger  *logrus.Logger
}

// Orchestrator drives every room's game through its phases.
type Orchestrator struct {
	cfg     Config
	games   game.Store
	rooms   RoomDirectory
	emitter Emitter
	timers  *timer.Registry
	brain   bot.Brain
	results ResultRecorder
	actions cache.ActionPublisher
	log     *logrus.Logger
	now     func() time.Time

	mu       sync.Mutex
	runtimes map[uuid.UUID]*roomRuntime
}

func New(cfg Config, deps Deps) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		games:    deps.Games,
		rooms:    deps.Rooms,
		emitter:  deps.Emitter,
		timers:   deps.Timers,
		brain:    deps.Brain,
		results:  deps.Results,
		actions:  deps.Actions,
		log:      deps.Logger,
		now:      time.Now,
		runtimes: make(map[uuid.UUID]*roomRuntime),
	}
	if o.timers == nil {
		o.timers = timer.NewRegistry()
	}
	if o.brain == nil {
		o.brain = bot.Heuristic{}
	}
	if o.log == nil {
		o.log = logrus.StandardLogger()
	}
	if o.cfg.MaxSteps <= 0 {
		o.cfg.MaxSteps = DefaultConfig().MaxSteps
	}
	if o.cfg.MissPolicy == "" {
		o.cfg.MissPolicy = game.MissByWins
	}
	return o
}

// Timers exposes the registry, mainly so callers can report remaining time.
func (o *Orchestrator) Timers() *timer.Registry {
	return o.timers
}

func (o *Orchestrator) roomLog(roomID uuid.UUID) *logrus.Entry {
	return o.log.WithField("room", roomID)
}

type outgoing struct {
	playerID uuid.UUID
	ev       models.Event
}

type gate struct {
	t    *time.Timer
	open bool
}

// roomRuntime is the in-memory companion of a room's stored game.
type roomRuntime struct {
	// flow serializes every read-modify-write of the room's game.
	flow sync.Mutex
	// guarded by flow
	actionIndex int
	pending     []outgoing
	roundCount  *int

	mu          sync.Mutex
	revealing   bool
	revealed    *game.DealerReveal
	revealTimer *time.Timer
	gates       map[string]*gate
	closed      bool
}

// discard drops everything queued by a transition that will not be saved.
func (rt *roomRuntime) discard() {
	rt.pending = nil
	rt.roundCount = nil
}

func (o *Orchestrator) runtime(roomID uuid.UUID) *roomRuntime {
	o.mu.Lock()
	defer o.mu.Unlock()
	rt, ok := o.runtimes[roomID]
	if !ok {
		rt = &roomRuntime{gates: make(map[string]*gate)}
		o.runtimes[roomID] = rt
	}
	return rt
}

func (o *Orchestrator) lookup(roomID uuid.UUID) *roomRuntime {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.runtimes[roomID]
}

func (o *Orchestrator) forget(roomID uuid.UUID, rt *roomRuntime) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.runtimes[roomID] == rt {
		delete(o.runtimes, roomID)
	}
}

// armGate schedules key to open after d and re-run Advance. Arming an armed
// gate is a no-op.
func (o *Orchestrator) armGate(rt *roomRuntime, roomID uuid.UUID, key string, d time.Duration) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if rt.closed {
		return
	}
	if _, ok := rt.gates[key]; ok {
		return
	}
	g := &gate{}
	g.t = time.AfterFunc(d, func() {
		rt.mu.Lock()
		g.open = true
		closed := rt.closed
		rt.mu.Unlock()
		if !closed {
			o.Advance(roomID)
		}
	})
	rt.gates[key] = g
}

func (rt *roomRuntime) gateOpen(key string) bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	g, ok := rt.gates[key]
	return ok && g.open
}

func (rt *roomRuntime) clearGate(key string) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if g, ok := rt.gates[key]; ok {
		g.t.Stop()
		delete(rt.gates, key)
	}
}

// close stops every pending reveal step and gate.
func (rt *roomRuntime) close() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.closed = true
	if rt.revealTimer != nil {
		rt.revealTimer.Stop()
	}
	for k, g := range rt.gates {
		g.t.Stop()
		delete(rt.gates, k)
	}
	rt.revealing = false
	rt.revealed = nil
}

// withRoom runs fn holding the room's flow lock. It polls for the lock for at
// most LockWaitTimeout.
func (o *Orchestrator) withRoom(ctx context.Context, roomID uuid.UUID, fn func(rt *roomRuntime) error) error {
	rt := o.runtime(roomID)
	poll := o.cfg.LockRetryDelay
	if poll <= 0 {
		poll = time.Millisecond
	}
	deadline := time.Now().Add(o.cfg.LockWaitTimeout)
	for !rt.flow.TryLock() {
		if time.Now().After(deadline) {
			return ErrRoomBusy
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(poll):
		}
	}
	defer rt.flow.Unlock()
	return fn(rt)
}

// update loads the room's game, applies fn and commits the result.
func (o *Orchestrator) update(ctx context.Context, roomID uuid.UUID, fn func(rt *roomRuntime, g *models.Game) error) error {
	return o.withRoom(ctx, roomID, func(rt *roomRuntime) error {
		g, err := o.games.GetGame(ctx, roomID)
		if err != nil {
			return err
		}
		if err := fn(rt, g); err != nil {
			rt.discard()
			return err
		}
		_, err = o.commit(ctx, rt, g)
		return err
	})
}

// commit saves g and the staged round count, then flushes queued events
// followed by the new game state. Must hold rt.flow.
func (o *Orchestrator) commit(ctx context.Context, rt *roomRuntime, g *models.Game) (bool, error) {
	g.UpdatedAt = o.now()
	if err := o.games.SaveGame(ctx, g); err != nil {
		rt.discard()
		return false, fmt.Errorf("save game: %w", err)
	}
	if n := rt.roundCount; n != nil {
		rt.roundCount = nil
		if err := o.games.SetRoundCount(ctx, g.RoomID, *n); err != nil {
			rt.pending = nil
			return false, fmt.Errorf("save round count: %w", err)
		}
	}
	for _, out := range rt.pending {
		if out.playerID == uuid.Nil {
			o.emitter.EmitRoom(g.RoomID, out.ev)
		} else {
			o.emitter.EmitPlayer(out.playerID, out.ev)
		}
	}
	rt.pending = nil
	o.emitState(g)
	return true, nil
}

func (o *Orchestrator) queue(rt *roomRuntime, g *models.Game, playerID uuid.UUID, typ models.EventType, payload interface{}) {
	rt.pending = append(rt.pending, outgoing{
		playerID: playerID,
		ev:       models.Event{Type: typ, RoomID: g.RoomID, Payload: payload},
	})
}

func (o *Orchestrator) emitRoom(roomID uuid.UUID, typ models.EventType, payload interface{}) {
	o.emitter.EmitRoom(roomID, models.Event{Type: typ, RoomID: roomID, Payload: payload})
}

func (o *Orchestrator) emitState(g *models.Game) {
	o.emitRoom(g.RoomID, models.EventGameState, g)
}

// Advance re-evaluates the room and performs every automatic transition that
// is due. It never blocks: when the room is locked it retries shortly after.
func (o *Orchestrator) Advance(roomID uuid.UUID) {
	rt := o.lookup(roomID)
	if rt == nil {
		return
	}
	if !rt.flow.TryLock() {
		time.AfterFunc(o.cfg.LockRetryDelay, func() { o.Advance(roomID) })
		return
	}
	defer rt.flow.Unlock()
	o.advanceLocked(context.Background(), rt, roomID)
}

func (o *Orchestrator) advanceLocked(ctx context.Context, rt *roomRuntime, roomID uuid.UUID) {
	for i := 0; i < o.cfg.MaxSteps; i++ {
		changed, err := o.step(ctx, rt, roomID)
		if errors.Is(err, game.ErrGameNotFound) {
			return
		}
		if err != nil {
			o.roomLog(roomID).WithError(err).Error("advance failed")
			return
		}
		if !changed {
			return
		}
	}
	o.roomLog(roomID).Warnf("advance stopped after %d steps", o.cfg.MaxSteps)
}

// step performs at most one transition and reports whether the game changed.
// Re-running it against an unchanged game has no further effect.
func (o *Orchestrator) step(ctx context.Context, rt *roomRuntime, roomID uuid.UUID) (bool, error) {
	g, err := o.games.GetGame(ctx, roomID)
	if err != nil {
		return false, err
	}

	switch g.Status {
	case models.StatusDealing:
		return o.stepDealing(ctx, rt, g)
	case models.StatusTrump:
		return o.stepTrump(ctx, rt, g)
	case models.StatusChoosingTrump:
		return o.stepChoosingTrump(ctx, rt, g)
	case models.StatusBid, models.StatusPlaying:
		o.ensureTurnTimer(ctx, g)
		return false, nil
	case models.StatusWaiting:
		return o.stepWaiting(ctx, rt, g)
	case models.StatusFinished:
		return o.stepFinished(ctx, rt, g)
	}
	return false, fmt.Errorf("%w: unknown status %q", ErrStateMismatch, g.Status)
}

func (o *Orchestrator) stepDealing(ctx context.Context, rt *roomRuntime, g *models.Game) (bool, error) {
	if g.DealerID == uuid.Nil {
		reveal := rt.takeReveal()
		if reveal == nil {
			o.startReveal(rt, g)
			return false, nil
		}
		g.DealerID = reveal.DealerID
		g.CurrentPlayerID = g.NextPlayer(reveal.DealerID)
		o.logAction(rt, g, reveal.DealerID, "dealer_determined", map[string]interface{}{
			"draws": len(reveal.Sequence),
		})
		return o.commit(ctx, rt, g)
	}

	if !g.HandsDealt() {
		n := game.CardsToDeal(g.CurrentHand)
		hands, err := game.DealCards(g.Players, n, nil)
		if err != nil {
			return false, err
		}
		g.Hands = hands
		o.queueDeals(rt, g, hands)
		o.logAction(rt, g, g.DealerID, "deal_cards", map[string]interface{}{
			"hand":  g.HandCount,
			"cards": n,
		})
		return o.commit(ctx, rt, g)
	}

	o.ensureDealTimer(g)
	return false, nil
}

func (o *Orchestrator) stepTrump(ctx context.Context, rt *roomRuntime, g *models.Game) (bool, error) {
	trump, err := game.DrawTrump(g.Hands, nil)
	if err != nil {
		// Nothing left to draw from: the room stays in "trump".
		o.roomLog(g.RoomID).WithError(err).Error("cannot draw trump")
		return false, nil
	}
	g.Trump = trump
	g.Status = models.StatusBid
	o.logAction(rt, g, uuid.Nil, "trump_drawn", map[string]interface{}{
		"card": trump.Card,
		"suit": trump.Suit,
	})
	return o.commit(ctx, rt, g)
}

func (o *Orchestrator) stepChoosingTrump(ctx context.Context, rt *roomRuntime, g *models.Game) (bool, error) {
	if g.Trump == nil {
		o.ensureTurnTimer(ctx, g)
		return false, nil
	}
	received, err := game.DealRemainingToNine(g, nil)
	if err != nil {
		return false, err
	}
	g.Status = models.StatusDealing
	o.queueDeals(rt, g, received)
	return o.commit(ctx, rt, g)
}

func (o *Orchestrator) stepWaiting(ctx context.Context, rt *roomRuntime, g *models.Game) (bool, error) {
	if g.HandCount > game.TotalHands(g.Type) {
		return o.finish(ctx, rt, g)
	}

	key := fmt.Sprintf("next-hand-%d", g.HandCount)
	if !rt.gateOpen(key) {
		o.armGate(rt, g.RoomID, key, o.cfg.NextHandDelay)
		return false, nil
	}
	rt.clearGate(key)

	g.Status = models.StatusDealing
	g.CurrentHand = game.HandSizeFor(g.HandCount, g.Type)
	g.CurrentPlayerID = g.NextPlayer(g.DealerID)
	g.Trump = nil
	g.Hands = nil
	g.HandSizes = nil
	g.PlayedCards = nil
	g.LastPlayedCards = nil
	if err := o.setRoundCount(rt, g, 0); err != nil {
		return false, err
	}
	o.logAction(rt, g, g.DealerID, "hand_started", map[string]interface{}{
		"hand": g.HandCount,
		"size": g.CurrentHand,
	})
	return o.commit(ctx, rt, g)
}

func (o *Orchestrator) finish(ctx context.Context, rt *roomRuntime, g *models.Game) (bool, error) {
	game.CalculateTotalScores(g)
	g.Status = models.StatusFinished
	standings := game.Standings(g)
	o.logAction(rt, g, uuid.Nil, cache.ActionGameFinished, map[string]interface{}{
		"standings": standings,
	})
	if _, err := o.commit(ctx, rt, g); err != nil {
		return false, err
	}

	if o.results != nil {
		if err := o.results.RecordMatchResults(ctx, g, o.finishers(ctx, g.RoomID, standings)); err != nil {
			o.roomLog(g.RoomID).WithError(err).Error("failed to record match results")
		}
	}
	o.roomLog(g.RoomID).WithField("game", g.ID).Info("game finished")
	return true, nil
}

// finishers drops players who left mid-game; their stats were settled when they left.
func (o *Orchestrator) finishers(ctx context.Context, roomID uuid.UUID, standings []game.Standing) []game.Standing {
	room, err := o.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return standings
	}
	out := standings[:0:0]
	for _, s := range standings {
		if u, ok := room.User(s.PlayerID); ok && u.Status == models.UserLeft {
			continue
		}
		out = append(out, s)
	}
	return out
}

func (o *Orchestrator) stepFinished(ctx context.Context, rt *roomRuntime, g *models.Game) (bool, error) {
	const key = "teardown"
	if !rt.gateOpen(key) {
		o.armGate(rt, g.RoomID, key, o.cfg.FinishedGrace)
		return false, nil
	}
	o.teardownLocked(ctx, rt, g.RoomID)
	return false, nil
}

// teardownLocked removes every trace of the room. Must hold rt.flow.
func (o *Orchestrator) teardownLocked(ctx context.Context, rt *roomRuntime, roomID uuid.UUID) {
	log := o.roomLog(roomID)
	rt.close()
	o.timers.RemoveRoom(roomID)

	if err := o.games.DeleteGame(ctx, roomID); err != nil {
		log.WithError(err).Warn("failed to delete game")
	}
	if err := o.games.DeleteRoundCount(ctx, roomID); err != nil {
		log.WithError(err).Warn("failed to delete round count")
	}
	if err := o.rooms.DestroyRoom(ctx, roomID); err != nil {
		log.WithError(err).Debug("room already gone")
	}
	o.emitRoom(roomID, models.EventRoomDestroyed, nil)
	o.forget(roomID, rt)
	log.Info("room destroyed")
}

func (o *Orchestrator) queueDeals(rt *roomRuntime, g *models.Game, dealt map[uuid.UUID][]models.Card) {
	for _, pid := range g.Players {
		cards, ok := dealt[pid]
		if !ok {
			continue
		}
		o.queue(rt, g, pid, models.EventDealCards, models.DealPayload{
			PlayerID: pid,
			Hand:     cards,
			Round:    g.HandCount,
		})
	}
}

// logAction publishes an action record to the historian queue without blocking.
// Must hold rt.flow.
func (o *Orchestrator) logAction(rt *roomRuntime, g *models.Game, actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	rt.actionIndex++
	if o.actions == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        g.ID,
		RoomID:        g.RoomID,
		ActionIndex:   rt.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     o.now().UnixMilli(),
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := o.actions.PublishGameAction(ctx, rec); err != nil {
			o.roomLog(rec.RoomID).WithError(err).Warnf("failed to publish action %d", rec.ActionIndex)
		}
	}(record)
}
