package flow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Luka-CB/card-game-server/internal/bot"
	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

func (o *Orchestrator) playerStatus(ctx context.Context, roomID, playerID uuid.UUID) models.UserStatus {
	room, err := o.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return ""
	}
	u, ok := room.User(playerID)
	if !ok {
		return ""
	}
	return u.Status
}

// turnDuration gives connected players the full turn and skips absent ones quickly.
func (o *Orchestrator) turnDuration(ctx context.Context, roomID, playerID uuid.UUID) time.Duration {
	if o.playerStatus(ctx, roomID, playerID) == models.UserActive {
		return o.cfg.TurnDuration
	}
	return o.cfg.AwayTurnDuration
}

func (o *Orchestrator) ensureTurnTimer(ctx context.Context, g *models.Game) {
	typ, ok := models.TimerTypeFor(g.Status)
	if !ok || g.CurrentPlayerID == uuid.Nil {
		return
	}
	if t, running := o.timers.Get(g.RoomID, g.CurrentPlayerID); running && t.Type == typ {
		return
	}
	o.startTurnTimer(ctx, g, typ)
}

func (o *Orchestrator) startTurnTimer(ctx context.Context, g *models.Game, typ models.TimerType) {
	d := o.turnDuration(ctx, g.RoomID, g.CurrentPlayerID)
	t := o.timers.Start(g.RoomID, g.CurrentPlayerID, typ, d, o.onTimerExpired)
	o.emitRoom(g.RoomID, models.EventTimerStarted, models.TimerPayload{Timer: t, RemainingTime: d.Seconds()})
}

func (o *Orchestrator) ensureDealTimer(g *models.Game) {
	if _, running := o.timers.Get(g.RoomID, uuid.Nil); running {
		return
	}
	t := o.timers.Start(g.RoomID, uuid.Nil, models.TimerGeneral, o.cfg.DealAnimation, o.onTimerExpired)
	o.emitRoom(g.RoomID, models.EventTimerStarted, models.TimerPayload{Timer: t, RemainingTime: o.cfg.DealAnimation.Seconds()})
}

func (o *Orchestrator) onTimerExpired(t models.GameTimer) {
	o.emitRoom(t.RoomID, models.EventTimerExpired, models.TimerPayload{Timer: t})

	if t.Type == models.TimerGeneral {
		if err := o.DealingDone(context.Background(), t.RoomID); err != nil {
			o.roomLog(t.RoomID).WithError(err).Warn("deal animation timeout failed")
		}
		return
	}
	o.botMove(t, 0)
}

// botMove plays exactly one move of the timer's type for the timed-out player.
func (o *Orchestrator) botMove(t models.GameTimer, attempt int) {
	ctx := context.Background()
	log := o.roomLog(t.RoomID).WithFields(logrus.Fields{
		"player":  t.PlayerID,
		"timer":   t.Type,
		"attempt": attempt,
	})

	err := o.update(ctx, t.RoomID, func(rt *roomRuntime, g *models.Game) error {
		typ, ok := models.TimerTypeFor(g.Status)
		if !ok || typ != t.Type || g.CurrentPlayerID != t.PlayerID {
			return errStaleTimer
		}

		hand := g.Hands[t.PlayerID]
		view := bot.ViewOf(g, t.PlayerID)
		switch g.Status {
		case models.StatusBid:
			bid := o.brain.Bid(hand, view)
			if err := game.ValidateBid(g, t.PlayerID, bid); isIllegalMove(err) {
				log.WithError(err).Warnf("bot bid %d rejected, using fallback", bid)
				bid = fallbackBid(g, t.PlayerID, bid)
			}
			return o.applyBid(rt, g, t.PlayerID, bid)
		case models.StatusChoosingTrump:
			three := hand
			if len(three) > game.TrumpChoiceCards {
				three = three[:game.TrumpChoiceCards]
			}
			suit := o.brain.ChooseTrump(three)
			if err := game.ValidateTrumpChoice(g, t.PlayerID, suit); isIllegalMove(err) {
				log.WithError(err).Warnf("bot trump %q rejected, passing", suit)
				suit = ""
			}
			return o.applyTrump(rt, g, t.PlayerID, suit)
		case models.StatusPlaying:
			card, err := o.brain.PlayCard(hand, view)
			if err == nil {
				if _, verr := game.ValidatePlay(g, t.PlayerID, card); isIllegalMove(verr) {
					err = verr
				}
			}
			if err != nil {
				log.WithError(err).Warn("bot card rejected, using fallback")
				if card, err = fallbackCard(hand); err != nil {
					return err
				}
			}
			o.queue(rt, g, uuid.Nil, models.EventBotPlayedCard, models.PlayedCard{PlayerID: t.PlayerID, Card: card})
			return o.applyPlay(ctx, rt, g, t.PlayerID, card)
		}
		return errStaleTimer
	})

	switch {
	case err == nil:
		log.Info("bot moved for timed out player")
		o.markBusy(ctx, t.RoomID, t.PlayerID)
		o.Advance(t.RoomID)
	case errors.Is(err, errStaleTimer):
		log.Debug("timer is stale, scheduling repair")
		time.AfterFunc(o.cfg.RepairDelay, func() {
			if err := o.Repair(context.Background(), t.RoomID); err != nil && !errors.Is(err, game.ErrGameNotFound) {
				log.WithError(err).Warn("repair failed")
			}
		})
	case errors.Is(err, game.ErrGameNotFound):
	case attempt < o.cfg.MaxBotRetries:
		log.WithError(err).Warn("bot move failed, retrying")
		time.AfterFunc(o.cfg.BotRetryDelay, func() { o.botMove(t, attempt+1) })
	default:
		log.WithError(err).Error("bot move failed, scheduling recovery")
		time.AfterFunc(o.cfg.RecoveryDelay, func() { o.recoverRoom(t.RoomID) })
	}
}

// isIllegalMove reports rule violations. Retrying them asks the same question
// again, so the bot falls back to a legal move instead.
func isIllegalMove(err error) bool {
	return errors.Is(err, game.ErrInvalidBid) ||
		errors.Is(err, game.ErrForbiddenBid) ||
		errors.Is(err, game.ErrCardNotInHand) ||
		errors.Is(err, game.ErrInvalidJokerPlay) ||
		errors.Is(err, game.ErrInvalidSuit)
}

// fallbackBid clamps bid into range and steps off the dealer's forbidden bid.
func fallbackBid(g *models.Game, playerID uuid.UUID, bid int) int {
	bid = max(0, min(bid, g.CurrentHand))
	if forbidden, ok := game.ForbiddenBid(g, playerID); ok {
		bid = game.NearestLegalBid(bid, forbidden, g.CurrentHand)
	}
	return bid
}

// fallbackCard plays the first held card; a joker is thrown away.
func fallbackCard(hand []models.Card) (models.Card, error) {
	if len(hand) == 0 {
		return models.Card{}, fmt.Errorf("%w: empty hand on the clock", ErrStateMismatch)
	}
	return hand[0].Annotate(models.JokerPass, ""), nil
}

// markBusy flags an active player whose move was taken by the bot.
func (o *Orchestrator) markBusy(ctx context.Context, roomID, playerID uuid.UUID) {
	if o.playerStatus(ctx, roomID, playerID) != models.UserActive {
		return
	}
	if err := o.rooms.UpdateUserStatus(ctx, roomID, playerID, models.UserBusy); err != nil {
		o.roomLog(roomID).WithError(err).Warn("failed to mark player busy")
	}
}

// markActive brings a busy player back once they act themselves.
func (o *Orchestrator) markActive(ctx context.Context, roomID, playerID uuid.UUID) {
	if err := o.rooms.TouchActivity(ctx, roomID); err != nil {
		o.roomLog(roomID).WithError(err).Debug("failed to touch room activity")
	}
	if o.playerStatus(ctx, roomID, playerID) != models.UserBusy {
		return
	}
	if err := o.rooms.UpdateUserStatus(ctx, roomID, playerID, models.UserActive); err != nil {
		o.roomLog(roomID).WithError(err).Warn("failed to mark player active")
	}
}

// Repair makes sure the current player is on the clock with a timer that
// matches their presence, then advances the room. Call it whenever presence
// changes or a timer turned out to be stale.
func (o *Orchestrator) Repair(ctx context.Context, roomID uuid.UUID) error {
	err := o.withRoom(ctx, roomID, func(rt *roomRuntime) error {
		g, err := o.games.GetGame(ctx, roomID)
		if err != nil {
			return err
		}
		typ, ok := models.TimerTypeFor(g.Status)
		if !ok {
			return nil
		}
		d := o.turnDuration(ctx, roomID, g.CurrentPlayerID)
		t, running := o.timers.Get(roomID, g.CurrentPlayerID)
		if !running || t.Type != typ || t.Remaining(o.now()) > d {
			o.startTurnTimer(ctx, g, typ)
		}
		return nil
	})
	if err != nil {
		return err
	}
	o.Advance(roomID)
	return nil
}

// recoverRoom re-broadcasts the state and restarts the clock for whoever is current.
func (o *Orchestrator) recoverRoom(roomID uuid.UUID) {
	ctx := context.Background()
	err := o.withRoom(ctx, roomID, func(rt *roomRuntime) error {
		g, err := o.games.GetGame(ctx, roomID)
		if err != nil {
			return err
		}
		o.emitState(g)
		if typ, ok := models.TimerTypeFor(g.Status); ok {
			o.startTurnTimer(ctx, g, typ)
		}
		return nil
	})
	if err != nil && !errors.Is(err, game.ErrGameNotFound) {
		o.roomLog(roomID).WithError(err).Error("recovery failed")
		return
	}
	o.Advance(roomID)
}

// Resume puts every stored game among roomIDs back on the clock, typically
// once at startup. Rooms without a game are skipped. It returns how many
// games were resumed.
func (o *Orchestrator) Resume(ctx context.Context, roomIDs []uuid.UUID) int {
	resumed := 0
	for _, id := range roomIDs {
		err := o.Repair(ctx, id)
		switch {
		case err == nil:
			resumed++
		case errors.Is(err, game.ErrGameNotFound):
			o.forget(id, o.lookup(id))
		default:
			o.roomLog(id).WithError(err).Warn("failed to resume game")
		}
	}
	return resumed
}
