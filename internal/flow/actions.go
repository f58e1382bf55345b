package flow

import (
	"context"
	"errors"
	"fmt"

	"github.com/Luka-CB/card-game-server/internal/cache"
	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
)

// errNoChange aborts an update that turned out to be a no-op.
var errNoChange = errors.New("no change")

// Start creates the room's game once every seat is taken. Seats follow join
// order. Calling it for a room that already has a game returns that game.
func (o *Orchestrator) Start(ctx context.Context, roomID uuid.UUID) (*models.Game, error) {
	var out *models.Game
	err := o.withRoom(ctx, roomID, func(rt *roomRuntime) error {
		existing, err := o.games.GetGame(ctx, roomID)
		if err == nil {
			out = existing
			return nil
		}
		if !errors.Is(err, game.ErrGameNotFound) {
			return err
		}

		room, err := o.rooms.GetRoom(ctx, roomID)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrRoomNotFound, err)
		}
		if !room.IsFull() {
			return ErrRoomNotFull
		}

		g := o.newGame(room)
		if err := o.setRoundCount(rt, g, 0); err != nil {
			return err
		}
		o.logAction(rt, g, room.HostID, cache.ActionGameCreated, map[string]interface{}{
			"type":    g.Type,
			"hisht":   g.Hisht,
			"players": g.Players,
		})
		if _, err := o.commit(ctx, rt, g); err != nil {
			return err
		}
		o.roomLog(roomID).WithField("game", g.ID).Info("game created")
		out = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	o.Advance(roomID)
	return out, nil
}

func (o *Orchestrator) newGame(room *models.Room) *models.Game {
	now := o.now()
	typ := room.Type
	if !typ.Valid() {
		typ = models.GameClassic
	}
	hisht := room.Hisht
	if hisht <= 0 {
		hisht = o.cfg.DefaultHisht
	}

	players := make([]uuid.UUID, 0, len(room.Users))
	for _, u := range room.Users {
		players = append(players, u.ID)
	}

	g := &models.Game{
		ID:          uuid.New(),
		RoomID:      room.ID,
		Type:        typ,
		Hisht:       hisht,
		Status:      models.StatusDealing,
		Players:     players,
		CurrentHand: game.HandSizeFor(1, typ),
		HandCount:   1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	game.CreateScoreBoard(g)
	return g
}

// CurrentState returns the game as playerID may see it.
func (o *Orchestrator) CurrentState(ctx context.Context, roomID, playerID uuid.UUID) (*models.Game, error) {
	g, err := o.games.GetGame(ctx, roomID)
	if err != nil {
		return nil, err
	}
	return g.RedactFor(playerID), nil
}

// SubmitBid records playerID's bid for the current hand.
func (o *Orchestrator) SubmitBid(ctx context.Context, roomID, playerID uuid.UUID, bid int) error {
	err := o.update(ctx, roomID, func(rt *roomRuntime, g *models.Game) error {
		return o.applyBid(rt, g, playerID, bid)
	})
	if err != nil {
		return err
	}
	o.markActive(ctx, roomID, playerID)
	o.Advance(roomID)
	return nil
}

// PlayCard plays card from playerID's hand. Joker annotations are taken from card.
func (o *Orchestrator) PlayCard(ctx context.Context, roomID, playerID uuid.UUID, card models.Card) error {
	err := o.update(ctx, roomID, func(rt *roomRuntime, g *models.Game) error {
		return o.applyPlay(ctx, rt, g, playerID, card)
	})
	if err != nil {
		return err
	}
	o.markActive(ctx, roomID, playerID)
	o.Advance(roomID)
	return nil
}

// ChooseTrump sets trump for a nine-card hand. An empty suit passes.
func (o *Orchestrator) ChooseTrump(ctx context.Context, roomID, playerID uuid.UUID, suit models.Suit) error {
	err := o.update(ctx, roomID, func(rt *roomRuntime, g *models.Game) error {
		return o.applyTrump(rt, g, playerID, suit)
	})
	if err != nil {
		return err
	}
	o.markActive(ctx, roomID, playerID)
	o.Advance(roomID)
	return nil
}

// DealingDone ends the deal animation. Every client may report it; only the
// first report moves the game on.
func (o *Orchestrator) DealingDone(ctx context.Context, roomID uuid.UUID) error {
	err := o.update(ctx, roomID, func(rt *roomRuntime, g *models.Game) error {
		if g.Status != models.StatusDealing || !g.HandsDealt() {
			return errNoChange
		}
		o.timers.Remove(roomID, uuid.Nil)

		switch {
		case g.CurrentHand == game.NineCardHand && g.Trump == nil:
			g.Status = models.StatusChoosingTrump
		case g.CurrentHand == game.NineCardHand:
			g.Status = models.StatusBid
		default:
			g.Status = models.StatusTrump
		}
		o.logAction(rt, g, uuid.Nil, "dealing_done", map[string]interface{}{"next": g.Status})
		return nil
	})
	if errors.Is(err, errNoChange) {
		return nil
	}
	if err != nil {
		return err
	}
	o.Advance(roomID)
	return nil
}

// PlayerLeft marks a player who quit a running match. The seat stays and is
// played by the bot on a short clock. Returns game.ErrGameNotFound when the
// room has no running match.
func (o *Orchestrator) PlayerLeft(ctx context.Context, roomID, playerID uuid.UUID) error {
	g, err := o.games.GetGame(ctx, roomID)
	if err != nil {
		return err
	}
	if g.Status == models.StatusFinished || g.Seat(playerID) < 0 {
		return game.ErrGameNotFound
	}

	if err := o.rooms.UpdateUserStatus(ctx, roomID, playerID, models.UserLeft); err != nil {
		return err
	}
	if o.results != nil {
		if err := o.results.RecordGameLeft(ctx, playerID); err != nil {
			o.roomLog(roomID).WithError(err).Error("failed to record game left")
		}
	}
	o.roomLog(roomID).WithField("player", playerID).Info("player left running game")
	return o.Repair(ctx, roomID)
}

// DestroyRoom tears the room down immediately: timers, game, round counter
// and the room itself.
func (o *Orchestrator) DestroyRoom(ctx context.Context, roomID uuid.UUID) error {
	return o.withRoom(ctx, roomID, func(rt *roomRuntime) error {
		o.teardownLocked(ctx, rt, roomID)
		return nil
	})
}

func (o *Orchestrator) applyBid(rt *roomRuntime, g *models.Game, playerID uuid.UUID, bid int) error {
	if err := game.ValidateBid(g, playerID, bid); err != nil {
		return err
	}
	game.RecordBid(g, playerID, bid)
	o.timers.Remove(g.RoomID, playerID)

	if playerID == g.DealerID {
		g.Status = models.StatusPlaying
		g.CurrentPlayerID = g.NextPlayer(g.DealerID)
	} else {
		g.CurrentPlayerID = g.NextPlayer(playerID)
	}
	o.logAction(rt, g, playerID, "bid", map[string]interface{}{
		"hand": g.HandCount,
		"bid":  bid,
	})
	return nil
}

func (o *Orchestrator) applyTrump(rt *roomRuntime, g *models.Game, playerID uuid.UUID, suit models.Suit) error {
	if err := game.ValidateTrumpChoice(g, playerID, suit); err != nil {
		return err
	}
	g.Trump = &models.Trump{Suit: suit, Chosen: true}
	o.timers.Remove(g.RoomID, playerID)
	o.logAction(rt, g, playerID, "choose_trump", map[string]interface{}{
		"hand": g.HandCount,
		"suit": suit,
	})
	return nil
}

func (o *Orchestrator) applyPlay(ctx context.Context, rt *roomRuntime, g *models.Game, playerID uuid.UUID, card models.Card) error {
	held, err := game.ValidatePlay(g, playerID, card)
	if err != nil {
		return err
	}
	game.ApplyPlay(g, playerID, held)
	o.timers.Remove(g.RoomID, playerID)
	o.logAction(rt, g, playerID, "play_card", map[string]interface{}{
		"hand": g.HandCount,
		"card": held,
	})

	if len(g.PlayedCards) < game.TrickSize {
		g.CurrentPlayerID = g.NextPlayer(playerID)
		return nil
	}
	return o.resolveTrick(ctx, rt, g)
}

// resolveTrick settles a complete trick and, after the last trick of the
// hand, scores the hand and hands the deal to the next seat.
func (o *Orchestrator) resolveTrick(ctx context.Context, rt *roomRuntime, g *models.Game) error {
	winner, err := game.DetermineTrickWinner(g.PlayedCards, g.TrumpSuit())
	if err != nil {
		return err
	}
	trick := g.PlayedCards
	o.queue(rt, g, uuid.Nil, models.EventTrickWinner, models.TrickWinnerPayload{
		PlayerID: winner.PlayerID,
		Card:     winner.Card,
		Trick:    trick,
	})
	game.RecordTrickWin(g, winner.PlayerID)
	g.LastPlayedCards = trick
	g.PlayedCards = nil
	g.CurrentPlayerID = winner.PlayerID
	o.logAction(rt, g, winner.PlayerID, "trick_won", map[string]interface{}{
		"hand": g.HandCount,
		"card": winner.Card,
	})

	count, err := o.games.GetRoundCount(ctx, g.RoomID)
	if err != nil {
		return err
	}
	count++
	if count < g.CurrentHand {
		return o.setRoundCount(rt, g, count)
	}

	game.ScoreHand(g, o.cfg.MissPolicy)
	points := make(map[string]int, len(g.Players))
	for _, pid := range g.Players {
		p, _ := models.Lookup(g.HandPoints, pid, g.HandCount)
		points[pid.String()] = p
	}
	o.logAction(rt, g, uuid.Nil, "hand_scored", map[string]interface{}{
		"hand":   g.HandCount,
		"points": points,
	})

	g.DealerID = g.NextPlayer(g.DealerID)
	g.HandCount++
	g.Status = models.StatusWaiting
	g.Trump = nil
	g.Hands = nil
	g.CurrentPlayerID = g.NextPlayer(g.DealerID)
	return o.setRoundCount(rt, g, 0)
}

// setRoundCount stages the trick counter for the next commit. It refuses
// counts beyond the hand size.
func (o *Orchestrator) setRoundCount(rt *roomRuntime, g *models.Game, n int) error {
	if n < 0 || n > g.CurrentHand {
		return fmt.Errorf("%w: round count %d exceeds hand size %d", ErrStateMismatch, n, g.CurrentHand)
	}
	rt.roundCount = &n
	return nil
}
