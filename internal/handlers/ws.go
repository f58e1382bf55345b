package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Luka-CB/card-game-server/internal/flow"
	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/middleware"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/Luka-CB/card-game-server/internal/room"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	subprotocol  = "joker"
	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
	pingTimeout  = 15 * time.Second

	// Clients may burst messageBurst messages, then one per messageEvery.
	messageEvery = 100 * time.Millisecond
	messageBurst = 10
)

// ClientMessage is an incoming websocket message. Fields other than Type
// are read depending on it.
type ClientMessage struct {
	Type     string      `json:"type"`
	RoomID   uuid.UUID   `json:"roomId"`
	Password string      `json:"password,omitempty"`
	Bid      int         `json:"bid,omitempty"`
	Card     models.Card `json:"card"`
	Suit     models.Suit `json:"suit,omitempty"`
}

// session is the per-connection state of the read loop.
type session struct {
	s    *Server
	c    *client
	user models.User
	log  *logrus.Entry

	limiter *rate.Limiter
}

// WSHandler upgrades to a websocket, authenticates the caller and serves
// their messages until the connection closes. A user already seated in a
// room is re-attached to it immediately.
func (s *Server) WSHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{subprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warnf("websocket accept error: %v", err)
		return
	}
	defer conn.Close(websocket.StatusInternalError, "handler finished")

	if conn.Subprotocol() != subprotocol {
		conn.Close(BadSubprotocolError, "client must speak the joker subprotocol")
		return
	}

	token := requestToken(r)
	if token == "" {
		conn.Close(InvalidAuthTokenError, "missing auth token")
		return
	}
	user, err := s.signer.AuthenticateJWT(token)
	if err != nil {
		conn.Close(InvalidAuthTokenError, "invalid auth token")
		return
	}
	if user.ID == uuid.Nil {
		conn.Close(InvalidUserIDError, "invalid user id")
		return
	}

	// ?roomId= joins a room straight away instead of resuming.
	var target uuid.UUID
	if raw := r.URL.Query().Get("roomId"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			conn.Close(InvalidRoomIDError, "malformed room id")
			return
		}
		if _, err := s.rooms.GetRoom(r.Context(), id); err != nil {
			if errors.Is(err, room.ErrRoomNotFound) {
				conn.Close(InvalidRoomIDError, "room not found")
			} else {
				s.log.WithError(err).Error("failed to load room")
			}
			return
		}
		target = id
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	c := s.hub.register(user.ID, cancel)
	sess := &session{
		s:    s,
		c:    c,
		user: user,
		log:  s.log.WithFields(logrus.Fields{"user": user.ID, "remote": r.RemoteAddr}),

		limiter: rate.NewLimiter(rate.Every(messageEvery), messageBurst),
	}
	middleware.LogWebSocketConnect(s.log, r.RemoteAddr, user.ID)

	go writePump(ctx, conn, c, sess.log)
	if target != uuid.Nil {
		sess.joinRoom(ctx, ClientMessage{RoomID: target, Password: r.URL.Query().Get("password")})
	} else {
		sess.resume(ctx)
	}

	readErr := sess.readPump(ctx, conn)

	s.hub.unregister(c)
	if roomID := s.hub.room(c); roomID != uuid.Nil {
		s.presence.Disconnect(roomID, user.ID)
	}
	middleware.LogWebSocketDisconnect(s.log, r.RemoteAddr, user.ID, readErr)
	conn.Close(websocket.StatusNormalClosure, "")
}

// resume re-attaches a reconnecting player to the room they are seated in.
func (sess *session) resume(ctx context.Context) {
	r, ok, err := sess.s.rooms.FindUserRoom(ctx, sess.user.ID)
	if err != nil {
		sess.log.WithError(err).Warn("failed to look up seated room")
		return
	}
	if !ok {
		sess.sendRooms(ctx)
		return
	}
	if u, _ := r.User(sess.user.ID); u.Status == models.UserLeft {
		sess.sendRooms(ctx)
		return
	}
	sess.joinRoom(ctx, ClientMessage{RoomID: r.ID})
}

func (sess *session) readPump(ctx context.Context, conn *websocket.Conn) error {
	for {
		if err := sess.limiter.Wait(ctx); err != nil {
			return nil
		}
		typ, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			sess.log.Warnf("ignoring non-text message type %d", typ)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			sess.sendError("invalid JSON format")
			continue
		}
		sess.log.WithField("type", msg.Type).Debug("message received")
		sess.handle(ctx, msg)
	}
}

func (sess *session) handle(ctx context.Context, msg ClientMessage) {
	switch msg.Type {
	case "ping":
		sess.send(models.Event{Type: models.EventPong})
	case "join_room":
		sess.joinRoom(ctx, msg)
	case "leave_room":
		sess.leaveRoom(ctx)
	case "get_game_info":
		sess.gameInfo(ctx)
	case "submit_bid":
		sess.inRoom(func(roomID uuid.UUID) error {
			return sess.s.flow.SubmitBid(ctx, roomID, sess.user.ID, msg.Bid)
		})
	case "play_card":
		sess.inRoom(func(roomID uuid.UUID) error {
			return sess.s.flow.PlayCard(ctx, roomID, sess.user.ID, msg.Card)
		})
	case "choose_trump":
		sess.inRoom(func(roomID uuid.UUID) error {
			return sess.s.flow.ChooseTrump(ctx, roomID, sess.user.ID, msg.Suit)
		})
	case "dealing_done":
		sess.inRoom(func(roomID uuid.UUID) error {
			return sess.s.flow.DealingDone(ctx, roomID)
		})
	default:
		sess.sendError(fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

// inRoom runs fn against the attached room and reports its error to the client.
func (sess *session) inRoom(fn func(roomID uuid.UUID) error) {
	roomID := sess.s.hub.room(sess.c)
	if roomID == uuid.Nil {
		sess.sendError("you are not in a room")
		return
	}
	if err := fn(roomID); err != nil {
		sess.log.WithError(err).WithField("room", roomID).Debug("action rejected")
		sess.sendError(err.Error())
	}
}

func (sess *session) joinRoom(ctx context.Context, msg ClientMessage) {
	s := sess.s
	if msg.RoomID == uuid.Nil {
		sess.sendError("roomId is required")
		return
	}
	current := s.hub.room(sess.c)
	if current != uuid.Nil && current != msg.RoomID {
		sess.sendError("leave your current room first")
		return
	}

	r, err := s.rooms.GetRoom(ctx, msg.RoomID)
	if err != nil {
		sess.sendError(err.Error())
		return
	}
	if u, ok := r.User(sess.user.ID); ok && u.Status == models.UserLeft {
		sess.sendError("you left this game")
		return
	}

	r, err = s.rooms.JoinRoom(ctx, msg.RoomID, models.RoomUser{ID: sess.user.ID, Username: sess.user.Username}, msg.Password)
	if err != nil {
		sess.sendError(err.Error())
		return
	}
	if current != msg.RoomID {
		s.hub.attach(sess.c, r.ID)
		s.presence.Connect(r.ID, sess.user.ID)
	}
	sess.log.WithField("room", r.ID).Info("joined room")

	s.emitRoomState(ctx, r.ID)
	s.broadcastRooms(ctx)

	if !r.IsFull() {
		return
	}
	g, err := s.flow.Start(ctx, r.ID)
	if err != nil {
		sess.log.WithError(err).WithField("room", r.ID).Error("failed to start game")
		sess.sendError(err.Error())
		return
	}
	sess.send(models.Event{Type: models.EventGameState, RoomID: r.ID, Payload: g})
	if err := s.flow.Repair(ctx, r.ID); err != nil && !errors.Is(err, game.ErrGameNotFound) {
		sess.log.WithError(err).Warn("repair after join failed")
	}
}

// leaveRoom quits a running match, keeping the seat for the bot, or simply
// unseats the user when no match is running.
func (sess *session) leaveRoom(ctx context.Context) {
	s := sess.s
	roomID := s.hub.room(sess.c)
	if roomID == uuid.Nil {
		sess.sendError("you are not in a room")
		return
	}

	err := s.flow.PlayerLeft(ctx, roomID, sess.user.ID)
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		if _, err := s.rooms.LeaveRoom(ctx, roomID, sess.user.ID); err != nil {
			sess.sendError(err.Error())
			return
		}
	case err != nil:
		sess.sendError(err.Error())
		return
	}

	s.presence.Forget(roomID, sess.user.ID)
	s.hub.detachUser(sess.user.ID, roomID)
	sess.log.WithField("room", roomID).Info("left room")

	s.emitRoomState(ctx, roomID)
	s.broadcastRooms(ctx)
}

func (sess *session) gameInfo(ctx context.Context) {
	s := sess.s
	roomID := s.hub.room(sess.c)
	if roomID == uuid.Nil {
		sess.sendError("you are not in a room")
		return
	}
	g, err := s.flow.CurrentState(ctx, roomID, sess.user.ID)
	if errors.Is(err, game.ErrGameNotFound) {
		r, err := s.rooms.GetRoom(ctx, roomID)
		if err != nil {
			sess.sendError(flow.ErrRoomNotFound.Error())
			return
		}
		sess.send(models.Event{Type: models.EventRoomState, RoomID: roomID, Payload: r.Public()})
		return
	}
	if err != nil {
		sess.sendError(err.Error())
		return
	}
	sess.send(models.Event{Type: models.EventGameState, RoomID: roomID, Payload: g})
}

func (sess *session) sendRooms(ctx context.Context) {
	rooms, err := sess.s.publicRooms(ctx)
	if err != nil {
		sess.log.WithError(err).Warn("failed to list rooms")
		return
	}
	sess.send(models.Event{Type: models.EventRooms, Payload: rooms})
}

func (sess *session) send(ev models.Event) {
	sess.s.hub.send(sess.c, ev)
}

func (sess *session) sendError(msg string) {
	sess.send(models.Event{
		Type:    models.EventError,
		RoomID:  sess.s.hub.room(sess.c),
		Payload: map[string]string{"message": msg},
	})
}

// writePump drains the client's outbox and keeps the connection alive with pings.
func writePump(ctx context.Context, conn *websocket.Conn, c *client, log *logrus.Entry) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case data := <-c.out:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.WithError(err).Warn("failed to write to websocket")
				c.cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				log.WithError(err).Warn("ping failed, assuming disconnect")
				c.cancel()
				return
			}
		}
	}
}
