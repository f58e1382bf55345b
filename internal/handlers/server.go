// Package handlers exposes the game over HTTP and websockets.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Luka-CB/card-game-server/internal/auth"
	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/Luka-CB/card-game-server/internal/room"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// GameFlow is the part of the orchestrator the handlers drive.
type GameFlow interface {
	Start(ctx context.Context, roomID uuid.UUID) (*models.Game, error)
	CurrentState(ctx context.Context, roomID, playerID uuid.UUID) (*models.Game, error)
	SubmitBid(ctx context.Context, roomID, playerID uuid.UUID, bid int) error
	PlayCard(ctx context.Context, roomID, playerID uuid.UUID, card models.Card) error
	ChooseTrump(ctx context.Context, roomID, playerID uuid.UUID, suit models.Suit) error
	DealingDone(ctx context.Context, roomID uuid.UUID) error
	PlayerLeft(ctx context.Context, roomID, playerID uuid.UUID) error
	Repair(ctx context.Context, roomID uuid.UUID) error
}

// StatsReader serves player records. It is nil when no database is configured.
type StatsReader interface {
	GetUserStats(ctx context.Context, userID uuid.UUID) (models.UserStats, error)
}

// Options configure a Server. Flow, Rooms, Signer and Hub are required.
type Options struct {
	Flow            GameFlow
	Rooms           *room.Directory
	Signer          *auth.Signer
	Hub             *Hub
	Stats           StatsReader
	DisconnectGrace time.Duration
	Logger          *logrus.Logger
}

// Server owns the HTTP routes, the websocket endpoint and seat presence.
type Server struct {
	flow     GameFlow
	rooms    *room.Directory
	signer   *auth.Signer
	hub      *Hub
	stats    StatsReader
	presence *room.Presence
	log      *logrus.Logger
}

func NewServer(opts Options) *Server {
	s := &Server{
		flow:   opts.Flow,
		rooms:  opts.Rooms,
		signer: opts.Signer,
		hub:    opts.Hub,
		stats:  opts.Stats,
		log:    opts.Logger,
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	if s.hub == nil {
		s.hub = NewHub(s.log)
	}
	s.presence = room.NewPresence(opts.DisconnectGrace, s.onAbsent)
	return s
}

// Routes returns the server's mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/guest", s.GuestHandler)
	mux.HandleFunc("GET /rooms", s.ListRoomsHandler)
	mux.HandleFunc("POST /rooms", s.CreateRoomHandler)
	mux.HandleFunc("GET /stats/{userID}", s.StatsHandler)
	mux.HandleFunc("GET /ws", s.WSHandler)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// authenticate resolves the caller from the request token.
func (s *Server) authenticate(r *http.Request) (models.User, error) {
	token := requestToken(r)
	if token == "" {
		return models.User{}, auth.ErrInvalidToken
	}
	return s.signer.AuthenticateJWT(token)
}

// onAbsent runs once a seated user has been gone for the grace period. The
// bot takes over on the short clock; users who left stay left.
func (s *Server) onAbsent(roomID, userID uuid.UUID) {
	ctx := context.Background()
	log := s.log.WithFields(logrus.Fields{"room": roomID, "user": userID})

	r, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		log.WithError(err).Debug("absent user's room is gone")
		return
	}
	if u, ok := r.User(userID); !ok || u.Status == models.UserLeft {
		return
	}
	if err := s.rooms.UpdateUserStatus(ctx, roomID, userID, models.UserBusy); err != nil {
		log.WithError(err).Warn("failed to mark absent user busy")
		return
	}
	log.Info("user absent, bot takes the seat")
	s.emitRoomState(ctx, roomID)

	if err := s.flow.Repair(ctx, roomID); err != nil && !errors.Is(err, game.ErrGameNotFound) {
		log.WithError(err).Error("repair after absence failed")
	}
}

// emitRoomState sends the room to everyone attached to it.
func (s *Server) emitRoomState(ctx context.Context, roomID uuid.UUID) {
	r, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return
	}
	s.hub.EmitRoom(roomID, models.Event{Type: models.EventRoomState, RoomID: roomID, Payload: r.Public()})
}

// broadcastRooms sends the public room list to every connection.
func (s *Server) broadcastRooms(ctx context.Context) {
	rooms, err := s.publicRooms(ctx)
	if err != nil {
		s.log.WithError(err).Warn("failed to list rooms for broadcast")
		return
	}
	s.hub.Broadcast(models.Event{Type: models.EventRooms, Payload: rooms})
}

func (s *Server) publicRooms(ctx context.Context) ([]models.Room, error) {
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Room, len(rooms))
	for i, r := range rooms {
		out[i] = r.Public()
	}
	return out, nil
}
