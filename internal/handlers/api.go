package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/Luka-CB/card-game-server/internal/room"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const maxUsernameLength = 24

type guestRequest struct {
	Username string `json:"username"`
}

type guestResponse struct {
	User  models.User `json:"user"`
	Token string      `json:"token"`
}

// GuestHandler issues a token for a new guest identity and sets it as the
// auth_token cookie.
func (s *Server) GuestHandler(w http.ResponseWriter, r *http.Request) {
	var req guestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "bad guest request payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" {
		req.Username = "Guest"
	}
	if len(req.Username) > maxUsernameLength {
		writeError(w, http.StatusBadRequest, "username too long")
		return
	}

	u, token, err := s.signer.CreateGuestJWT(req.Username)
	if err != nil {
		s.log.WithError(err).Error("failed to create guest token")
		writeError(w, http.StatusInternalServerError, "failed to create token")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		HttpOnly: true,
		Path:     "/",
	})
	writeJSON(w, http.StatusOK, guestResponse{User: u, Token: token})
}

// ListRoomsHandler returns every room without passwords, oldest first.
func (s *Server) ListRoomsHandler(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.publicRooms(r.Context())
	if err != nil {
		s.log.WithError(err).Error("failed to list rooms")
		writeError(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

type createRoomRequest struct {
	Name     string          `json:"name"`
	Type     models.GameType `json:"type"`
	Hisht    int             `json:"hisht"`
	Status   string          `json:"status"`
	Password string          `json:"password"`
}

// CreateRoomHandler creates a room hosted by the caller and seats them.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	user, err := s.authenticate(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad room request payload")
		return
	}

	ctx := r.Context()
	if _, seated, err := s.rooms.FindUserRoom(ctx, user.ID); err != nil {
		s.log.WithError(err).Error("failed to look up user room")
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	} else if seated {
		writeError(w, http.StatusConflict, room.ErrAlreadyInRoom.Error())
		return
	}

	created, err := s.rooms.CreateRoom(ctx, models.Room{
		Name:     strings.TrimSpace(req.Name),
		Type:     req.Type,
		Hisht:    req.Hisht,
		Status:   req.Status,
		Password: req.Password,
		HostID:   user.ID,
	})
	if errors.Is(err, room.ErrInvalidRoom) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.log.WithError(err).Error("failed to create room")
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	joined, err := s.rooms.JoinRoom(ctx, created.ID, models.RoomUser{ID: user.ID, Username: user.Username}, req.Password)
	if err != nil {
		s.log.WithError(err).WithField("room", created.ID).Error("host failed to join new room")
		_ = s.rooms.DestroyRoom(ctx, created.ID)
		writeError(w, http.StatusInternalServerError, "failed to create room")
		return
	}
	s.log.WithFields(logrus.Fields{"room": joined.ID, "host": user.ID}).Info("room created")
	s.broadcastRooms(ctx)
	writeJSON(w, http.StatusCreated, joined.Public())
}

// StatsHandler returns a player's lifetime record. Unknown players have
// zero stats.
func (s *Server) StatsHandler(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusServiceUnavailable, "stats are not available")
		return
	}
	userID, err := uuid.Parse(r.PathValue("userID"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	stats, err := s.stats.GetUserStats(r.Context(), userID)
	if err != nil {
		s.log.WithError(err).WithField("user", userID).Error("failed to load stats")
		writeError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
