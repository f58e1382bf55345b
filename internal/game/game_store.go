package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/Luka-CB/card-game-server/internal/cache"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
)

const (
	gamesKey      = "games"
	roundCountKey = "roundCount"
)

// ErrGameNotFound is returned when no game exists for a room.
var ErrGameNotFound = errors.New("game not found")

// Store is the durable room -> game mapping plus the per-room count of
// completed tricks in the current hand.
type Store interface {
	GetGame(ctx context.Context, roomID uuid.UUID) (*models.Game, error)
	SaveGame(ctx context.Context, g *models.Game) error
	DeleteGame(ctx context.Context, roomID uuid.UUID) error

	GetRoundCount(ctx context.Context, roomID uuid.UUID) (int, error)
	SetRoundCount(ctx context.Context, roomID uuid.UUID, count int) error
	DeleteRoundCount(ctx context.Context, roomID uuid.UUID) error
}

// GameStore keeps games as JSON documents in the "games" hash and the round
// counter in the "roundCount" hash.
type GameStore struct {
	hashes cache.HashStore
}

func NewGameStore(hashes cache.HashStore) *GameStore {
	return &GameStore{hashes: hashes}
}

func (s *GameStore) GetGame(ctx context.Context, roomID uuid.UUID) (*models.Game, error) {
	raw, err := s.hashes.HGet(ctx, gamesKey, roomID.String())
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, err
	}
	var g models.Game
	if err := json.Unmarshal([]byte(raw), &g); err != nil {
		return nil, fmt.Errorf("decode game for room %s: %w", roomID, err)
	}
	return &g, nil
}

func (s *GameStore) SaveGame(ctx context.Context, g *models.Game) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("encode game for room %s: %w", g.RoomID, err)
	}
	return s.hashes.HSet(ctx, gamesKey, g.RoomID.String(), string(data))
}

func (s *GameStore) DeleteGame(ctx context.Context, roomID uuid.UUID) error {
	return s.hashes.HDel(ctx, gamesKey, roomID.String())
}

// GetRoundCount returns 0 when no counter is stored.
func (s *GameStore) GetRoundCount(ctx context.Context, roomID uuid.UUID) (int, error) {
	raw, err := s.hashes.HGet(ctx, roundCountKey, roomID.String())
	if errors.Is(err, cache.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("decode round count for room %s: %w", roomID, err)
	}
	return n, nil
}

func (s *GameStore) SetRoundCount(ctx context.Context, roomID uuid.UUID, count int) error {
	return s.hashes.HSet(ctx, roundCountKey, roomID.String(), strconv.Itoa(count))
}

func (s *GameStore) DeleteRoundCount(ctx context.Context, roomID uuid.UUID) error {
	return s.hashes.HDel(ctx, roundCountKey, roomID.String())
}
