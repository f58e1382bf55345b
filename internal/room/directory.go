// Package room keeps the table directory, seat presence and inactive-room cleanup.
package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Luka-CB/card-game-server/internal/auth"
	"github.com/Luka-CB/card-game-server/internal/cache"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
)

const (
	roomsKey = "rooms"

	statusPublic      = "public"
	statusPrivateRoom = "private"
)

var (
	ErrRoomNotFound  = errors.New("room no longer exists")
	ErrRoomFull      = errors.New("room is full")
	ErrAlreadyInRoom = errors.New("you can't be in more than one room at the same time")
	ErrWrongPassword = errors.New("wrong room password")
	ErrInvalidRoom   = errors.New("invalid room")
	ErrUserNotInRoom = errors.New("user is not in the room")
	ErrInvalidStatus = errors.New("invalid user status")
)

// Directory stores rooms as JSON documents in the "rooms" hash. Mutations go
// through one process-wide mutex, so a single server owns the directory.
type Directory struct {
	hashes cache.HashStore
	mu     sync.Mutex
	now    func() time.Time
}

func NewDirectory(hashes cache.HashStore) *Directory {
	return &Directory{hashes: hashes, now: time.Now}
}

// CreateRoom validates r, assigns its id and timestamps and stores it.
// Private room passwords are stored as argon2id hashes. The host is not
// seated; hosts join like everyone else.
func (d *Directory) CreateRoom(ctx context.Context, r models.Room) (*models.Room, error) {
	if r.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRoom)
	}
	if r.Type == "" {
		r.Type = models.GameClassic
	}
	if !r.Type.Valid() {
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRoom, r.Type)
	}
	if r.Hisht < 0 {
		return nil, fmt.Errorf("%w: hisht must not be negative", ErrInvalidRoom)
	}
	switch r.Status {
	case "":
		r.Status = statusPublic
	case statusPublic:
	case statusPrivateRoom:
		if r.Password == "" {
			return nil, fmt.Errorf("%w: private rooms need a password", ErrInvalidRoom)
		}
		hash, err := auth.HashPassword(r.Password, auth.RoomPasswordParams)
		if err != nil {
			return nil, err
		}
		r.Password = hash
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidRoom, r.Status)
	}

	now := d.now()
	r.ID = uuid.New()
	r.Users = []models.RoomUser{}
	r.CreatedAt = now
	r.LastActivityAt = now

	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.put(ctx, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (d *Directory) GetRoom(ctx context.Context, roomID uuid.UUID) (*models.Room, error) {
	raw, err := d.hashes.HGet(ctx, roomsKey, roomID.String())
	if errors.Is(err, cache.ErrNotFound) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	var r models.Room
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return nil, fmt.Errorf("decode room %s: %w", roomID, err)
	}
	return &r, nil
}

// ListRooms returns every room, oldest first.
func (d *Directory) ListRooms(ctx context.Context) ([]models.Room, error) {
	all, err := d.hashes.HGetAll(ctx, roomsKey)
	if err != nil {
		return nil, err
	}
	rooms := make([]models.Room, 0, len(all))
	for id, raw := range all {
		var r models.Room
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("decode room %s: %w", id, err)
		}
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool {
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	return rooms, nil
}

// JoinRoom seats user as active. A user already seated in this room is
// re-activated instead, which is how reconnects rejoin.
func (d *Directory) JoinRoom(ctx context.Context, roomID uuid.UUID, user models.RoomUser, password string) (*models.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	user.Status = models.UserActive

	for i, u := range r.Users {
		if u.ID == user.ID {
			r.Users[i].Status = models.UserActive
			r.LastActivityAt = d.now()
			return r, d.put(ctx, r)
		}
	}

	if r.IsFull() {
		return nil, ErrRoomFull
	}
	if r.Status == statusPrivateRoom {
		ok, err := auth.CheckPassword(password, r.Password)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrWrongPassword
		}
	}
	if other, ok, err := d.findUserRoom(ctx, user.ID); err != nil {
		return nil, err
	} else if ok && other.ID != roomID {
		return nil, ErrAlreadyInRoom
	}

	r.Users = append(r.Users, user)
	r.LastActivityAt = d.now()
	return r, d.put(ctx, r)
}

// LeaveRoom unseats the user. The room is deleted once nobody is left, in
// which case the returned room is nil.
func (d *Directory) LeaveRoom(ctx context.Context, roomID, userID uuid.UUID) (*models.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	users := r.Users[:0]
	for _, u := range r.Users {
		if u.ID != userID {
			users = append(users, u)
		}
	}
	r.Users = users

	if len(r.Users) == 0 {
		return nil, d.hashes.HDel(ctx, roomsKey, roomID.String())
	}
	r.LastActivityAt = d.now()
	return r, d.put(ctx, r)
}

func (d *Directory) UpdateUserStatus(ctx context.Context, roomID, userID uuid.UUID, status models.UserStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	for i := range r.Users {
		if r.Users[i].ID == userID {
			r.Users[i].Status = status
			return d.put(ctx, r)
		}
	}
	return ErrUserNotInRoom
}

// TouchActivity records activity in the room for inactivity cleanup.
func (d *Directory) TouchActivity(ctx context.Context, roomID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, err := d.GetRoom(ctx, roomID)
	if err != nil {
		return err
	}
	r.LastActivityAt = d.now()
	return d.put(ctx, r)
}

func (d *Directory) DestroyRoom(ctx context.Context, roomID uuid.UUID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.GetRoom(ctx, roomID); err != nil {
		return err
	}
	return d.hashes.HDel(ctx, roomsKey, roomID.String())
}

// FindUserRoom returns the room the user is seated in, if any.
func (d *Directory) FindUserRoom(ctx context.Context, userID uuid.UUID) (*models.Room, bool, error) {
	return d.findUserRoom(ctx, userID)
}

func (d *Directory) findUserRoom(ctx context.Context, userID uuid.UUID) (*models.Room, bool, error) {
	rooms, err := d.ListRooms(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range rooms {
		if _, ok := rooms[i].User(userID); ok {
			return &rooms[i], true, nil
		}
	}
	return nil, false, nil
}

func (d *Directory) put(ctx context.Context, r *models.Room) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode room %s: %w", r.ID, err)
	}
	return d.hashes.HSet(ctx, roomsKey, r.ID.String(), string(data))
}
