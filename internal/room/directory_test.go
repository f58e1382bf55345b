package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Luka-CB/card-game-server/internal/cache"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDirectory() *Directory {
	return NewDirectory(cache.NewMemoryHashStore())
}

func user(name string) models.RoomUser {
	return models.RoomUser{ID: uuid.New(), Username: name}
}

func TestCreateRoomDefaults(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	r, err := d.CreateRoom(ctx, models.Room{Name: "table"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, r.ID)
	assert.Equal(t, models.GameClassic, r.Type)
	assert.Equal(t, statusPublic, r.Status)
	assert.Empty(t, r.Users)
	assert.False(t, r.LastActivityAt.IsZero())

	got, err := d.GetRoom(ctx, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Name, got.Name)
}

func TestCreateRoomValidation(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()

	cases := []struct {
		name string
		room models.Room
	}{
		{"missing name", models.Room{}},
		{"unknown type", models.Room{Name: "x", Type: "poker"}},
		{"negative hisht", models.Room{Name: "x", Hisht: -100}},
		{"private without password", models.Room{Name: "x", Status: statusPrivateRoom}},
		{"unknown status", models.Room{Name: "x", Status: "secret"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := d.CreateRoom(ctx, tc.room)
			assert.ErrorIs(t, err, ErrInvalidRoom)
		})
	}
}

func TestJoinRoom(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()
	r, err := d.CreateRoom(ctx, models.Room{Name: "table"})
	require.NoError(t, err)

	var seated []models.RoomUser
	for i := 0; i < models.MaxRoomUsers; i++ {
		u := user("p")
		got, err := d.JoinRoom(ctx, r.ID, u, "")
		require.NoError(t, err)
		seated = append(seated, u)
		assert.Len(t, got.Users, i+1)
		assert.Equal(t, models.UserActive, got.Users[i].Status)
	}

	_, err = d.JoinRoom(ctx, r.ID, user("late"), "")
	assert.ErrorIs(t, err, ErrRoomFull)

	// Seated users may rejoin a full room.
	require.NoError(t, d.UpdateUserStatus(ctx, r.ID, seated[2].ID, models.UserInactive))
	got, err := d.JoinRoom(ctx, r.ID, seated[2], "")
	require.NoError(t, err)
	assert.Len(t, got.Users, models.MaxRoomUsers)
	assert.Equal(t, models.UserActive, got.Users[2].Status)
	for i, u := range got.Users {
		assert.Equal(t, seated[i].ID, u.ID, "join order is kept")
	}
}

func TestJoinRoomRejectsSecondRoom(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()
	a, err := d.CreateRoom(ctx, models.Room{Name: "a"})
	require.NoError(t, err)
	b, err := d.CreateRoom(ctx, models.Room{Name: "b"})
	require.NoError(t, err)

	u := user("p")
	_, err = d.JoinRoom(ctx, a.ID, u, "")
	require.NoError(t, err)
	_, err = d.JoinRoom(ctx, b.ID, u, "")
	assert.ErrorIs(t, err, ErrAlreadyInRoom)

	found, ok, err := d.FindUserRoom(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, a.ID, found.ID)
}

func TestJoinPrivateRoom(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()
	r, err := d.CreateRoom(ctx, models.Room{Name: "p", Status: statusPrivateRoom, Password: "joker"})
	require.NoError(t, err)
	assert.NotEqual(t, "joker", r.Password, "stored hashed")
	assert.Empty(t, r.Public().Password)

	_, err = d.JoinRoom(ctx, r.ID, user("a"), "wrong")
	assert.ErrorIs(t, err, ErrWrongPassword)
	_, err = d.JoinRoom(ctx, r.ID, user("a"), "joker")
	assert.NoError(t, err)
}

func TestLeaveRoomDeletesEmptyRoom(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()
	r, err := d.CreateRoom(ctx, models.Room{Name: "table"})
	require.NoError(t, err)
	a, b := user("a"), user("b")
	_, err = d.JoinRoom(ctx, r.ID, a, "")
	require.NoError(t, err)
	_, err = d.JoinRoom(ctx, r.ID, b, "")
	require.NoError(t, err)

	left, err := d.LeaveRoom(ctx, r.ID, a.ID)
	require.NoError(t, err)
	require.NotNil(t, left)
	assert.Len(t, left.Users, 1)

	left, err = d.LeaveRoom(ctx, r.ID, b.ID)
	require.NoError(t, err)
	assert.Nil(t, left)
	_, err = d.GetRoom(ctx, r.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestUpdateUserStatus(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()
	r, err := d.CreateRoom(ctx, models.Room{Name: "table"})
	require.NoError(t, err)
	u := user("a")
	_, err = d.JoinRoom(ctx, r.ID, u, "")
	require.NoError(t, err)

	assert.ErrorIs(t, d.UpdateUserStatus(ctx, r.ID, u.ID, "sleepy"), ErrInvalidStatus)
	assert.ErrorIs(t, d.UpdateUserStatus(ctx, r.ID, uuid.New(), models.UserBusy), ErrUserNotInRoom)
	require.NoError(t, d.UpdateUserStatus(ctx, r.ID, u.ID, models.UserBusy))

	got, err := d.GetRoom(ctx, r.ID)
	require.NoError(t, err)
	seated, ok := got.User(u.ID)
	require.True(t, ok)
	assert.Equal(t, models.UserBusy, seated.Status)
}

func TestListRoomsOldestFirst(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		at := base.Add(time.Duration(i) * time.Minute)
		d.now = func() time.Time { return at }
		_, err := d.CreateRoom(ctx, models.Room{Name: name})
		require.NoError(t, err)
	}

	rooms, err := d.ListRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, "first", rooms[0].Name)
	assert.Equal(t, "third", rooms[2].Name)
}

func TestConcurrentJoinsNeverOverfill(t *testing.T) {
	d := newTestDirectory()
	ctx := context.Background()
	r, err := d.CreateRoom(ctx, models.Room{Name: "rush"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = d.JoinRoom(ctx, r.ID, user("p"), "")
		}()
	}
	wg.Wait()

	got, err := d.GetRoom(ctx, r.ID)
	require.NoError(t, err)
	assert.Len(t, got.Users, models.MaxRoomUsers)
}
