package room

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingDestroyer struct {
	fail map[uuid.UUID]bool
	next Destroyer
}

func (f failingDestroyer) DestroyRoom(ctx context.Context, roomID uuid.UUID) error {
	if f.fail[roomID] {
		return errors.New("boom")
	}
	return f.next.DestroyRoom(ctx, roomID)
}

func TestCleanupRemovesInactiveRooms(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	d.now = func() time.Time { return base }
	stale, err := d.CreateRoom(ctx, models.Room{Name: "stale"})
	require.NoError(t, err)
	d.now = func() time.Time { return base.Add(25 * time.Minute) }
	fresh, err := d.CreateRoom(ctx, models.Room{Name: "fresh"})
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	s := NewCleanupService(d, d, time.Minute, 30*time.Minute, logger)

	assert.Equal(t, 1, s.RunOnce(ctx, base.Add(31*time.Minute)))
	_, err = d.GetRoom(ctx, stale.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)
	_, err = d.GetRoom(ctx, fresh.ID)
	assert.NoError(t, err)

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.InfoLevel, entry.Level)
}

func TestCleanupSkipsRoomsWithoutActivity(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory()
	r := &models.Room{ID: uuid.New(), Name: "legacy"}
	require.NoError(t, d.put(ctx, r))

	s := NewCleanupService(d, d, 0, 0, nil)
	assert.Zero(t, s.RunOnce(ctx, time.Now().Add(24*time.Hour)))
	_, err := d.GetRoom(ctx, r.ID)
	assert.NoError(t, err)
}

func TestCleanupContinuesAfterFailure(t *testing.T) {
	ctx := context.Background()
	d := newTestDirectory()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return base }

	a, err := d.CreateRoom(ctx, models.Room{Name: "a"})
	require.NoError(t, err)
	b, err := d.CreateRoom(ctx, models.Room{Name: "b"})
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	destroyer := failingDestroyer{fail: map[uuid.UUID]bool{a.ID: true}, next: d}
	s := NewCleanupService(d, destroyer, time.Minute, time.Minute, logger)

	assert.Equal(t, 1, s.RunOnce(ctx, base.Add(time.Hour)))
	_, err = d.GetRoom(ctx, b.ID)
	assert.ErrorIs(t, err, ErrRoomNotFound)

	var errorsLogged int
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			errorsLogged++
		}
	}
	assert.Equal(t, 1, errorsLogged)
}
