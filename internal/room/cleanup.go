package room

import (
	"context"
	"time"

	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	DefaultCleanupInterval     = 5 * time.Minute
	DefaultInactivityThreshold = 30 * time.Minute
)

// Lister lists rooms.
type Lister interface {
	ListRooms(ctx context.Context) ([]models.Room, error)
}

// Destroyer removes a room together with everything attached to it.
type Destroyer interface {
	DestroyRoom(ctx context.Context, roomID uuid.UUID) error
}

// CleanupService periodically destroys rooms without recent activity.
type CleanupService struct {
	rooms     Lister
	destroyer Destroyer
	interval  time.Duration
	threshold time.Duration
	log       *logrus.Entry
}

func NewCleanupService(rooms Lister, destroyer Destroyer, interval, threshold time.Duration, logger *logrus.Logger) *CleanupService {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if threshold <= 0 {
		threshold = DefaultInactivityThreshold
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CleanupService{
		rooms:     rooms,
		destroyer: destroyer,
		interval:  interval,
		threshold: threshold,
		log:       logger.WithField("component", "room_cleanup"),
	}
}

// Start runs a sweep immediately and then every interval until ctx is done.
func (s *CleanupService) Start(ctx context.Context) {
	s.log.Infof("checking every %s for rooms inactive longer than %s", s.interval, s.threshold)
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.RunOnce(ctx, time.Now())
		for {
			select {
			case <-ctx.Done():
				s.log.Info("room cleanup stopped")
				return
			case now := <-ticker.C:
				s.RunOnce(ctx, now)
			}
		}
	}()
}

// RunOnce destroys every room inactive for longer than the threshold at now
// and returns how many were removed. Rooms without an activity timestamp are skipped.
func (s *CleanupService) RunOnce(ctx context.Context, now time.Time) int {
	rooms, err := s.rooms.ListRooms(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to list rooms")
		return 0
	}

	removed := 0
	for _, r := range rooms {
		if r.LastActivityAt.IsZero() {
			continue
		}
		idle := now.Sub(r.LastActivityAt)
		if idle <= s.threshold {
			continue
		}
		log := s.log.WithFields(logrus.Fields{"room": r.ID, "idle": idle.Round(time.Minute)})
		if err := s.destroyer.DestroyRoom(ctx, r.ID); err != nil {
			log.WithError(err).Error("failed to delete inactive room")
			continue
		}
		log.Info("deleted inactive room")
		removed++
	}
	if removed > 0 {
		s.log.Infof("cleaned up %d inactive rooms", removed)
	}
	return removed
}
