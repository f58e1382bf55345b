// Package historian drains the game action queue into the database in
// batches and marks matches abandoned once they stop producing actions.
package historian

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Luka-CB/card-game-server/internal/cache"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Source yields queued action records.
type Source interface {
	PopGameAction(ctx context.Context, timeout time.Duration) (cache.GameActionRecord, bool, error)
}

// Sink persists records and closes idle matches.
type Sink interface {
	InsertGameActions(ctx context.Context, records []cache.GameActionRecord) error
	MarkAbandoned(ctx context.Context, matchID uuid.UUID) (bool, error)
}

type Config struct {
	BatchSize  int
	FlushDelay time.Duration
	// Inactivity is how long a match may go without actions before it is abandoned.
	Inactivity      time.Duration
	InactivityCheck time.Duration
	PopTimeout      time.Duration
	ErrorBackoff    time.Duration
	// MaxPending bounds the records kept while the database is failing.
	MaxPending int
}

func DefaultConfig() Config {
	return Config{
		BatchSize:       20,
		FlushDelay:      500 * time.Millisecond,
		Inactivity:      10 * time.Minute,
		InactivityCheck: time.Minute,
		PopTimeout:      3 * time.Second,
		ErrorBackoff:    time.Second,
		MaxPending:      1000,
	}
}

// Service is the historian worker.
type Service struct {
	src  Source
	sink Sink
	cfg  Config
	log  *logrus.Logger
	now  func() time.Time

	batchMu sync.Mutex
	batch   []cache.GameActionRecord

	activityMu   sync.Mutex
	lastActivity map[uuid.UUID]time.Time
}

func New(src Source, sink Sink, cfg Config, logger *logrus.Logger) *Service {
	def := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = def.FlushDelay
	}
	if cfg.Inactivity <= 0 {
		cfg.Inactivity = def.Inactivity
	}
	if cfg.InactivityCheck <= 0 {
		cfg.InactivityCheck = def.InactivityCheck
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = def.PopTimeout
	}
	if cfg.ErrorBackoff <= 0 {
		cfg.ErrorBackoff = def.ErrorBackoff
	}
	if cfg.MaxPending < cfg.BatchSize {
		cfg.MaxPending = cfg.BatchSize * 50
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		src:          src,
		sink:         sink,
		cfg:          cfg,
		log:          logger,
		now:          time.Now,
		batch:        make([]cache.GameActionRecord, 0, cfg.BatchSize),
		lastActivity: make(map[uuid.UUID]time.Time),
	}
}

// Run starts the read, flush and inactivity loops and blocks until ctx is
// done. Whatever is still batched is flushed before it returns.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); s.readLoop(ctx) }()
	go func() { defer wg.Done(); s.every(ctx, s.cfg.FlushDelay, func() { s.Flush(context.Background()) }) }()
	go func() {
		defer wg.Done()
		s.every(ctx, s.cfg.InactivityCheck, func() { s.Sweep(context.Background(), s.now()) })
	}()

	s.log.Info("historian started")
	<-ctx.Done()
	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.Flush(flushCtx)
	s.log.Info("historian stopped")
}

func (s *Service) every(ctx context.Context, d time.Duration, fn func()) {
	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

func (s *Service) readLoop(ctx context.Context) {
	for ctx.Err() == nil {
		rec, ok, err := s.src.PopGameAction(ctx, s.cfg.PopTimeout)
		switch {
		case errors.Is(err, cache.ErrBadRecord):
			s.log.WithError(err).Warn("skipping invalid action record")
			continue
		case err != nil:
			if ctx.Err() != nil {
				return
			}
			s.log.WithError(err).Error("failed to pop action record")
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.cfg.ErrorBackoff):
			}
			continue
		case !ok:
			continue
		}
		s.Add(ctx, rec)
	}
}

// Add tracks the record's match and batches it, flushing when the batch is full.
func (s *Service) Add(ctx context.Context, rec cache.GameActionRecord) {
	s.activityMu.Lock()
	if rec.ActionType == cache.ActionGameFinished {
		delete(s.lastActivity, rec.GameID)
	} else {
		s.lastActivity[rec.GameID] = s.now()
	}
	s.activityMu.Unlock()

	s.batchMu.Lock()
	s.batch = append(s.batch, rec)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(ctx)
	}
}

// Flush writes the current batch and reports how many records were stored.
// On failure the records are kept for the next flush, up to MaxPending.
func (s *Service) Flush(ctx context.Context) int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()

	if len(s.batch) == 0 {
		return 0
	}
	pending := s.batch
	if err := s.sink.InsertGameActions(ctx, pending); err != nil {
		s.log.WithError(err).WithField("records", len(pending)).Error("failed to flush actions")
		if over := len(pending) - s.cfg.MaxPending; over > 0 {
			s.log.WithField("dropped", over).Error("action backlog full, dropping oldest records")
			s.batch = append([]cache.GameActionRecord(nil), pending[over:]...)
		}
		return 0
	}
	s.batch = make([]cache.GameActionRecord, 0, s.cfg.BatchSize)
	s.log.Debugf("flushed %d actions", len(pending))
	return len(pending)
}

// Sweep marks every match idle since before now-Inactivity as abandoned and
// returns how many were closed.
func (s *Service) Sweep(ctx context.Context, now time.Time) int {
	var idle []uuid.UUID
	s.activityMu.Lock()
	for id, last := range s.lastActivity {
		if now.Sub(last) > s.cfg.Inactivity {
			idle = append(idle, id)
			delete(s.lastActivity, id)
		}
	}
	s.activityMu.Unlock()

	// Pending records of an idle match must land before it is closed.
	if len(idle) > 0 {
		s.Flush(ctx)
	}

	closed := 0
	for _, id := range idle {
		updated, err := s.sink.MarkAbandoned(ctx, id)
		if err != nil {
			s.log.WithError(err).WithField("match", id).Error("failed to mark match abandoned")
			continue
		}
		if updated {
			closed++
			s.log.WithField("match", id).Info("match abandoned due to inactivity")
		}
	}
	return closed
}
