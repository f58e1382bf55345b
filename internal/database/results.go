package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/Luka-CB/card-game-server/internal/game"
	"github.com/Luka-CB/card-game-server/internal/models"
	"github.com/Luka-CB/card-game-server/internal/rating"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"
)

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Recorder writes finished matches and keeps user_stats and ratings current.
type Recorder struct {
	pool *pgxpool.Pool
	log  *logrus.Entry
}

func NewRecorder(pool *pgxpool.Pool, logger *logrus.Logger) *Recorder {
	return &Recorder{pool: pool, log: logger.WithField("component", "recorder")}
}

// RecordMatchResults stores the match, one result row per finisher, and
// re-rates every finisher. All of it happens in one transaction.
func (r *Recorder) RecordMatchResults(ctx context.Context, g *models.Game, standings []game.Standing) error {
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		upsertMatch := `
			INSERT INTO matches (id, room_id, game_type, hisht, status, start_time, end_time)
			VALUES ($1, $2, $3, $4, 'completed', $5, NOW())
			ON CONFLICT (id)
			DO UPDATE SET status = 'completed', end_time = NOW()
		`
		if _, err := tx.Exec(ctx, upsertMatch, g.ID, g.RoomID, string(g.Type), g.Hisht, g.CreatedAt); err != nil {
			return err
		}

		for _, s := range standings {
			q := `
				INSERT INTO match_results (match_id, user_id, place, score)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (match_id, user_id)
				DO UPDATE SET place = $3, score = $4
			`
			if _, err := tx.Exec(ctx, q, g.ID, s.PlayerID, s.Place, s.Total); err != nil {
				return err
			}

			stats, err := loadStats(ctx, tx, s.PlayerID, true)
			if err != nil {
				return err
			}
			if err := saveStats(ctx, tx, rating.Finish(stats, s.Place)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tx record match %s: %w", g.ID, err)
	}
	r.log.WithFields(logrus.Fields{"match": g.ID, "players": len(standings)}).Info("match results recorded")
	return nil
}

// RecordGameLeft counts a match the user walked out of.
func (r *Recorder) RecordGameLeft(ctx context.Context, userID uuid.UUID) error {
	err := pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		stats, err := loadStats(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		return saveStats(ctx, tx, rating.Leave(stats))
	})
	if err != nil {
		return fmt.Errorf("tx record game left for %s: %w", userID, err)
	}
	return nil
}

// GetUserStats returns the user's record. Users without one get zero stats.
func (r *Recorder) GetUserStats(ctx context.Context, userID uuid.UUID) (models.UserStats, error) {
	return loadStats(ctx, r.pool, userID, false)
}

func loadStats(ctx context.Context, q queryRower, userID uuid.UUID, forUpdate bool) (models.UserStats, error) {
	sql := `
		SELECT games_played, finished_first, finished_second, finished_third,
		       finished_fourth, games_left, rating
		FROM user_stats
		WHERE user_id = $1
	`
	if forUpdate {
		sql += " FOR UPDATE"
	}

	s := models.UserStats{UserID: userID}
	f := &s.GamesFinished
	err := q.QueryRow(ctx, sql, userID).Scan(
		&s.GamesPlayed, &f.First, &f.Second, &f.Third,
		&f.Fourth, &s.GamesLeft, &s.Rating,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("load stats for %s: %w", userID, err)
	}
	return s, nil
}

func saveStats(ctx context.Context, tx pgx.Tx, s models.UserStats) error {
	q := `
		INSERT INTO user_stats (user_id, games_played, finished_first, finished_second,
		                        finished_third, finished_fourth, games_left, rating, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET games_played = $2, finished_first = $3, finished_second = $4,
		              finished_third = $5, finished_fourth = $6, games_left = $7,
		              rating = $8, updated_at = NOW()
	`
	f := s.GamesFinished
	_, err := tx.Exec(ctx, q, s.UserID, s.GamesPlayed, f.First, f.Second, f.Third, f.Fourth, s.GamesLeft, s.Rating)
	if err != nil {
		return fmt.Errorf("save stats for %s: %w", s.UserID, err)
	}
	return nil
}
