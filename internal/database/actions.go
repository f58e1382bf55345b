package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Luka-CB/card-game-server/internal/cache"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ActionWriter persists the action log drained by the historian.
type ActionWriter struct {
	pool *pgxpool.Pool
}

func NewActionWriter(pool *pgxpool.Pool) *ActionWriter {
	return &ActionWriter{pool: pool}
}

// InsertGameActions writes a batch of action records in one transaction.
// A game_created record opens the match row and game_finished closes it.
// Records already stored are skipped.
func (w *ActionWriter) InsertGameActions(ctx context.Context, records []cache.GameActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	return pgx.BeginTxFunc(ctx, w.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			if err := queueAction(batch, rec); err != nil {
				return err
			}
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert %d actions: %w", len(records), err)
		}
		return nil
	})
}

func queueAction(batch *pgx.Batch, rec cache.GameActionRecord) error {
	at := time.UnixMilli(rec.Timestamp)

	switch rec.ActionType {
	case cache.ActionGameCreated:
		typ, _ := rec.ActionPayload["type"].(string)
		hisht, _ := rec.ActionPayload["hisht"].(float64)
		batch.Queue(`
			INSERT INTO matches (id, room_id, game_type, hisht, status, start_time)
			VALUES ($1, $2, $3, $4, 'in_progress', $5)
			ON CONFLICT (id) DO NOTHING
		`, rec.GameID, rec.RoomID, typ, int(hisht), at)
	case cache.ActionGameFinished:
		batch.Queue(`
			UPDATE matches
			SET status = 'completed', end_time = $2
			WHERE id = $1 AND status = 'in_progress'
		`, rec.GameID, at)
	}

	payload, err := json.Marshal(rec.ActionPayload)
	if err != nil {
		return fmt.Errorf("encode payload of action %d: %w", rec.ActionIndex, err)
	}
	var actor *uuid.UUID
	if rec.ActorUserID != uuid.Nil {
		actor = &rec.ActorUserID
	}
	batch.Queue(`
		INSERT INTO game_actions (
			match_id, room_id, action_index, actor_user_id, action_type, action_payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (match_id, action_index) DO NOTHING
	`, rec.GameID, rec.RoomID, rec.ActionIndex, actor, rec.ActionType, payload, at)
	return nil
}

// MarkAbandoned closes a match that stopped producing actions.
func (w *ActionWriter) MarkAbandoned(ctx context.Context, matchID uuid.UUID) (bool, error) {
	var updated bool
	err := pgx.BeginTxFunc(ctx, w.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE matches
			SET status = 'abandoned', end_time = NOW()
			WHERE id = $1 AND status = 'in_progress'
		`, matchID)
		updated = tag.RowsAffected() > 0
		return err
	})
	if err != nil {
		return false, fmt.Errorf("mark match %s abandoned: %w", matchID, err)
	}
	return updated, nil
}
