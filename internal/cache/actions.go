package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for game action logs.
const DefaultQueueName = "joker_actions"

// GameActionRecord holds the minimal info needed by the historian.
type GameActionRecord struct {
	GameID        uuid.UUID              `json:"game_id"`
	RoomID        uuid.UUID              `json:"room_id"`
	ActionIndex   int                    `json:"action_index"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Action types that open and close a match.
const (
	ActionGameCreated  = "game_created"
	ActionGameFinished = "game_finished"
)

// ErrBadRecord marks a queue entry that is not a GameActionRecord.
var ErrBadRecord = errors.New("cache: malformed action record")

// ActionPublisher ships action records to the historian.
type ActionPublisher interface {
	PublishGameAction(ctx context.Context, record GameActionRecord) error
}

// RedisActionLog pushes records onto a Redis list.
type RedisActionLog struct {
	rdb   *redis.Client
	queue string
}

// NewRedisActionLog returns a publisher for queue, or DefaultQueueName when empty.
func NewRedisActionLog(rdb *redis.Client, queue string) *RedisActionLog {
	if queue == "" {
		queue = DefaultQueueName
	}
	return &RedisActionLog{rdb: rdb, queue: queue}
}

// PublishGameAction serializes the given record to JSON, then pushes it to the Redis queue.
func (l *RedisActionLog) PublishGameAction(ctx context.Context, record GameActionRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal GameActionRecord: %w", err)
	}
	if err := l.rdb.RPush(ctx, l.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", l.queue, err)
	}
	return nil
}

// PopGameAction blocks up to timeout for the next record. ok is false when
// the queue stayed empty.
func (l *RedisActionLog) PopGameAction(ctx context.Context, timeout time.Duration) (record GameActionRecord, ok bool, err error) {
	res, err := l.rdb.BLPop(ctx, timeout, l.queue).Result()
	if errors.Is(err, redis.Nil) {
		return record, false, nil
	}
	if err != nil {
		return record, false, fmt.Errorf("BLPOP %s: %w", l.queue, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return record, false, nil
	}
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return record, false, fmt.Errorf("%w: %w", ErrBadRecord, err)
	}
	return record, true, nil
}
