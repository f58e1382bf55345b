package flow

import (
	"time"

	"github.com/Luka-CB/card-game-server/internal/game"
)

// Config holds the pacing of a room. Zero durations are valid and make the
// flow run as fast as the scheduler allows, which tests rely on.
type Config struct {
	TurnDuration     time.Duration
	AwayTurnDuration time.Duration
	DealAnimation    time.Duration

	RevealInitialDelay time.Duration
	RevealStepDelay    time.Duration
	RevealSettleDelay  time.Duration

	NextHandDelay time.Duration
	FinishedGrace time.Duration

	LockRetryDelay  time.Duration
	LockWaitTimeout time.Duration

	RepairDelay   time.Duration
	BotRetryDelay time.Duration
	RecoveryDelay time.Duration
	MaxBotRetries int

	// MaxSteps caps one Advance pass.
	MaxSteps int

	MissPolicy   game.MissPolicy
	DefaultHisht int
}

func DefaultConfig() Config {
	return Config{
		TurnDuration:     20 * time.Second,
		AwayTurnDuration: 3 * time.Second,
		DealAnimation:    4 * time.Second,

		RevealInitialDelay: time.Second,
		RevealStepDelay:    800 * time.Millisecond,
		RevealSettleDelay:  1500 * time.Millisecond,

		NextHandDelay: 3 * time.Second,
		FinishedGrace: 60 * time.Second,

		LockRetryDelay:  50 * time.Millisecond,
		LockWaitTimeout: 2 * time.Second,

		RepairDelay:   time.Second,
		BotRetryDelay: time.Second,
		RecoveryDelay: 2 * time.Second,
		MaxBotRetries: 2,

		MaxSteps: 16,

		MissPolicy:   game.MissByWins,
		DefaultHisht: 200,
	}
}
