package cron

import (
	"context"
	"encoding/json"
	"time"

	"faredown/config"
	"faredown/models"
	"faredown/services/analytics"
	"faredown/services/bargain"
	"faredown/utils"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

const (
	TypeCounterExpire = "bargain:counter_expire"
	TypeHoldExpire    = "bargain:hold_expire"
)

type expiryPayload struct {
	SessionID string `json:"sessionId"`
	HoldToken string `json:"holdToken,omitempty"`
}

// AsynqScheduler enqueues deferred expiry checks on the Redis-backed
// task queue.
type AsynqScheduler struct {
	client *asynq.Client
}

func NewScheduler() *AsynqScheduler {
	return &AsynqScheduler{client: asynq.NewClient(queueRedisOpts())}
}

func (s *AsynqScheduler) ScheduleCounterExpiry(ctx context.Context, sessionID string, at time.Time) error {
	return s.enqueue(ctx, TypeCounterExpire, expiryPayload{SessionID: sessionID}, at)
}

func (s *AsynqScheduler) ScheduleHoldExpiry(ctx context.Context, sessionID, holdToken string, at time.Time) error {
	return s.enqueue(ctx, TypeHoldExpire, expiryPayload{SessionID: sessionID, HoldToken: holdToken}, at)
}

func (s *AsynqScheduler) enqueue(ctx context.Context, taskType string, p expiryPayload, at time.Time) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.client.EnqueueContext(ctx, asynq.NewTask(taskType, data), asynq.ProcessAt(at))
	return err
}

func (s *AsynqScheduler) Close() error {
	return s.client.Close()
}

// InitExpiryWorker runs the async worker in background. The handlers only
// record ledger events; session state transitions stay with the request
// path, which re-checks expiry on every accept.
func InitExpiryWorker(sessions bargain.SessionStore, holds bargain.HoldStore, recorder analytics.Recorder) {
	logger := utils.GetLogger()

	srv := asynq.NewServer(
		queueRedisOpts(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCounterExpire, handleCounterExpire(sessions, recorder))
	mux.HandleFunc(TypeHoldExpire, handleHoldExpire(holds, recorder))

	go func() {
		logger.Info("starting expiry worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("expiry worker failed to start",
					zap.Int("attempt", attempts), zap.Error(err))

				if attempts == maxAttempts {
					logger.Fatal("expiry worker could not start, giving up")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

// handleCounterExpire records the expiry of a counter-offer the user let
// lapse. Sessions that moved on (accepted, rejected, new offer) are skipped.
func handleCounterExpire(sessions bargain.SessionStore, recorder analytics.Recorder) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p expiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return err
		}

		session, err := sessions.Get(ctx, p.SessionID)
		if err != nil {
			return err
		}
		if session == nil || session.State != models.SessionNegotiating {
			return nil
		}
		if session.CounterExpiresAt == nil || session.CounterExpiresAt.After(time.Now()) {
			return nil
		}

		recorder.Record(ctx, p.SessionID, models.EventCounterExpired, map[string]any{
			"counterOffer": session.LastCounterOffer,
			"attempts":     session.AttemptCount,
		})
		return nil
	}
}

// handleHoldExpire records holds that lapsed. The Redis TTL removes the
// blob itself, so by the time the task fires the hold is usually gone.
func handleHoldExpire(holds bargain.HoldStore, recorder analytics.Recorder) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p expiryPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			return err
		}

		hold, err := holds.Get(ctx, p.HoldToken)
		if err != nil {
			return err
		}
		if hold != nil && hold.ExpiresAt.After(time.Now()) {
			return nil
		}

		recorder.Record(ctx, p.SessionID, models.EventHoldExpired, map[string]any{
			"holdToken": p.HoldToken,
		})
		return nil
	}
}

func queueRedisOpts() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}
