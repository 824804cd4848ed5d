package scheduler

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"crm_assistant_backend/internal/events"
	"crm_assistant_backend/platform/config"
	"crm_assistant_backend/platform/logger"
)

// Client schedules reminder tasks. A nil client is valid and drops every
// schedule request, so the API runs without Redis.
type Client struct {
	client *asynq.Client
	queue  string
}

// NewClient connects to Redis. Returns an error when REDIS_URL is not set;
// callers treat that as "scheduling disabled".
func NewClient(cfg *config.Config) (*Client, error) {
	if cfg.RedisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(cfg.RedisURL)
	if err != nil {
		return nil, err
	}

	queue := cfg.QueueName
	if queue == "" {
		queue = "default"
	}

	return &Client{
		client: asynq.NewClient(opt),
		queue:  queue,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// ScheduleActionReminder enqueues a reminder task to run at runAt.
func (c *Client) ScheduleActionReminder(ctx context.Context, payload ActionReminderPayload, runAt time.Time) error {
	if c == nil || c.client == nil {
		return nil
	}

	task, err := NewActionReminderTask(payload)
	if err != nil {
		return err
	}

	_, err = c.client.EnqueueContext(ctx, task, asynq.ProcessAt(runAt), asynq.Queue(c.queue))
	return err
}

// SubscribeReminders wires the client to the event bus: every persisted
// reminder becomes a delayed task at its remind time.
func (c *Client) SubscribeReminders(bus events.Bus, log *logger.Logger) {
	if c == nil || bus == nil {
		return
	}

	bus.Subscribe("crm.action.reminder_scheduled", events.HandlerFunc(func(ctx context.Context, e events.Event) error {
		scheduled, ok := e.(events.ActionReminderScheduled)
		if !ok {
			return fmt.Errorf("unexpected event type %T", e)
		}

		payload := ActionReminderPayload{
			ActionID: scheduled.ActionID.String(),
			OwnerID:  scheduled.OwnerID.String(),
		}
		if err := c.ScheduleActionReminder(ctx, payload, scheduled.RemindAt); err != nil {
			log.Error("schedule action reminder", "action_id", payload.ActionID, "error", err)
			return err
		}
		log.Info("action reminder scheduled",
			"action_id", payload.ActionID,
			"remind_at", scheduled.RemindAt,
		)
		return nil
	}))
}

func redisClientOpt(redisURL string) (asynq.RedisClientOpt, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	var tlsConfig *tls.Config
	if opt.TLSConfig != nil {
		tlsConfig = opt.TLSConfig.Clone()
	}

	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: tlsConfig,
	}, nil
}
