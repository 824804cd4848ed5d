package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"crm_assistant_backend/internal/events"
	"crm_assistant_backend/platform/config"
	"crm_assistant_backend/platform/logger"
)

func newTestClient(t *testing.T) (*Client, *asynq.Inspector) {
	t.Helper()

	mr := miniredis.RunT(t)
	cfg := &config.Config{
		RedisURL:  "redis://" + mr.Addr(),
		QueueName: "reminders",
	}

	client, err := NewClient(cfg)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { client.Close() })

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: mr.Addr()})
	t.Cleanup(func() { inspector.Close() })
	return client, inspector
}

func TestScheduleActionReminder(t *testing.T) {
	client, inspector := newTestClient(t)

	payload := ActionReminderPayload{
		ActionID: uuid.NewString(),
		OwnerID:  uuid.NewString(),
	}
	runAt := time.Now().Add(2 * time.Hour)

	if err := client.ScheduleActionReminder(context.Background(), payload, runAt); err != nil {
		t.Fatalf("ScheduleActionReminder: %v", err)
	}

	scheduled, err := inspector.ListScheduledTasks("reminders")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(scheduled) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(scheduled))
	}
	if scheduled[0].Type != TaskActionReminder {
		t.Fatalf("task type = %q", scheduled[0].Type)
	}

	parsed, err := ParseActionReminderPayload(asynq.NewTask(scheduled[0].Type, scheduled[0].Payload))
	if err != nil {
		t.Fatalf("parse payload: %v", err)
	}
	if parsed.ActionID != payload.ActionID || parsed.OwnerID != payload.OwnerID {
		t.Fatalf("payload round trip mismatch: %+v", parsed)
	}
}

func TestNilClientDropsSchedules(t *testing.T) {
	var client *Client
	err := client.ScheduleActionReminder(context.Background(), ActionReminderPayload{}, time.Now())
	if err != nil {
		t.Fatalf("nil client should be a no-op, got %v", err)
	}
}

func TestSubscribeRemindersEnqueuesOnEvent(t *testing.T) {
	client, inspector := newTestClient(t)

	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	client.SubscribeReminders(bus, log)

	event := events.ActionReminderScheduled{
		BaseEvent: events.NewBaseEvent(),
		ActionID:  uuid.New(),
		OwnerID:   uuid.New(),
		Kind:      "call",
		RemindAt:  time.Now().Add(time.Hour),
	}
	if err := bus.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("PublishSync: %v", err)
	}

	scheduled, err := inspector.ListScheduledTasks("reminders")
	if err != nil {
		t.Fatalf("ListScheduledTasks: %v", err)
	}
	if len(scheduled) != 1 {
		t.Fatalf("expected 1 scheduled task, got %d", len(scheduled))
	}
}

func TestNewClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(&config.Config{}); err == nil {
		t.Fatal("expected an error without REDIS_URL")
	}
}
