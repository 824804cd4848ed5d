// Package scheduler enqueues and processes delayed reminder tasks backed by
// Redis. The API process schedules, the worker process delivers.
package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskActionReminder = "actions.reminder"

// ActionReminderPayload identifies the action whose reminder came due.
type ActionReminderPayload struct {
	ActionID string `json:"actionId"`
	OwnerID  string `json:"ownerId"`
}

func NewActionReminderTask(payload ActionReminderPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskActionReminder, data), nil
}

func ParseActionReminderPayload(task *asynq.Task) (ActionReminderPayload, error) {
	var payload ActionReminderPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ActionReminderPayload{}, err
	}
	return payload, nil
}
