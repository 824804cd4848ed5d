// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"crm_assistant_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// CRM Domain Events
// =============================================================================

// ActionReminderScheduled is published when an action carrying a reminder
// timestamp is persisted. The scheduler picks it up and enqueues delivery.
type ActionReminderScheduled struct {
	BaseEvent
	ActionID          uuid.UUID `json:"actionId"`
	OwnerID           uuid.UUID `json:"ownerId"`
	EstablishmentName string    `json:"establishmentName"`
	Kind              string    `json:"kind"`
	RemindAt          time.Time `json:"remindAt"`
	Comment           string    `json:"comment,omitempty"`
}

func (e ActionReminderScheduled) EventName() string { return "crm.action.reminder_scheduled" }

// EstablishmentsMerged is published after an explicit merge completes.
type EstablishmentsMerged struct {
	BaseEvent
	MasterID    uuid.UUID `json:"masterId"`
	DuplicateID uuid.UUID `json:"duplicateId"`
	OwnerID     uuid.UUID `json:"ownerId"`
}

func (e EstablishmentsMerged) EventName() string { return "crm.establishment.merged" }
