package repository

import (
	"time"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/bag"
)

// Establishment kinds.
const (
	KindClient       = "client"
	KindProspect     = "prospect"
	KindFormerClient = "former_client"
)

// Commercial statuses commonly produced by the assistant. Free text is
// allowed, these are the two the inference rules emit.
const (
	StatusWon       = "won"
	StatusToContact = "to_contact"
)

// Action kinds. This set is fixed by a storage CHECK constraint and must not
// be widened ad hoc.
const (
	ActionCall  = "call"
	ActionVisit = "visit"
	ActionMail  = "mail"
	ActionOther = "other"
)

// Establishment is a client or prospect company record.
type Establishment struct {
	ID                uuid.UUID
	OwnerID           uuid.UUID
	Name              string
	CanonicalName     string
	DisplayName       string
	Kind              string
	CommercialStatus  string
	Street            string
	PostalCode        string
	City              string
	Sector            string
	Subsector         string
	Coefficient       *float64
	GroupName         string
	PrimaryCompetitor string
	Notes             string
	Extra             bag.Bag
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Alias is a recognized name variant of an establishment.
type Alias struct {
	ID              uuid.UUID
	EstablishmentID uuid.UUID
	Alias           string
}

// Contact is a person attached to an establishment.
type Contact struct {
	ID                uuid.UUID
	EstablishmentID   uuid.UUID
	LastName          string
	FirstName         string
	Role              string
	Phone             string
	Email             string
	ContactPreference string
	Notes             string
	Extra             bag.Bag
	CreatedAt         time.Time
}

// Action is a planned or past interaction with an establishment. When
// RemindAt is non-nil and Kind is "call", the action is a reminder and both
// timestamps hold the same instant.
type Action struct {
	ID              uuid.UUID
	EstablishmentID uuid.UUID
	ContactID       *uuid.UUID
	AssigneeID      *uuid.UUID
	OwnerID         uuid.UUID
	Kind            string
	OccursAt        time.Time
	RemindAt        *time.Time
	Comment         string
	Outcome         string
	Extra           bag.Bag
	CreatedAt       time.Time
}

// CompetitiveEntry records a competitor's presence at an establishment.
type CompetitiveEntry struct {
	ID                  uuid.UUID
	EstablishmentID     uuid.UUID
	OwnerID             uuid.UUID
	MainCompetitor      string
	Positions           []string
	Sector              string
	Subsector           string
	ObservedCoefficient *float64
	Status              string
	StartedOn           *time.Time
	EndedOn             *time.Time
	Remarks             string
	CreatedAt           time.Time
}

// InternalUser is one of the agency's own staff members.
type InternalUser struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
}

// AuditRecord is one immutable trace of a tool invocation.
type AuditRecord struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	ToolName  string
	Arguments []byte
	Result    []byte
	Success   bool
	CreatedAt time.Time
}
