// Package repository provides PostgreSQL persistence for the CRM entities.
// Every query is scoped by the owning user and filters out soft-deleted rows.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository is the persistence interface consumed by the CRM service.
type Repository interface {
	// Establishments
	GetEstablishment(ctx context.Context, ownerID, id uuid.UUID) (Establishment, error)
	ListEstablishments(ctx context.Context, ownerID uuid.UUID) ([]Establishment, error)
	InsertEstablishment(ctx context.Context, est Establishment) (Establishment, error)
	InsertEstablishmentMinimal(ctx context.Context, ownerID uuid.UUID, name, canonicalName, kind string) (Establishment, error)
	UpdateEstablishment(ctx context.Context, est Establishment) error
	SoftDeleteEstablishment(ctx context.Context, ownerID, id uuid.UUID) error
	RepointRelations(ctx context.Context, fromEstablishmentID, toEstablishmentID uuid.UUID) error

	// Aliases
	ListAliases(ctx context.Context, ownerID uuid.UUID) ([]Alias, error)
	InsertAlias(ctx context.Context, establishmentID uuid.UUID, alias string) error

	// Contacts
	ListContacts(ctx context.Context, establishmentID uuid.UUID) ([]Contact, error)
	InsertContact(ctx context.Context, c Contact) (Contact, error)
	UpdateContact(ctx context.Context, c Contact) error
	MoveContacts(ctx context.Context, fromEstablishmentID, toEstablishmentID uuid.UUID) (int64, error)

	// Actions
	InsertAction(ctx context.Context, a Action) (Action, error)
	GetAction(ctx context.Context, ownerID, id uuid.UUID) (Action, error)
	ListActions(ctx context.Context, ownerID, establishmentID uuid.UUID) ([]Action, error)
	ListUpcomingReminders(ctx context.Context, ownerID uuid.UUID, until time.Time) ([]Action, error)

	// Competitive entries
	InsertCompetitiveEntry(ctx context.Context, e CompetitiveEntry) (CompetitiveEntry, error)
	ListCompetitiveEntries(ctx context.Context, ownerID, establishmentID uuid.UUID) ([]CompetitiveEntry, error)
	ListOwnerCompetitiveEntries(ctx context.Context, ownerID uuid.UUID) ([]CompetitiveEntry, error)

	// Internal users
	ListInternalUsers(ctx context.Context) ([]InternalUser, error)
	GetInternalUser(ctx context.Context, id uuid.UUID) (InternalUser, error)
	InsertInternalUser(ctx context.Context, u InternalUser) (InternalUser, error)

	// Audit trail
	InsertAuditRecord(ctx context.Context, rec AuditRecord) error
	ListAuditRecords(ctx context.Context, userID uuid.UUID, limit int) ([]AuditRecord, error)
}

// Repo implements Repository with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new CRM repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)
