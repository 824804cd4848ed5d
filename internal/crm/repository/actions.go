package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"crm_assistant_backend/internal/crm/bag"
	"crm_assistant_backend/platform/apperr"
)

const actionColumns = `
	id, establishment_id, contact_id, assignee_id, owner_id,
	kind, occurs_at, remind_at, COALESCE(comment, ''), COALESCE(outcome, ''),
	extra, created_at`

// InsertAction creates one action row.
func (r *Repo) InsertAction(ctx context.Context, a Action) (Action, error) {
	query := `
		INSERT INTO actions (
			establishment_id, contact_id, assignee_id, owner_id,
			kind, occurs_at, remind_at, comment, outcome, extra
		) VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		a.EstablishmentID, a.ContactID, a.AssigneeID, a.OwnerID,
		a.Kind, a.OccursAt, a.RemindAt, a.Comment, a.Outcome, a.Extra.JSON(),
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return Action{}, fmt.Errorf("insert action: %w", err)
	}
	return a, nil
}

// GetAction retrieves one live action by id, scoped to the owner.
func (r *Repo) GetAction(ctx context.Context, ownerID, id uuid.UUID) (Action, error) {
	query := `
		SELECT ` + actionColumns + `
		FROM actions
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`

	var a Action
	var extraJSON []byte
	err := r.pool.QueryRow(ctx, query, id, ownerID).Scan(
		&a.ID, &a.EstablishmentID, &a.ContactID, &a.AssigneeID, &a.OwnerID,
		&a.Kind, &a.OccursAt, &a.RemindAt, &a.Comment, &a.Outcome,
		&extraJSON, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Action{}, apperr.NotFound("action introuvable")
		}
		return Action{}, fmt.Errorf("get action: %w", err)
	}
	if a.Extra, err = bag.FromJSON(extraJSON); err != nil {
		return Action{}, err
	}
	return a, nil
}

// ListActions retrieves the owner's live actions, optionally filtered by
// establishment (pass uuid.Nil for all).
func (r *Repo) ListActions(ctx context.Context, ownerID, establishmentID uuid.UUID) ([]Action, error) {
	query := `
		SELECT ` + actionColumns + `
		FROM actions
		WHERE owner_id = $1 AND deleted_at IS NULL
			AND ($2::uuid = '00000000-0000-0000-0000-000000000000' OR establishment_id = $2)
		ORDER BY occurs_at DESC
		LIMIT 100`

	rows, err := r.pool.Query(ctx, query, ownerID, establishmentID)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	return scanActions(rows)
}

// ListUpcomingReminders retrieves live actions with a reminder between now
// and the given horizon.
func (r *Repo) ListUpcomingReminders(ctx context.Context, ownerID uuid.UUID, until time.Time) ([]Action, error) {
	query := `
		SELECT ` + actionColumns + `
		FROM actions
		WHERE owner_id = $1 AND deleted_at IS NULL
			AND remind_at IS NOT NULL AND remind_at <= $2
		ORDER BY remind_at ASC`

	rows, err := r.pool.Query(ctx, query, ownerID, until)
	if err != nil {
		return nil, fmt.Errorf("list upcoming reminders: %w", err)
	}
	defer rows.Close()

	return scanActions(rows)
}

func scanActions(rows pgx.Rows) ([]Action, error) {
	var out []Action
	for rows.Next() {
		var a Action
		var extraJSON []byte
		err := rows.Scan(
			&a.ID, &a.EstablishmentID, &a.ContactID, &a.AssigneeID, &a.OwnerID,
			&a.Kind, &a.OccursAt, &a.RemindAt, &a.Comment, &a.Outcome,
			&extraJSON, &a.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan action: %w", err)
		}
		if a.Extra, err = bag.FromJSON(extraJSON); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
