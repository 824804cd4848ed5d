package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"crm_assistant_backend/platform/apperr"
)

// ListInternalUsers retrieves the agency's own staff members.
func (r *Repo) ListInternalUsers(ctx context.Context) ([]InternalUser, error) {
	query := `
		SELECT id, first_name, last_name, COALESCE(email, '')
		FROM internal_users
		ORDER BY first_name ASC, last_name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list internal users: %w", err)
	}
	defer rows.Close()

	var out []InternalUser
	for rows.Next() {
		var u InternalUser
		if err := rows.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email); err != nil {
			return nil, fmt.Errorf("scan internal user: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// GetInternalUser retrieves one staff member by id.
func (r *Repo) GetInternalUser(ctx context.Context, id uuid.UUID) (InternalUser, error) {
	query := `
		SELECT id, first_name, last_name, COALESCE(email, '')
		FROM internal_users
		WHERE id = $1`

	var u InternalUser
	err := r.pool.QueryRow(ctx, query, id).Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return InternalUser{}, apperr.NotFound("collaborateur introuvable")
		}
		return InternalUser{}, fmt.Errorf("get internal user: %w", err)
	}
	return u, nil
}

// InsertInternalUser adds a staff member.
func (r *Repo) InsertInternalUser(ctx context.Context, u InternalUser) (InternalUser, error) {
	query := `
		INSERT INTO internal_users (first_name, last_name, email)
		VALUES ($1, $2, NULLIF($3, ''))
		RETURNING id`

	if err := r.pool.QueryRow(ctx, query, u.FirstName, u.LastName, u.Email).Scan(&u.ID); err != nil {
		return InternalUser{}, fmt.Errorf("insert internal user: %w", err)
	}
	return u, nil
}
