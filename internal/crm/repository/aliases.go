package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ListAliases retrieves all aliases attached to the owner's live establishments.
func (r *Repo) ListAliases(ctx context.Context, ownerID uuid.UUID) ([]Alias, error) {
	query := `
		SELECT a.id, a.establishment_id, a.alias
		FROM establishment_aliases a
		JOIN establishments e ON e.id = a.establishment_id
		WHERE e.owner_id = $1 AND e.deleted_at IS NULL
		ORDER BY a.created_at ASC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list aliases: %w", err)
	}
	defer rows.Close()

	var out []Alias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.ID, &a.EstablishmentID, &a.Alias); err != nil {
			return nil, fmt.Errorf("scan alias: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// InsertAlias records a name variant for an establishment. Idempotent: an
// alias string already present for that establishment is silently skipped.
func (r *Repo) InsertAlias(ctx context.Context, establishmentID uuid.UUID, alias string) error {
	query := `
		INSERT INTO establishment_aliases (establishment_id, alias)
		VALUES ($1, $2)
		ON CONFLICT (establishment_id, alias) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, establishmentID, alias); err != nil {
		return fmt.Errorf("insert alias: %w", err)
	}
	return nil
}
