package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// InsertCompetitiveEntry records a competitor's presence at an establishment.
func (r *Repo) InsertCompetitiveEntry(ctx context.Context, e CompetitiveEntry) (CompetitiveEntry, error) {
	query := `
		INSERT INTO competitive_entries (
			establishment_id, owner_id, main_competitor, positions,
			sector, subsector, observed_coefficient, status,
			started_on, ended_on, remarks
		) VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9, $10, NULLIF($11, ''))
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		e.EstablishmentID, e.OwnerID, e.MainCompetitor, e.Positions,
		e.Sector, e.Subsector, e.ObservedCoefficient, e.Status,
		e.StartedOn, e.EndedOn, e.Remarks,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		return CompetitiveEntry{}, fmt.Errorf("insert competitive entry: %w", err)
	}
	return e, nil
}

// ListCompetitiveEntries retrieves the live competitive entries of one
// establishment, scoped to the owner.
func (r *Repo) ListCompetitiveEntries(ctx context.Context, ownerID, establishmentID uuid.UUID) ([]CompetitiveEntry, error) {
	query := `
		SELECT id, establishment_id, owner_id, main_competitor, positions,
			COALESCE(sector, ''), COALESCE(subsector, ''), observed_coefficient, status,
			started_on, ended_on, COALESCE(remarks, ''), created_at
		FROM competitive_entries
		WHERE owner_id = $1 AND establishment_id = $2 AND deleted_at IS NULL
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID, establishmentID)
	if err != nil {
		return nil, fmt.Errorf("list competitive entries: %w", err)
	}
	defer rows.Close()
	return scanCompetitiveEntries(rows)
}

// ListOwnerCompetitiveEntries retrieves every live entry of one user, across
// establishments. Used for competitor aggregation.
func (r *Repo) ListOwnerCompetitiveEntries(ctx context.Context, ownerID uuid.UUID) ([]CompetitiveEntry, error) {
	query := `
		SELECT id, establishment_id, owner_id, main_competitor, positions,
			COALESCE(sector, ''), COALESCE(subsector, ''), observed_coefficient, status,
			started_on, ended_on, COALESCE(remarks, ''), created_at
		FROM competitive_entries
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list owner competitive entries: %w", err)
	}
	defer rows.Close()
	return scanCompetitiveEntries(rows)
}

func scanCompetitiveEntries(rows pgx.Rows) ([]CompetitiveEntry, error) {
	var out []CompetitiveEntry
	for rows.Next() {
		var e CompetitiveEntry
		err := rows.Scan(
			&e.ID, &e.EstablishmentID, &e.OwnerID, &e.MainCompetitor, &e.Positions,
			&e.Sector, &e.Subsector, &e.ObservedCoefficient, &e.Status,
			&e.StartedOn, &e.EndedOn, &e.Remarks, &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan competitive entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
