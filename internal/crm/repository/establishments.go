package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"crm_assistant_backend/internal/crm/bag"
	"crm_assistant_backend/platform/apperr"
)

const establishmentNotFoundMessage = "établissement introuvable"

const establishmentColumns = `
	id, owner_id, name, canonical_name,
	COALESCE(display_name, ''), kind, commercial_status,
	COALESCE(street, ''), COALESCE(postal_code, ''), COALESCE(city, ''),
	COALESCE(sector, ''), COALESCE(subsector, ''), coefficient,
	COALESCE(group_name, ''), COALESCE(primary_competitor, ''), COALESCE(notes, ''),
	extra, created_at, updated_at`

// GetEstablishment retrieves one live establishment by id, scoped to its owner.
func (r *Repo) GetEstablishment(ctx context.Context, ownerID, id uuid.UUID) (Establishment, error) {
	query := `
		SELECT ` + establishmentColumns + `
		FROM establishments
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`

	row := r.pool.QueryRow(ctx, query, id, ownerID)
	est, err := scanEstablishment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Establishment{}, apperr.NotFound(establishmentNotFoundMessage)
		}
		return Establishment{}, fmt.Errorf("get establishment: %w", err)
	}
	return est, nil
}

// ListEstablishments retrieves all live establishments of the owner.
func (r *Repo) ListEstablishments(ctx context.Context, ownerID uuid.UUID) ([]Establishment, error) {
	query := `
		SELECT ` + establishmentColumns + `
		FROM establishments
		WHERE owner_id = $1 AND deleted_at IS NULL
		ORDER BY created_at ASC`

	rows, err := r.pool.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list establishments: %w", err)
	}
	defer rows.Close()

	var out []Establishment
	for rows.Next() {
		est, err := scanEstablishment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan establishment: %w", err)
		}
		out = append(out, est)
	}
	return out, rows.Err()
}

// InsertEstablishment inserts a full establishment row.
func (r *Repo) InsertEstablishment(ctx context.Context, est Establishment) (Establishment, error) {
	query := `
		INSERT INTO establishments (
			owner_id, name, canonical_name, display_name, kind, commercial_status,
			street, postal_code, city, sector, subsector, coefficient,
			group_name, primary_competitor, notes, extra
		) VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6,
			NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), NULLIF($10, ''), NULLIF($11, ''), $12,
			NULLIF($13, ''), NULLIF($14, ''), NULLIF($15, ''), $16)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		est.OwnerID, est.Name, est.CanonicalName, est.DisplayName, est.Kind, est.CommercialStatus,
		est.Street, est.PostalCode, est.City, est.Sector, est.Subsector, est.Coefficient,
		est.GroupName, est.PrimaryCompetitor, est.Notes, est.Extra.JSON(),
	).Scan(&est.ID, &est.CreatedAt, &est.UpdatedAt)
	if err != nil {
		return Establishment{}, fmt.Errorf("insert establishment: %w", err)
	}
	return est, nil
}

// InsertEstablishmentMinimal inserts only the mandatory fields. Used as the
// fallback when a full insert fails and as the stub for unresolved names.
func (r *Repo) InsertEstablishmentMinimal(ctx context.Context, ownerID uuid.UUID, name, canonicalName, kind string) (Establishment, error) {
	query := `
		INSERT INTO establishments (owner_id, name, canonical_name, kind)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`

	est := Establishment{
		OwnerID:          ownerID,
		Name:             name,
		CanonicalName:    canonicalName,
		Kind:             kind,
		CommercialStatus: StatusToContact,
		Extra:            bag.New(),
	}
	err := r.pool.QueryRow(ctx, query, ownerID, name, canonicalName, kind).
		Scan(&est.ID, &est.CreatedAt, &est.UpdatedAt)
	if err != nil {
		return Establishment{}, fmt.Errorf("insert minimal establishment: %w", err)
	}
	return est, nil
}

// UpdateEstablishment writes all mutable columns of the establishment.
func (r *Repo) UpdateEstablishment(ctx context.Context, est Establishment) error {
	query := `
		UPDATE establishments SET
			name = $3, canonical_name = $4, display_name = NULLIF($5, ''),
			kind = $6, commercial_status = $7,
			street = NULLIF($8, ''), postal_code = NULLIF($9, ''), city = NULLIF($10, ''),
			sector = NULLIF($11, ''), subsector = NULLIF($12, ''), coefficient = $13,
			group_name = NULLIF($14, ''), primary_competitor = NULLIF($15, ''), notes = NULLIF($16, ''),
			extra = $17, updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query,
		est.ID, est.OwnerID, est.Name, est.CanonicalName, est.DisplayName,
		est.Kind, est.CommercialStatus,
		est.Street, est.PostalCode, est.City,
		est.Sector, est.Subsector, est.Coefficient,
		est.GroupName, est.PrimaryCompetitor, est.Notes,
		est.Extra.JSON(),
	)
	if err != nil {
		return fmt.Errorf("update establishment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(establishmentNotFoundMessage)
	}
	return nil
}

// SoftDeleteEstablishment marks the establishment deleted; the row stays.
func (r *Repo) SoftDeleteEstablishment(ctx context.Context, ownerID, id uuid.UUID) error {
	query := `
		UPDATE establishments SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND owner_id = $2 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("soft delete establishment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(establishmentNotFoundMessage)
	}
	return nil
}

// RepointRelations moves contacts, actions and competitive entries from one
// establishment to another in a single transaction. Used by merge.
func (r *Repo) RepointRelations(ctx context.Context, fromEstablishmentID, toEstablishmentID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin repoint: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"contacts", "actions", "competitive_entries"} {
		query := fmt.Sprintf(`UPDATE %s SET establishment_id = $1, updated_at = now() WHERE establishment_id = $2`, table)
		if _, err := tx.Exec(ctx, query, toEstablishmentID, fromEstablishmentID); err != nil {
			return fmt.Errorf("repoint %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit repoint: %w", err)
	}
	return nil
}

func scanEstablishment(row pgx.Row) (Establishment, error) {
	var est Establishment
	var extraJSON []byte

	err := row.Scan(
		&est.ID, &est.OwnerID, &est.Name, &est.CanonicalName,
		&est.DisplayName, &est.Kind, &est.CommercialStatus,
		&est.Street, &est.PostalCode, &est.City,
		&est.Sector, &est.Subsector, &est.Coefficient,
		&est.GroupName, &est.PrimaryCompetitor, &est.Notes,
		&extraJSON, &est.CreatedAt, &est.UpdatedAt,
	)
	if err != nil {
		return Establishment{}, err
	}

	est.Extra, err = bag.FromJSON(extraJSON)
	if err != nil {
		return Establishment{}, err
	}
	return est, nil
}
