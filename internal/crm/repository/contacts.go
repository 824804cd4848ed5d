package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"crm_assistant_backend/internal/crm/bag"
	"crm_assistant_backend/platform/apperr"
)

// ListContacts retrieves the live contacts of one establishment.
func (r *Repo) ListContacts(ctx context.Context, establishmentID uuid.UUID) ([]Contact, error) {
	query := `
		SELECT id, establishment_id, last_name, first_name,
			COALESCE(role, ''), COALESCE(phone, ''), COALESCE(email, ''),
			COALESCE(contact_preference, ''), COALESCE(notes, ''), extra, created_at
		FROM contacts
		WHERE establishment_id = $1 AND deleted_at IS NULL
		ORDER BY last_name ASC, first_name ASC`

	rows, err := r.pool.Query(ctx, query, establishmentID)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var out []Contact
	for rows.Next() {
		var c Contact
		var extraJSON []byte
		err := rows.Scan(
			&c.ID, &c.EstablishmentID, &c.LastName, &c.FirstName,
			&c.Role, &c.Phone, &c.Email,
			&c.ContactPreference, &c.Notes, &extraJSON, &c.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		if c.Extra, err = bag.FromJSON(extraJSON); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// InsertContact creates a contact under an establishment.
func (r *Repo) InsertContact(ctx context.Context, c Contact) (Contact, error) {
	query := `
		INSERT INTO contacts (
			establishment_id, last_name, first_name,
			role, phone, email, contact_preference, notes, extra
		) VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9)
		RETURNING id, created_at`

	err := r.pool.QueryRow(ctx, query,
		c.EstablishmentID, c.LastName, c.FirstName,
		c.Role, c.Phone, c.Email, c.ContactPreference, c.Notes, c.Extra.JSON(),
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return Contact{}, fmt.Errorf("insert contact: %w", err)
	}
	return c, nil
}

// UpdateContact writes all mutable columns of the contact.
func (r *Repo) UpdateContact(ctx context.Context, c Contact) error {
	query := `
		UPDATE contacts SET
			last_name = $2, first_name = $3,
			role = NULLIF($4, ''), phone = NULLIF($5, ''), email = NULLIF($6, ''),
			contact_preference = NULLIF($7, ''), notes = NULLIF($8, ''),
			extra = $9, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query,
		c.ID, c.LastName, c.FirstName,
		c.Role, c.Phone, c.Email,
		c.ContactPreference, c.Notes, c.Extra.JSON(),
	)
	if err != nil {
		return fmt.Errorf("update contact: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("contact introuvable")
	}
	return nil
}

// MoveContacts reassigns every live contact of one establishment to another
// and returns how many rows moved.
func (r *Repo) MoveContacts(ctx context.Context, fromEstablishmentID, toEstablishmentID uuid.UUID) (int64, error) {
	query := `
		UPDATE contacts SET establishment_id = $2, updated_at = now()
		WHERE establishment_id = $1 AND deleted_at IS NULL`

	tag, err := r.pool.Exec(ctx, query, fromEstablishmentID, toEstablishmentID)
	if err != nil {
		return 0, fmt.Errorf("move contacts: %w", err)
	}
	return tag.RowsAffected(), nil
}
