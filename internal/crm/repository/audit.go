package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// InsertAuditRecord appends one immutable trace of a tool invocation.
func (r *Repo) InsertAuditRecord(ctx context.Context, rec AuditRecord) error {
	query := `
		INSERT INTO audit_records (user_id, tool_name, arguments, result, success)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query, rec.UserID, rec.ToolName, rec.Arguments, rec.Result, rec.Success)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// ListAuditRecords retrieves the most recent audit records of a user.
func (r *Repo) ListAuditRecords(ctx context.Context, userID uuid.UUID, limit int) ([]AuditRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `
		SELECT id, user_id, tool_name, arguments, result, success, created_at
		FROM audit_records
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list audit records: %w", err)
	}
	defer rows.Close()

	var out []AuditRecord
	for rows.Next() {
		var rec AuditRecord
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.ToolName, &rec.Arguments, &rec.Result, &rec.Success, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
