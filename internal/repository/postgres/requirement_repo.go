package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reqsharp/feedback-service/internal/domain"
	"reqsharp/feedback-service/internal/repository"
)

// requirementRepository implements repository.RequirementAttachmentRepository.
type requirementRepository struct {
	pool *pgxpool.Pool
}

// NewRequirementAttachmentRepository creates a requirement attachment record
// store backed by Postgres.
func NewRequirementAttachmentRepository(pool *pgxpool.Pool) repository.RequirementAttachmentRepository {
	return &requirementRepository{pool: pool}
}

// CreateAll inserts one row per attachment inside a single transaction.
func (r *requirementRepository) CreateAll(ctx context.Context, attachments []domain.RequirementAttachment) error {
	if len(attachments) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for i := range attachments {
		att := &attachments[i]
		if att.ID == "" {
			att.ID = uuid.NewString()
		}
		if att.UploadedAt.IsZero() {
			att.UploadedAt = now
		}
		_, err = tx.Exec(ctx, `
INSERT INTO requirement_attachments
	(id, account_id, project_id, requirement_id, file_name, stored_path, size_bytes, file_type, uploaded_by, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`, att.ID, att.AccountID, att.ProjectID, att.RequirementID, att.FileName,
			att.StoredPath, att.Size, att.FileType, att.UploadedBy, att.UploadedAt)
		if err != nil {
			return fmt.Errorf("insert attachment %s: %w", att.FileName, err)
		}
	}

	return tx.Commit(ctx)
}

const requirementColumns = `id, account_id, project_id, requirement_id, file_name, stored_path, size_bytes, file_type, uploaded_by, uploaded_at`

func scanRequirementAttachment(row pgx.Row) (*domain.RequirementAttachment, error) {
	var a domain.RequirementAttachment
	err := row.Scan(&a.ID, &a.AccountID, &a.ProjectID, &a.RequirementID,
		&a.FileName, &a.StoredPath, &a.Size, &a.FileType, &a.UploadedBy, &a.UploadedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ListByScope returns attachments for one account/project/requirement triple.
func (r *requirementRepository) ListByScope(ctx context.Context, scope domain.RequirementScope) ([]domain.RequirementAttachment, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+requirementColumns+`
FROM requirement_attachments
WHERE account_id = $1 AND project_id = $2 AND requirement_id = $3
ORDER BY uploaded_at
`, scope.AccountID, scope.ProjectID, scope.RequirementID)
	if err != nil {
		return nil, fmt.Errorf("query requirement attachments: %w", err)
	}
	defer rows.Close()

	var list []domain.RequirementAttachment
	for rows.Next() {
		var a domain.RequirementAttachment
		if err := rows.Scan(&a.ID, &a.AccountID, &a.ProjectID, &a.RequirementID,
			&a.FileName, &a.StoredPath, &a.Size, &a.FileType, &a.UploadedBy, &a.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan requirement attachment: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

// GetByID fetches one attachment record.
func (r *requirementRepository) GetByID(ctx context.Context, id string) (*domain.RequirementAttachment, error) {
	row := r.pool.QueryRow(ctx, `
SELECT `+requirementColumns+`
FROM requirement_attachments
WHERE id = $1
`, id)
	return scanRequirementAttachment(row)
}

// Delete removes the record and returns it so the caller can clean up the
// file on disk. ErrNotFound when no row matches the id within the scope.
func (r *requirementRepository) Delete(ctx context.Context, id, accountID, projectID string) (*domain.RequirementAttachment, error) {
	row := r.pool.QueryRow(ctx, `
DELETE FROM requirement_attachments
WHERE id = $1 AND account_id = $2 AND project_id = $3
RETURNING `+requirementColumns+`
`, id, accountID, projectID)
	return scanRequirementAttachment(row)
}
