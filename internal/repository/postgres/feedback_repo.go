package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"reqsharp/feedback-service/internal/domain"
	"reqsharp/feedback-service/internal/repository"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// feedbackRepository implements repository.FeedbackRepository on pgxpool.
type feedbackRepository struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository creates a feedback record store backed by Postgres.
func NewFeedbackRepository(pool *pgxpool.Pool) repository.FeedbackRepository {
	return &feedbackRepository{pool: pool}
}

// CreateWithAttachments inserts the submission row and one row per
// attachment inside a single transaction.
func (r *feedbackRepository) CreateWithAttachments(ctx context.Context, submission *domain.FeedbackSubmission, attachments []domain.Attachment) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	if submission.SubmittedAt.IsZero() {
		submission.SubmittedAt = time.Now().UTC()
	}
	if submission.Status == "" {
		submission.Status = domain.StatusSubmitted
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
INSERT INTO feedback_submissions
	(id, type, subject, description, priority, category, submitter_name, submitter_email, project, company, status, submitted_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`, submission.ID, submission.Type, submission.Subject, submission.Description,
		submission.Priority, submission.Category, submission.SubmitterName,
		submission.SubmitterEmail, submission.Project, submission.Company,
		submission.Status, submission.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}

	for i := range attachments {
		att := &attachments[i]
		if att.ID == "" {
			att.ID = uuid.NewString()
		}
		att.SubmissionID = submission.ID
		if att.UploadedAt.IsZero() {
			att.UploadedAt = submission.SubmittedAt
		}
		_, err = tx.Exec(ctx, `
INSERT INTO feedback_attachments
	(id, submission_id, file_name, stored_path, size_bytes, file_type, uploaded_by, uploaded_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
`, att.ID, att.SubmissionID, att.FileName, att.StoredPath, att.Size,
			att.FileType, att.UploadedBy, att.UploadedAt)
		if err != nil {
			return fmt.Errorf("insert attachment %s: %w", att.FileName, err)
		}
	}

	return tx.Commit(ctx)
}

// List returns submissions matching the filter, newest first.
func (r *feedbackRepository) List(ctx context.Context, filter domain.FeedbackFilter) ([]domain.FeedbackSubmission, error) {
	var (
		conditions []string
		args       []any
	)
	appendCond := func(column string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.SubmitterEmail != "" {
		appendCond("submitter_email", filter.SubmitterEmail)
	}
	if filter.Type != "" {
		appendCond("type", filter.Type)
	}
	if filter.Status != "" {
		appendCond("status", filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `
SELECT id, type, subject, description, priority, category, submitter_name, submitter_email, project, company, status, submitted_at
FROM feedback_submissions`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	args = append(args, limit, offset)
	query += fmt.Sprintf(" ORDER BY submitted_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var list []domain.FeedbackSubmission
	for rows.Next() {
		var s domain.FeedbackSubmission
		if err := rows.Scan(&s.ID, &s.Type, &s.Subject, &s.Description, &s.Priority,
			&s.Category, &s.SubmitterName, &s.SubmitterEmail, &s.Project, &s.Company,
			&s.Status, &s.SubmittedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// AttachmentsBySubmission returns attachment metadata for one submission.
func (r *feedbackRepository) AttachmentsBySubmission(ctx context.Context, submissionID string) ([]domain.Attachment, error) {
	rows, err := r.pool.Query(ctx, `
SELECT id, submission_id, file_name, stored_path, size_bytes, file_type, uploaded_by, uploaded_at
FROM feedback_attachments
WHERE submission_id = $1
ORDER BY uploaded_at
`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("query attachments: %w", err)
	}
	defer rows.Close()

	var list []domain.Attachment
	for rows.Next() {
		var a domain.Attachment
		if err := rows.Scan(&a.ID, &a.SubmissionID, &a.FileName, &a.StoredPath,
			&a.Size, &a.FileType, &a.UploadedBy, &a.UploadedAt); err != nil {
			return nil, fmt.Errorf("scan attachment: %w", err)
		}
		list = append(list, a)
	}
	return list, rows.Err()
}
