package repository

import (
	"context"

	"reqsharp/feedback-service/internal/domain"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// FeedbackRepository defines the interface for feedback submission records.
type FeedbackRepository interface {
	// CreateWithAttachments persists the submission and its attachment rows
	// as one logical unit: either all rows land or none do.
	CreateWithAttachments(ctx context.Context, submission *domain.FeedbackSubmission, attachments []domain.Attachment) error
	List(ctx context.Context, filter domain.FeedbackFilter) ([]domain.FeedbackSubmission, error)
	AttachmentsBySubmission(ctx context.Context, submissionID string) ([]domain.Attachment, error)
}

// RequirementAttachmentRepository defines the interface for requirement
// attachment records.
type RequirementAttachmentRepository interface {
	// CreateAll persists the given attachment rows as one logical unit.
	CreateAll(ctx context.Context, attachments []domain.RequirementAttachment) error
	ListByScope(ctx context.Context, scope domain.RequirementScope) ([]domain.RequirementAttachment, error)
	GetByID(ctx context.Context, id string) (*domain.RequirementAttachment, error)
	// Delete removes the record; returns ErrNotFound when no row matches.
	Delete(ctx context.Context, id, accountID, projectID string) (*domain.RequirementAttachment, error)
}
