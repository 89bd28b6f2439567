package notifier

import (
	"context"

	"reqsharp/feedback-service/internal/domain"
)

// Notifier delivers a human-readable summary of a feedback submission to a
// configured recipient, with the accepted files attached. Implementations
// are best-effort collaborators: the pipeline converts any returned error
// into a response flag, never into a request failure.
type Notifier interface {
	NotifySubmission(ctx context.Context, submission *domain.FeedbackSubmission, attachments []domain.Attachment) error
}

// NoopNotifier is used when no mail transport is configured.
type NoopNotifier struct{}

func (NoopNotifier) NotifySubmission(context.Context, *domain.FeedbackSubmission, []domain.Attachment) error {
	return nil
}
