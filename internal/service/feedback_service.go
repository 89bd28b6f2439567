package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"reqsharp/feedback-service/internal/domain"
	"reqsharp/feedback-service/internal/notifier"
	"reqsharp/feedback-service/internal/repository"
	"reqsharp/feedback-service/internal/storage"
)

// IncomingFile is one file from a multipart request, decoupled from the
// multipart package so services stay testable with plain readers.
type IncomingFile struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// SubmitFeedbackInput carries the validated-to-be form fields of one
// feedback submission request.
type SubmitFeedbackInput struct {
	Type           domain.FeedbackType
	Subject        string
	Description    string
	Priority       domain.FeedbackPriority
	Category       string
	SubmitterName  string
	SubmitterEmail string
	Project        string
	Company        string
	SubmittedBy    string // subject identity from the bearer token
	Files          []IncomingFile
}

// SubmissionResult is what a successful trip through the pipeline yields.
type SubmissionResult struct {
	Submission   *domain.FeedbackSubmission
	Attachments  []domain.Attachment
	SkippedFiles []string // submitted but not accepted (extension not allowed)
	Notified     bool
}

// FeedbackService orchestrates the feedback submission pipeline:
// validate, store files, persist records, notify, clean up.
type FeedbackService interface {
	Submit(ctx context.Context, input SubmitFeedbackInput) (*SubmissionResult, error)
	History(ctx context.Context, filter domain.FeedbackFilter) ([]domain.FeedbackSubmission, error)
	Attachments(ctx context.Context, submissionID string) ([]domain.Attachment, error)
}

type feedbackService struct {
	repo         repository.FeedbackRepository
	store        storage.AttachmentStore
	notify       notifier.Notifier
	maxFiles     int
	cleanupDelay time.Duration
}

// NewFeedbackService wires the pipeline's collaborators together.
func NewFeedbackService(
	repo repository.FeedbackRepository,
	store storage.AttachmentStore,
	notify notifier.Notifier,
	maxFiles int,
	cleanupDelay time.Duration,
) FeedbackService {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &feedbackService{
		repo:         repo,
		store:        store,
		notify:       notify,
		maxFiles:     maxFiles,
		cleanupDelay: cleanupDelay,
	}
}

// Submit runs the pipeline strictly in order. Any failure before the record
// write deletes the files already stored in this request; notification
// failure never fails the request.
func (s *feedbackService) Submit(ctx context.Context, input SubmitFeedbackInput) (*SubmissionResult, error) {
	// 1. Validate. No side effects before this passes.
	input.Subject = strings.TrimSpace(input.Subject)
	input.Description = strings.TrimSpace(input.Description)
	if input.Subject == "" || input.Description == "" {
		return nil, fmt.Errorf("%w: subject and description are required", ErrValidation)
	}
	if input.Type == "" {
		input.Type = domain.FeedbackTypeFeedback
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("%w: unknown feedback type %q", ErrValidation, input.Type)
	}
	if input.Priority == "" {
		input.Priority = domain.PriorityMedium
	}
	if !input.Priority.IsValid() {
		return nil, fmt.Errorf("%w: unknown priority %q", ErrValidation, input.Priority)
	}

	// 2. Accept files. Count is checked before anything touches disk.
	if len(input.Files) > s.maxFiles {
		return nil, fmt.Errorf("%w: %d files submitted, at most %d allowed", ErrTooManyFiles, len(input.Files), s.maxFiles)
	}
	now := time.Now().UTC()
	scopePath := "feedback/" + now.Format("20060102")
	stored, skipped, err := storeAll(ctx, s.store, input.Files, scopePath)
	if err != nil {
		return nil, err
	}

	submission := &domain.FeedbackSubmission{
		Type:           input.Type,
		Subject:        input.Subject,
		Description:    input.Description,
		Priority:       input.Priority,
		Category:       input.Category,
		SubmitterName:  input.SubmitterName,
		SubmitterEmail: input.SubmitterEmail,
		Project:        input.Project,
		Company:        input.Company,
		Status:         domain.StatusSubmitted,
		SubmittedAt:    now,
	}
	attachments := make([]domain.Attachment, 0, len(stored))
	for _, f := range stored {
		attachments = append(attachments, domain.Attachment{
			FileName:   f.OriginalName,
			StoredPath: f.RelativePath,
			Size:       f.Size,
			FileType:   f.Extension,
			UploadedBy: input.SubmittedBy,
			UploadedAt: now,
		})
	}

	// 3. Persist metadata. On failure every file written in this request is
	// deleted before the error surfaces.
	if err := s.repo.CreateWithAttachments(ctx, submission, attachments); err != nil {
		log.Printf("ERROR: Persisting feedback submission failed, rolling back %d files: %v", len(stored), err)
		deleteAll(s.store, stored)
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	// 4. Notify, best-effort. The submission already succeeded.
	notified := false
	if err := s.notify.NotifySubmission(ctx, submission, attachments); err == nil {
		notified = true
	} else {
		log.Printf("ERROR: Notification for submission %s failed: %v", submission.ID, err)
	}

	// The emailed copies are the consumed artifact; the on-disk originals
	// are transient and reclaimed after a grace period.
	if len(stored) > 0 && s.cleanupDelay > 0 {
		paths := make([]string, len(stored))
		for i, f := range stored {
			paths[i] = f.RelativePath
		}
		s.store.ScheduleDelayedDelete(paths, s.cleanupDelay)
	}

	log.Printf("INFO: Feedback submission %s created (%d attachments, %d skipped, notified=%t)",
		submission.ID, len(attachments), len(skipped), notified)

	return &SubmissionResult{
		Submission:   submission,
		Attachments:  attachments,
		SkippedFiles: skipped,
		Notified:     notified,
	}, nil
}

// History returns submissions matching the filter.
func (s *feedbackService) History(ctx context.Context, filter domain.FeedbackFilter) ([]domain.FeedbackSubmission, error) {
	return s.repo.List(ctx, filter)
}

// Attachments returns attachment metadata for one submission.
func (s *feedbackService) Attachments(ctx context.Context, submissionID string) ([]domain.Attachment, error) {
	if strings.TrimSpace(submissionID) == "" {
		return nil, fmt.Errorf("%w: submission id is required", ErrValidation)
	}
	return s.repo.AttachmentsBySubmission(ctx, submissionID)
}

// storeAll writes the accepted files sequentially. Files with unrecognized
// extensions are skipped, not failed. Any store error deletes everything
// written so far in this request: the file set is all-or-nothing.
func storeAll(ctx context.Context, store storage.AttachmentStore, files []IncomingFile, scopePath string) (stored []*storage.StoredFile, skipped []string, err error) {
	for _, file := range files {
		if !store.Accepts(file.Name) {
			skipped = append(skipped, file.Name)
			continue
		}
		src, openErr := file.Open()
		if openErr != nil {
			deleteAll(store, stored)
			return nil, nil, fmt.Errorf("open uploaded file %q: %w", file.Name, openErr)
		}
		sf, saveErr := store.Save(ctx, src, file.Name, scopePath)
		src.Close()
		if saveErr != nil {
			deleteAll(store, stored)
			return nil, nil, saveErr
		}
		stored = append(stored, sf)
	}
	return stored, skipped, nil
}

// deleteAll is the compensating cleanup for partial progress. Failures are
// logged; there is nothing further to do with them.
func deleteAll(store storage.AttachmentStore, stored []*storage.StoredFile) {
	for _, f := range stored {
		if err := store.Delete(f.RelativePath); err != nil {
			log.Printf("ERROR: Compensating delete of %s failed: %v", f.RelativePath, err)
		}
	}
}

// IsFileTooLarge reports whether err is the oversize-file error and returns
// the typed value for handlers to render.
func IsFileTooLarge(err error) (*storage.FileTooLargeError, bool) {
	var tooLarge *storage.FileTooLargeError
	if errors.As(err, &tooLarge) {
		return tooLarge, true
	}
	return nil, false
}
