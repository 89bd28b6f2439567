package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"reqsharp/feedback-service/internal/domain"
	"reqsharp/feedback-service/internal/repository"
	"reqsharp/feedback-service/internal/storage"
)

// UploadRequirementInput carries one requirement attachment upload request.
type UploadRequirementInput struct {
	AccountID     string
	ProjectID     string
	RequirementID string
	UploadedBy    string
	Files         []IncomingFile
}

// RequirementService manages attachments scoped to an
// account/project/requirement triple.
type RequirementService interface {
	Upload(ctx context.Context, input UploadRequirementInput) ([]domain.RequirementAttachment, []string, error)
	List(ctx context.Context, scope domain.RequirementScope) ([]domain.RequirementAttachment, error)
	// Download returns the record and an open stream of the stored bytes.
	// The caller owns closing the stream.
	Download(ctx context.Context, id string) (*domain.RequirementAttachment, io.ReadCloser, error)
	Delete(ctx context.Context, id, accountID, projectID string) error
}

type requirementService struct {
	repo     repository.RequirementAttachmentRepository
	store    storage.AttachmentStore
	maxFiles int
}

// NewRequirementService wires the requirement attachment pipeline.
func NewRequirementService(repo repository.RequirementAttachmentRepository, store storage.AttachmentStore, maxFiles int) RequirementService {
	if maxFiles <= 0 {
		maxFiles = 5
	}
	return &requirementService{repo: repo, store: store, maxFiles: maxFiles}
}

// Upload validates the scope, stores the accepted files and persists one row
// per stored file. Returns the created records and the names of skipped
// files.
func (s *requirementService) Upload(ctx context.Context, input UploadRequirementInput) ([]domain.RequirementAttachment, []string, error) {
	input.AccountID = strings.TrimSpace(input.AccountID)
	input.ProjectID = strings.TrimSpace(input.ProjectID)
	input.RequirementID = strings.TrimSpace(input.RequirementID)
	if input.AccountID == "" || input.ProjectID == "" || input.RequirementID == "" {
		return nil, nil, fmt.Errorf("%w: account, project and requirement ids are required", ErrValidation)
	}
	if len(input.Files) == 0 {
		return nil, nil, fmt.Errorf("%w: at least one file is required", ErrValidation)
	}
	if len(input.Files) > s.maxFiles {
		return nil, nil, fmt.Errorf("%w: %d files submitted, at most %d allowed", ErrTooManyFiles, len(input.Files), s.maxFiles)
	}

	scopePath := path.Join(
		storage.SanitizeScopeSegment(input.AccountID),
		storage.SanitizeScopeSegment(input.ProjectID),
		storage.SanitizeScopeSegment(input.RequirementID),
	)
	stored, skipped, err := storeAll(ctx, s.store, input.Files, scopePath)
	if err != nil {
		return nil, nil, err
	}

	now := time.Now().UTC()
	attachments := make([]domain.RequirementAttachment, 0, len(stored))
	for _, f := range stored {
		attachments = append(attachments, domain.RequirementAttachment{
			AccountID:     input.AccountID,
			ProjectID:     input.ProjectID,
			RequirementID: input.RequirementID,
			FileName:      f.OriginalName,
			StoredPath:    f.RelativePath,
			Size:          f.Size,
			FileType:      f.Extension,
			UploadedBy:    input.UploadedBy,
			UploadedAt:    now,
		})
	}

	if err := s.repo.CreateAll(ctx, attachments); err != nil {
		log.Printf("ERROR: Persisting requirement attachments failed, rolling back %d files: %v", len(stored), err)
		deleteAll(s.store, stored)
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	log.Printf("INFO: Stored %d requirement attachments for %s/%s/%s (%d skipped)",
		len(attachments), input.AccountID, input.ProjectID, input.RequirementID, len(skipped))
	return attachments, skipped, nil
}

// List returns attachment metadata for one scope.
func (s *requirementService) List(ctx context.Context, scope domain.RequirementScope) ([]domain.RequirementAttachment, error) {
	if scope.AccountID == "" || scope.ProjectID == "" || scope.RequirementID == "" {
		return nil, fmt.Errorf("%w: account, project and requirement ids are required", ErrValidation)
	}
	return s.repo.ListByScope(ctx, scope)
}

// Download resolves the record and opens the stored file. Both a missing
// record and a missing file surface as ErrNotFound.
func (s *requirementService) Download(ctx context.Context, id string) (*domain.RequirementAttachment, io.ReadCloser, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, fmt.Errorf("%w: attachment id is required", ErrValidation)
	}
	att, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	rc, err := s.store.Open(att.StoredPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("ERROR: Attachment %s has a record but no file at %s", att.ID, att.StoredPath)
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	return att, rc, nil
}

// Delete removes the database row first, then the file. A missing record is
// ErrNotFound; a missing file after a found record still counts as success.
func (s *requirementService) Delete(ctx context.Context, id, accountID, projectID string) error {
	if strings.TrimSpace(id) == "" || strings.TrimSpace(accountID) == "" || strings.TrimSpace(projectID) == "" {
		return fmt.Errorf("%w: attachment, account and project ids are required", ErrValidation)
	}
	att, err := s.repo.Delete(ctx, id, accountID, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := s.store.Delete(att.StoredPath); err != nil {
		log.Printf("ERROR: File delete for attachment %s failed: %v", att.ID, err)
	}
	log.Printf("INFO: Deleted requirement attachment %s (%s)", att.ID, att.FileName)
	return nil
}
