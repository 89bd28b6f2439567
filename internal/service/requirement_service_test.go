package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reqsharp/feedback-service/internal/domain"
	"reqsharp/feedback-service/internal/repository"
	"reqsharp/feedback-service/internal/storage"
)

type stubRequirementRepo struct {
	createErr error
	records   map[string]domain.RequirementAttachment
	nextID    int
}

func newStubRequirementRepo() *stubRequirementRepo {
	return &stubRequirementRepo{records: make(map[string]domain.RequirementAttachment)}
}

func (s *stubRequirementRepo) CreateAll(_ context.Context, attachments []domain.RequirementAttachment) error {
	if s.createErr != nil {
		return s.createErr
	}
	for i := range attachments {
		s.nextID++
		attachments[i].ID = fmt.Sprintf("ra-%d", s.nextID)
		s.records[attachments[i].ID] = attachments[i]
	}
	return nil
}

func (s *stubRequirementRepo) ListByScope(_ context.Context, scope domain.RequirementScope) ([]domain.RequirementAttachment, error) {
	var out []domain.RequirementAttachment
	for _, r := range s.records {
		if r.AccountID == scope.AccountID && r.ProjectID == scope.ProjectID && r.RequirementID == scope.RequirementID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubRequirementRepo) GetByID(_ context.Context, id string) (*domain.RequirementAttachment, error) {
	r, ok := s.records[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *stubRequirementRepo) Delete(_ context.Context, id, accountID, projectID string) (*domain.RequirementAttachment, error) {
	r, ok := s.records[id]
	if !ok || r.AccountID != accountID || r.ProjectID != projectID {
		return nil, repository.ErrNotFound
	}
	delete(s.records, id)
	return &r, nil
}

type requirementFixture struct {
	repo  *stubRequirementRepo
	store *storage.DiskStore
	root  string
	svc   RequirementService
}

func newRequirementFixture(t *testing.T) *requirementFixture {
	t.Helper()
	root := t.TempDir()
	store, err := storage.NewDiskStore(root, 1<<20, []string{"txt", "pdf"})
	require.NoError(t, err)
	t.Cleanup(store.Close)

	repo := newStubRequirementRepo()
	return &requirementFixture{
		repo:  repo,
		store: store,
		root:  root,
		svc:   NewRequirementService(repo, store, 5),
	}
}

func validUpload(files ...IncomingFile) UploadRequirementInput {
	return UploadRequirementInput{
		AccountID:     "acme",
		ProjectID:     "apollo",
		RequirementID: "REQ-42",
		UploadedBy:    "user-7",
		Files:         files,
	}
}

func TestUploadRequiresScopeIdentifiers(t *testing.T) {
	fx := newRequirementFixture(t)

	input := validUpload(memFile("spec.txt", "x"))
	input.ProjectID = " "
	_, _, err := fx.svc.Upload(context.Background(), input)
	require.ErrorIs(t, err, ErrValidation)
	assert.Equal(t, 0, filesOnDisk(t, fx.root))
}

func TestUploadTooManyFiles(t *testing.T) {
	fx := newRequirementFixture(t)

	files := make([]IncomingFile, 6)
	for i := range files {
		files[i] = memFile("doc.txt", "x")
	}
	_, _, err := fx.svc.Upload(context.Background(), validUpload(files...))
	require.ErrorIs(t, err, ErrTooManyFiles)

	assert.Equal(t, 0, filesOnDisk(t, fx.root))
	assert.Empty(t, fx.repo.records)
}

func TestUploadPersistsRecordsAndFiles(t *testing.T) {
	fx := newRequirementFixture(t)

	attachments, skipped, err := fx.svc.Upload(context.Background(), validUpload(
		memFile("design.pdf", "pdf-bytes"),
		memFile("notes.txt", "notes"),
	))
	require.NoError(t, err)

	assert.Len(t, attachments, 2)
	assert.Empty(t, skipped)
	assert.Equal(t, 2, filesOnDisk(t, fx.root))
	assert.Len(t, fx.repo.records, 2)
	for _, att := range attachments {
		assert.Equal(t, "acme", att.AccountID)
		assert.Equal(t, "apollo", att.ProjectID)
		assert.Equal(t, "REQ-42", att.RequirementID)
		assert.Equal(t, "user-7", att.UploadedBy)
		assert.NotEmpty(t, att.ID)
	}
}

func TestUploadPersistenceFailureDeletesFiles(t *testing.T) {
	fx := newRequirementFixture(t)
	fx.repo.createErr = errors.New("database down")

	_, _, err := fx.svc.Upload(context.Background(), validUpload(
		memFile("a.txt", "1"),
		memFile("b.txt", "2"),
	))
	require.ErrorIs(t, err, ErrPersistence)
	assert.Equal(t, 0, filesOnDisk(t, fx.root))
}

func TestDownloadRoundTrip(t *testing.T) {
	fx := newRequirementFixture(t)

	attachments, _, err := fx.svc.Upload(context.Background(), validUpload(memFile("spec.txt", "requirement body")))
	require.NoError(t, err)
	require.Len(t, attachments, 1)

	att, stream, err := fx.svc.Download(context.Background(), attachments[0].ID)
	require.NoError(t, err)
	defer stream.Close()

	assert.Equal(t, "spec.txt", att.FileName)
	got, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "requirement body", string(got))
}

func TestDownloadMissingRecordIsNotFound(t *testing.T) {
	fx := newRequirementFixture(t)

	_, _, err := fx.svc.Download(context.Background(), "ra-missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDownloadMissingFileIsNotFound(t *testing.T) {
	fx := newRequirementFixture(t)

	attachments, _, err := fx.svc.Upload(context.Background(), validUpload(memFile("spec.txt", "x")))
	require.NoError(t, err)

	// Record exists but the file vanished out-of-band.
	require.NoError(t, fx.store.Delete(attachments[0].StoredPath))
	_, _, err = fx.svc.Download(context.Background(), attachments[0].ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRemovesRecordThenFile(t *testing.T) {
	fx := newRequirementFixture(t)

	attachments, _, err := fx.svc.Upload(context.Background(), validUpload(memFile("spec.txt", "x")))
	require.NoError(t, err)
	id := attachments[0].ID

	require.NoError(t, fx.svc.Delete(context.Background(), id, "acme", "apollo"))
	assert.Empty(t, fx.repo.records)
	assert.Equal(t, 0, filesOnDisk(t, fx.root))

	// Deleting the same attachment again reports not-found.
	err = fx.svc.Delete(context.Background(), id, "acme", "apollo")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteWrongScopeIsNotFound(t *testing.T) {
	fx := newRequirementFixture(t)

	attachments, _, err := fx.svc.Upload(context.Background(), validUpload(memFile("spec.txt", "x")))
	require.NoError(t, err)

	err = fx.svc.Delete(context.Background(), attachments[0].ID, "other-account", "apollo")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListByScope(t *testing.T) {
	fx := newRequirementFixture(t)

	_, _, err := fx.svc.Upload(context.Background(), validUpload(memFile("spec.txt", "x")))
	require.NoError(t, err)

	list, err := fx.svc.List(context.Background(), domain.RequirementScope{
		AccountID: "acme", ProjectID: "apollo", RequirementID: "REQ-42",
	})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = fx.svc.List(context.Background(), domain.RequirementScope{
		AccountID: "acme", ProjectID: "apollo", RequirementID: "REQ-99",
	})
	require.NoError(t, err)
	assert.Empty(t, list)
}
