package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"reqsharp/feedback-service/internal/domain"
	"reqsharp/feedback-service/internal/service"
)

// FeedbackHandler holds the feedback pipeline dependency.
type FeedbackHandler struct {
	feedbackService service.FeedbackService
}

// NewFeedbackHandler creates a new FeedbackHandler.
func NewFeedbackHandler(feedbackService service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedbackService: feedbackService}
}

// --- Response Structs ---

// AttachmentResponse is the client-facing view of one accepted attachment.
// Internal storage paths are never exposed.
type AttachmentResponse struct {
	ID         string    `json:"id"`
	FileName   string    `json:"fileName"`
	Size       int64     `json:"size"`
	FileType   string    `json:"fileType"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type SubmitFeedbackResponse struct {
	ID              string               `json:"id"`
	Status          domain.FeedbackStatus `json:"status"`
	SubmittedAt     time.Time            `json:"submittedAt"`
	AttachmentCount int                  `json:"attachmentCount"`
	Attachments     []AttachmentResponse `json:"attachments"`
	SkippedFiles    []string             `json:"skippedFiles,omitempty"`
	Notified        bool                 `json:"notified"`
}

// SubmitFeedback handles POST /submit-feedback (multipart form).
// Text fields: type, subject, description, priority, category, name, email,
// project, company. Files arrive under the repeated "files" field.
func (h *FeedbackHandler) SubmitFeedback(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid multipart form: %v", err))
		return
	}

	subject, _ := getSubjectFromContext(c)
	input := service.SubmitFeedbackInput{
		Type:           domain.FeedbackType(c.PostForm("type")),
		Subject:        c.PostForm("subject"),
		Description:    c.PostForm("description"),
		Priority:       domain.FeedbackPriority(c.PostForm("priority")),
		Category:       c.PostForm("category"),
		SubmitterName:  c.PostForm("name"),
		SubmitterEmail: c.PostForm("email"),
		Project:        c.PostForm("project"),
		Company:        c.PostForm("company"),
		SubmittedBy:    subject,
		Files:          incomingFiles(form.File["files"]),
	}

	result, err := h.feedbackService.Submit(c.Request.Context(), input)
	if err != nil {
		respondPipelineError(c, err)
		return
	}

	resp := SubmitFeedbackResponse{
		ID:              result.Submission.ID,
		Status:          result.Submission.Status,
		SubmittedAt:     result.Submission.SubmittedAt,
		AttachmentCount: len(result.Attachments),
		Attachments:     mapAttachments(result.Attachments),
		SkippedFiles:    result.SkippedFiles,
		Notified:        result.Notified,
	}
	c.JSON(http.StatusOK, resp)
}

// FeedbackHistory handles GET /feedback-history with optional email, type,
// status, limit and offset query parameters.
func (h *FeedbackHandler) FeedbackHistory(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	offset, _ := strconv.Atoi(c.Query("offset"))
	filter := domain.FeedbackFilter{
		SubmitterEmail: c.Query("email"),
		Type:           domain.FeedbackType(c.Query("type")),
		Status:         domain.FeedbackStatus(c.Query("status")),
		Limit:          limit,
		Offset:         offset,
	}

	list, err := h.feedbackService.History(c.Request.Context(), filter)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	if list == nil {
		list = []domain.FeedbackSubmission{}
	}
	c.JSON(http.StatusOK, gin.H{"submissions": list, "count": len(list)})
}

// FeedbackAttachments handles GET /feedback-attachments?submissionId=...
func (h *FeedbackHandler) FeedbackAttachments(c *gin.Context) {
	submissionID := c.Query("submissionId")
	attachments, err := h.feedbackService.Attachments(c.Request.Context(), submissionID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attachments": mapAttachments(attachments), "count": len(attachments)})
}

// --- Shared helpers ---

// incomingFiles adapts multipart file headers to the service-level type.
func incomingFiles(headers []*multipart.FileHeader) []service.IncomingFile {
	files := make([]service.IncomingFile, 0, len(headers))
	for _, fh := range headers {
		fh := fh
		files = append(files, service.IncomingFile{
			Name: fh.Filename,
			Open: func() (io.ReadCloser, error) { return fh.Open() },
		})
	}
	return files
}

func mapAttachments(attachments []domain.Attachment) []AttachmentResponse {
	out := make([]AttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, AttachmentResponse{
			ID:         a.ID,
			FileName:   a.FileName,
			Size:       a.Size,
			FileType:   a.FileType,
			UploadedAt: a.UploadedAt,
		})
	}
	return out
}

// respondPipelineError maps service errors to HTTP statuses.
func respondPipelineError(c *gin.Context, err error) {
	if tooLarge, ok := service.IsFileTooLarge(err); ok {
		abortWithError(c, http.StatusBadRequest, tooLarge.Error())
		return
	}
	switch {
	case errors.Is(err, service.ErrValidation), errors.Is(err, service.ErrTooManyFiles):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		abortWithError(c, http.StatusNotFound, "Record not found")
	case errors.Is(err, service.ErrPersistence):
		// Do not leak store internals to the caller.
		abortWithError(c, http.StatusInternalServerError, "Failed to persist the submission")
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}
