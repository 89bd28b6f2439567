package api

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"reqsharp/feedback-service/internal/domain"
	"reqsharp/feedback-service/internal/service"
)

// RequirementHandler holds the requirement attachment service dependency.
type RequirementHandler struct {
	requirementService service.RequirementService
}

// NewRequirementHandler creates a new RequirementHandler.
func NewRequirementHandler(requirementService service.RequirementService) *RequirementHandler {
	return &RequirementHandler{requirementService: requirementService}
}

// RequirementAttachmentResponse is the client-facing view of one
// requirement attachment record.
type RequirementAttachmentResponse struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"accountId"`
	ProjectID     string    `json:"projectId"`
	RequirementID string    `json:"requirementId"`
	FileName      string    `json:"fileName"`
	Size          int64     `json:"size"`
	FileType      string    `json:"fileType"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

// UploadAttachment handles POST /upload-requirement-attachment (multipart:
// accountId, projectId, requirementId + files under the "files" field).
func (h *RequirementHandler) UploadAttachment(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Invalid multipart form: %v", err))
		return
	}

	subject, _ := getSubjectFromContext(c)
	uploadedBy := c.PostForm("uploaderId")
	if uploadedBy == "" {
		uploadedBy = subject
	}

	input := service.UploadRequirementInput{
		AccountID:     c.PostForm("accountId"),
		ProjectID:     c.PostForm("projectId"),
		RequirementID: c.PostForm("requirementId"),
		UploadedBy:    uploadedBy,
		Files:         incomingFiles(form.File["files"]),
	}

	attachments, skipped, err := h.requirementService.Upload(c.Request.Context(), input)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"attachments":  mapRequirementAttachments(attachments),
		"count":        len(attachments),
		"skippedFiles": skipped,
	})
}

// ListAttachments handles GET /requirement-attachments by scope query
// parameters.
func (h *RequirementHandler) ListAttachments(c *gin.Context) {
	scope := domain.RequirementScope{
		AccountID:     c.Query("accountId"),
		ProjectID:     c.Query("projectId"),
		RequirementID: c.Query("requirementId"),
	}
	attachments, err := h.requirementService.List(c.Request.Context(), scope)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"attachments": mapRequirementAttachments(attachments),
		"count":       len(attachments),
	})
}

// DownloadAttachment handles GET /download-requirement-attachment/:id,
// streaming the stored bytes under the original filename.
func (h *RequirementHandler) DownloadAttachment(c *gin.Context) {
	att, stream, err := h.requirementService.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	defer stream.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", att.FileName))
	c.Header("Content-Length", fmt.Sprintf("%d", att.Size))
	c.Header("Content-Type", "application/octet-stream")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, stream); err != nil {
		// Headers already went out; nothing to do but note it.
		_ = c.Error(err)
	}
}

// DeleteAttachment handles POST /delete-requirement-attachment.
type DeleteAttachmentRequest struct {
	ID        string `json:"id" binding:"required"`
	AccountID string `json:"accountId" binding:"required"`
	ProjectID string `json:"projectId" binding:"required"`
}

func (h *RequirementHandler) DeleteAttachment(c *gin.Context) {
	var req DeleteAttachmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}

	err := h.requirementService.Delete(c.Request.Context(), req.ID, req.AccountID, req.ProjectID)
	if err != nil {
		respondPipelineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true, "id": req.ID})
}

func mapRequirementAttachments(attachments []domain.RequirementAttachment) []RequirementAttachmentResponse {
	out := make([]RequirementAttachmentResponse, 0, len(attachments))
	for _, a := range attachments {
		out = append(out, RequirementAttachmentResponse{
			ID:            a.ID,
			AccountID:     a.AccountID,
			ProjectID:     a.ProjectID,
			RequirementID: a.RequirementID,
			FileName:      a.FileName,
			Size:          a.Size,
			FileType:      a.FileType,
			UploadedAt:    a.UploadedAt,
		})
	}
	return out
}
