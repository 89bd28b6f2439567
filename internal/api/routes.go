package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"reqsharp/feedback-service/internal/service"
)

// SetupRoutes registers the HTTP surface. Mutating endpoints run behind the
// auth middleware followed by an access policy check, composed in that fixed
// order; read endpoints for feedback metadata are open for triage tooling.
func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	policy AccessPolicy,
	feedbackService service.FeedbackService,
	requirementService service.RequirementService,
	pingDB func() error,
) {
	feedbackHandler := NewFeedbackHandler(feedbackService)
	requirementHandler := NewRequirementHandler(requirementService)

	authMiddleware := AuthMiddleware(jwtSecret)

	router.GET("/health", func(c *gin.Context) {
		if pingDB != nil {
			if err := pingDB(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/submit-feedback", authMiddleware,
		PolicyMiddleware(policy, "feedback.submit"),
		feedbackHandler.SubmitFeedback)
	router.GET("/feedback-history", feedbackHandler.FeedbackHistory)
	router.GET("/feedback-attachments", feedbackHandler.FeedbackAttachments)

	router.POST("/upload-requirement-attachment", authMiddleware,
		PolicyMiddleware(policy, "requirement.attachment.upload"),
		requirementHandler.UploadAttachment)
	router.GET("/requirement-attachments", authMiddleware,
		PolicyMiddleware(policy, "requirement.attachment.list"),
		requirementHandler.ListAttachments)
	router.GET("/download-requirement-attachment/:id", authMiddleware,
		PolicyMiddleware(policy, "requirement.attachment.download"),
		requirementHandler.DownloadAttachment)
	router.POST("/delete-requirement-attachment", authMiddleware,
		PolicyMiddleware(policy, "requirement.attachment.delete"),
		requirementHandler.DeleteAttachment)
}
