package domain

import "time"

// Attachment stores metadata about a file uploaded alongside a feedback
// submission. The actual bytes live on disk under the storage root; StoredPath
// is relative to that root and is never the client-supplied name.
type Attachment struct {
	ID           string    `json:"id"`
	SubmissionID string    `json:"submissionId"`
	FileName     string    `json:"fileName"`   // original name as supplied by the client (sanitized)
	StoredPath   string    `json:"-"`          // server-generated, internal use only
	Size         int64     `json:"size"`       // bytes
	FileType     string    `json:"fileType"`   // extension without the dot
	UploadedBy   string    `json:"uploadedBy"` // subject identity from the bearer token
	UploadedAt   time.Time `json:"uploadedAt"`
}

// RequirementAttachment is an attachment scoped to a corporate account /
// project / requirement triple instead of a feedback submission.
type RequirementAttachment struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"accountId"`
	ProjectID     string    `json:"projectId"`
	RequirementID string    `json:"requirementId"`
	FileName      string    `json:"fileName"`
	StoredPath    string    `json:"-"`
	Size          int64     `json:"size"`
	FileType      string    `json:"fileType"`
	UploadedBy    string    `json:"uploadedBy"`
	UploadedAt    time.Time `json:"uploadedAt"`
}

// RequirementScope identifies the account/project/requirement triple a
// requirement attachment belongs to.
type RequirementScope struct {
	AccountID     string
	ProjectID     string
	RequirementID string
}
