package domain

import "time"

// FeedbackType classifies what kind of submission the client sent.
type FeedbackType string

const (
	FeedbackTypeBug      FeedbackType = "bug"
	FeedbackTypeFeature  FeedbackType = "feature"
	FeedbackTypeFeedback FeedbackType = "feedback"
	FeedbackTypeOther    FeedbackType = "other"
)

// IsValid reports whether t is one of the known feedback types.
func (t FeedbackType) IsValid() bool {
	switch t {
	case FeedbackTypeBug, FeedbackTypeFeature, FeedbackTypeFeedback, FeedbackTypeOther:
		return true
	}
	return false
}

// FeedbackPriority is the submitter-assigned urgency of a submission.
type FeedbackPriority string

const (
	PriorityLow    FeedbackPriority = "low"
	PriorityMedium FeedbackPriority = "medium"
	PriorityHigh   FeedbackPriority = "high"
)

// IsValid reports whether p is one of the known priorities.
func (p FeedbackPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// FeedbackStatus tracks the workflow state of a submission. New submissions
// always start out as StatusSubmitted; later transitions are driven by an
// external triage workflow, not by this service.
type FeedbackStatus string

const (
	StatusSubmitted FeedbackStatus = "SUBMITTED"
	StatusInReview  FeedbackStatus = "IN_REVIEW"
	StatusResolved  FeedbackStatus = "RESOLVED"
	StatusClosed    FeedbackStatus = "CLOSED"
)

// FeedbackSubmission is one piece of user feedback. Immutable once created
// except for Status.
type FeedbackSubmission struct {
	ID             string           `json:"id"`
	Type           FeedbackType     `json:"type"`
	Subject        string           `json:"subject"`
	Description    string           `json:"description"`
	Priority       FeedbackPriority `json:"priority"`
	Category       string           `json:"category,omitempty"`
	SubmitterName  string           `json:"submitterName,omitempty"`
	SubmitterEmail string           `json:"submitterEmail,omitempty"`
	Project        string           `json:"project,omitempty"`
	Company        string           `json:"company,omitempty"`
	Status         FeedbackStatus   `json:"status"`
	SubmittedAt    time.Time        `json:"submittedAt"`
}

// FeedbackFilter narrows a feedback history query. Zero-valued fields are
// ignored; Limit and Offset paginate the result.
type FeedbackFilter struct {
	SubmitterEmail string
	Type           FeedbackType
	Status         FeedbackStatus
	Limit          int
	Offset         int
}
