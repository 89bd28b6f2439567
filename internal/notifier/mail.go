package notifier

import (
	"context"
	"fmt"
	"io"
	"log"
	"strings"

	"gopkg.in/gomail.v2"

	"reqsharp/feedback-service/internal/config"
	"reqsharp/feedback-service/internal/domain"
	"reqsharp/feedback-service/internal/storage"
)

// AttachmentOpener provides read-back access to stored files so they can be
// attached to the outgoing message. Satisfied by storage.AttachmentStore.
type AttachmentOpener interface {
	Open(relativePath string) (io.ReadCloser, error)
}

// MailNotifier sends submission summaries over SMTP.
type MailNotifier struct {
	dialer *gomail.Dialer
	from   string
	to     string
	opener AttachmentOpener
}

// NewMailNotifier builds a notifier from mail configuration. The recipient is
// the configured triage inbox, not the submitter; the submitter address only
// becomes the Reply-To header when present.
func NewMailNotifier(cfg config.MailConfig, opener AttachmentOpener) *MailNotifier {
	return &MailNotifier{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		to:     cfg.To,
		opener: opener,
	}
}

// NotifySubmission renders and sends the summary mail with each accepted
// file attached under its original name.
func (n *MailNotifier) NotifySubmission(_ context.Context, submission *domain.FeedbackSubmission, attachments []domain.Attachment) error {
	m := gomail.NewMessage()
	m.SetHeader("From", n.from)
	m.SetHeader("To", n.to)
	m.SetHeader("Subject", SubjectLine(submission))
	if submission.SubmitterEmail != "" {
		m.SetHeader("Reply-To", submission.SubmitterEmail)
	}
	m.SetBody("text/plain", RenderBody(submission, attachments))

	for _, att := range attachments {
		relPath := att.StoredPath
		m.Attach(att.FileName, gomail.SetCopyFunc(func(w io.Writer) error {
			f, err := n.opener.Open(relPath)
			if err != nil {
				return err
			}
			defer f.Close()
			_, err = io.Copy(w, f)
			return err
		}))
	}

	if err := n.dialer.DialAndSend(m); err != nil {
		log.Printf("ERROR: Failed to send notification for submission %s: %v", submission.ID, err)
		return err
	}
	log.Printf("INFO: Notification sent for submission %s (%d attachments)", submission.ID, len(attachments))
	return nil
}

// SubjectLine builds a distinguishing subject per submission type,
// e.g. "[Bug] Login broken".
func SubjectLine(submission *domain.FeedbackSubmission) string {
	label := string(submission.Type)
	if label == "" {
		label = "Feedback"
	}
	label = strings.ToUpper(label[:1]) + label[1:]
	return fmt.Sprintf("[%s] %s", label, submission.Subject)
}

// RenderBody produces the plain-text summary: submitter block, metadata,
// description and the list of attached files with their sizes.
func RenderBody(submission *domain.FeedbackSubmission, attachments []domain.Attachment) string {
	var b strings.Builder

	fmt.Fprintf(&b, "A new %s submission was received.\n\n", submission.Type)

	if submission.SubmitterName != "" || submission.SubmitterEmail != "" {
		b.WriteString("Submitted by:\n")
		if submission.SubmitterName != "" {
			fmt.Fprintf(&b, "  Name:    %s\n", submission.SubmitterName)
		}
		if submission.SubmitterEmail != "" {
			fmt.Fprintf(&b, "  Email:   %s\n", submission.SubmitterEmail)
		}
		if submission.Company != "" {
			fmt.Fprintf(&b, "  Company: %s\n", submission.Company)
		}
		if submission.Project != "" {
			fmt.Fprintf(&b, "  Project: %s\n", submission.Project)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "Subject:  %s\n", submission.Subject)
	fmt.Fprintf(&b, "Priority: %s\n", submission.Priority)
	if submission.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", submission.Category)
	}
	fmt.Fprintf(&b, "Received: %s\n\n", submission.SubmittedAt.Format("2006-01-02 15:04:05 MST"))

	b.WriteString("Description:\n")
	b.WriteString(submission.Description)
	b.WriteString("\n")

	if len(attachments) > 0 {
		fmt.Fprintf(&b, "\nAttachments (%d):\n", len(attachments))
		for _, att := range attachments {
			fmt.Fprintf(&b, "  - %s (%s)\n", att.FileName, storage.FormatMegabytes(att.Size))
		}
	}

	return b.String()
}
