package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// StoredFile describes one durably written attachment. RelativePath is
// relative to the store's root directory and always ends in a generated name,
// never the client-supplied one.
type StoredFile struct {
	OriginalName string
	StoredName   string
	RelativePath string
	Size         int64
	Extension    string // without the dot, lower-cased
}

// FileTooLargeError is returned when a written file turns out to exceed the
// configured per-file limit. The file is guaranteed to have been removed
// before this error is returned.
type FileTooLargeError struct {
	FileName string
	Size     int64 // actual bytes written
	Limit    int64 // configured maximum in bytes
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file %q is %s, exceeds the %s limit", e.FileName, FormatMegabytes(e.Size), FormatMegabytes(e.Limit))
}

// FormatMegabytes renders a byte count as megabytes with two decimals,
// e.g. 12582912 -> "12.00 MB".
func FormatMegabytes(bytes int64) string {
	return fmt.Sprintf("%.2f MB", float64(bytes)/(1<<20))
}

// AttachmentStore turns incoming named byte streams into durably stored
// files with collision-free paths, and removes them again on request.
type AttachmentStore interface {
	// Accepts reports whether a file with this client-supplied name would be
	// taken by Save, based on the extension allowlist. Callers skip files
	// that are not accepted and track submitted vs. accepted counts.
	Accepts(originalName string) bool

	// Save sanitizes originalName, writes the stream under a generated name
	// inside scopePath and returns the stored metadata. If the written bytes
	// exceed the configured limit the file is deleted and a
	// *FileTooLargeError is returned.
	Save(ctx context.Context, r io.Reader, originalName, scopePath string) (*StoredFile, error)

	// Open returns the content of a previously stored file for read-back
	// (download streaming, mail attachments).
	Open(relativePath string) (io.ReadCloser, error)

	// Delete removes a stored file. A missing file counts as success.
	Delete(relativePath string) error

	// ScheduleDelayedDelete removes the given files after delay, detached
	// from the calling request. Per-file failures are logged, not returned.
	ScheduleDelayedDelete(relativePaths []string, delay time.Duration)
}
