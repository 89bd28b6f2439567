package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// DiskStore implements AttachmentStore on a local filesystem root.
// Files are grouped under caller-supplied scope paths (date buckets for
// feedback, account/project/requirement for requirement uploads).
type DiskStore struct {
	root       string
	maxSize    int64
	extensions map[string]bool

	closed chan struct{} // closed by Close; flushes pending delayed deletes
	wg     sync.WaitGroup
	once   sync.Once
}

// NewDiskStore creates the root directory if needed and returns a store
// enforcing the given per-file size limit and extension allowlist.
func NewDiskStore(root string, maxSize int64, allowedExtensions []string) (*DiskStore, error) {
	if root == "" {
		return nil, errors.New("storage root directory cannot be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root %s: %w", root, err)
	}
	exts := make(map[string]bool, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		exts[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &DiskStore{
		root:       root,
		maxSize:    maxSize,
		extensions: exts,
		closed:     make(chan struct{}),
	}, nil
}

// Extension extracts the lower-cased extension (without the dot) from a
// client-supplied file name. Empty when the name has none.
func Extension(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return strings.ToLower(ext)
}

// Accepts reports whether the file name carries an allowlisted extension.
func (s *DiskStore) Accepts(originalName string) bool {
	ext := Extension(originalName)
	return ext != "" && s.extensions[ext]
}

// sanitizeName strips any path components and characters that could escape
// the scope directory from a client-supplied file name.
func sanitizeName(name string) string {
	name = filepath.Base(filepath.Clean(name))
	name = strings.ReplaceAll(name, "..", "")
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_', r == ' ', r == '(', r == ')':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.TrimSpace(b.String())
	if cleaned == "" || cleaned == "." {
		return "file"
	}
	return cleaned
}

// SanitizeScopeSegment makes a caller-supplied scoping key (account, project,
// requirement id) safe to use as a single directory name.
func SanitizeScopeSegment(segment string) string {
	return sanitizeName(segment)
}

// Save writes the stream to scopePath under a generated collision-free name.
func (s *DiskStore) Save(ctx context.Context, r io.Reader, originalName, scopePath string) (*StoredFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cleanName := sanitizeName(originalName)
	ext := Extension(cleanName)
	if ext == "" || !s.extensions[ext] {
		return nil, fmt.Errorf("extension of %q is not allowed", cleanName)
	}

	// Generated name keeps the extension but never the original name, so
	// concurrent uploads of equally named files cannot collide on disk.
	storedName := uuid.NewString() + "." + ext
	relPath := filepath.Join(scopePath, storedName)
	absPath := filepath.Join(s.root, relPath)

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("create scope directory: %w", err)
	}

	dst, err := os.Create(absPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", storedName, err)
	}
	written, copyErr := io.Copy(dst, r)
	closeErr := dst.Close()
	if copyErr != nil {
		os.Remove(absPath)
		return nil, fmt.Errorf("write %s: %w", storedName, copyErr)
	}
	if closeErr != nil {
		os.Remove(absPath)
		return nil, fmt.Errorf("close %s: %w", storedName, closeErr)
	}

	// Post-write size check: the multipart reader does not know the part
	// size up front, so measure what actually landed on disk.
	if s.maxSize > 0 && written > s.maxSize {
		if err := os.Remove(absPath); err != nil {
			log.Printf("ERROR: Failed to remove oversize file %s: %v", relPath, err)
		}
		return nil, &FileTooLargeError{FileName: cleanName, Size: written, Limit: s.maxSize}
	}

	return &StoredFile{
		OriginalName: cleanName,
		StoredName:   storedName,
		RelativePath: relPath,
		Size:         written,
		Extension:    ext,
	}, nil
}

// Open returns the stored file content for read-back.
func (s *DiskStore) Open(relativePath string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(s.root, relativePath))
}

// Exists reports whether a stored file is still present on disk.
func (s *DiskStore) Exists(relativePath string) bool {
	_, err := os.Stat(filepath.Join(s.root, relativePath))
	return err == nil
}

// Delete removes a stored file; a missing file counts as success.
func (s *DiskStore) Delete(relativePath string) error {
	err := os.Remove(filepath.Join(s.root, relativePath))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ScheduleDelayedDelete removes the given files after delay in a detached
// goroutine. Closing the store flushes pending deletes immediately instead
// of leaking them past shutdown.
func (s *DiskStore) ScheduleDelayedDelete(relativePaths []string, delay time.Duration) {
	if len(relativePaths) == 0 {
		return
	}
	paths := make([]string, len(relativePaths))
	copy(paths, relativePaths)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-s.closed:
		}
		for _, p := range paths {
			if err := s.Delete(p); err != nil {
				log.Printf("ERROR: Delayed delete of %s failed: %v", p, err)
			}
		}
	}()
}

// Close flushes pending delayed deletes and waits for them to finish.
func (s *DiskStore) Close() {
	s.once.Do(func() { close(s.closed) })
	s.wg.Wait()
}
