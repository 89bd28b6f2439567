package storage

import (
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, maxSize int64) *DiskStore {
	t.Helper()
	store, err := NewDiskStore(t.TempDir(), maxSize, []string{"txt", "pdf", "png"})
	require.NoError(t, err)
	t.Cleanup(store.Close)
	return store
}

func countFiles(t *testing.T, root string) int {
	t.Helper()
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			count++
		}
		return nil
	})
	require.NoError(t, err)
	return count
}

func TestSaveGeneratesCollisionFreeName(t *testing.T) {
	store := newTestStore(t, 1<<20)

	sf, err := store.Save(context.Background(), strings.NewReader("hello"), "report.txt", "feedback/20260901")
	require.NoError(t, err)

	assert.Equal(t, "report.txt", sf.OriginalName)
	assert.NotEqual(t, sf.OriginalName, sf.StoredName)
	assert.Equal(t, "txt", sf.Extension)
	assert.Equal(t, int64(5), sf.Size)
	assert.True(t, strings.HasPrefix(sf.RelativePath, filepath.Join("feedback", "20260901")))

	// Two saves of the same name must not collide.
	sf2, err := store.Save(context.Background(), strings.NewReader("hello again"), "report.txt", "feedback/20260901")
	require.NoError(t, err)
	assert.NotEqual(t, sf.StoredName, sf2.StoredName)
}

func TestSaveRoundTrip(t *testing.T) {
	store := newTestStore(t, 1<<20)
	content := "the quick brown fox"

	sf, err := store.Save(context.Background(), strings.NewReader(content), "notes.txt", "a/b/c")
	require.NoError(t, err)

	rc, err := store.Open(sf.RelativePath)
	require.NoError(t, err)
	defer rc.Close()
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestSaveRemovesOversizeFile(t *testing.T) {
	store := newTestStore(t, 64)

	payload := strings.Repeat("x", 128)
	sf, err := store.Save(context.Background(), strings.NewReader(payload), "big.txt", "feedback/20260901")
	require.Error(t, err)
	assert.Nil(t, sf)

	var tooLarge *FileTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, "big.txt", tooLarge.FileName)
	assert.Equal(t, int64(128), tooLarge.Size)
	assert.Equal(t, int64(64), tooLarge.Limit)

	// The offending file must be gone, not merely flagged.
	assert.Equal(t, 0, countFiles(t, store.root))
}

func TestFileTooLargeErrorMessage(t *testing.T) {
	err := &FileTooLargeError{FileName: "dump.log", Size: 12 << 20, Limit: 10 << 20}
	assert.Contains(t, err.Error(), "dump.log")
	assert.Contains(t, err.Error(), "12.00 MB")
	assert.Contains(t, err.Error(), "10.00 MB")
}

func TestFormatMegabytes(t *testing.T) {
	assert.Equal(t, "10.00 MB", FormatMegabytes(10<<20))
	assert.Equal(t, "1.50 MB", FormatMegabytes(3<<19))
	assert.Equal(t, "0.00 MB", FormatMegabytes(0))
}

func TestAcceptsIsCaseInsensitive(t *testing.T) {
	store := newTestStore(t, 1<<20)

	assert.True(t, store.Accepts("Report.TXT"))
	assert.True(t, store.Accepts("scan.pdf"))
	assert.False(t, store.Accepts("malware.exe"))
	assert.False(t, store.Accepts("no-extension"))
	assert.False(t, store.Accepts(""))
}

func TestSaveRejectsDisallowedExtension(t *testing.T) {
	store := newTestStore(t, 1<<20)

	_, err := store.Save(context.Background(), strings.NewReader("x"), "tool.exe", "scope")
	require.Error(t, err)
	assert.Equal(t, 0, countFiles(t, store.root))
}

func TestSaveSanitizesTraversalNames(t *testing.T) {
	store := newTestStore(t, 1<<20)

	sf, err := store.Save(context.Background(), strings.NewReader("x"), "../../../etc/passwd.txt", "scope")
	require.NoError(t, err)

	assert.Equal(t, "passwd.txt", sf.OriginalName)
	abs, err := filepath.Abs(filepath.Join(store.root, sf.RelativePath))
	require.NoError(t, err)
	rootAbs, err := filepath.Abs(store.root)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(abs, rootAbs), "stored file escaped the root: %s", abs)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := newTestStore(t, 1<<20)

	sf, err := store.Save(context.Background(), strings.NewReader("x"), "gone.txt", "scope")
	require.NoError(t, err)

	require.NoError(t, store.Delete(sf.RelativePath))
	// Second delete of the same path is still a success.
	require.NoError(t, store.Delete(sf.RelativePath))
	require.NoError(t, store.Delete("never/existed.txt"))
}

func TestDelayedDeleteRemovesFiles(t *testing.T) {
	store := newTestStore(t, 1<<20)

	sf, err := store.Save(context.Background(), strings.NewReader("transient"), "tmp.txt", "scope")
	require.NoError(t, err)

	store.ScheduleDelayedDelete([]string{sf.RelativePath}, 5*time.Millisecond)
	assert.Eventually(t, func() bool {
		return !store.Exists(sf.RelativePath)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestCloseFlushesPendingDelayedDeletes(t *testing.T) {
	dir := t.TempDir()
	store, err := NewDiskStore(dir, 1<<20, []string{"txt"})
	require.NoError(t, err)

	sf, err := store.Save(context.Background(), strings.NewReader("transient"), "tmp.txt", "scope")
	require.NoError(t, err)

	// Delay far in the future; Close must not leave the file behind.
	store.ScheduleDelayedDelete([]string{sf.RelativePath}, time.Hour)
	store.Close()

	_, statErr := os.Stat(filepath.Join(dir, sf.RelativePath))
	assert.True(t, os.IsNotExist(statErr))
}
