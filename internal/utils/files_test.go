package utils

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateFilename(t *testing.T) {
	re := regexp.MustCompile(`^report_\d{8}_\d{6}_[0-9a-f]{8}\.pdf$`)
	name := GenerateFilename("report.pdf")
	assert.Regexp(t, re, name)

	// Two names for the same original must not collide.
	assert.NotEqual(t, name, GenerateFilename("report.pdf"))
}

func TestGenerateFilenameSanitizes(t *testing.T) {
	name := GenerateFilename("../etc/pass wd!.PDF")
	assert.NotContains(t, name, "/")
	assert.NotContains(t, name, " ")
	assert.Regexp(t, `\.pdf$`, name)

	// A missing stem falls back to "file".
	name = GenerateFilename(".png")
	assert.Regexp(t, `^file_`, name)
}

func TestIsImageAndDocumentExt(t *testing.T) {
	assert.True(t, IsImageExt(".png"))
	assert.True(t, IsImageExt(".JPG"))
	assert.True(t, IsImageExt(".webp"))
	assert.False(t, IsImageExt(".svg"))
	assert.False(t, IsImageExt("png"))

	assert.True(t, IsDocumentExt(".pdf"))
	assert.True(t, IsDocumentExt(".docx"))
	assert.False(t, IsDocumentExt(".txt"))
}

func TestSweepOldFiles(t *testing.T) {
	dir := t.TempDir()

	oldFile := filepath.Join(dir, "old.pdf")
	require.NoError(t, os.WriteFile(oldFile, []byte("x"), 0o644))
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(oldFile, past, past))

	freshFile := filepath.Join(dir, "fresh.pdf")
	require.NoError(t, os.WriteFile(freshFile, []byte("x"), 0o644))

	subDir := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(subDir, 0o755))

	removed := SweepOldFiles([]string{dir, "/nonexistent"}, time.Hour)
	assert.Equal(t, 1, removed)

	_, err := os.Stat(oldFile)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(freshFile)
	assert.NoError(t, err)
	_, err = os.Stat(subDir)
	assert.NoError(t, err)
}

func TestCleanupFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tmp.pdf")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	CleanupFile(path)
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	// Missing files and empty paths are not an error.
	CleanupFile(path)
	CleanupFile("")
}

func TestMoveFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	// Destination in a different directory, as when moving a pdfcpu temp
	// extraction into the download dir.
	dst := filepath.Join(t.TempDir(), "dst.bin")
	require.NoError(t, MoveFile(src, dst))

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	// Missing source surfaces the error.
	assert.Error(t, MoveFile(src, dst))
}
