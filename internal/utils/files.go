package utils

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var imageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
}

var documentExts = map[string]bool{
	".pdf":  true,
	".docx": true,
	".xlsx": true,
	".pptx": true,
}

// IsImageExt reports whether ext (with leading dot, any case) is a supported
// input image format.
func IsImageExt(ext string) bool {
	return imageExts[strings.ToLower(ext)]
}

// IsDocumentExt reports whether ext is a supported document format.
func IsDocumentExt(ext string) bool {
	return documentExts[strings.ToLower(ext)]
}

// GenerateFilename produces a unique name for an uploaded file, preserving the
// original stem and extension: "report_20260830_153045_1a2b3c4d.pdf".
func GenerateFilename(original string) string {
	base := filepath.Base(original)
	ext := strings.ToLower(filepath.Ext(base))
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	stem = sanitizeStem(stem)
	ts := time.Now().Format("20060102_150405")
	uid := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	return fmt.Sprintf("%s_%s_%s%s", stem, ts, uid, ext)
}

func sanitizeStem(stem string) string {
	var b strings.Builder
	for _, r := range stem {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

// SaveUpload writes a multipart upload into dir under a generated unique name
// and returns the full path.
func SaveUpload(fh *multipart.FileHeader, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	path := filepath.Join(dir, GenerateFilename(fh.Filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// SaveUploads saves a batch of multipart uploads, cleaning up on first error.
func SaveUploads(fhs []*multipart.FileHeader, dir string) ([]string, error) {
	paths := make([]string, 0, len(fhs))
	for _, fh := range fhs {
		p, err := SaveUpload(fh, dir)
		if err != nil {
			CleanupFiles(paths)
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// MoveFile renames src to dst, falling back to copy and remove when the two
// paths sit on different filesystems.
func MoveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(dst)
		return err
	}
	return os.Remove(src)
}

// CleanupFile removes a temp file, ignoring missing ones.
func CleanupFile(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		Warn("Failed to remove temp file", "path", path, "error", err)
	}
}

// CleanupFiles removes a batch of temp files.
func CleanupFiles(paths []string) {
	for _, p := range paths {
		CleanupFile(p)
	}
}

// SweepOldFiles removes files in dirs older than maxAge. Returns the number of
// files removed.
func SweepOldFiles(dirs []string, maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			info, err := e.Info()
			if err != nil {
				continue
			}
			if info.ModTime().Before(cutoff) {
				CleanupFile(filepath.Join(dir, e.Name()))
				removed++
			}
		}
	}
	return removed
}

// StartSweeper periodically sweeps old files from dirs until stop is closed.
func StartSweeper(dirs []string, maxAge, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if n := SweepOldFiles(dirs, maxAge); n > 0 {
				Info("Swept expired files", "count", n)
			}
		case <-stop:
			return
		}
	}
}
