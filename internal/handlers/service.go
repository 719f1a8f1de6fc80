// Package handlers implements the HTTP surface of the service: PDF
// operations, document conversion, image processing and OCR.
package handlers

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"docbelt/internal/jobs"
	"docbelt/internal/ocr"
	u "docbelt/internal/utils"
)

// Service carries the shared dependencies of all handlers.
type Service struct {
	Config u.Config
	Redis  *redis.Client
	Engine ocr.Engine
	Jobs   *jobs.Queue
}

// NewService builds the handler service. The OCR engine and job queue may be
// nil; endpoints needing them respond with 503.
func NewService(cfg u.Config, rdb *redis.Client, engine ocr.Engine, queue *jobs.Queue) *Service {
	return &Service{Config: cfg, Redis: rdb, Engine: engine, Jobs: queue}
}

// uploadPDF saves the "file" form upload, requiring a .pdf extension.
func (svc *Service) uploadPDF(c *fiber.Ctx) (string, error) {
	return svc.upload(c, "file", ".pdf")
}

// uploadImage saves the "file" form upload, requiring a supported image
// extension.
func (svc *Service) uploadImage(c *fiber.Ctx) (string, error) {
	fh, err := svc.formFile(c, "file")
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !u.IsImageExt(ext) {
		return "", fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("unsupported image format %q", ext))
	}
	return svc.savedUpload(fh)
}

// upload saves a single named form upload after validating its extension.
func (svc *Service) upload(c *fiber.Ctx, field string, allowedExts ...string) (string, error) {
	fh, err := svc.formFile(c, field)
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	ok := false
	for _, allowed := range allowedExts {
		if ext == allowed {
			ok = true
			break
		}
	}
	if !ok {
		return "", fiber.NewError(fiber.StatusBadRequest,
			fmt.Sprintf("expected %s file, got %q", strings.Join(allowedExts, " or "), ext))
	}
	return svc.savedUpload(fh)
}

func (svc *Service) formFile(c *fiber.Ctx, field string) (*multipart.FileHeader, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("missing form file %q", field))
	}
	if max := int64(svc.Config.MaxFileSizeBytes()); max > 0 && fh.Size > max {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("file exceeds %d MB limit", svc.Config.Storage.MaxFileSizeMB))
	}
	return fh, nil
}

func (svc *Service) savedUpload(fh *multipart.FileHeader) (string, error) {
	path, err := u.SaveUpload(fh, svc.Config.Storage.UploadDir)
	if err != nil {
		u.Error("Failed to save upload", "filename", fh.Filename, "error", err)
		return "", fiber.NewError(fiber.StatusInternalServerError, "failed to store upload")
	}
	return path, nil
}

// uploadMany saves a multi-file upload under the given field name.
func (svc *Service) uploadMany(c *fiber.Ctx, field string, validate func(ext string) bool) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "expected multipart form")
	}
	fhs := form.File[field]
	if len(fhs) == 0 {
		return nil, fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("missing form files %q", field))
	}
	max := int64(svc.Config.MaxFileSizeBytes())
	for _, fh := range fhs {
		if max > 0 && fh.Size > max {
			return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge,
				fmt.Sprintf("file %q exceeds %d MB limit", fh.Filename, svc.Config.Storage.MaxFileSizeMB))
		}
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if !validate(ext) {
			return nil, fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("unsupported file format %q", ext))
		}
	}
	paths, err := u.SaveUploads(fhs, svc.Config.Storage.UploadDir)
	if err != nil {
		u.Error("Failed to save uploads", "error", err)
		return nil, fiber.NewError(fiber.StatusInternalServerError, "failed to store uploads")
	}
	return paths, nil
}

// outputPath builds a unique output path with the given stem and extension.
func (svc *Service) outputPath(stem, ext string) string {
	_ = os.MkdirAll(svc.Config.Storage.OutputDir, 0o755)
	return filepath.Join(svc.Config.Storage.OutputDir, u.GenerateFilename(stem+ext))
}

// baseStem derives the original file stem from a stored upload path, dropping
// the timestamp/uid suffix the upload step added.
func baseStem(path string) string {
	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(name, "_")
	if len(parts) >= 3 {
		parts = parts[:len(parts)-2]
	}
	return strings.Join(parts, "_")
}
