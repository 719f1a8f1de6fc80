package app

import (
	"docbelt/internal/handlers"
	"docbelt/internal/jobs"
	"docbelt/internal/ocr"
	u "docbelt/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/redis/go-redis/v9"
)

// SetupApp creates and configures a new Fiber app instance
func SetupApp(cfg u.Config, redis *redis.Client, engine ocr.Engine, queue *jobs.Queue) *fiber.App {
	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             cfg.MaxFileSizeBytes() * 2,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"

			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}

			u.Warn("Request failed", "path", c.Path(), "status", code, "message", msg)

			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{
					"code":    code,
					"message": msg,
				},
			})
		},
	})

	RegisterMiddleware(app, cfg)
	RegisterRoutes(app, cfg, redis, engine, queue)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app
}

// RegisterRoutes mounts all route handlers to the app
func RegisterRoutes(app *fiber.App, cfg u.Config, redis *redis.Client, engine ocr.Engine, queue *jobs.Queue) {
	// One shared service instance so all handlers share the OCR engine and
	// job queue.
	svc := handlers.NewService(cfg, redis, engine, queue)

	app.Static("/downloads", cfg.Storage.OutputDir, fiber.Static{
		Download: true,
	})

	v1 := app.Group("/api/v1")

	pdf := v1.Group("/pdf")
	pdf.Post("/merge", svc.HandleMerge)
	pdf.Post("/split", svc.HandleSplit)
	pdf.Post("/compress", svc.HandleCompress)
	pdf.Post("/protect", svc.HandleProtect)
	pdf.Post("/unlock", svc.HandleUnlock)
	pdf.Post("/rotate", svc.HandleRotate)
	pdf.Post("/watermark", svc.HandleWatermark)
	pdf.Post("/page-numbers", svc.HandlePageNumbers)
	pdf.Post("/reorder", svc.HandleReorder)
	pdf.Post("/crop", svc.HandleCrop)
	pdf.Post("/to-pdfa", svc.HandleArchival)
	pdf.Post("/info", svc.HandlePDFInfo)
	pdf.Post("/extract-images", svc.HandleExtractImages)
	pdf.Post("/analyze", svc.HandleAnalyze)

	pdf.Post("/search", svc.HandleSearch)
	pdf.Post("/redact", svc.HandleRedact)
	pdf.Post("/replace-text", svc.HandleReplaceText)
	pdf.Post("/add-text", svc.HandleAddText)
	pdf.Post("/add-image", svc.HandleAddImage)
	pdf.Post("/add-annotation", svc.HandleAddAnnotation)
	pdf.Post("/edit-batch", svc.HandleEditBatch)
	pdf.Post("/extract-text", svc.HandleExtractText)
	pdf.Post("/structure", svc.HandleStructure)

	pdf.Post("/to-word", svc.HandleToWord)
	pdf.Post("/to-excel", svc.HandleToExcel)
	pdf.Post("/from-images", svc.HandleFromImages)
	pdf.Post("/from-word", svc.HandleFromWord)
	pdf.Post("/from-excel", svc.HandleFromExcel)
	pdf.Post("/from-ppt", svc.HandleFromPowerPoint)
	pdf.Post("/from-html", svc.HandleFromHTML)

	img := v1.Group("/image")
	img.Post("/resize", svc.HandleImageResize)
	img.Post("/crop", svc.HandleImageCrop)
	img.Post("/rotate", svc.HandleImageRotate)
	img.Post("/flip", svc.HandleImageFlip)
	img.Post("/compress", svc.HandleImageCompress)
	img.Post("/convert", svc.HandleImageConvert)
	img.Post("/adjust", svc.HandleImageAdjust)
	img.Post("/blur", svc.HandleImageBlur)
	img.Post("/sharpen", svc.HandleImageSharpen)
	img.Post("/grayscale", svc.HandleImageGrayscale)
	img.Post("/info", svc.HandleImageInfo)
	img.Post("/passport-photo", svc.HandlePassportPhoto)
	img.Post("/passport-photo-sheet", svc.HandlePassportSheet)
	img.Get("/passport-sizes", svc.HandlePassportSizes)
	img.Post("/remove-bg", svc.HandleRemoveBackground)
	img.Post("/replace-background", svc.HandleReplaceBackground)

	ocrGroup := v1.Group("/ocr")
	ocrGroup.Post("/image", svc.HandleOCRImage)
	ocrGroup.Post("/pdf", svc.HandleOCRPDF)
	ocrGroup.Post("/image-to-pdf", svc.HandleSearchableFromImage)
	ocrGroup.Post("/pdf-to-searchable", svc.HandleSearchablePDF)
	ocrGroup.Get("/languages", svc.HandleOCRLanguages)

	v1.Get("/jobs/:id", svc.HandleJobStatus)

	v1.Get("/monitor", monitor.New())
}
