package handlers

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"docbelt/internal/convert"
	u "docbelt/internal/utils"
)

// runMaybeAsync either runs the task inline or, when the async form flag is
// set, submits it to the job queue and responds with the job ID.
func (svc *Service) runMaybeAsync(c *fiber.Ctx, task func(ctx context.Context) (interface{}, error)) error {
	if formBool(c.FormValue("async"), false) {
		if svc.Jobs == nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "background jobs are not enabled")
		}
		id, ok := svc.Jobs.Submit(task)
		if !ok {
			return fiber.NewError(fiber.StatusServiceUnavailable, "job queue is full")
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
			"success": true,
			"job_id":  id,
			"status":  "queued",
		})
	}

	result, err := task(c.Context())
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return fe
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(result)
}

// HandleToWord converts a PDF into a DOCX document.
func (svc *Service) HandleToWord(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}

	mode := convert.WordMode(c.FormValue("mode", "auto"))
	langs := svc.ocrLanguages(c)
	out := svc.outputPath(baseStem(in), ".docx")

	return svc.runMaybeAsync(c, func(ctx context.Context) (interface{}, error) {
		defer u.CleanupFile(in)
		res, err := convert.PDFToWord(ctx, in, out, mode, svc.Engine, langs)
		if err != nil {
			return nil, err
		}
		return svc.fileResult(out, start, fiber.Map{
			"mode":       string(res.Mode),
			"page_count": res.PageCount,
		})
	})
}

// HandleToExcel converts a PDF into an XLSX workbook.
func (svc *Service) HandleToExcel(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}

	langs := svc.ocrLanguages(c)
	out := svc.outputPath(baseStem(in), ".xlsx")

	return svc.runMaybeAsync(c, func(ctx context.Context) (interface{}, error) {
		defer u.CleanupFile(in)
		res, err := convert.PDFToExcel(ctx, in, out, svc.Engine, langs)
		if err != nil {
			return nil, err
		}
		return svc.fileResult(out, start, fiber.Map{
			"sheets":   res.Sheets,
			"rows":     res.Rows,
			"used_ocr": res.UsedOCR,
		})
	})
}

// HandleFromImages builds a PDF from one or more uploaded images.
func (svc *Service) HandleFromImages(c *fiber.Ctx) error {
	start := time.Now()
	paths, err := svc.uploadMany(c, "files", u.IsImageExt)
	if err != nil {
		return err
	}
	defer u.CleanupFiles(paths)

	out := svc.outputPath("images", ".pdf")
	if err := convert.ImagesToPDF(paths, out); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "conversion failed: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, fiber.Map{"image_count": len(paths)})
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleFromWord renders a DOCX document to PDF.
func (svc *Service) HandleFromWord(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.upload(c, "file", ".docx")
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	out := svc.outputPath(baseStem(in), ".pdf")
	if err := convert.WordToPDF(in, out); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "conversion failed: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleFromExcel renders an XLSX workbook to PDF.
func (svc *Service) HandleFromExcel(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.upload(c, "file", ".xlsx")
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	out := svc.outputPath(baseStem(in), ".pdf")
	if err := convert.ExcelToPDF(in, out); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "conversion failed: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleFromPowerPoint renders a PPTX presentation to PDF, one slide per
// page.
func (svc *Service) HandleFromPowerPoint(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.upload(c, "file", ".pptx")
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	out := svc.outputPath(baseStem(in), ".pdf")
	if err := convert.PowerPointToPDF(in, out); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "conversion failed: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleFromHTML renders HTML (raw content or a URL) to PDF with headless
// Chrome.
func (svc *Service) HandleFromHTML(c *fiber.Ctx) error {
	start := time.Now()

	html := c.FormValue("html")
	url := c.FormValue("url")
	if html == "" && url == "" {
		return fiber.NewError(fiber.StatusBadRequest, "either html or url is required")
	}
	if url != "" && !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fiber.NewError(fiber.StatusBadRequest, "url must be http(s)")
	}

	opts := convert.HTMLOptions{
		ChromePath: svc.Config.PDF.ChromePath,
		Margin:     formFloat(c.FormValue("margin"), 0.4),
		Timeout:    svc.Config.PDF.HTMLTimeout,
	}

	data, err := convert.HTMLToPDF(html, url, opts)
	if err != nil {
		u.Error("HTML rendering failed", "error", err)
		return fiber.NewError(fiber.StatusUnprocessableEntity, "rendering failed: "+err.Error())
	}

	out := svc.outputPath("document", ".pdf")
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "cannot write output")
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}
