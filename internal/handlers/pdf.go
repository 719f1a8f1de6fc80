package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"docbelt/internal/pdfops"
	u "docbelt/internal/utils"
)

// HandleMerge concatenates two or more uploaded PDFs.
func (svc *Service) HandleMerge(c *fiber.Ctx) error {
	start := time.Now()
	paths, err := svc.uploadMany(c, "files", func(ext string) bool { return ext == ".pdf" })
	if err != nil {
		return err
	}
	defer u.CleanupFiles(paths)

	if len(paths) < 2 {
		return fiber.NewError(fiber.StatusBadRequest, "merge requires at least 2 PDF files")
	}

	out := svc.outputPath("merged", ".pdf")
	if err := pdfops.Merge(paths, out); err != nil {
		u.Error("Merge failed", "error", err)
		return fiber.NewError(fiber.StatusUnprocessableEntity, "merge failed: "+err.Error())
	}

	res, err := svc.fileResult(out, start, fiber.Map{"merged_files": len(paths)})
	if err != nil {
		return err
	}
	return c.JSON(res)
}

// HandleSplit splits a PDF into pages, ranges or an extracted subset.
func (svc *Service) HandleSplit(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	mode := c.FormValue("mode", "all")
	base := baseStem(in)
	outDir := svc.Config.Storage.OutputDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "cannot create output dir")
	}

	switch mode {
	case "all", "pages":
		outs, err := pdfops.SplitEachPage(in, outDir, base)
		if err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "split failed: "+err.Error())
		}
		res, rerr := svc.filesResult(outs, start, nil)
		if rerr != nil {
			return rerr
		}
		return c.JSON(res)
	case "range":
		ranges := c.FormValue("ranges")
		if ranges == "" {
			// single start_page/end_page pair as an alternative to ranges
			sp := formInt(c.FormValue("start_page"), 0)
			ep := formInt(c.FormValue("end_page"), 0)
			if sp < 1 || ep < sp {
				return fiber.NewError(fiber.StatusBadRequest,
					"range mode requires ranges or start_page/end_page")
			}
			ranges = fmt.Sprintf("%d-%d", sp, ep)
		}
		outs, err := pdfops.SplitByRanges(in, outDir, base, ranges)
		if err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "split failed: "+err.Error())
		}
		res, rerr := svc.filesResult(outs, start, nil)
		if rerr != nil {
			return rerr
		}
		return c.JSON(res)
	case "extract":
		pages := c.FormValue("pages")
		if pages == "" {
			return fiber.NewError(fiber.StatusBadRequest, "extract mode requires the pages field")
		}
		suffix := strings.NewReplacer(",", "_", "-", "-", " ", "").Replace(pages)
		out := svc.outputPath(fmt.Sprintf("%s_extracted_%s", base, suffix), ".pdf")
		if err := pdfops.ExtractPages(in, out, pages); err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "extract failed: "+err.Error())
		}
		res, rerr := svc.fileResult(out, start, fiber.Map{"pages": pages})
		if rerr != nil {
			return rerr
		}
		return c.JSON(res)
	default:
		return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("unknown split mode %q", mode))
	}
}

// HandleCompress optimizes a PDF and reports the size change.
func (svc *Service) HandleCompress(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	level := c.FormValue("level", "medium")
	inStat, err := os.Stat(in)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "cannot stat upload")
	}

	out := svc.outputPath(baseStem(in)+"_compressed", ".pdf")
	if err := pdfops.Compress(in, out, level); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "compression failed: "+err.Error())
	}

	outStat, err := os.Stat(out)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "output file missing")
	}
	ratio := 0.0
	if inStat.Size() > 0 {
		ratio = round2(1 - float64(outStat.Size())/float64(inStat.Size()))
	}
	res, rerr := svc.fileResult(out, start, fiber.Map{
		"original_size":     inStat.Size(),
		"compression_ratio": ratio,
	})
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleProtect encrypts a PDF with a password.
func (svc *Service) HandleProtect(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	userPW := c.FormValue("password")
	if userPW == "" {
		return fiber.NewError(fiber.StatusBadRequest, "password is required")
	}
	ownerPW := c.FormValue("owner_password")
	allowPrinting := formBool(c.FormValue("allow_printing"), true)

	out := svc.outputPath(baseStem(in)+"_protected", ".pdf")
	if err := pdfops.Protect(in, out, userPW, ownerPW, allowPrinting); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "encryption failed: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleUnlock removes the password from an encrypted PDF.
func (svc *Service) HandleUnlock(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	password := c.FormValue("password")
	if password == "" {
		return fiber.NewError(fiber.StatusBadRequest, "password is required")
	}

	out := svc.outputPath(baseStem(in)+"_unlocked", ".pdf")
	if err := pdfops.Unlock(in, out, password); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "decryption failed (wrong password?)")
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleRotate rotates selected pages by 90, 180 or 270 degrees.
func (svc *Service) HandleRotate(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	angle := formInt(c.FormValue("angle"), 0)
	pages := c.FormValue("pages", "all")

	out := svc.outputPath(baseStem(in)+"_rotated", ".pdf")
	if err := pdfops.Rotate(in, out, angle, pages); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	res, rerr := svc.fileResult(out, start, fiber.Map{"angle": angle})
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleWatermark stamps a text or image watermark onto selected pages.
func (svc *Service) HandleWatermark(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	pages := c.FormValue("pages", "all")
	out := svc.outputPath(baseStem(in)+"_watermarked", ".pdf")

	if imgFH, ferr := c.FormFile("image"); ferr == nil && imgFH != nil {
		imgPath, serr := svc.savedUpload(imgFH)
		if serr != nil {
			return serr
		}
		defer u.CleanupFile(imgPath)
		opacity := formFloat(c.FormValue("opacity"), 0.3)
		scale := formFloat(c.FormValue("scale"), 0.5)
		if err := pdfops.WatermarkImage(in, out, imgPath, pages, opacity, scale); err != nil {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "watermark failed: "+err.Error())
		}
	} else {
		text := c.FormValue("text")
		if text == "" {
			return fiber.NewError(fiber.StatusBadRequest, "either text or an image upload is required")
		}
		opts := pdfops.WatermarkOptions{
			Position: c.FormValue("position", "diagonal"),
			Opacity:  formFloat(c.FormValue("opacity"), 0.3),
			FontSize: formInt(c.FormValue("font_size"), 48),
			Color:    c.FormValue("color", "#808080"),
		}
		if err := pdfops.WatermarkText(in, out, text, pages, opts); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "watermark failed: "+err.Error())
		}
	}

	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandlePageNumbers stamps page numbers onto every page.
func (svc *Service) HandlePageNumbers(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	opts := pdfops.PageNumberOptions{
		Format:   c.FormValue("format", "{page}"),
		Position: c.FormValue("position", "bottom-center"),
		FontSize: formInt(c.FormValue("font_size"), 10),
	}

	out := svc.outputPath(baseStem(in)+"_numbered", ".pdf")
	if err := pdfops.AddPageNumbers(in, out, opts); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "page numbering failed: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleReorder rewrites the PDF with pages in an explicit order.
func (svc *Service) HandleReorder(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	order := c.FormValue("order")
	if order == "" {
		return fiber.NewError(fiber.StatusBadRequest, "order is required, e.g. 3,1,2")
	}

	out := svc.outputPath(baseStem(in)+"_reordered", ".pdf")
	if err := pdfops.Reorder(in, out, order); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "reorder failed: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleCrop sets the crop box of selected pages.
func (svc *Service) HandleCrop(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	llx := formFloat(c.FormValue("x0"), 0)
	lly := formFloat(c.FormValue("y0"), 0)
	urx := formFloat(c.FormValue("x1"), 0)
	ury := formFloat(c.FormValue("y1"), 0)
	pages := c.FormValue("pages", "all")

	out := svc.outputPath(baseStem(in)+"_cropped", ".pdf")
	if err := pdfops.Crop(in, out, llx, lly, urx, ury, pages); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "crop failed: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleArchival normalizes the PDF for long-term storage.
func (svc *Service) HandleArchival(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	out := svc.outputPath(baseStem(in)+"_archival", ".pdf")
	if err := pdfops.ToArchival(in, out); err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "conversion failed: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandlePDFInfo returns metadata and geometry of the uploaded PDF.
func (svc *Service) HandlePDFInfo(c *fiber.Ctx) error {
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	info, err := pdfops.ReadInfo(in)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "cannot read PDF: "+err.Error())
	}
	return c.JSON(fiber.Map{"success": true, "info": info})
}

// HandleExtractImages extracts embedded images from the PDF.
func (svc *Service) HandleExtractImages(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	pages := c.FormValue("pages", "all")
	tmpDir, err := os.MkdirTemp("", "docbelt-extract-*")
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "cannot create temp dir")
	}
	defer os.RemoveAll(tmpDir)

	extracted, err := pdfops.ExtractEmbeddedImages(in, tmpDir, pages)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "extraction failed: "+err.Error())
	}
	if err := os.MkdirAll(svc.Config.Storage.OutputDir, 0o755); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "cannot create output dir")
	}
	outs := make([]string, 0, len(extracted))
	for _, p := range extracted {
		dst := filepath.Join(svc.Config.Storage.OutputDir, u.GenerateFilename(filepath.Base(p)))
		if err := u.MoveFile(p, dst); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "cannot move extracted image")
		}
		outs = append(outs, dst)
	}
	res, rerr := svc.filesResult(outs, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleAnalyze inspects the PDF and recommends a conversion mode.
func (svc *Service) HandleAnalyze(c *fiber.Ctx) error {
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	a := pdfops.Analyze(in)
	return c.JSON(fiber.Map{"success": true, "analysis": a})
}
