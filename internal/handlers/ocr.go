package handlers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"os"
	"strings"
	"time"

	"github.com/gen2brain/go-fitz"
	"github.com/gofiber/fiber/v2"

	"docbelt/internal/convert"
	"docbelt/internal/ocr"
	u "docbelt/internal/utils"
)

// ocrLanguages resolves the languages form field, falling back to the
// configured defaults.
func (svc *Service) ocrLanguages(c *fiber.Ctx) []string {
	raw := c.FormValue("languages")
	if raw == "" {
		return svc.Config.OCR.Languages
	}
	var langs []string
	for _, l := range strings.Split(raw, ",") {
		if l = strings.TrimSpace(l); l != "" {
			langs = append(langs, l)
		}
	}
	if len(langs) == 0 {
		return svc.Config.OCR.Languages
	}
	return langs
}

func (svc *Service) requireEngine() (ocr.Engine, error) {
	if svc.Engine == nil {
		return nil, fiber.NewError(fiber.StatusServiceUnavailable, "OCR is not available")
	}
	return svc.Engine, nil
}

func ocrCacheKey(data []byte, langs []string) string {
	h := sha256.New()
	h.Write(data)
	h.Write([]byte(strings.Join(langs, ",")))
	return "ocr:" + hex.EncodeToString(h.Sum(nil))
}

// cachedRecognize runs OCR with a Redis read-through cache when enabled.
func (svc *Service) cachedRecognize(ctx context.Context, data []byte, langs []string, dpi int) (ocr.Result, error) {
	engine, err := svc.requireEngine()
	if err != nil {
		return ocr.Result{}, err
	}

	cacheable := svc.Config.Cache.OCRCacheEnabled && svc.Redis != nil
	var key string
	if cacheable {
		key = ocrCacheKey(data, langs)
		if raw, gerr := svc.Redis.Get(ctx, key).Bytes(); gerr == nil {
			var res ocr.Result
			if json.Unmarshal(raw, &res) == nil {
				u.Debug("OCR cache hit", "key", key)
				return res, nil
			}
		}
	}

	res, err := engine.Recognize(ctx, ocr.Input{Image: data, Languages: langs, DPI: dpi})
	if err != nil {
		return ocr.Result{}, err
	}

	if cacheable {
		if raw, merr := json.Marshal(res); merr == nil {
			if serr := svc.Redis.Set(ctx, key, raw, svc.Config.Cache.OCRCacheTTL).Err(); serr != nil {
				u.Warn("OCR cache write failed", "error", serr)
			}
		}
	}
	return res, nil
}

// HandleOCRImage extracts text from a single uploaded image.
func (svc *Service) HandleOCRImage(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadImage(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	data, err := os.ReadFile(in)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "cannot read upload")
	}

	langs := svc.ocrLanguages(c)
	res, err := svc.cachedRecognize(c.Context(), data, langs, svc.Config.OCR.DPI)
	if err != nil {
		if fe, ok := err.(*fiber.Error); ok {
			return fe
		}
		return fiber.NewError(fiber.StatusUnprocessableEntity, "recognition failed: "+err.Error())
	}

	payload := fiber.Map{
		"success":         true,
		"text":            res.Text,
		"confidence":      round2(res.Confidence),
		"languages":       langs,
		"processing_time": roundSeconds(time.Since(start)),
	}
	if formBool(c.FormValue("include_words"), false) {
		payload["words"] = res.Words
	}
	return c.JSON(payload)
}

// HandleOCRPDF rasterizes a PDF and extracts text from every page.
func (svc *Service) HandleOCRPDF(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}

	langs := svc.ocrLanguages(c)
	dpi := formInt(c.FormValue("dpi"), 150)

	return svc.runMaybeAsync(c, func(ctx context.Context) (interface{}, error) {
		defer u.CleanupFile(in)

		doc, err := fitz.New(in)
		if err != nil {
			return nil, fmt.Errorf("open pdf: %w", err)
		}
		defer doc.Close()

		n := doc.NumPage()
		pageTexts := make([]string, 0, n)
		var confSum float64
		confPages := 0

		for p := 0; p < n; p++ {
			img, err := doc.ImageDPI(p, float64(dpi))
			if err != nil {
				return nil, fmt.Errorf("render page %d: %w", p+1, err)
			}
			data, err := encodePNG(img)
			if err != nil {
				return nil, err
			}
			res, err := svc.cachedRecognize(ctx, data, langs, dpi)
			if err != nil {
				return nil, fmt.Errorf("ocr page %d: %w", p+1, err)
			}
			pageTexts = append(pageTexts, res.Text)
			if res.Confidence > 0 {
				confSum += res.Confidence
				confPages++
			}
		}

		conf := 0.0
		if confPages > 0 {
			conf = confSum / float64(confPages)
		}
		return fiber.Map{
			"success":         true,
			"text":            ocr.JoinPages(pageTexts),
			"page_count":      n,
			"confidence":      round2(conf),
			"languages":       langs,
			"processing_time": roundSeconds(time.Since(start)),
		}, nil
	})
}

// HandleSearchableFromImage turns a scanned image into a one-page searchable
// PDF.
func (svc *Service) HandleSearchableFromImage(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadImage(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	engine, err := svc.requireEngine()
	if err != nil {
		return err
	}

	out := svc.outputPath(baseStem(in)+"_searchable", ".pdf")
	res, err := convert.ImageToSearchablePDF(c.Context(), in, out, engine, svc.ocrLanguages(c), svc.Config.OCR.DPI)
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "conversion failed: "+err.Error())
	}

	payload, rerr := svc.fileResult(out, start, fiber.Map{"confidence": round2(res.Confidence)})
	if rerr != nil {
		return rerr
	}
	return c.JSON(payload)
}

// HandleSearchablePDF rebuilds a scanned PDF with a selectable text layer.
func (svc *Service) HandleSearchablePDF(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}

	engine, err := svc.requireEngine()
	if err != nil {
		u.CleanupFile(in)
		return err
	}

	langs := svc.ocrLanguages(c)
	dpi := formInt(c.FormValue("dpi"), 150)
	out := svc.outputPath(baseStem(in)+"_searchable", ".pdf")

	return svc.runMaybeAsync(c, func(ctx context.Context) (interface{}, error) {
		defer u.CleanupFile(in)
		res, err := convert.PDFToSearchablePDF(ctx, in, out, engine, langs, dpi)
		if err != nil {
			return nil, err
		}
		return svc.fileResult(out, start, fiber.Map{
			"page_count": res.PageCount,
			"confidence": round2(res.Confidence),
		})
	})
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// HandleOCRLanguages lists the languages the OCR engine has trained data
// for.
func (svc *Service) HandleOCRLanguages(c *fiber.Ctx) error {
	engine, err := svc.requireEngine()
	if err != nil {
		return err
	}
	langs, err := engine.Languages()
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "cannot list languages: "+err.Error())
	}
	return c.JSON(fiber.Map{"success": true, "languages": langs})
}
