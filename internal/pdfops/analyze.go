package pdfops

import (
	"os"
	"strconv"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Analysis summarizes the structure of a PDF sampled over its first pages.
type Analysis struct {
	PageCount     int    `json:"page_count"`
	SampledPages  int    `json:"sampled_pages"`
	TextLength    int    `json:"text_length"`
	ImageCount    int    `json:"image_count"`
	HasText       bool   `json:"has_text"`
	HasManyImages bool   `json:"has_many_images"`
	IsScanned     bool   `json:"is_scanned"`
	IsComplex     bool   `json:"is_complex"`
	Recommended   string `json:"recommended_mode"`
}

const analyzeSamplePages = 10

// classify fills the derived fields from the raw counters.
func classify(a *Analysis) {
	a.HasText = a.TextLength > 100
	// Compare against the full document page count, not the sample size, so
	// a long text PDF with an image-heavy opening still converts as text.
	a.HasManyImages = a.PageCount > 0 && a.ImageCount >= a.PageCount
	a.IsScanned = a.TextLength <= 100 && a.ImageCount > 0
	a.IsComplex = a.HasText && a.HasManyImages

	switch {
	case a.IsScanned:
		a.Recommended = "ocr"
	case a.IsComplex:
		a.Recommended = "hybrid"
	case a.HasText:
		a.Recommended = "text"
	default:
		a.Recommended = "image"
	}
}

// Analyze samples up to the first ten pages of the PDF to decide whether a
// text-based, image-based or OCR-based conversion works best. When the PDF
// cannot be inspected it falls back to the image recommendation instead of
// failing, since rasterizing works on any renderable PDF.
func Analyze(path string) Analysis {
	a := Analysis{Recommended: "image"}

	doc, err := fitz.New(path)
	if err != nil {
		return a
	}
	defer doc.Close()

	a.PageCount = doc.NumPage()
	a.SampledPages = a.PageCount
	if a.SampledPages > analyzeSamplePages {
		a.SampledPages = analyzeSamplePages
	}

	for p := 0; p < a.SampledPages; p++ {
		text, err := doc.Text(p)
		if err != nil {
			continue
		}
		a.TextLength += len(strings.TrimSpace(text))
	}

	a.ImageCount = countEmbeddedImages(path, a.SampledPages)

	classify(&a)
	return a
}

func countEmbeddedImages(path string, sampledPages int) int {
	if sampledPages == 0 {
		return 0
	}
	dir, err := os.MkdirTemp("", "docbelt-analyze-*")
	if err != nil {
		return 0
	}
	defer os.RemoveAll(dir)

	pages := "1"
	if sampledPages > 1 {
		pages = "1-" + strconv.Itoa(sampledPages)
	}
	imgs, err := ExtractEmbeddedImages(path, dir, pages)
	if err != nil {
		return 0
	}
	return len(imgs)
}
