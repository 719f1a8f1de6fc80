package convert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/gen2brain/go-fitz"
	"github.com/go-pdf/fpdf"

	"docbelt/internal/ocr"
)

// SearchableResult describes a searchable-PDF build.
type SearchableResult struct {
	PageCount  int     `json:"page_count"`
	Confidence float64 `json:"confidence"`
}

// addSearchablePage draws the recognized words first and the page image on
// top of them, so the rendered page looks like the scan while the text layer
// underneath stays selectable and searchable.
func addSearchablePage(p *fpdf.Fpdf, imgPath string, bounds image.Rectangle, words []ocr.Word, dpi float64) {
	scale := 72.0 / dpi
	w := float64(bounds.Dx()) * scale
	h := float64(bounds.Dy()) * scale

	p.AddPageFormat("P", fpdf.SizeType{Wd: w, Ht: h})
	p.SetFont("Helvetica", "", 10)
	p.SetTextColor(0, 0, 0)
	for _, word := range words {
		if word.Text == "" || word.Height <= 0 {
			continue
		}
		size := word.Height * scale
		p.SetFontSize(size)
		// Baseline sits near the bottom of the word box.
		p.Text(word.X*scale, (word.Y+word.Height*0.8)*scale, word.Text)
	}
	p.ImageOptions(imgPath, 0, 0, w, h, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
}

// ImageToSearchablePDF runs OCR over a single image and produces a one-page
// PDF with the image and an underlying text layer.
func ImageToSearchablePDF(ctx context.Context, imgPath, outPath string, engine ocr.Engine, langs []string, dpi int) (SearchableResult, error) {
	if engine == nil {
		return SearchableResult{}, fmt.Errorf("no OCR engine configured")
	}
	if dpi <= 0 {
		dpi = 300
	}

	data, err := os.ReadFile(imgPath)
	if err != nil {
		return SearchableResult{}, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return SearchableResult{}, fmt.Errorf("decode image: %w", err)
	}

	res, err := engine.Recognize(ctx, ocr.Input{Image: data, Languages: langs, DPI: dpi})
	if err != nil {
		return SearchableResult{}, err
	}

	// The text layer references the file by path, so hand fpdf a PNG copy if
	// the input is in another format.
	pngPath := imgPath
	if filepath.Ext(imgPath) != ".png" {
		tmp, err := os.MkdirTemp("", "docbelt-searchable-*")
		if err != nil {
			return SearchableResult{}, err
		}
		defer os.RemoveAll(tmp)
		pngPath = filepath.Join(tmp, "page.png")
		if err := reencodePNG(imgPath, pngPath); err != nil {
			return SearchableResult{}, err
		}
	}

	p := fpdf.New("P", "pt", "A4", "")
	p.SetAutoPageBreak(false, 0)
	p.SetMargins(0, 0, 0)
	addSearchablePage(p, pngPath, image.Rect(0, 0, cfg.Width, cfg.Height), res.Words, float64(dpi))
	if p.Err() {
		return SearchableResult{}, p.Error()
	}
	if err := p.OutputFileAndClose(outPath); err != nil {
		return SearchableResult{}, err
	}
	return SearchableResult{PageCount: 1, Confidence: res.Confidence}, nil
}

// PDFToSearchablePDF rasterizes every page, runs OCR on it and rebuilds the
// document with a selectable text layer under each page image.
func PDFToSearchablePDF(ctx context.Context, inPath, outPath string, engine ocr.Engine, langs []string, dpi int) (SearchableResult, error) {
	if engine == nil {
		return SearchableResult{}, fmt.Errorf("no OCR engine configured")
	}
	if dpi <= 0 {
		dpi = 150
	}

	doc, err := fitz.New(inPath)
	if err != nil {
		return SearchableResult{}, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	tmpDir, err := os.MkdirTemp("", "docbelt-searchable-*")
	if err != nil {
		return SearchableResult{}, err
	}
	defer os.RemoveAll(tmpDir)

	p := fpdf.New("P", "pt", "A4", "")
	p.SetAutoPageBreak(false, 0)
	p.SetMargins(0, 0, 0)

	n := doc.NumPage()
	var confSum float64
	confPages := 0
	for pageNo := 0; pageNo < n; pageNo++ {
		img, err := doc.ImageDPI(pageNo, float64(dpi))
		if err != nil {
			return SearchableResult{}, fmt.Errorf("render page %d: %w", pageNo+1, err)
		}
		pngPath := filepath.Join(tmpDir, fmt.Sprintf("page_%d.png", pageNo+1))
		if err := savePNG(img, pngPath); err != nil {
			return SearchableResult{}, err
		}
		data, err := os.ReadFile(pngPath)
		if err != nil {
			return SearchableResult{}, err
		}
		res, err := engine.Recognize(ctx, ocr.Input{Image: data, Languages: langs, DPI: dpi})
		if err != nil {
			return SearchableResult{}, fmt.Errorf("ocr page %d: %w", pageNo+1, err)
		}
		if res.Confidence > 0 {
			confSum += res.Confidence
			confPages++
		}
		addSearchablePage(p, pngPath, img.Bounds(), res.Words, float64(dpi))
	}

	if p.Err() {
		return SearchableResult{}, p.Error()
	}
	if err := p.OutputFileAndClose(outPath); err != nil {
		return SearchableResult{}, err
	}

	out := SearchableResult{PageCount: n}
	if confPages > 0 {
		out.Confidence = confSum / float64(confPages)
	}
	return out, nil
}

func reencodePNG(inPath, outPath string) error {
	img, err := decodeImageFile(inPath)
	if err != nil {
		return err
	}
	return savePNG(img, outPath)
}
