package convert

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/gen2brain/go-fitz"

	"docbelt/internal/ocr"
	"docbelt/internal/pdfops"
)

// WordMode selects how PDF pages are carried into the document.
type WordMode string

const (
	WordModeAuto   WordMode = "auto"
	WordModeText   WordMode = "text"
	WordModeImage  WordMode = "image"
	WordModeHybrid WordMode = "hybrid"
	WordModeOCR    WordMode = "ocr"
)

// WordResult reports what a PDF-to-Word conversion actually did.
type WordResult struct {
	Mode      WordMode `json:"mode"`
	PageCount int      `json:"page_count"`
}

const renderDPI = 150

// PDFToWord converts a PDF into a DOCX document. In auto mode the document is
// analyzed first and the recommended mode applied; conversions that need OCR
// require a non-nil engine.
func PDFToWord(ctx context.Context, inPath, outPath string, mode WordMode, engine ocr.Engine, langs []string) (WordResult, error) {
	if mode == "" || mode == WordModeAuto {
		a := pdfops.Analyze(inPath)
		mode = WordMode(a.Recommended)
	}

	doc, err := fitz.New(inPath)
	if err != nil {
		return WordResult{}, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	out := docx.New().WithDefaultTheme()

	tmpDir, err := os.MkdirTemp("", "docbelt-word-*")
	if err != nil {
		return WordResult{}, err
	}
	defer os.RemoveAll(tmpDir)

	for p := 0; p < n; p++ {
		switch mode {
		case WordModeText:
			if err := addPageText(out, doc, p); err != nil {
				return WordResult{}, err
			}
		case WordModeImage:
			if err := addPageImage(out, doc, p, tmpDir); err != nil {
				return WordResult{}, err
			}
		case WordModeHybrid:
			if err := addPageImage(out, doc, p, tmpDir); err != nil {
				return WordResult{}, err
			}
			text, _ := doc.Text(p)
			if strings.TrimSpace(text) != "" {
				hdr := out.AddParagraph()
				hdr.AddText("Extracted text (for copy/paste)").Bold().Size("20")
				if err := addTextParagraphs(out, text); err != nil {
					return WordResult{}, err
				}
			}
		case WordModeOCR:
			if engine == nil {
				return WordResult{}, fmt.Errorf("ocr mode requires an OCR engine")
			}
			if err := addPageOCR(ctx, out, doc, p, engine, langs); err != nil {
				return WordResult{}, err
			}
		default:
			return WordResult{}, fmt.Errorf("unknown conversion mode %q", mode)
		}
	}

	f, err := os.Create(outPath)
	if err != nil {
		return WordResult{}, err
	}
	defer f.Close()
	if _, err := out.WriteTo(f); err != nil {
		os.Remove(outPath)
		return WordResult{}, fmt.Errorf("write docx: %w", err)
	}
	return WordResult{Mode: mode, PageCount: n}, nil
}

func addTextParagraphs(out *docx.Docx, text string) error {
	for _, para := range strings.Split(text, "\n") {
		para = strings.TrimRight(para, " \t")
		p := out.AddParagraph()
		if para != "" {
			p.AddText(para).Size("22")
		}
	}
	return nil
}

func addPageText(out *docx.Docx, doc *fitz.Document, page int) error {
	text, err := doc.Text(page)
	if err != nil {
		return fmt.Errorf("extract text from page %d: %w", page+1, err)
	}
	return addTextParagraphs(out, text)
}

func renderPagePNG(doc *fitz.Document, page int, dir string) (string, error) {
	img, err := doc.ImageDPI(page, renderDPI)
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", page+1, err)
	}
	path := filepath.Join(dir, fmt.Sprintf("page_%d.png", page+1))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return "", err
	}
	return path, nil
}

func addPageImage(out *docx.Docx, doc *fitz.Document, page int, tmpDir string) error {
	path, err := renderPagePNG(doc, page, tmpDir)
	if err != nil {
		return err
	}
	p := out.AddParagraph()
	if _, err := p.AddInlineDrawingFrom(path); err != nil {
		return fmt.Errorf("embed page %d: %w", page+1, err)
	}
	return nil
}

func addPageOCR(ctx context.Context, out *docx.Docx, doc *fitz.Document, page int, engine ocr.Engine, langs []string) error {
	data, err := renderPageBytes(doc, page)
	if err != nil {
		return err
	}
	res, err := engine.Recognize(ctx, ocr.Input{Image: data, Languages: langs, DPI: renderDPI})
	if err != nil {
		return fmt.Errorf("ocr page %d: %w", page+1, err)
	}
	return addTextParagraphs(out, res.Text)
}

func renderPageBytes(doc *fitz.Document, page int) ([]byte, error) {
	img, err := doc.ImageDPI(page, renderDPI)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page+1, err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
