package convert

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	goexcel "github.com/VantageDataChat/GoExcel"
	goppt "github.com/VantageDataChat/GoPPT"
	goword "github.com/VantageDataChat/GoWord"
	"github.com/go-pdf/fpdf"

	"docbelt/internal/pdfops"
)

// a4 page metrics in points, with a one inch margin.
const (
	a4Width    = 595.28
	a4Height   = 841.89
	pageMargin = 72.0
	bodySize   = 11.0
	lineHeight = 14.0
)

func newTextPDF() *fpdf.Fpdf {
	p := fpdf.New("P", "pt", "A4", "")
	p.SetMargins(pageMargin, pageMargin, pageMargin)
	p.SetAutoPageBreak(true, pageMargin)
	p.SetFont("Helvetica", "", bodySize)
	return p
}

func writeTextPDF(p *fpdf.Fpdf, text string) {
	width := a4Width - 2*pageMargin
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			p.Ln(lineHeight)
			continue
		}
		p.MultiCell(width, lineHeight, line, "", "L", false)
	}
}

// WordToPDF renders the text content of a DOCX file into a paginated PDF.
func WordToPDF(inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	doc, err := goword.OpenFromBytes(data)
	if err != nil {
		return fmt.Errorf("open docx: %w", err)
	}

	p := newTextPDF()
	p.AddPage()
	writeTextPDF(p, doc.ExtractText())
	if p.Err() {
		return p.Error()
	}
	return p.OutputFileAndClose(outPath)
}

// ExcelToPDF renders workbook cells into a PDF, one section per sheet with
// rows joined by column separators.
func ExcelToPDF(inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	wb, err := goexcel.NewXLSXReader().Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open xlsx: %w", err)
	}

	p := newTextPDF()
	for _, name := range wb.GetSheetNames() {
		sheet, err := wb.GetSheetByName(name)
		if err != nil {
			continue
		}
		rows, err := sheet.RowIterator()
		if err != nil {
			continue
		}

		p.AddPage()
		p.SetFont("Helvetica", "B", 14)
		p.MultiCell(a4Width-2*pageMargin, 18, name, "", "L", false)
		p.SetFont("Helvetica", "", bodySize)

		for _, row := range rows {
			var cells []string
			for _, cell := range row {
				if cell == nil || cell.IsEmpty() {
					continue
				}
				if v := cell.GetFormattedValue(); v != "" {
					cells = append(cells, v)
				}
			}
			if len(cells) == 0 {
				continue
			}
			writeTextPDF(p, strings.Join(cells, " | "))
		}
	}
	if p.PageCount() == 0 {
		p.AddPage()
	}
	if p.Err() {
		return p.Error()
	}
	return p.OutputFileAndClose(outPath)
}

// PowerPointToPDF renders each slide to an image and assembles them into a
// PDF, one slide per page. When rendering fails the slide text is written
// instead so the conversion still produces a usable document.
func PowerPointToPDF(inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	pres, err := goppt.ReadFrom(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("open pptx: %w", err)
	}
	defer pres.Close()

	slides := pres.Slides()
	if len(slides) == 0 {
		return fmt.Errorf("presentation has no slides")
	}

	opts := goppt.DefaultRenderOptions()
	opts.Width = 1280
	opts.FontCache = goppt.NewFontCache()

	tmpDir, err := os.MkdirTemp("", "docbelt-ppt-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	imgs, renderErr := pres.SlidesToImages(opts)
	var paths []string
	for i := range slides {
		var img image.Image
		if renderErr == nil && i < len(imgs) {
			img = imgs[i]
		} else if single, serr := pres.SlideToImage(i, opts); serr == nil {
			img = single
		}
		if img == nil {
			paths = nil
			break
		}
		path := filepath.Join(tmpDir, fmt.Sprintf("slide_%03d.png", i+1))
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := png.Encode(f, img); err != nil {
			f.Close()
			return err
		}
		f.Close()
		paths = append(paths, path)
	}

	if len(paths) == len(slides) {
		return pdfops.ImportImages(paths, outPath)
	}

	// Rendering failed somewhere; fall back to slide text.
	p := newTextPDF()
	for i, slide := range slides {
		p.AddPage()
		p.SetFont("Helvetica", "B", 14)
		p.MultiCell(a4Width-2*pageMargin, 18, fmt.Sprintf("Slide %d", i+1), "", "L", false)
		p.SetFont("Helvetica", "", bodySize)
		writeTextPDF(p, slide.ExtractText())
	}
	if p.Err() {
		return p.Error()
	}
	return p.OutputFileAndClose(outPath)
}
