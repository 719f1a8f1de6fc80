package convert

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/xuri/excelize/v2"

	"docbelt/internal/ocr"
)

var columnSplitRe = regexp.MustCompile(`\s{2,}|\t`)

// SplitColumns breaks a text line into cells on tabs or runs of two or more
// spaces, the way column-aligned PDF text usually separates fields.
func SplitColumns(line string) []string {
	parts := columnSplitRe.Split(strings.TrimSpace(line), -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ExcelResult reports what a PDF-to-Excel conversion produced.
type ExcelResult struct {
	Sheets  int  `json:"sheets"`
	Rows    int  `json:"rows"`
	UsedOCR bool `json:"used_ocr"`
}

// PDFToExcel writes the text content of each PDF page into its own worksheet,
// splitting lines into columns. Pages without an extractable text layer fall
// back to OCR when an engine is available.
func PDFToExcel(ctx context.Context, inPath, outPath string, engine ocr.Engine, langs []string) (ExcelResult, error) {
	doc, err := fitz.New(inPath)
	if err != nil {
		return ExcelResult{}, fmt.Errorf("open pdf: %w", err)
	}
	defer doc.Close()

	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return ExcelResult{}, err
	}

	var res ExcelResult
	n := doc.NumPage()
	for p := 0; p < n; p++ {
		text, _ := doc.Text(p)
		if strings.TrimSpace(text) == "" && engine != nil {
			if data, rerr := renderPageBytes(doc, p); rerr == nil {
				if ores, oerr := engine.Recognize(ctx, ocr.Input{Image: data, Languages: langs, DPI: renderDPI}); oerr == nil {
					text = ores.Text
					res.UsedOCR = true
				}
			}
		}

		sheet := fmt.Sprintf("Page %d", p+1)
		if p == 0 {
			f.SetSheetName("Sheet1", sheet)
		} else {
			if _, err := f.NewSheet(sheet); err != nil {
				return ExcelResult{}, err
			}
		}
		res.Sheets++

		row := 1
		for _, line := range strings.Split(text, "\n") {
			cells := SplitColumns(line)
			if len(cells) == 0 {
				continue
			}
			for col, val := range cells {
				cell, err := excelize.CoordinatesToCellName(col+1, row)
				if err != nil {
					return ExcelResult{}, err
				}
				if err := f.SetCellValue(sheet, cell, val); err != nil {
					return ExcelResult{}, err
				}
				if row == 1 {
					_ = f.SetCellStyle(sheet, cell, cell, bold)
				}
			}
			row++
			res.Rows++
		}
	}

	if err := f.SaveAs(outPath); err != nil {
		return ExcelResult{}, fmt.Errorf("write xlsx: %w", err)
	}
	return res, nil
}
