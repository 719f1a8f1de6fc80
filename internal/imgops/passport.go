package imgops

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	"github.com/disintegration/imaging"
)

// PrintDPI is the resolution passport photos are composed at.
const PrintDPI = 300

// PassportSize is a photo format in millimeters.
type PassportSize struct {
	WidthMM  float64 `json:"width_mm"`
	HeightMM float64 `json:"height_mm"`
}

// passportSizes maps country presets onto their official photo formats.
var passportSizes = map[string]PassportSize{
	"us":        {51, 51},
	"uk":        {35, 45},
	"eu":        {35, 45},
	"india":     {35, 45},
	"japan":     {35, 45},
	"australia": {35, 45},
	"china":     {33, 48},
	"canada":    {50, 70},
}

// PassportSizes lists the supported country presets.
func PassportSizes() map[string]PassportSize {
	out := make(map[string]PassportSize, len(passportSizes))
	for k, v := range passportSizes {
		out[k] = v
	}
	return out
}

// PassportCountries returns the preset names in sorted order.
func PassportCountries() []string {
	names := make([]string, 0, len(passportSizes))
	for k := range passportSizes {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// MMToPixels converts millimeters to pixels at the given DPI.
func MMToPixels(mm float64, dpi int) int {
	return int(mm*float64(dpi)/25.4 + 0.5)
}

// PassportPhoto crops and scales a portrait to the given country's photo
// format at print resolution, anchored toward the top so the head keeps its
// expected share of the frame.
func PassportPhoto(img image.Image, country string) (image.Image, error) {
	size, ok := passportSizes[country]
	if !ok {
		return nil, fmt.Errorf("unknown country preset %q", country)
	}
	w := MMToPixels(size.WidthMM, PrintDPI)
	h := MMToPixels(size.HeightMM, PrintDPI)

	// Anchor at the top rather than the center: passport portraits keep a
	// small margin under the chin, not above the head.
	return imaging.Fill(img, w, h, imaging.Top, imaging.Lanczos), nil
}

// SheetPaper is a print paper format in millimeters (landscape).
type SheetPaper struct {
	WidthMM  float64
	HeightMM float64
}

var sheetPapers = map[string]SheetPaper{
	"4x6": {152, 102},
	"a4":  {297, 210},
}

const sheetMarginMM = 3

// PassportSheet tiles as many copies of the photo as fit onto the given paper
// with 3mm margins and gaps, for printing and cutting.
func PassportSheet(photo image.Image, country, paper string) (image.Image, int, error) {
	size, ok := passportSizes[country]
	if !ok {
		return nil, 0, fmt.Errorf("unknown country preset %q", country)
	}
	p, ok := sheetPapers[paper]
	if !ok {
		return nil, 0, fmt.Errorf("unknown paper size %q (use 4x6 or a4)", paper)
	}

	sheetW := MMToPixels(p.WidthMM, PrintDPI)
	sheetH := MMToPixels(p.HeightMM, PrintDPI)
	photoW := MMToPixels(size.WidthMM, PrintDPI)
	photoH := MMToPixels(size.HeightMM, PrintDPI)
	margin := MMToPixels(sheetMarginMM, PrintDPI)

	cols := (sheetW - margin) / (photoW + margin)
	rows := (sheetH - margin) / (photoH + margin)
	if cols < 1 || rows < 1 {
		return nil, 0, fmt.Errorf("photo %s does not fit on %s paper", country, paper)
	}

	prepared, err := PassportPhoto(photo, country)
	if err != nil {
		return nil, 0, err
	}

	sheet := imaging.New(sheetW, sheetH, color.White)
	count := 0
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := margin + c*(photoW+margin)
			y := margin + r*(photoH+margin)
			sheet = imaging.Paste(sheet, prepared, image.Pt(x, y))
			count++
		}
	}
	return sheet, count, nil
}
