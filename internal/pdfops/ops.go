package pdfops

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

func conf() *model.Configuration {
	return model.NewDefaultConfiguration()
}

// PageCount returns the number of pages in the PDF.
func PageCount(path string) (int, error) {
	return api.PageCountFile(path)
}

// Merge concatenates the input PDFs into outPath in the given order.
func Merge(inputs []string, outPath string) error {
	if len(inputs) < 2 {
		return fmt.Errorf("merge requires at least 2 files, got %d", len(inputs))
	}
	return api.MergeCreateFile(inputs, outPath, false, conf())
}

// SplitEachPage writes every page of the input as its own single-page PDF
// named {base}_page_{n}.pdf. Returns the output paths in page order.
func SplitEachPage(inPath, outDir, base string) ([]string, error) {
	n, err := PageCount(inPath)
	if err != nil {
		return nil, err
	}
	outs := make([]string, 0, n)
	for p := 1; p <= n; p++ {
		out := filepath.Join(outDir, fmt.Sprintf("%s_page_%d.pdf", base, p))
		if err := api.CollectFile(inPath, out, []string{fmt.Sprintf("%d", p)}, conf()); err != nil {
			CleanupAll(outs)
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// SplitByRanges writes one PDF per range, named {base}_pages_{start}-{end}.pdf.
func SplitByRanges(inPath, outDir, base, ranges string) ([]string, error) {
	n, err := PageCount(inPath)
	if err != nil {
		return nil, err
	}
	parsed, err := SplitRanges(ranges, n)
	if err != nil {
		return nil, err
	}
	outs := make([]string, 0, len(parsed))
	for _, r := range parsed {
		out := filepath.Join(outDir, fmt.Sprintf("%s_pages_%d-%d.pdf", base, r[0], r[1]))
		sel := []string{fmt.Sprintf("%d-%d", r[0], r[1])}
		if err := api.TrimFile(inPath, out, sel, conf()); err != nil {
			CleanupAll(outs)
			return nil, err
		}
		outs = append(outs, out)
	}
	return outs, nil
}

// ExtractPages collects the selected pages into a single new PDF.
func ExtractPages(inPath, outPath, pages string) error {
	n, err := PageCount(inPath)
	if err != nil {
		return err
	}
	sel, err := ParsePageSelection(pages, n)
	if err != nil {
		return err
	}
	return api.CollectFile(inPath, outPath, PageStrings(sel), conf())
}

// Reorder rewrites the PDF with pages in the given explicit order. Duplicates
// are allowed; pages not listed are dropped.
func Reorder(inPath, outPath, order string) error {
	n, err := PageCount(inPath)
	if err != nil {
		return err
	}
	sel, err := ParsePageOrder(order, n)
	if err != nil {
		return err
	}
	return api.CollectFile(inPath, outPath, PageStrings(sel), conf())
}

// Compress optimizes the PDF. Levels: "low" keeps resources untouched,
// "medium" prunes resource dicts, "high" additionally dedupes content streams.
func Compress(inPath, outPath, level string) error {
	c := conf()
	switch level {
	case "low":
	case "", "medium":
		c.OptimizeResourceDicts = true
	case "high":
		c.OptimizeResourceDicts = true
		c.OptimizeDuplicateContentStreams = true
	default:
		return fmt.Errorf("unknown compression level %q", level)
	}
	return api.OptimizeFile(inPath, outPath, c)
}

// Protect encrypts the PDF with AES-256. When ownerPW is empty the user
// password doubles as owner password.
func Protect(inPath, outPath, userPW, ownerPW string, allowPrinting bool) error {
	if userPW == "" {
		return fmt.Errorf("user password is required")
	}
	if ownerPW == "" {
		ownerPW = userPW
	}
	c := conf()
	c.UserPW = userPW
	c.OwnerPW = ownerPW
	c.EncryptUsingAES = true
	c.EncryptKeyLength = 256
	if allowPrinting {
		c.Permissions = model.PermissionsPrint
	} else {
		c.Permissions = model.PermissionsNone
	}
	return api.EncryptFile(inPath, outPath, c)
}

// Unlock removes encryption from a password-protected PDF.
func Unlock(inPath, outPath, password string) error {
	c := conf()
	c.UserPW = password
	c.OwnerPW = password
	return api.DecryptFile(inPath, outPath, c)
}

// Rotate rotates the selected pages clockwise. Angle must be 90, 180 or 270.
func Rotate(inPath, outPath string, angle int, pages string) error {
	if angle != 90 && angle != 180 && angle != 270 {
		return fmt.Errorf("rotation angle must be 90, 180 or 270, got %d", angle)
	}
	n, err := PageCount(inPath)
	if err != nil {
		return err
	}
	sel, err := ParsePageSelection(pages, n)
	if err != nil {
		return err
	}
	return api.RotateFile(inPath, outPath, angle, PageStrings(sel), conf())
}

// Crop sets the crop box of the selected pages. Coordinates are in points with
// the origin at the lower-left corner.
func Crop(inPath, outPath string, llx, lly, urx, ury float64, pages string) error {
	if urx <= llx || ury <= lly {
		return fmt.Errorf("invalid crop box")
	}
	n, err := PageCount(inPath)
	if err != nil {
		return err
	}
	sel, err := ParsePageSelection(pages, n)
	if err != nil {
		return err
	}
	box, err := api.Box(fmt.Sprintf("[%.2f %.2f %.2f %.2f]", llx, lly, urx, ury), types.POINTS)
	if err != nil {
		return err
	}
	return api.CropFile(inPath, outPath, PageStrings(sel), box, conf())
}

// WatermarkOptions controls text watermark rendering.
type WatermarkOptions struct {
	Position string  // diagonal, center, top-left, top-right, bottom-left, bottom-right
	Opacity  float64 // 0..1
	FontSize int
	Color    string // hex like #808080
}

// watermarkDesc builds the pdfcpu watermark description for the given options.
// Corner positions keep a 50pt margin from the page edges.
func watermarkDesc(o WatermarkOptions) (string, error) {
	if o.Opacity <= 0 || o.Opacity > 1 {
		o.Opacity = 0.3
	}
	if o.FontSize <= 0 {
		o.FontSize = 48
	}
	if o.Color == "" {
		o.Color = "#808080"
	}

	var pos, off string
	rot := 0
	switch o.Position {
	case "", "diagonal":
		pos = "c"
		rot = 45
	case "center":
		pos = "c"
	case "top-left":
		pos, off = "tl", "50 -50"
	case "top-right":
		pos, off = "tr", "-50 -50"
	case "bottom-left":
		pos, off = "bl", "50 50"
	case "bottom-right":
		pos, off = "br", "-50 50"
	default:
		return "", fmt.Errorf("unknown watermark position %q", o.Position)
	}

	desc := fmt.Sprintf("fontname:Helvetica, points:%d, fillc:%s, op:%.2f, rot:%d, pos:%s, scale:1 abs",
		o.FontSize, o.Color, o.Opacity, rot, pos)
	if off != "" {
		desc += ", off:" + off
	}
	return desc, nil
}

// WatermarkText stamps a text watermark onto the selected pages.
func WatermarkText(inPath, outPath, text, pages string, o WatermarkOptions) error {
	n, err := PageCount(inPath)
	if err != nil {
		return err
	}
	sel, err := ParsePageSelection(pages, n)
	if err != nil {
		return err
	}
	desc, err := watermarkDesc(o)
	if err != nil {
		return err
	}
	wm, err := pdfcpu.ParseTextWatermarkDetails(text, desc, true, types.POINTS)
	if err != nil {
		return err
	}
	return api.AddWatermarksFile(inPath, outPath, PageStrings(sel), wm, conf())
}

// WatermarkImage stamps an image watermark onto the selected pages.
func WatermarkImage(inPath, outPath, imagePath, pages string, opacity, scale float64) error {
	n, err := PageCount(inPath)
	if err != nil {
		return err
	}
	sel, err := ParsePageSelection(pages, n)
	if err != nil {
		return err
	}
	if opacity <= 0 || opacity > 1 {
		opacity = 0.3
	}
	if scale <= 0 {
		scale = 0.5
	}
	desc := fmt.Sprintf("scale:%.2f rel, pos:c, rot:0, op:%.2f", scale, opacity)
	wm, err := pdfcpu.ParseImageWatermarkDetails(imagePath, desc, true, types.POINTS)
	if err != nil {
		return err
	}
	return api.AddWatermarksFile(inPath, outPath, PageStrings(sel), wm, conf())
}

// StampPageOverlay stamps a single-page overlay PDF onto one page of the
// target, scaled to the full page. The target is modified in place.
func StampPageOverlay(targetPath, overlayPath string, page int) error {
	desc := "pos:full, rot:0, scale:1 abs, op:1"
	wm, err := pdfcpu.ParsePDFWatermarkDetails(overlayPath, desc, true, types.POINTS)
	if err != nil {
		return err
	}
	sel := []string{fmt.Sprintf("%d", page)}
	return api.AddWatermarksFile(targetPath, "", sel, wm, conf())
}

// PageNumberOptions controls page number stamping.
type PageNumberOptions struct {
	Format   string // template with {page} and {total} placeholders
	Position string // bottom-center, bottom-left, bottom-right, top-center
	FontSize int
}

// AddPageNumbers stamps page numbers onto every page.
func AddPageNumbers(inPath, outPath string, o PageNumberOptions) error {
	if o.Format == "" {
		o.Format = "{page}"
	}
	if o.FontSize <= 0 {
		o.FontSize = 10
	}
	text := strings.ReplaceAll(o.Format, "{page}", "%p")
	text = strings.ReplaceAll(text, "{total}", "%P")

	var pos, off string
	switch o.Position {
	case "", "bottom-center":
		pos, off = "bc", "0 18"
	case "bottom-left":
		pos, off = "bl", "36 18"
	case "bottom-right":
		pos, off = "br", "-36 18"
	case "top-center":
		pos, off = "tc", "0 -18"
	default:
		return fmt.Errorf("unknown page number position %q", o.Position)
	}

	desc := fmt.Sprintf("fontname:Helvetica, points:%d, fillc:#000000, op:1, rot:0, pos:%s, off:%s, scale:1 abs",
		o.FontSize, pos, off)
	wm, err := pdfcpu.ParseTextWatermarkDetails(text, desc, true, types.POINTS)
	if err != nil {
		return err
	}
	return api.AddWatermarksFile(inPath, outPath, nil, wm, conf())
}

// ImportImages builds a PDF with one page per input image.
func ImportImages(images []string, outPath string) error {
	if len(images) == 0 {
		return fmt.Errorf("no images to import")
	}
	return api.ImportImagesFile(images, outPath, nil, conf())
}

// ExtractEmbeddedImages extracts embedded images from the selected pages into
// outDir and returns their paths sorted by name.
func ExtractEmbeddedImages(inPath, outDir, pages string) ([]string, error) {
	n, err := PageCount(inPath)
	if err != nil {
		return nil, err
	}
	sel, err := ParsePageSelection(pages, n)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, err
	}
	if err := api.ExtractImagesFile(inPath, outDir, PageStrings(sel), conf()); err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, err
	}
	var outs []string
	for _, e := range entries {
		if !e.IsDir() {
			outs = append(outs, filepath.Join(outDir, e.Name()))
		}
	}
	sort.Strings(outs)
	return outs, nil
}

// ToArchival normalizes the PDF for long-term storage: optimized streams and
// archival metadata. True PDF/A validation is out of scope for this service.
func ToArchival(inPath, outPath string) error {
	tmp := outPath + ".opt"
	if err := api.OptimizeFile(inPath, tmp, conf()); err != nil {
		return err
	}
	defer os.Remove(tmp)
	props := map[string]string{
		"dc:format":    "application/pdf",
		"pdfaid:part":  "2",
		"pdfaid:level": "B",
	}
	return api.AddPropertiesFile(tmp, outPath, props, conf())
}

// CleanupAll removes the given files, ignoring errors.
func CleanupAll(paths []string) {
	for _, p := range paths {
		os.Remove(p)
	}
}
