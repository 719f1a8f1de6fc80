package convert

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	// Register decoders for formats pdfcpu cannot import directly.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	_ "image/gif"

	"docbelt/internal/pdfops"
)

// nativeImportExts are formats pdfcpu imports without re-encoding.
var nativeImportExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// ImagesToPDF builds a PDF with one page per input image. Formats pdfcpu does
// not take directly (webp, gif, bmp, tiff) are re-encoded to PNG first.
func ImagesToPDF(images []string, outPath string) error {
	if len(images) == 0 {
		return fmt.Errorf("no images provided")
	}

	tmpDir, err := os.MkdirTemp("", "docbelt-img2pdf-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	prepared := make([]string, 0, len(images))
	for i, path := range images {
		ext := strings.ToLower(filepath.Ext(path))
		if nativeImportExts[ext] {
			prepared = append(prepared, path)
			continue
		}
		img, err := imaging.Open(path, imaging.AutoOrientation(true))
		if err != nil {
			return fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
		}
		converted := filepath.Join(tmpDir, fmt.Sprintf("img_%03d.png", i))
		if err := imaging.Save(img, converted); err != nil {
			return fmt.Errorf("re-encode image %s: %w", filepath.Base(path), err)
		}
		prepared = append(prepared, converted)
	}

	return pdfops.ImportImages(prepared, outPath)
}

func decodeImageFile(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

func savePNG(img image.Image, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
