// Package imgops implements the raster image operations: geometry, tone
// adjustments, format conversion and print composition.
package imgops

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	// Decoders for formats the service accepts but never writes.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
	_ "image/gif"
)

// Open loads an image honoring EXIF orientation.
func Open(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

// Save writes img to path; the format follows the file extension. Quality
// applies to JPEG output only; zero means the encoder default.
func Save(img image.Image, path string, quality int) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".webp" {
		return fmt.Errorf("webp output is not supported")
	}
	var opts []imaging.EncodeOption
	if quality > 0 {
		opts = append(opts, imaging.JPEGQuality(quality))
	}
	if err := imaging.Save(img, path, opts...); err != nil {
		return fmt.Errorf("encode image: %w", err)
	}
	return nil
}

// ResizeMode selects how target dimensions are honored.
type ResizeMode string

const (
	ResizeFit   ResizeMode = "fit"   // fit within WxH, keep aspect
	ResizeFill  ResizeMode = "fill"  // cover WxH, center-crop overflow
	ResizeExact ResizeMode = "exact" // force WxH, may distort
	ResizeScale ResizeMode = "scale" // scale by factor, ignore WxH
)

// ResizeOptions parameterizes Resize.
type ResizeOptions struct {
	Width  int
	Height int
	Mode   ResizeMode
	Scale  float64 // used by ResizeScale
}

// Resize transforms the image geometry per the requested mode.
func Resize(img image.Image, o ResizeOptions) (image.Image, error) {
	switch o.Mode {
	case "", ResizeFit:
		if o.Width <= 0 && o.Height <= 0 {
			return nil, fmt.Errorf("fit mode requires width or height")
		}
		return imaging.Fit(img, orDim(o.Width), orDim(o.Height), imaging.Lanczos), nil
	case ResizeFill:
		if o.Width <= 0 || o.Height <= 0 {
			return nil, fmt.Errorf("fill mode requires width and height")
		}
		return imaging.Fill(img, o.Width, o.Height, imaging.Center, imaging.Lanczos), nil
	case ResizeExact:
		if o.Width <= 0 || o.Height <= 0 {
			return nil, fmt.Errorf("exact mode requires width and height")
		}
		return imaging.Resize(img, o.Width, o.Height, imaging.Lanczos), nil
	case ResizeScale:
		if o.Scale <= 0 {
			return nil, fmt.Errorf("scale mode requires a positive factor")
		}
		b := img.Bounds()
		w := int(float64(b.Dx())*o.Scale + 0.5)
		h := int(float64(b.Dy())*o.Scale + 0.5)
		if w < 1 || h < 1 {
			return nil, fmt.Errorf("scale factor %g collapses the image", o.Scale)
		}
		return imaging.Resize(img, w, h, imaging.Lanczos), nil
	default:
		return nil, fmt.Errorf("unknown resize mode %q", o.Mode)
	}
}

func orDim(v int) int {
	if v <= 0 {
		// imaging.Fit treats a large bound as unconstrained in practice; pass
		// a value no image exceeds.
		return 1 << 14
	}
	return v
}

// Crop cuts the given rectangle out of the image.
func Crop(img image.Image, x, y, w, h int) (image.Image, error) {
	b := img.Bounds()
	if w <= 0 || h <= 0 || x < 0 || y < 0 || x+w > b.Dx() || y+h > b.Dy() {
		return nil, fmt.Errorf("crop box %dx%d+%d+%d outside image %dx%d", w, h, x, y, b.Dx(), b.Dy())
	}
	return imaging.Crop(img, image.Rect(b.Min.X+x, b.Min.Y+y, b.Min.X+x+w, b.Min.Y+y+h)), nil
}

// Rotate rotates clockwise by the given angle in degrees. When expand is
// false the result is center-cropped back to the original dimensions.
func Rotate(img image.Image, angle float64, expand bool) image.Image {
	// imaging rotates counter-clockwise.
	rotated := imaging.Rotate(img, -angle, color.Transparent)
	if expand {
		return rotated
	}
	b := img.Bounds()
	return imaging.CropCenter(rotated, b.Dx(), b.Dy())
}

// Flip mirrors the image. Direction is "horizontal" or "vertical".
func Flip(img image.Image, direction string) (image.Image, error) {
	switch direction {
	case "horizontal":
		return imaging.FlipH(img), nil
	case "vertical":
		return imaging.FlipV(img), nil
	default:
		return nil, fmt.Errorf("flip direction must be horizontal or vertical, got %q", direction)
	}
}

// AdjustOptions carries tone adjustments as multiplicative factors where 1.0
// leaves the image unchanged.
type AdjustOptions struct {
	Brightness float64
	Contrast   float64
	Saturation float64
	Sharpness  float64
}

// factorToPercent maps a multiplicative factor onto the -100..100 percentage
// range the imaging adjustments take.
func factorToPercent(f float64) float64 {
	if f <= 0 {
		return -100
	}
	p := (f - 1) * 100
	if p > 100 {
		p = 100
	}
	if p < -100 {
		p = -100
	}
	return p
}

// Adjust applies tone adjustments. Zero-valued factors are treated as 1.0.
func Adjust(img image.Image, o AdjustOptions) image.Image {
	out := img
	if o.Brightness != 0 && o.Brightness != 1 {
		out = imaging.AdjustBrightness(out, factorToPercent(o.Brightness))
	}
	if o.Contrast != 0 && o.Contrast != 1 {
		out = imaging.AdjustContrast(out, factorToPercent(o.Contrast))
	}
	if o.Saturation != 0 && o.Saturation != 1 {
		out = imaging.AdjustSaturation(out, factorToPercent(o.Saturation))
	}
	if o.Sharpness > 1 {
		out = imaging.Sharpen(out, o.Sharpness-1)
	}
	return out
}

// Blur applies a gaussian blur with the given sigma.
func Blur(img image.Image, sigma float64) (image.Image, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("blur radius must be positive")
	}
	return imaging.Blur(img, sigma), nil
}

// Sharpen applies an unsharp-style sharpening with the given sigma.
func Sharpen(img image.Image, sigma float64) (image.Image, error) {
	if sigma <= 0 {
		return nil, fmt.Errorf("sharpen amount must be positive")
	}
	return imaging.Sharpen(img, sigma), nil
}

// Grayscale converts the image to grayscale.
func Grayscale(img image.Image) image.Image {
	return imaging.Grayscale(img)
}

// Info describes an image file.
type Info struct {
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Format   string `json:"format"`
	FileSize int64  `json:"file_size"`
}

// ReadInfo returns the dimensions, detected format and size of an image file.
func ReadInfo(path string) (Info, error) {
	var info Info
	st, err := os.Stat(path)
	if err != nil {
		return info, err
	}
	info.FileSize = st.Size()

	f, err := os.Open(path)
	if err != nil {
		return info, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return info, fmt.Errorf("decode image: %w", err)
	}
	info.Width = cfg.Width
	info.Height = cfg.Height
	info.Format = format
	return info, nil
}
