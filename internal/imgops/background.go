package imgops

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// estimateBackground samples the border pixels and returns their mean color.
// Portraits and product shots keep the subject away from the edges, so the
// border is a usable stand-in for the backdrop.
func estimateBackground(img image.Image) color.NRGBA {
	b := img.Bounds()
	var r, g, bl, n float64

	sample := func(x, y int) {
		cr, cg, cb, _ := img.At(x, y).RGBA()
		r += float64(cr >> 8)
		g += float64(cg >> 8)
		bl += float64(cb >> 8)
		n++
	}
	for x := b.Min.X; x < b.Max.X; x++ {
		sample(x, b.Min.Y)
		sample(x, b.Max.Y-1)
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		sample(b.Min.X, y)
		sample(b.Max.X-1, y)
	}
	if n == 0 {
		return color.NRGBA{255, 255, 255, 255}
	}
	return color.NRGBA{
		R: uint8(r / n),
		G: uint8(g / n),
		B: uint8(bl / n),
		A: 255,
	}
}

func colorDistance(c1, c2 color.NRGBA) float64 {
	dr := float64(c1.R) - float64(c2.R)
	dg := float64(c1.G) - float64(c2.G)
	db := float64(c1.B) - float64(c2.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// backgroundThreshold is the color distance beyond which a pixel counts as
// foreground. Tuned for evenly lit studio backdrops.
const backgroundThreshold = 60.0

// RemoveBackground keys out the estimated backdrop color and returns an image
// with a transparent background. This is a chroma-distance heuristic and
// works best on uniform backdrops.
func RemoveBackground(img image.Image) *image.NRGBA {
	bg := estimateBackground(img)
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			px := color.NRGBA{R: uint8(cr >> 8), G: uint8(cg >> 8), B: uint8(cb >> 8), A: 255}
			d := colorDistance(px, bg)
			switch {
			case d < backgroundThreshold:
				px.A = 0
			case d < backgroundThreshold*1.5:
				// Soft edge between backdrop and subject.
				px.A = uint8(255 * (d - backgroundThreshold) / (backgroundThreshold * 0.5))
			}
			out.SetNRGBA(x-b.Min.X, y-b.Min.Y, px)
		}
	}
	return out
}

// ReplaceBackground keys out the backdrop and composites the subject onto a
// solid color given as "#rrggbb".
func ReplaceBackground(img image.Image, hexColor string) (*image.NRGBA, error) {
	bg, err := parseHex(hexColor)
	if err != nil {
		return nil, err
	}

	cut := RemoveBackground(img)
	b := cut.Bounds()
	out := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			px := cut.NRGBAAt(x, y)
			a := float64(px.A) / 255
			out.SetNRGBA(x, y, color.NRGBA{
				R: uint8(float64(px.R)*a + float64(bg.R)*(1-a)),
				G: uint8(float64(px.G)*a + float64(bg.G)*(1-a)),
				B: uint8(float64(px.B)*a + float64(bg.B)*(1-a)),
				A: 255,
			})
		}
	}
	return out, nil
}

func parseHex(s string) (color.NRGBA, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	var r, g, b int
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}
	return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}, nil
}
