package editor

import (
	"fmt"
	"math"

	"github.com/go-pdf/fpdf"
)

// Annotation is one drawing instruction applied on top of a page. Rect
// coordinates use the top-left origin with y growing downward, in points.
type Annotation struct {
	Type     string  `json:"type"` // highlight, underline, strikeout, rectangle, circle, line, arrow, text, note, freetext
	Page     int     `json:"page"`
	X0       float64 `json:"x0"`
	Y0       float64 `json:"y0"`
	X1       float64 `json:"x1"`
	Y1       float64 `json:"y1"`
	Text     string  `json:"text,omitempty"`
	Color    string  `json:"color,omitempty"`
	Width    float64 `json:"width,omitempty"`
	FontSize float64 `json:"font_size,omitempty"`
	Opacity  float64 `json:"opacity,omitempty"`
}

// AddAnnotation queues one annotation. The annotation is flattened into the
// page content rather than stored as an interactive PDF annotation object.
func (e *Editor) AddAnnotation(a Annotation) error {
	if a.Page < 1 || a.Page > len(e.pages) {
		return fmt.Errorf("page %d out of bounds (1-%d)", a.Page, len(e.pages))
	}

	color := Black
	if a.Color != "" {
		c, err := ParseHexColor(a.Color)
		if err != nil {
			return err
		}
		color = c
	}
	width := a.Width
	if width <= 0 {
		width = 1.5
	}

	switch a.Type {
	case "highlight":
		opacity := a.Opacity
		if opacity <= 0 || opacity > 1 {
			opacity = 0.35
		}
		fill := color
		if a.Color == "" {
			fill = Yellow
		}
		e.addOp(a.Page, func(p *fpdf.Fpdf) {
			p.SetAlpha(opacity, "Normal")
			p.SetFillColor(fill.R, fill.G, fill.B)
			p.Rect(a.X0, a.Y0, a.X1-a.X0, a.Y1-a.Y0, "F")
			p.SetAlpha(1, "Normal")
		})
	case "underline":
		e.addOp(a.Page, func(p *fpdf.Fpdf) {
			p.SetDrawColor(color.R, color.G, color.B)
			p.SetLineWidth(width)
			p.Line(a.X0, a.Y1, a.X1, a.Y1)
		})
	case "strikeout":
		stroke := color
		if a.Color == "" {
			stroke = Red
		}
		e.addOp(a.Page, func(p *fpdf.Fpdf) {
			p.SetDrawColor(stroke.R, stroke.G, stroke.B)
			p.SetLineWidth(width)
			mid := (a.Y0 + a.Y1) / 2
			p.Line(a.X0, mid, a.X1, mid)
		})
	case "rectangle":
		e.addOp(a.Page, func(p *fpdf.Fpdf) {
			p.SetDrawColor(color.R, color.G, color.B)
			p.SetLineWidth(width)
			p.Rect(a.X0, a.Y0, a.X1-a.X0, a.Y1-a.Y0, "D")
		})
	case "circle":
		e.addOp(a.Page, func(p *fpdf.Fpdf) {
			p.SetDrawColor(color.R, color.G, color.B)
			p.SetLineWidth(width)
			cx := (a.X0 + a.X1) / 2
			cy := (a.Y0 + a.Y1) / 2
			p.Ellipse(cx, cy, (a.X1-a.X0)/2, (a.Y1-a.Y0)/2, 0, "D")
		})
	case "line":
		e.addOp(a.Page, func(p *fpdf.Fpdf) {
			p.SetDrawColor(color.R, color.G, color.B)
			p.SetLineWidth(width)
			p.Line(a.X0, a.Y0, a.X1, a.Y1)
		})
	case "arrow":
		e.addOp(a.Page, func(p *fpdf.Fpdf) {
			p.SetDrawColor(color.R, color.G, color.B)
			p.SetLineWidth(width)
			p.Line(a.X0, a.Y0, a.X1, a.Y1)
			drawArrowHead(p, a.X0, a.Y0, a.X1, a.Y1, 10)
		})
	case "text":
		size := a.FontSize
		if size <= 0 {
			size = 11
		}
		e.addOp(a.Page, func(p *fpdf.Fpdf) {
			p.SetFont("Helvetica", "", size)
			p.SetTextColor(color.R, color.G, color.B)
			p.Text(a.X0, a.Y0+size, a.Text)
		})
	case "note":
		// Sticky-note marker, flattened to a folded-corner icon.
		e.addOp(a.Page, func(p *fpdf.Fpdf) {
			const s = 16.0
			p.SetFillColor(Yellow.R, Yellow.G, Yellow.B)
			p.SetDrawColor(Black.R, Black.G, Black.B)
			p.SetLineWidth(0.8)
			p.Rect(a.X0, a.Y0, s, s, "FD")
			p.Line(a.X0+s-5, a.Y0, a.X0+s, a.Y0+5)
		})
	case "freetext":
		size := a.FontSize
		if size <= 0 {
			size = 11
		}
		fill := RGB{255, 255, 204}
		e.addOp(a.Page, func(p *fpdf.Fpdf) {
			p.SetFillColor(fill.R, fill.G, fill.B)
			p.SetDrawColor(Black.R, Black.G, Black.B)
			p.SetLineWidth(0.8)
			p.Rect(a.X0, a.Y0, a.X1-a.X0, a.Y1-a.Y0, "FD")
			p.SetFont("Helvetica", "", size)
			p.SetTextColor(color.R, color.G, color.B)
			p.SetXY(a.X0+3, a.Y0+3)
			p.MultiCell(a.X1-a.X0-6, size*1.25, a.Text, "", "L", false)
		})
	default:
		return fmt.Errorf("unknown annotation type %q", a.Type)
	}
	return nil
}

func drawArrowHead(p *fpdf.Fpdf, x0, y0, x1, y1, size float64) {
	angle := math.Atan2(y1-y0, x1-x0)
	for _, da := range []float64{math.Pi * 5 / 6, -math.Pi * 5 / 6} {
		hx := x1 + size*math.Cos(angle+da)
		hy := y1 + size*math.Sin(angle+da)
		p.Line(x1, y1, hx, hy)
	}
}

// ParseHexColor parses "#rrggbb" (or "rrggbb") into an RGB triple.
func ParseHexColor(s string) (RGB, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	var rgb RGB
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &rgb.R, &rgb.G, &rgb.B); err != nil {
		return RGB{}, fmt.Errorf("invalid hex color %q", s)
	}
	return rgb, nil
}
