// Package editor implements text-level PDF editing: search, redaction, text
// replacement and annotation. Edits are drawn onto transparent overlay pages
// which are then stamped back onto the source document.
package editor

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ledongthuc/pdf"

	"docbelt/internal/pdfops"
)

// glyph ascent/descent fractions of the font size, used to grow a baseline
// into a bounding box.
const (
	ascentRatio  = 0.80
	descentRatio = 0.20
)

// RGB is a plain 8-bit color triple.
type RGB struct {
	R, G, B int
}

var (
	Black  = RGB{0, 0, 0}
	White  = RGB{255, 255, 255}
	Yellow = RGB{255, 255, 0}
	Red    = RGB{255, 0, 0}
)

// Match is one found occurrence of a search string. Coordinates are in PDF
// points with the origin at the lower-left page corner.
type Match struct {
	Page     int     `json:"page"`
	X0       float64 `json:"x0"`
	Y0       float64 `json:"y0"`
	X1       float64 `json:"x1"`
	Y1       float64 `json:"y1"`
	Baseline float64 `json:"-"`
	Font     string  `json:"font,omitempty"`
	FontSize float64 `json:"font_size"`
}

type char struct {
	s    string
	x    float64
	w    float64
	y    float64 // baseline
	font string
	size float64
}

type line struct {
	baseline float64
	chars    []char
	text     string
}

type pageGeom struct {
	width  float64
	height float64
	lines  []line
}

// overlayOp draws one edit onto a page overlay. Coordinates handed to fpdf
// use the top-left origin with y growing downward.
type overlayOp func(p *fpdf.Fpdf)

// Editor accumulates edits against a source PDF and applies them in one pass.
type Editor struct {
	path  string
	pages []pageGeom
	ops   map[int][]overlayOp
	scrub map[int][]string // text to strip from page content streams
}

// Open parses the document geometry and returns an editor for it.
func Open(path string) (*Editor, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	n := r.NumPage()
	pages := make([]pageGeom, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		pages[i-1] = buildPageGeom(p)
	}

	return &Editor{
		path:  path,
		pages: pages,
		ops:   make(map[int][]overlayOp),
	}, nil
}

// PageCount returns the number of pages in the source document.
func (e *Editor) PageCount() int {
	return len(e.pages)
}

func mediaBox(p pdf.Page) (w, h float64) {
	w, h = 612, 792 // US Letter fallback
	v := p.V
	for !v.IsNull() {
		mb := v.Key("MediaBox")
		if !mb.IsNull() && mb.Len() == 4 {
			w = mb.Index(2).Float64() - mb.Index(0).Float64()
			h = mb.Index(3).Float64() - mb.Index(1).Float64()
			return w, h
		}
		v = v.Key("Parent")
	}
	return w, h
}

func buildPageGeom(p pdf.Page) pageGeom {
	w, h := mediaBox(p)
	g := pageGeom{width: w, height: h}

	content := p.Content()
	if len(content.Text) == 0 {
		return g
	}

	// Group characters into lines by rounded baseline.
	byLine := make(map[int][]char)
	for _, t := range content.Text {
		c := char{s: t.S, x: t.X, w: t.W, y: t.Y, font: t.Font, size: t.FontSize}
		key := int(math.Round(t.Y))
		byLine[key] = append(byLine[key], c)
	}

	keys := make([]int, 0, len(byLine))
	for k := range byLine {
		keys = append(keys, k)
	}
	// Top of page first.
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	for _, k := range keys {
		chars := byLine[k]
		sort.Slice(chars, func(i, j int) bool { return chars[i].x < chars[j].x })
		var sb strings.Builder
		for _, c := range chars {
			sb.WriteString(c.s)
		}
		g.lines = append(g.lines, line{
			baseline: float64(k),
			chars:    chars,
			text:     sb.String(),
		})
	}
	return g
}

// Search finds all occurrences of text on the given 1-based pages (all pages
// when pages is nil). Matching is exact and case-sensitive, the way text
// appears in the content stream.
func (e *Editor) Search(text string, pages []int) []Match {
	if text == "" {
		return nil
	}
	if pages == nil {
		pages = make([]int, len(e.pages))
		for i := range e.pages {
			pages[i] = i + 1
		}
	}

	var matches []Match
	for _, pn := range pages {
		if pn < 1 || pn > len(e.pages) {
			continue
		}
		g := e.pages[pn-1]
		for _, ln := range g.lines {
			// Char indices map 1:1 onto byte offsets only for ASCII, so walk
			// rune-wise via the per-char strings instead.
			offsets := make([]int, len(ln.chars)+1)
			var buf strings.Builder
			for i, c := range ln.chars {
				offsets[i] = buf.Len()
				buf.WriteString(c.s)
			}
			offsets[len(ln.chars)] = buf.Len()
			full := buf.String()

			from := 0
			for {
				idx := strings.Index(full[from:], text)
				if idx < 0 {
					break
				}
				start := from + idx
				end := start + len(text)
				first, last := -1, -1
				for i := 0; i < len(ln.chars); i++ {
					if offsets[i] <= start && start < offsets[i+1] {
						first = i
					}
					if offsets[i] < end && end <= offsets[i+1] {
						last = i
					}
				}
				if first >= 0 && last >= first {
					fc, lc := ln.chars[first], ln.chars[last]
					size := fc.size
					if size <= 0 {
						size = 11
					}
					// Some readers report zero advance widths; estimate the
					// last glyph at half an em so the box has real extent.
					lw := lc.w
					if lw <= 0 {
						lw = size * 0.5
					}
					matches = append(matches, Match{
						Page:     pn,
						X0:       fc.x,
						Y0:       ln.baseline - size*descentRatio,
						X1:       lc.x + lw,
						Y1:       ln.baseline + size*ascentRatio,
						Baseline: ln.baseline,
						Font:     fc.font,
						FontSize: size,
					})
				}
				from = start + len(text)
			}
		}
	}
	return matches
}

func (e *Editor) pageSize(page int) (w, h float64) {
	g := e.pages[page-1]
	return g.width, g.height
}

func (e *Editor) addOp(page int, op overlayOp) {
	e.ops[page] = append(e.ops[page], op)
}

// noteScrub records text that Apply must strip from a page's content stream.
func (e *Editor) noteScrub(page int, text string) {
	if e.scrub == nil {
		e.scrub = make(map[int][]string)
	}
	for _, t := range e.scrub[page] {
		if t == text {
			return
		}
	}
	e.scrub[page] = append(e.scrub[page], text)
}

// RedactText removes every occurrence of text from the page content and
// covers its position with an opaque rectangle. Returns the number of
// redactions queued.
func (e *Editor) RedactText(text string, pages []int, fill RGB) int {
	matches := e.Search(text, pages)
	for _, m := range matches {
		m := m
		e.noteScrub(m.Page, text)
		_, h := e.pageSize(m.Page)
		e.addOp(m.Page, func(p *fpdf.Fpdf) {
			p.SetFillColor(fill.R, fill.G, fill.B)
			// Pad the box slightly so no glyph edges survive.
			p.Rect(m.X0-1, h-m.Y1-1, m.X1-m.X0+2, m.Y1-m.Y0+2, "F")
		})
	}
	return len(matches)
}

// ReplaceText removes every occurrence of old from the page content and
// draws new in its place at the matched font size. Returns the number of
// replacements queued.
func (e *Editor) ReplaceText(old, new string, pages []int) int {
	matches := e.Search(old, pages)
	for _, m := range matches {
		m := m
		e.noteScrub(m.Page, old)
		_, h := e.pageSize(m.Page)
		e.addOp(m.Page, func(p *fpdf.Fpdf) {
			p.SetFillColor(White.R, White.G, White.B)
			p.Rect(m.X0-1, h-m.Y1-1, m.X1-m.X0+2, m.Y1-m.Y0+2, "F")
			p.SetFont("Helvetica", "", m.FontSize)
			p.SetTextColor(Black.R, Black.G, Black.B)
			p.Text(m.X0, h-m.Baseline, new)
		})
	}
	return len(matches)
}

// AddText draws free text at (x, y) on the given page. Coordinates use the
// top-left origin with y growing downward, in points.
func (e *Editor) AddText(page int, x, y float64, text string, size float64, color RGB, bold bool) error {
	if page < 1 || page > len(e.pages) {
		return fmt.Errorf("page %d out of bounds (1-%d)", page, len(e.pages))
	}
	if size <= 0 {
		size = 11
	}
	style := ""
	if bold {
		style = "B"
	}
	e.addOp(page, func(p *fpdf.Fpdf) {
		p.SetFont("Helvetica", style, size)
		p.SetTextColor(color.R, color.G, color.B)
		p.Text(x, y, text)
	})
	return nil
}

// AddImage draws an image file at the given rectangle on the page.
// Coordinates use the top-left origin.
func (e *Editor) AddImage(page int, imgPath string, x, y, w, h float64) error {
	if page < 1 || page > len(e.pages) {
		return fmt.Errorf("page %d out of bounds (1-%d)", page, len(e.pages))
	}
	if w <= 0 || h <= 0 {
		return fmt.Errorf("image size must be positive")
	}
	e.addOp(page, func(p *fpdf.Fpdf) {
		opts := fpdf.ImageOptions{ImageType: "", ReadDpi: true}
		p.ImageOptions(imgPath, x, y, w, h, false, opts, 0, "")
	})
	return nil
}

// HasEdits reports whether any edit has been queued.
func (e *Editor) HasEdits() bool {
	return len(e.ops) > 0
}

// Apply copies the source PDF to outPath, strips redacted and replaced text
// from its content streams, then stamps all queued overlays onto it page by
// page.
func (e *Editor) Apply(outPath string) error {
	if err := copyFile(e.path, outPath); err != nil {
		return err
	}
	if len(e.ops) == 0 && len(e.scrub) == 0 {
		return nil
	}

	if len(e.scrub) > 0 {
		if err := pdfops.ScrubText(outPath, e.scrub); err != nil {
			return fmt.Errorf("strip redacted text: %w", err)
		}
	}

	tmpDir, err := os.MkdirTemp("", "docbelt-overlay-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	pages := make([]int, 0, len(e.ops))
	for p := range e.ops {
		pages = append(pages, p)
	}
	sort.Ints(pages)

	for _, page := range pages {
		w, h := e.pageSize(page)
		overlay := filepath.Join(tmpDir, fmt.Sprintf("overlay_%d.pdf", page))
		if err := e.renderOverlay(page, w, h, overlay); err != nil {
			return fmt.Errorf("render overlay for page %d: %w", page, err)
		}
		if err := pdfops.StampPageOverlay(outPath, overlay, page); err != nil {
			return fmt.Errorf("stamp page %d: %w", page, err)
		}
	}
	return nil
}

func (e *Editor) renderOverlay(page int, w, h float64, outPath string) error {
	p := fpdf.NewCustom(&fpdf.InitType{
		UnitStr: "pt",
		Size:    fpdf.SizeType{Wd: w, Ht: h},
	})
	p.SetAutoPageBreak(false, 0)
	p.SetMargins(0, 0, 0)
	p.AddPage()
	for _, op := range e.ops[page] {
		op(p)
	}
	if p.Err() {
		return p.Error()
	}
	return p.OutputFileAndClose(outPath)
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
