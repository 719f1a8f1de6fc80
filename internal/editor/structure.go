package editor

import "sort"

// TextItem is one positioned text line with its dominant font attributes.
// Coordinates are in PDF points with the origin at the lower-left corner.
type TextItem struct {
	Page     int     `json:"page"`
	Text     string  `json:"text"`
	Font     string  `json:"font,omitempty"`
	FontSize float64 `json:"font_size"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

// TextItems returns the text lines of the selected pages with position and
// font information, top to bottom.
func (e *Editor) TextItems(pages []int) []TextItem {
	if pages == nil {
		pages = make([]int, len(e.pages))
		for i := range e.pages {
			pages[i] = i + 1
		}
	}
	var items []TextItem
	for _, pn := range pages {
		if pn < 1 || pn > len(e.pages) {
			continue
		}
		for _, ln := range e.pages[pn-1].lines {
			if len(ln.chars) == 0 {
				continue
			}
			first := ln.chars[0]
			items = append(items, TextItem{
				Page:     pn,
				Text:     ln.text,
				Font:     first.font,
				FontSize: first.size,
				X:        first.x,
				Y:        ln.baseline,
			})
		}
	}
	return items
}

// Fonts lists the distinct font names used in the document.
func (e *Editor) Fonts() []string {
	set := make(map[string]bool)
	for _, g := range e.pages {
		for _, ln := range g.lines {
			for _, c := range ln.chars {
				if c.font != "" {
					set[c.font] = true
				}
			}
		}
	}
	fonts := make([]string, 0, len(set))
	for f := range set {
		fonts = append(fonts, f)
	}
	sort.Strings(fonts)
	return fonts
}

// PageStructure summarizes one page's layout.
type PageStructure struct {
	Page      int     `json:"page"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	LineCount int     `json:"line_count"`
	CharCount int     `json:"char_count"`
}

// Structure returns a per-page layout summary for the whole document.
func (e *Editor) Structure() []PageStructure {
	out := make([]PageStructure, 0, len(e.pages))
	for i, g := range e.pages {
		chars := 0
		for _, ln := range g.lines {
			chars += len(ln.chars)
		}
		out = append(out, PageStructure{
			Page:      i + 1,
			Width:     g.width,
			Height:    g.height,
			LineCount: len(g.lines),
			CharCount: chars,
		})
	}
	return out
}
