package editor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-pdf/fpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// geomFromWords builds a single-page editor with one line of evenly spaced
// characters per word string, so search math can be tested without a real PDF.
func geomFromWords(lines ...string) *Editor {
	g := pageGeom{width: 612, height: 792}
	baseline := 700.0
	for _, text := range lines {
		ln := line{baseline: baseline, text: text}
		x := 72.0
		for _, r := range text {
			ln.chars = append(ln.chars, char{
				s: string(r), x: x, w: 6, y: baseline, font: "Helvetica", size: 12,
			})
			x += 6
		}
		g.lines = append(g.lines, ln)
		baseline -= 20
	}
	return &Editor{pages: []pageGeom{g}, ops: make(map[int][]overlayOp)}
}

func TestSearchFindsMatches(t *testing.T) {
	e := geomFromWords("the quick brown fox", "the lazy dog")

	matches := e.Search("the", nil)
	require.Len(t, matches, 2)

	m := matches[0]
	assert.Equal(t, 1, m.Page)
	assert.Equal(t, 72.0, m.X0)
	assert.Equal(t, 72.0+3*6, m.X1)
	assert.Equal(t, 12.0, m.FontSize)
	assert.InDelta(t, 700-12*descentRatio, m.Y0, 0.001)
	assert.InDelta(t, 700+12*ascentRatio, m.Y1, 0.001)

	assert.Empty(t, e.Search("missing", nil))
	assert.Empty(t, e.Search("", nil))
}

func TestSearchMidLineOffsets(t *testing.T) {
	e := geomFromWords("abcdef")

	matches := e.Search("cde", nil)
	require.Len(t, matches, 1)
	// "cde" starts at the third character.
	assert.Equal(t, 72.0+2*6, matches[0].X0)
	assert.Equal(t, 72.0+5*6, matches[0].X1)
}

func TestSearchRespectsPageFilter(t *testing.T) {
	e := geomFromWords("hello world")
	assert.Len(t, e.Search("hello", []int{1}), 1)
	assert.Empty(t, e.Search("hello", []int{2}))
	assert.Empty(t, e.Search("hello", []int{0}))
}

func TestRedactAndReplaceCounts(t *testing.T) {
	e := geomFromWords("secret data and secret plans")

	n := e.RedactText("secret", nil, Black)
	assert.Equal(t, 2, n)
	assert.True(t, e.HasEdits())

	n = e.ReplaceText("data", "info", nil)
	assert.Equal(t, 1, n)
	assert.Len(t, e.ops[1], 3)

	assert.Equal(t, 0, e.RedactText("absent", nil, Black))
}

func TestAddTextBounds(t *testing.T) {
	e := geomFromWords("page one")

	assert.NoError(t, e.AddText(1, 100, 100, "note", 14, Black, false))
	assert.Error(t, e.AddText(0, 100, 100, "note", 14, Black, false))
	assert.Error(t, e.AddText(2, 100, 100, "note", 14, Black, false))
}

func TestAddImageValidation(t *testing.T) {
	e := geomFromWords("page one")

	assert.Error(t, e.AddImage(3, "x.png", 0, 0, 100, 100))
	assert.Error(t, e.AddImage(1, "x.png", 0, 0, 0, 100))
	assert.NoError(t, e.AddImage(1, "x.png", 0, 0, 100, 100))
}

func TestAddAnnotation(t *testing.T) {
	e := geomFromWords("content")

	types := []string{
		"highlight", "underline", "strikeout", "rectangle", "circle",
		"line", "arrow", "text", "note", "freetext",
	}
	for _, typ := range types {
		err := e.AddAnnotation(Annotation{Type: typ, Page: 1, X0: 10, Y0: 10, X1: 100, Y1: 40, Text: "t"})
		assert.NoError(t, err, "type %s", typ)
	}
	assert.Len(t, e.ops[1], len(types))

	assert.Error(t, e.AddAnnotation(Annotation{Type: "sticker", Page: 1}))
	assert.Error(t, e.AddAnnotation(Annotation{Type: "line", Page: 9}))
	assert.Error(t, e.AddAnnotation(Annotation{Type: "line", Page: 1, Color: "#zzz"}))
}

func TestParseHexColor(t *testing.T) {
	c, err := ParseHexColor("#ff8000")
	assert.NoError(t, err)
	assert.Equal(t, RGB{255, 128, 0}, c)

	c, err = ParseHexColor("808080")
	assert.NoError(t, err)
	assert.Equal(t, RGB{128, 128, 128}, c)

	_, err = ParseHexColor("#fff")
	assert.Error(t, err)
	_, err = ParseHexColor("nothex")
	assert.Error(t, err)
}

func TestTextItemsAndStructure(t *testing.T) {
	e := geomFromWords("first line", "second line")

	items := e.TextItems(nil)
	require.Len(t, items, 2)
	assert.Equal(t, "first line", items[0].Text)
	assert.Equal(t, "second line", items[1].Text)
	assert.Equal(t, 1, items[0].Page)

	fonts := e.Fonts()
	assert.Equal(t, []string{"Helvetica"}, fonts)

	st := e.Structure()
	require.Len(t, st, 1)
	assert.Equal(t, 2, st[0].LineCount)
	assert.Equal(t, 612.0, st[0].Width)
}

func TestSearchZeroWidthRuns(t *testing.T) {
	// Some readers report zero advance widths for every glyph; the match box
	// must still have real extent so cover rectangles are not 0pt wide.
	e := geomFromWords("TOPSECRET123")
	g := &e.pages[0]
	for i := range g.lines[0].chars {
		g.lines[0].chars[i].w = 0
	}

	matches := e.Search("TOPSECRET123", nil)
	require.Len(t, matches, 1)
	m := matches[0]
	assert.Equal(t, 72.0, m.X0)
	// Last char sits at x=72+11*6; half an em of 12pt covers the glyph.
	assert.InDelta(t, 72.0+11*6+12*0.5, m.X1, 0.001)
	assert.Greater(t, m.X1, m.X0)
}

// writeTextPDF builds a real one-page PDF with the given lines of 12pt
// Helvetica text.
func writeTextPDF(t *testing.T, path string, lines ...string) {
	t.Helper()
	p := fpdf.New("P", "pt", "A4", "")
	p.AddPage()
	p.SetFont("Helvetica", "", 12)
	y := 100.0
	for _, ln := range lines {
		p.Text(72, y, ln)
		y += 20
	}
	require.NoError(t, p.OutputFileAndClose(path))
}

func TestRedactApplyRemovesText(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	writeTextPDF(t, in, "public heading", "code TOPSECRET123 end")

	ed, err := Open(in)
	require.NoError(t, err)
	require.Equal(t, 1, ed.PageCount())

	matches := ed.Search("TOPSECRET123", nil)
	require.Len(t, matches, 1)
	assert.Greater(t, matches[0].X1, matches[0].X0)

	require.Equal(t, 1, ed.RedactText("TOPSECRET123", nil, Black))
	require.NoError(t, ed.Apply(out))

	st, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, st.Size(), int64(0))

	// The redacted string must be gone from the output, not just covered.
	re, err := Open(out)
	require.NoError(t, err)
	assert.Empty(t, re.Search("TOPSECRET123", nil))
	assert.NotEmpty(t, re.Search("public", nil))
}

func TestReplaceApplyRemovesOldText(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.pdf")
	out := filepath.Join(dir, "out.pdf")
	writeTextPDF(t, in, "status DRAFT")

	ed, err := Open(in)
	require.NoError(t, err)
	require.Equal(t, 1, ed.ReplaceText("DRAFT", "FINAL", nil))
	require.NoError(t, ed.Apply(out))

	re, err := Open(out)
	require.NoError(t, err)
	assert.Empty(t, re.Search("DRAFT", nil))
}
