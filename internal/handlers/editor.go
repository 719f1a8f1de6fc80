package handlers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"docbelt/internal/editor"
	"docbelt/internal/pdfops"
	u "docbelt/internal/utils"
)

func openEditor(path string) (*editor.Editor, error) {
	ed, err := editor.Open(path)
	if err != nil {
		u.Warn("Cannot parse PDF for editing", "error", err)
		return nil, fiber.NewError(fiber.StatusUnprocessableEntity, "cannot parse PDF: "+err.Error())
	}
	return ed, nil
}

func parsePagesParam(c *fiber.Ctx, pageCount int) ([]int, error) {
	raw := c.FormValue("pages", "all")
	sel, err := pdfops.ParsePageSelection(raw, pageCount)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return sel, nil
}

// HandleSearch returns the bounding boxes of every occurrence of a string.
func (svc *Service) HandleSearch(c *fiber.Ctx) error {
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	text := c.FormValue("text")
	if text == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}

	ed, err := openEditor(in)
	if err != nil {
		return err
	}
	pages, err := parsePagesParam(c, ed.PageCount())
	if err != nil {
		return err
	}

	matches := ed.Search(text, pages)
	return c.JSON(fiber.Map{
		"success":     true,
		"query":       text,
		"match_count": len(matches),
		"matches":     matches,
	})
}

// HandleRedact covers every occurrence of a string with an opaque rectangle.
func (svc *Service) HandleRedact(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	text := c.FormValue("text")
	if text == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}
	fill := editor.Black
	if hex := c.FormValue("fill_color"); hex != "" {
		fill, err = editor.ParseHexColor(hex)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	ed, err := openEditor(in)
	if err != nil {
		return err
	}
	pages, err := parsePagesParam(c, ed.PageCount())
	if err != nil {
		return err
	}

	count := ed.RedactText(text, pages, fill)
	out := svc.outputPath(baseStem(in)+"_redacted", ".pdf")
	if err := ed.Apply(out); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "apply edits: "+err.Error())
	}

	res, rerr := svc.fileResult(out, start, fiber.Map{"redactions_made": count})
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleReplaceText swaps every occurrence of a string for new text at the
// matched position and size.
func (svc *Service) HandleReplaceText(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	oldText := c.FormValue("old_text")
	newText := c.FormValue("new_text")
	if oldText == "" {
		return fiber.NewError(fiber.StatusBadRequest, "old_text is required")
	}

	ed, err := openEditor(in)
	if err != nil {
		return err
	}
	pages, err := parsePagesParam(c, ed.PageCount())
	if err != nil {
		return err
	}

	count := ed.ReplaceText(oldText, newText, pages)
	out := svc.outputPath(baseStem(in)+"_edited", ".pdf")
	if err := ed.Apply(out); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "apply edits: "+err.Error())
	}

	res, rerr := svc.fileResult(out, start, fiber.Map{"replacements_made": count})
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleAddText draws free text at a position on one page.
func (svc *Service) HandleAddText(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	text := c.FormValue("text")
	if text == "" {
		return fiber.NewError(fiber.StatusBadRequest, "text is required")
	}
	page := formInt(c.FormValue("page"), 1)
	x := formFloat(c.FormValue("x"), 72)
	y := formFloat(c.FormValue("y"), 72)
	size := formFloat(c.FormValue("font_size"), 11)
	bold := formBool(c.FormValue("bold"), false)

	color := editor.Black
	if hex := c.FormValue("color"); hex != "" {
		color, err = editor.ParseHexColor(hex)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
	}

	ed, err := openEditor(in)
	if err != nil {
		return err
	}
	if err := ed.AddText(page, x, y, text, size, color, bold); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	out := svc.outputPath(baseStem(in)+"_edited", ".pdf")
	if err := ed.Apply(out); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "apply edits: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleAddImage places an uploaded image onto a page.
func (svc *Service) HandleAddImage(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	imgFH, ferr := c.FormFile("image")
	if ferr != nil {
		return fiber.NewError(fiber.StatusBadRequest, "missing form file \"image\"")
	}
	imgPath, err := svc.savedUpload(imgFH)
	if err != nil {
		return err
	}
	defer u.CleanupFile(imgPath)

	page := formInt(c.FormValue("page"), 1)
	x := formFloat(c.FormValue("x"), 72)
	y := formFloat(c.FormValue("y"), 72)
	w := formFloat(c.FormValue("width"), 200)
	h := formFloat(c.FormValue("height"), 200)

	ed, err := openEditor(in)
	if err != nil {
		return err
	}
	if err := ed.AddImage(page, imgPath, x, y, w, h); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	out := svc.outputPath(baseStem(in)+"_edited", ".pdf")
	if err := ed.Apply(out); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "apply edits: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// parseCoords parses a comma separated list of exactly n floats, e.g. a
// "x0,y0,x1,y1" rect.
func parseCoords(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d comma separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid number %q", p)
		}
		out[i] = v
	}
	return out, nil
}

// HandleAddAnnotation draws a single annotation described by form fields.
// Shapes take a rect, lines take start/end points, circles a center and
// radius, notes a point.
func (svc *Service) HandleAddAnnotation(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	a := editor.Annotation{
		Type:     c.FormValue("type"),
		Page:     formInt(c.FormValue("page"), 1),
		Text:     c.FormValue("text"),
		Color:    c.FormValue("color"),
		Width:    formFloat(c.FormValue("width"), 0),
		FontSize: formFloat(c.FormValue("font_size"), 0),
		Opacity:  formFloat(c.FormValue("opacity"), 0),
	}

	switch a.Type {
	case "line", "arrow":
		s, serr := parseCoords(c.FormValue("start"), 2)
		e, eerr := parseCoords(c.FormValue("end"), 2)
		if serr != nil || eerr != nil {
			return fiber.NewError(fiber.StatusBadRequest, "line and arrow need start and end points as \"x,y\"")
		}
		a.X0, a.Y0, a.X1, a.Y1 = s[0], s[1], e[0], e[1]
	case "circle":
		ctr, cerr := parseCoords(c.FormValue("center"), 2)
		r := formFloat(c.FormValue("radius"), 0)
		if cerr != nil || r <= 0 {
			return fiber.NewError(fiber.StatusBadRequest, "circle needs a center \"x,y\" and a positive radius")
		}
		a.X0, a.Y0, a.X1, a.Y1 = ctr[0]-r, ctr[1]-r, ctr[0]+r, ctr[1]+r
	case "note":
		p, perr := parseCoords(c.FormValue("point"), 2)
		if perr != nil {
			return fiber.NewError(fiber.StatusBadRequest, "note needs a point as \"x,y\"")
		}
		a.X0, a.Y0 = p[0], p[1]
	default:
		r, rerr := parseCoords(c.FormValue("rect"), 4)
		if rerr != nil {
			return fiber.NewError(fiber.StatusBadRequest, "rect is required as \"x0,y0,x1,y1\"")
		}
		a.X0, a.Y0, a.X1, a.Y1 = r[0], r[1], r[2], r[3]
	}

	ed, err := openEditor(in)
	if err != nil {
		return err
	}
	if err := ed.AddAnnotation(a); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	out := svc.outputPath(baseStem(in)+"_annotated", ".pdf")
	if err := ed.Apply(out); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "apply edits: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, nil)
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleEditBatch applies a batch of annotations given as a JSON array in
// the annotations form field, saving the document once.
func (svc *Service) HandleEditBatch(c *fiber.Ctx) error {
	start := time.Now()
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	raw := c.FormValue("annotations")
	if raw == "" {
		return fiber.NewError(fiber.StatusBadRequest, "annotations is required")
	}
	var annots []editor.Annotation
	if err := json.Unmarshal([]byte(raw), &annots); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "annotations must be a JSON array: "+err.Error())
	}
	if len(annots) == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "annotations is empty")
	}

	ed, err := openEditor(in)
	if err != nil {
		return err
	}
	for i, a := range annots {
		if err := ed.AddAnnotation(a); err != nil {
			return fiber.NewError(fiber.StatusBadRequest,
				fmt.Sprintf("annotation %d: %v", i, err))
		}
	}

	out := svc.outputPath(baseStem(in)+"_annotated", ".pdf")
	if err := ed.Apply(out); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "apply edits: "+err.Error())
	}
	res, rerr := svc.fileResult(out, start, fiber.Map{"annotations_applied": len(annots)})
	if rerr != nil {
		return rerr
	}
	return c.JSON(res)
}

// HandleExtractText returns the positioned text lines of selected pages.
func (svc *Service) HandleExtractText(c *fiber.Ctx) error {
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	ed, err := openEditor(in)
	if err != nil {
		return err
	}
	pages, err := parsePagesParam(c, ed.PageCount())
	if err != nil {
		return err
	}

	items := ed.TextItems(pages)
	return c.JSON(fiber.Map{
		"success":    true,
		"item_count": len(items),
		"items":      items,
	})
}

// HandleStructure returns a per-page layout summary plus the font list.
func (svc *Service) HandleStructure(c *fiber.Ctx) error {
	in, err := svc.uploadPDF(c)
	if err != nil {
		return err
	}
	defer u.CleanupFile(in)

	ed, err := openEditor(in)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"page_count": ed.PageCount(),
		"pages":      ed.Structure(),
		"fonts":      ed.Fonts(),
	})
}
