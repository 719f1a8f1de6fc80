package handlers

import (
	"bytes"
	"encoding/json"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docbelt/internal/jobs"
	u "docbelt/internal/utils"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	var cfg u.Config
	cfg.Storage.UploadDir = t.TempDir()
	cfg.Storage.OutputDir = t.TempDir()
	cfg.Storage.MaxFileSizeMB = 50
	return NewService(cfg, nil, nil, nil)
}

func newTestApp(routes func(app *fiber.App)) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			msg := "Internal Server Error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			}
			return c.Status(code).JSON(fiber.Map{
				"error": fiber.Map{"code": code, "message": msg},
			})
		},
	})
	routes(app)
	return app
}

type formFilePart struct {
	field    string
	filename string
	content  []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...formFilePart) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = fw.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &m))
	return m
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	img := imaging.New(w, h, color.NRGBA{R: 100, G: 150, B: 200, A: 255})
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestMergeRequiresTwoFiles(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/merge", svc.HandleMerge) })

	req := multipartRequest(t, "/merge", nil,
		formFilePart{field: "files", filename: "a.pdf", content: []byte("x")})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	errObj := body["error"].(map[string]interface{})
	assert.Contains(t, errObj["message"], "at least 2")
}

func TestMergeRejectsNonPDF(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/merge", svc.HandleMerge) })

	req := multipartRequest(t, "/merge", nil,
		formFilePart{field: "files", filename: "a.pdf", content: []byte("x")},
		formFilePart{field: "files", filename: "b.txt", content: []byte("x")})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestMissingUpload(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/compress", svc.HandleCompress) })

	req := multipartRequest(t, "/compress", map[string]string{"level": "high"})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestUploadSizeLimit(t *testing.T) {
	svc := newTestService(t)
	svc.Config.Storage.MaxFileSizeMB = 1
	app := newTestApp(func(a *fiber.App) { a.Post("/compress", svc.HandleCompress) })

	big := bytes.Repeat([]byte("a"), 2*1024*1024)
	req := multipartRequest(t, "/compress", nil,
		formFilePart{field: "file", filename: "big.pdf", content: big})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestProtectRequiresPassword(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/protect", svc.HandleProtect) })

	req := multipartRequest(t, "/protect", nil,
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSplitUnknownMode(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/split", svc.HandleSplit) })

	req := multipartRequest(t, "/split", map[string]string{"mode": "zigzag"},
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSplitRangeModeRequiresRanges(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/split", svc.HandleSplit) })

	req := multipartRequest(t, "/split", map[string]string{"mode": "range"},
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// an inverted start_page/end_page pair is rejected the same way
	req = multipartRequest(t, "/split",
		map[string]string{"mode": "range", "start_page": "3", "end_page": "1"},
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestSplitAcceptsAllAndStartEndModes(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/split", svc.HandleSplit) })

	// mode=all passes validation; the junk body then fails parsing, so the
	// handler must answer 422, never 400 "unknown split mode".
	req := multipartRequest(t, "/split", map[string]string{"mode": "all"},
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)

	// a valid start_page/end_page pair substitutes for ranges
	req = multipartRequest(t, "/split",
		map[string]string{"mode": "range", "start_page": "1", "end_page": "2"},
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
}

func TestReorderRequiresOrder(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/reorder", svc.HandleReorder) })

	req := multipartRequest(t, "/reorder", nil,
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWatermarkRequiresTextOrImage(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/watermark", svc.HandleWatermark) })

	req := multipartRequest(t, "/watermark", nil,
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAddAnnotationRequiresShapeParams(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/add-annotation", svc.HandleAddAnnotation) })

	// highlight without a rect
	req := multipartRequest(t, "/add-annotation", map[string]string{"type": "highlight"},
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// line without start/end
	req = multipartRequest(t, "/add-annotation",
		map[string]string{"type": "line", "start": "10,10"},
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	// circle with a zero radius
	req = multipartRequest(t, "/add-annotation",
		map[string]string{"type": "circle", "center": "50,50"},
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestEditBatchRequiresAnnotations(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/edit-batch", svc.HandleEditBatch) })

	req := multipartRequest(t, "/edit-batch", nil,
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	req = multipartRequest(t, "/edit-batch", map[string]string{"annotations": "{not json"},
		formFilePart{field: "file", filename: "a.pdf", content: []byte("x")})
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestParseCoords(t *testing.T) {
	got, err := parseCoords("10, 20,30.5,40", 4)
	require.NoError(t, err)
	assert.Equal(t, []float64{10, 20, 30.5, 40}, got)

	_, err = parseCoords("10,20", 4)
	assert.Error(t, err)
	_, err = parseCoords("10,abc", 2)
	assert.Error(t, err)
}

func TestImageRejectsUnsupportedFormat(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/resize", svc.HandleImageResize) })

	req := multipartRequest(t, "/resize", map[string]string{"width": "10"},
		formFilePart{field: "file", filename: "vector.svg", content: []byte("<svg/>")})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestImageCompressQualityValidation(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/compress", svc.HandleImageCompress) })

	req := multipartRequest(t, "/compress", map[string]string{"quality": "0"},
		formFilePart{field: "file", filename: "a.png", content: pngBytes(t, 4, 4)})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestImageResizeEndToEnd(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/resize", svc.HandleImageResize) })

	req := multipartRequest(t, "/resize",
		map[string]string{"width": "16", "height": "16", "mode": "exact"},
		formFilePart{field: "file", filename: "photo.png", content: pngBytes(t, 64, 64)})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, float64(16), body["width"])
	assert.Equal(t, float64(16), body["height"])
	assert.Contains(t, body["filename"], "photo_")
	assert.Contains(t, body["file_url"], "/downloads/")
}

func TestImageInfo(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/info", svc.HandleImageInfo) })

	req := multipartRequest(t, "/info", nil,
		formFilePart{field: "file", filename: "photo.png", content: pngBytes(t, 20, 10)})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	info := body["info"].(map[string]interface{})
	assert.Equal(t, float64(20), info["width"])
	assert.Equal(t, float64(10), info["height"])
	assert.Equal(t, "png", info["format"])
}

func TestPassportSizesEndpoint(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Get("/passport-sizes", svc.HandlePassportSizes) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/passport-sizes", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	sizes := body["sizes"].(map[string]interface{})
	assert.Contains(t, sizes, "us")
	assert.Contains(t, sizes, "canada")
}

func TestJobStatusUnknownJob(t *testing.T) {
	svc := newTestService(t)
	queue := jobs.NewQueue(jobs.NewMemoryStore(time.Minute), 4, time.Minute)
	svc.Jobs = queue
	app := newTestApp(func(a *fiber.App) { a.Get("/jobs/:id", svc.HandleJobStatus) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/jobs/nope", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestJobStatusWithoutQueue(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Get("/jobs/:id", svc.HandleJobStatus) })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/jobs/x", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestOCRWithoutEngine(t *testing.T) {
	svc := newTestService(t)
	app := newTestApp(func(a *fiber.App) { a.Post("/ocr", svc.HandleOCRImage) })

	req := multipartRequest(t, "/ocr", nil,
		formFilePart{field: "file", filename: "scan.png", content: pngBytes(t, 4, 4)})
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestBaseStem(t *testing.T) {
	assert.Equal(t, "report", baseStem("/up/report_20260830_153045_1a2b3c4d.pdf"))
	assert.Equal(t, "my_file", baseStem("/up/my_file_20260830_153045_1a2b3c4d.pdf"))
	assert.Equal(t, "plain", baseStem("plain.pdf"))
}
