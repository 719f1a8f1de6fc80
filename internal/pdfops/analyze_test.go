package pdfops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name              string
		textLen, images   int
		pageCount         int
		sampled           int
		scanned, complex  bool
		hasText, manyImgs bool
		recommended       string
	}{
		{name: "text document", textLen: 5000, images: 0, pageCount: 10, sampled: 10, hasText: true, recommended: "text"},
		{name: "scanned document", textLen: 0, images: 10, pageCount: 10, sampled: 10, scanned: true, manyImgs: true, recommended: "ocr"},
		{name: "mixed layout", textLen: 5000, images: 12, pageCount: 10, sampled: 10, hasText: true, manyImgs: true, complex: true, recommended: "hybrid"},
		{name: "empty document", textLen: 0, images: 0, pageCount: 10, sampled: 10, recommended: "image"},
		{name: "short text counts as scanned", textLen: 80, images: 3, pageCount: 10, sampled: 10, scanned: true, recommended: "ocr"},
		// image-heavy opening in a long document must not force hybrid
		{name: "long text with image-heavy opening", textLen: 5000, images: 12, pageCount: 50, sampled: 10, hasText: true, recommended: "text"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := Analysis{TextLength: tc.textLen, ImageCount: tc.images, PageCount: tc.pageCount, SampledPages: tc.sampled}
			classify(&a)
			assert.Equal(t, tc.hasText, a.HasText)
			assert.Equal(t, tc.manyImgs, a.HasManyImages)
			assert.Equal(t, tc.scanned, a.IsScanned)
			assert.Equal(t, tc.complex, a.IsComplex)
			assert.Equal(t, tc.recommended, a.Recommended)
		})
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	a := Analyze("/nonexistent/file.pdf")
	assert.Equal(t, "image", a.Recommended)
	assert.Equal(t, 0, a.PageCount)
}
