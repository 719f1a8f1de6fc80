// Package ocr wraps the Tesseract engine behind a small interface so handlers
// and tests do not depend on the CGo client directly.
package ocr

import (
	"context"
	"strings"
)

// Word is a single recognized token with its pixel-space bounding box
// (origin in the upper-left corner of the image).
type Word struct {
	Text       string  `json:"text"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Input is one image submitted for recognition.
type Input struct {
	Image     []byte
	Languages []string
	DPI       int
}

// Result is the recognition output for one input image.
type Result struct {
	Text       string  `json:"text"`
	Words      []Word  `json:"words,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Engine recognizes text in images.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
	Languages() ([]string, error)
}

// MeanConfidence averages the confidences of words that carry a positive
// score. Zero-confidence words are layout artifacts and are ignored.
func MeanConfidence(words []Word) float64 {
	var sum float64
	n := 0
	for _, w := range words {
		if w.Confidence > 0 {
			sum += w.Confidence
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// JoinPages concatenates per-page OCR text with page separators, the form the
// multi-page endpoints return.
func JoinPages(pages []string) string {
	var sb strings.Builder
	for i, p := range pages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(strings.TrimSpace(p))
	}
	return sb.String()
}
