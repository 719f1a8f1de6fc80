package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMeanConfidence(t *testing.T) {
	words := []Word{
		{Text: "hello", Confidence: 0.9},
		{Text: "world", Confidence: 0.7},
		{Text: "", Confidence: 0},
	}
	assert.InDelta(t, 0.8, MeanConfidence(words), 0.0001)

	assert.Equal(t, 0.0, MeanConfidence(nil))
	assert.Equal(t, 0.0, MeanConfidence([]Word{{Confidence: 0}}))
}

func TestJoinPages(t *testing.T) {
	assert.Equal(t, "one\n\ntwo", JoinPages([]string{"one\n", " two"}))
	assert.Equal(t, "solo", JoinPages([]string{"solo"}))
	assert.Equal(t, "", JoinPages(nil))
	assert.Equal(t, "\n\n", JoinPages([]string{" ", ""}))
}
