package pdfops

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePageSelection(t *testing.T) {
	pages, err := ParsePageSelection("all", 4)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, pages)

	pages, err = ParsePageSelection("", 3)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, pages)

	pages, err = ParsePageSelection("1,3,5", 5)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 3, 5}, pages)

	pages, err = ParsePageSelection("2-4", 10)
	assert.NoError(t, err)
	assert.Equal(t, []int{2, 3, 4}, pages)

	// Mixed ranges and singles, overlapping, unordered.
	pages, err = ParsePageSelection("5, 1-3, 2", 5)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 5}, pages)
}

func TestParsePageSelectionErrors(t *testing.T) {
	cases := []string{"0", "6", "3-2", "1-9", "x", "1-x", ",,"}
	for _, sel := range cases {
		_, err := ParsePageSelection(sel, 5)
		assert.Error(t, err, "selection %q", sel)
	}
}

func TestParsePageOrder(t *testing.T) {
	order, err := ParsePageOrder("3,1,2", 3)
	assert.NoError(t, err)
	assert.Equal(t, []int{3, 1, 2}, order)

	// Duplicates are legal when reordering.
	order, err = ParsePageOrder("1,1,2", 2)
	assert.NoError(t, err)
	assert.Equal(t, []int{1, 1, 2}, order)

	_, err = ParsePageOrder("4", 3)
	assert.Error(t, err)
	_, err = ParsePageOrder("", 3)
	assert.Error(t, err)
}

func TestPageStrings(t *testing.T) {
	assert.Equal(t, []string{"2", "10"}, PageStrings([]int{2, 10}))
}

func TestSplitRanges(t *testing.T) {
	ranges, err := SplitRanges("1-3,5-7", 10)
	assert.NoError(t, err)
	assert.Equal(t, [][2]int{{1, 3}, {5, 7}}, ranges)

	ranges, err = SplitRanges("4", 10)
	assert.NoError(t, err)
	assert.Equal(t, [][2]int{{4, 4}}, ranges)

	_, err = SplitRanges("3-1", 10)
	assert.Error(t, err)
	_, err = SplitRanges("1-11", 10)
	assert.Error(t, err)
	_, err = SplitRanges("", 10)
	assert.Error(t, err)
}
