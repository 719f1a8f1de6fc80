package convert

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitColumns(t *testing.T) {
	assert.Equal(t, []string{"Name", "Qty", "Price"}, SplitColumns("Name   Qty   Price"))
	assert.Equal(t, []string{"a", "b"}, SplitColumns("a\tb"))
	assert.Equal(t, []string{"one two", "three"}, SplitColumns("one two    three"))
	assert.Equal(t, []string{"x"}, SplitColumns("   x   "))
	assert.Empty(t, SplitColumns(""))
	assert.Empty(t, SplitColumns("    "))
}
