package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunkStrings(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}

	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, ChunkStrings(items, 2))
	assert.Equal(t, [][]string{{"a", "b", "c", "d", "e"}}, ChunkStrings(items, 50))
	assert.Nil(t, ChunkStrings(nil, 50))
}

func TestToPointer(t *testing.T) {
	p := ToPointer(0.15)
	if assert.NotNil(t, p) {
		assert.Equal(t, 0.15, *p)
	}
}
