package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentIDIsStable(t *testing.T) {
	a := DocumentID("https://example.com/a.txt")
	b := DocumentID("https://example.com/a.txt")
	c := DocumentID("https://example.com/b.txt")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestChunkIDIsStablePerPosition(t *testing.T) {
	doc := DocumentID("https://example.com/a.txt")

	assert.Equal(t, ChunkID(doc, 0), ChunkID(doc, 0))
	assert.NotEqual(t, ChunkID(doc, 0), ChunkID(doc, 1))

	other := DocumentID("https://example.com/b.txt")
	assert.NotEqual(t, ChunkID(doc, 0), ChunkID(other, 0))
}
