package chunker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitNoPunctuation(t *testing.T) {
	c := NewSentenceChunker(3, 1)
	chunks := c.Split("just a fragment without an ending")
	require.Len(t, chunks, 1)
	assert.Equal(t, "just a fragment without an ending", chunks[0])
}

func TestSplitEmpty(t *testing.T) {
	c := NewSentenceChunker(3, 1)
	assert.Nil(t, c.Split(""))
	assert.Nil(t, c.Split("   "))
}

func TestSplitWithOverlap(t *testing.T) {
	c := NewSentenceChunker(2, 1)
	chunks := c.Split("One. Two. Three. Four.")
	require.Len(t, chunks, 3)
	assert.Equal(t, "One. Two.", chunks[0])
	assert.Equal(t, "Two. Three.", chunks[1])
	assert.Equal(t, "Three. Four.", chunks[2])
}

func TestSplitShortText(t *testing.T) {
	c := NewSentenceChunker(5, 1)
	chunks := c.Split("Only one sentence here.")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Only one sentence here.", chunks[0])
}

func TestNewClampsOverlap(t *testing.T) {
	c := NewSentenceChunker(2, 5)
	// Overlap is clamped below the chunk size, so splitting terminates.
	chunks := c.Split("A. B. C. D. E. F.")
	assert.NotEmpty(t, chunks)
}
