package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessor(t *testing.T) {
	t.Run("Should default to the window strategy", func(t *testing.T) {
		p, err := NewProcessor(Settings{Size: 300, Overlap: 30})
		require.NoError(t, err)
		assert.Equal(t, StrategyWindow, p.Settings().Strategy)
	})

	t.Run("Should reject invalid settings", func(t *testing.T) {
		cases := []Settings{
			{Size: 0},
			{Size: 10, Overlap: -1},
			{Size: 10, Overlap: 10},
			{Size: 10, Overlap: 1, Strategy: "semantic"},
		}
		for _, s := range cases {
			_, err := NewProcessor(s)
			assert.Error(t, err, "settings %+v", s)
		}
	})
}

func TestProcessor_WindowSplit(t *testing.T) {
	p, err := NewProcessor(Settings{Strategy: StrategyWindow, Size: 300, Overlap: 30})
	require.NoError(t, err)

	t.Run("Should split 310 characters into two overlapping chunks", func(t *testing.T) {
		text := strings.Repeat("a", 200) + strings.Repeat("b", 110)
		chunks, err := p.Split(text)
		require.NoError(t, err)
		require.Len(t, chunks, 2)
		assert.Equal(t, 0, chunks[0].Index)
		assert.Equal(t, 1, chunks[1].Index)
		assert.Len(t, []rune(chunks[0].Text), 300)
		assert.Len(t, []rune(chunks[1].Text), 40)
		assert.Equal(t, text[270:300], chunks[1].Text[:30])
		assert.Equal(t, chunks[0].Text[270:], chunks[1].Text[:30])
	})

	t.Run("Should return a single chunk for short text", func(t *testing.T) {
		chunks, err := p.Split("short document")
		require.NoError(t, err)
		require.Len(t, chunks, 1)
		assert.Equal(t, "short document", chunks[0].Text)
	})

	t.Run("Should return a single chunk when text equals size", func(t *testing.T) {
		chunks, err := p.Split(strings.Repeat("x", 300))
		require.NoError(t, err)
		assert.Len(t, chunks, 1)
	})

	t.Run("Should return no chunks for blank text", func(t *testing.T) {
		chunks, err := p.Split(" \n\t ")
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Should be deterministic", func(t *testing.T) {
		text := strings.Repeat("lorem ipsum dolor sit amet ", 50)
		first, err := p.Split(text)
		require.NoError(t, err)
		second, err := p.Split(text)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("Should count characters not bytes", func(t *testing.T) {
		small, err := NewProcessor(Settings{Size: 4, Overlap: 1})
		require.NoError(t, err)
		chunks, err := small.Split("héllo wörld")
		require.NoError(t, err)
		assert.Equal(t, "héll", chunks[0].Text)
		assert.Equal(t, "lo w", chunks[1].Text)
	})
}

func TestProcessor_RecursiveSplit(t *testing.T) {
	t.Run("Should keep chunks within size and in order", func(t *testing.T) {
		p, err := NewProcessor(Settings{Strategy: StrategyRecursive, Size: 40, Overlap: 5})
		require.NoError(t, err)
		text := "First paragraph talks about cats.\n\nSecond paragraph talks about dogs.\n\nThird one is about birds."
		chunks, err := p.Split(text)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)
		for i, c := range chunks {
			assert.Equal(t, i, c.Index)
			assert.LessOrEqual(t, len([]rune(c.Text)), 40)
			assert.Equal(t, hashText(c.Text), c.Hash)
		}
		assert.Contains(t, chunks[0].Text, "cats")
		assert.Contains(t, chunks[len(chunks)-1].Text, "birds")
	})
}
