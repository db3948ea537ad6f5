package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"
)

// Processor splits text into ordered chunks according to its settings.
type Processor struct {
	settings Settings
}

// NewProcessor validates settings. An empty strategy selects the window strategy.
func NewProcessor(settings Settings) (*Processor, error) {
	if settings.Strategy == "" {
		settings.Strategy = StrategyWindow
	}
	if settings.Strategy != StrategyWindow && settings.Strategy != StrategyRecursive {
		return nil, fmt.Errorf("chunk: unknown strategy %q", settings.Strategy)
	}
	if settings.Size <= 0 {
		return nil, errors.New("chunk: size must be greater than zero")
	}
	if settings.Overlap < 0 {
		return nil, errors.New("chunk: overlap cannot be negative")
	}
	if settings.Overlap >= settings.Size {
		return nil, fmt.Errorf("chunk: overlap %d must be smaller than size %d", settings.Overlap, settings.Size)
	}
	return &Processor{settings: settings}, nil
}

// Settings returns the effective settings.
func (p *Processor) Settings() Settings {
	return p.settings
}

// Split returns the chunks of text in document order. Blank text yields no chunks.
// The same input and settings always yield the same chunks.
func (p *Processor) Split(text string) ([]Chunk, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	var segments []string
	switch p.settings.Strategy {
	case StrategyRecursive:
		splitter := textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(p.settings.Size),
			textsplitter.WithChunkOverlap(p.settings.Overlap),
		)
		parts, err := splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("chunk: recursive split: %w", err)
		}
		for _, part := range parts {
			if strings.TrimSpace(part) != "" {
				segments = append(segments, part)
			}
		}
	default:
		segments = window([]rune(text), p.settings.Size, p.settings.Overlap)
	}
	chunks := make([]Chunk, len(segments))
	for i, s := range segments {
		chunks[i] = Chunk{Index: i, Text: s, Hash: hashText(s)}
	}
	return chunks, nil
}

// window cuts runes into windows of size advancing by size-overlap. The last
// window ends at the end of the text and may be shorter.
func window(runes []rune, size, overlap int) []string {
	n := len(runes)
	step := size - overlap
	out := make([]string, 0, n/step+1)
	for start := 0; start < n; start += step {
		end := min(start+size, n)
		out = append(out, string(runes[start:end]))
		if end == n {
			break
		}
	}
	return out
}

func hashText(input string) string {
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:16])
}
