package chunk

const (
	// StrategyWindow cuts fixed-size character windows that overlap by Overlap characters.
	StrategyWindow = "window"
	// StrategyRecursive splits on paragraph, line and word boundaries first.
	StrategyRecursive = "recursive"
)

// Settings configures chunking behavior. Size and Overlap count characters (runes).
type Settings struct {
	Strategy string
	Size     int
	Overlap  int
}

// Chunk is a contiguous slice of a document's text ready for embedding.
type Chunk struct {
	Index int
	Text  string
	Hash  string
}
