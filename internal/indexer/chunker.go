package indexer

import (
	"fmt"
	"unicode"

	"github.com/hyperjump/kotae/internal/models"
)

// Chunker splits text into overlapping character windows.
//
// Every window starts exactly maxLength-overlap runes after the previous one. A
// window that does not reach the end of the text is shortened to the last
// sentence end, or failing that the last whitespace, inside its trailing overlap
// region (never before the previous chunk's end), so chunks never exceed
// maxLength and consecutive chunks always touch or overlap.
type Chunker struct {
	maxLength int
	overlap   int
}

// NewChunker creates a chunker. maxLength must be positive and overlap in [0, maxLength).
func NewChunker(maxLength, overlap int) (*Chunker, error) {
	if maxLength <= 0 {
		return nil, fmt.Errorf("chunk max length must be positive, got %d", maxLength)
	}
	if overlap < 0 || overlap >= maxLength {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", maxLength, overlap)
	}
	return &Chunker{maxLength: maxLength, overlap: overlap}, nil
}

// MaxLength returns the maximum chunk length in runes.
func (c *Chunker) MaxLength() int { return c.maxLength }

// Overlap returns the configured overlap in runes.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits doc.Content. An empty document yields no chunks.
func (c *Chunker) Chunk(doc *models.Document) []*models.Chunk {
	return c.ChunkText(doc.URL, doc.Content)
}

// ChunkText splits text from source. The result depends only on its inputs.
func (c *Chunker) ChunkText(source, text string) []*models.Chunk {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}
	step := c.maxLength - c.overlap
	chunks := make([]*models.Chunk, 0, n/step+1)
	prevEnd := 0
	for start := 0; ; start += step {
		end := start + c.maxLength
		last := end >= n
		if last {
			end = n
		} else {
			// Ends never move backwards, so each chunk adds new text.
			lo := start + step
			if prevEnd > lo {
				lo = prevEnd
			}
			end = breakPoint(runes, lo, end)
		}
		prevEnd = end
		chunks = append(chunks, &models.Chunk{
			ID:      ChunkID(source, len(chunks)),
			Source:  source,
			Index:   len(chunks),
			Offset:  start,
			End:     end,
			Content: string(runes[start:end]),
		})
		if last {
			break
		}
	}
	return chunks
}

// breakPoint returns the preferred chunk end in [lo, hi]: just after the last
// sentence terminator followed by whitespace, else at the last whitespace, else hi.
func breakPoint(runes []rune, lo, hi int) int {
	space := -1
	for i := hi; i > lo; i-- {
		if !unicode.IsSpace(runes[i]) {
			continue
		}
		if isSentenceEnd(runes[i-1]) {
			return i
		}
		if space < 0 {
			space = i
		}
	}
	if space >= 0 {
		return space
	}
	return hi
}

func isSentenceEnd(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '。'
}

// ChunkID returns the stable ID of the index-th chunk of source.
func ChunkID(source string, index int) string {
	return fmt.Sprintf("%s#%d", source, index)
}
