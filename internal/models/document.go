// Package models defines core data structures for documents, chunks, and answers.
package models

import "time"

// Document is the plain-text content extracted from one source URL.
type Document struct {
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Content     string    `json:"content"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// Chunk is a bounded slice of a document's text, the unit of retrieval.
// Offset and End delimit the half-open rune range [Offset, End) in the source text.
type Chunk struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Index   int    `json:"index"`
	Offset  int    `json:"offset"`
	End     int    `json:"end"`
	Content string `json:"content"`
}

// Len returns the chunk length in runes.
func (c *Chunk) Len() int {
	return c.End - c.Offset
}
