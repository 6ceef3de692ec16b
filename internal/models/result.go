package models

import "time"

// Answer is generated text plus the chunks it was grounded on, in relevance order.
type Answer struct {
	Text    string   `json:"answer"`
	Context []*Chunk `json:"context,omitempty"`
}

// IngestResponse is returned after a successful ingestion.
type IngestResponse struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
	Title     string `json:"title,omitempty"`
	Chunks    int    `json:"chunks,omitempty"`
}

// Source is a chunk reference returned alongside an answer.
type Source struct {
	URL     string  `json:"url"`
	Index   int     `json:"index"`
	Offset  int     `json:"offset"`
	End     int     `json:"end"`
	Score   float64 `json:"score"`
	Excerpt string  `json:"excerpt"`
}

// QueryResponse is returned for a question. Sources is empty on the legacy endpoint.
type QueryResponse struct {
	Answer    string    `json:"answer"`
	SessionID string    `json:"session_id,omitempty"`
	Sources   []*Source `json:"sources,omitempty"`
	QueryTime int64     `json:"query_time_ms,omitempty"`
}

// SessionInfo describes a session's state.
type SessionInfo struct {
	ID       string    `json:"session_id"`
	Ready    bool      `json:"ready"`
	Source   string    `json:"source,omitempty"`
	Title    string    `json:"title,omitempty"`
	Chunks   int       `json:"chunks"`
	BuiltAt  time.Time `json:"built_at,omitempty"`
	LastUsed time.Time `json:"last_used"`
}

// Ingestion is one recorded ingestion attempt.
type Ingestion struct {
	ID          string    `json:"id"`
	SessionID   string    `json:"session_id"`
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Characters  int       `json:"characters"`
	Chunks      int       `json:"chunks"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	DurationMS  int64     `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

// Ingestion statuses.
const (
	IngestionSucceeded = "succeeded"
	IngestionFailed    = "failed"
)
