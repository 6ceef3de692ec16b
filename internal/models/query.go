package models

import (
	"strings"

	"github.com/hyperjump/kotae/internal/ragerr"
)

// MaxTopK caps the number of chunks a caller may ask to retrieve.
const MaxTopK = 50

// IngestRequest is the body of an ingestion request.
type IngestRequest struct {
	URL string `json:"url"`
}

// Validate trims the URL and rejects an empty one.
func (r *IngestRequest) Validate() error {
	r.URL = strings.TrimSpace(r.URL)
	if r.URL == "" {
		return ragerr.New(ragerr.KindInvalidInput, "ingest", "url cannot be empty")
	}
	return nil
}

// QueryRequest is the body of a question. TopK zero means the configured default.
type QueryRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

// Validate trims the question, rejects an empty one, and caps TopK.
func (r *QueryRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return ragerr.New(ragerr.KindInvalidInput, "query", "query cannot be empty")
	}
	if r.TopK < 0 {
		r.TopK = 0
	}
	if r.TopK > MaxTopK {
		r.TopK = MaxTopK
	}
	return nil
}
