package models

import (
	"errors"
	"testing"

	"github.com/hyperjump/kotae/internal/ragerr"
)

func TestQueryRequest_Validate(t *testing.T) {
	tests := []struct {
		name     string
		req      *QueryRequest
		wantErr  bool
		wantTopK int
	}{
		{"empty query", &QueryRequest{Query: ""}, true, 0},
		{"whitespace query", &QueryRequest{Query: "  \n "}, true, 0},
		{"valid query", &QueryRequest{Query: " What is this page about? "}, false, 0},
		{"negative top_k reset", &QueryRequest{Query: "x", TopK: -3}, false, 0},
		{"caps top_k", &QueryRequest{Query: "x", TopK: 500}, false, MaxTopK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !errors.Is(err, ragerr.ErrInvalidInput) {
					t.Errorf("expected invalid input kind, got %v", err)
				}
				return
			}
			if tt.req.TopK != tt.wantTopK {
				t.Errorf("TopK = %d, want %d", tt.req.TopK, tt.wantTopK)
			}
		})
	}
	req := &QueryRequest{Query: " hi "}
	_ = req.Validate()
	if req.Query != "hi" {
		t.Errorf("query not trimmed: %q", req.Query)
	}
}

func TestIngestRequest_Validate(t *testing.T) {
	if err := (&IngestRequest{URL: " "}).Validate(); !errors.Is(err, ragerr.ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
	req := &IngestRequest{URL: " https://example.com/article "}
	if err := req.Validate(); err != nil {
		t.Fatal(err)
	}
	if req.URL != "https://example.com/article" {
		t.Errorf("URL not trimmed: %q", req.URL)
	}
}
