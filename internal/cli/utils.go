// Package cli provides output formatting and a small API client for the kotae CLI.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat validates a --format flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (supported: text, json)", s)
	}
}

// WriteAnswer writes a query response to w in the given format.
func WriteAnswer(w io.Writer, question string, resp *models.QueryResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintf(w, "\nQ: %s\n", question)
	fmt.Fprintf(w, "A: %s\n", resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Fprintf(w, "\nSources (%d, %dms):\n", len(resp.Sources), resp.QueryTime)
		for i, src := range resp.Sources {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "[%d] Score: %.4f | chunk %d, chars %d-%d\n", i+1, src.Score, src.Index, src.Offset, src.End)
			fmt.Fprintf(w, "%s\n", utils.Truncate(src.Excerpt, 200))
		}
	}
	fmt.Fprintln(w)
	return nil
}

// WriteIngest writes an ingestion response to w in the given format.
func WriteIngest(w io.Writer, resp *models.IngestResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, resp)
	}
	fmt.Fprintln(w, resp.Message)
	if resp.Title != "" {
		fmt.Fprintf(w, "Title: %s\n", resp.Title)
	}
	if resp.Chunks > 0 {
		fmt.Fprintf(w, "Chunks: %d\n", resp.Chunks)
	}
	if resp.SessionID != "" {
		fmt.Fprintf(w, "Session: %s\n", resp.SessionID)
	}
	return nil
}

// JoinArgs joins positional arguments into one string, ignoring blank ones.
func JoinArgs(args []string) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a = strings.TrimSpace(a); a != "" {
			parts = append(parts, a)
		}
	}
	return strings.Join(parts, " ")
}

// ReorderArgs moves a trailing run of flags in front of the positional
// arguments, so "kotae ask what is this -top-k 2" parses like flags-first.
func ReorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
