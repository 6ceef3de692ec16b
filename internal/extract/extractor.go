// Package extract turns fetched response bodies into readable plain text.
package extract

import (
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
)

// ErrUnsupported is returned for content types that carry no extractable text.
var ErrUnsupported = errors.New("unsupported content type")

// Format is a recognised document format.
type Format string

const (
	FormatHTML  Format = "html"
	FormatPlain Format = "plain"
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
	FormatXLSX  Format = "xlsx"
)

// Result is the text extracted from one document.
type Result struct {
	Format Format
	Title  string
	Text   string
}

// Extractor extracts plain text from fetched documents.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract detects the format from contentType (falling back to the extension of
// sourceURL's path) and returns the document's text. HTML is stripped to readable
// text with script, style and navigation removed.
func (e *Extractor) Extract(content []byte, contentType, sourceURL string) (*Result, error) {
	format, err := DetectFormat(contentType, sourceURL)
	if err != nil {
		return nil, err
	}
	res := &Result{Format: format}
	switch format {
	case FormatHTML:
		res.Title, res.Text, err = extractHTML(content)
	case FormatPDF:
		res.Text, err = extractPDF(content)
	case FormatDOCX:
		res.Text, err = extractDOCX(content)
	case FormatXLSX:
		res.Text, err = extractExcel(content)
	default:
		res.Text, err = extractPlain(content)
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// DetectFormat maps a Content-Type header (and, when it is missing or generic,
// the URL's extension) to a Format.
func DetectFormat(contentType, sourceURL string) (Format, error) {
	mediaType := ""
	if contentType != "" {
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return "", fmt.Errorf("%w: %q", ErrUnsupported, contentType)
		}
		mediaType = mt
	}
	switch {
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		return FormatHTML, nil
	case mediaType == "application/pdf":
		return FormatPDF, nil
	case mediaType == "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return FormatDOCX, nil
	case mediaType == "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return FormatXLSX, nil
	case strings.HasPrefix(mediaType, "text/"), mediaType == "application/json", mediaType == "application/xml":
		return FormatPlain, nil
	case mediaType == "", mediaType == "application/octet-stream":
		return formatFromURL(sourceURL)
	}
	return "", fmt.Errorf("%w: %s", ErrUnsupported, mediaType)
}

func formatFromURL(sourceURL string) (Format, error) {
	u, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("%w: cannot parse %q", ErrUnsupported, sourceURL)
	}
	switch strings.ToLower(path.Ext(u.Path)) {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".txt", ".md", ".rst", ".csv":
		return FormatPlain, nil
	case ".html", ".htm", "":
		return FormatHTML, nil
	}
	return "", fmt.Errorf("%w: unknown extension in %s", ErrUnsupported, u.Path)
}
