package e2e

import (
	"strings"
	"testing"

	"github.com/hyperjump/kotae/internal/extract"
)

func TestWriteMinimalFile_allFormatsExtractable(t *testing.T) {
	e := extract.NewExtractor()
	sample := "Kotae extracts this sentence."
	for _, f := range SupportedFormats {
		t.Run(f.Ext, func(t *testing.T) {
			content, err := WriteMinimalFile(f.Ext, sample)
			if err != nil {
				t.Fatalf("WriteMinimalFile: %v", err)
			}
			res, err := e.Extract(content, f.ContentType, "https://files.example/sample"+f.Ext)
			if err != nil {
				t.Fatalf("Extract: %v", err)
			}
			if !strings.Contains(res.Text, sample) {
				t.Errorf("extracted text %q does not contain %q", res.Text, sample)
			}
		})
	}
}

func TestWriteMinimalFile_unknownExtension(t *testing.T) {
	if _, err := WriteMinimalFile(".pptx", "x"); err == nil {
		t.Error("expected an error for an unsupported extension")
	}
}
