package extract

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExtract_plain(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract([]byte("Hello world\nLine 2"), "text/plain; charset=utf-8", "https://example.com/a.txt")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Format != FormatPlain || got.Text != "Hello world\nLine 2" {
		t.Errorf("got %+v", got)
	}
}

func TestExtract_plainInvalidUTF8(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract([]byte("hello\x80world"), "text/plain", "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Text != "hello�world" {
		t.Errorf("got %q", got.Text)
	}
}

func TestExtract_plainStripsBOM(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract([]byte("\xEF\xBB\xBFnotes"), "text/plain", "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Text != "notes" {
		t.Errorf("Text = %q, want BOM removed", got.Text)
	}
}

func TestExtract_html(t *testing.T) {
	page := `<html><head><title> My Page </title><script>var x = 1;</script><style>p{}</style></head>
<body><nav>Menu</nav><article><h1>Heading</h1><p>First para.</p><p>Second <b>bold</b> para.</p></article>
<footer>Footer links</footer></body></html>`
	e := NewExtractor()
	got, err := e.Extract([]byte(page), "text/html; charset=utf-8", "https://example.com/article")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Title != "My Page" {
		t.Errorf("title = %q", got.Title)
	}
	for _, want := range []string{"Heading\n", "First para.\n", "Second bold para."} {
		if !strings.Contains(got.Text, want) {
			t.Errorf("text %q should contain %q", got.Text, want)
		}
	}
	for _, noise := range []string{"Menu", "var x", "Footer links", "p{}"} {
		if strings.Contains(got.Text, noise) {
			t.Errorf("text %q should not contain %q", got.Text, noise)
		}
	}
}

func TestExtract_htmlWithoutMainFallsBackToBody(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract([]byte(`<body><div>Only <i>body</i> text</div></body>`), "text/html", "")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(got.Text) != "Only body text" {
		t.Errorf("got %q", got.Text)
	}
}

func TestExtract_excel(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	f.SetCellValue("Sheet1", "A1", "Title")
	f.SetCellValue("Sheet1", "A2", "Value 1")
	f.SetCellValue("Sheet1", "B2", "Value 2")
	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	e := NewExtractor()
	got, err := e.Extract(buf.Bytes(), "application/octet-stream", "https://example.com/report.xlsx")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Format != FormatXLSX || got.Text != "Title\nValue 1\tValue 2" {
		t.Errorf("got %+v", got)
	}
}

func minimalDocx(paragraphs ...string) []byte {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	fw, _ := w.Create("word/document.xml")
	var body strings.Builder
	for _, p := range paragraphs {
		body.WriteString(`<w:p w:rsidR="00AB"><w:r><w:t xml:space="preserve">` + p + `</w:t></w:r></w:p>`)
	}
	_, _ = fw.Write([]byte(`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body.String() + `</w:body></w:document>`))
	_ = w.Close()
	return buf.Bytes()
}

func TestExtract_docx(t *testing.T) {
	e := NewExtractor()
	got, err := e.Extract(minimalDocx("First paragraph", "Second paragraph"),
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document", "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Text != "First paragraph\nSecond paragraph" {
		t.Errorf("got %q", got.Text)
	}
}

func TestExtract_docxContentTypesOverride(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	ct, _ := w.Create("[Content_Types].xml")
	_, _ = ct.Write([]byte(`<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Override ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml" PartName="/word/document3.xml"/>
</Types>`))
	fw, _ := w.Create("word/document3.xml")
	_, _ = fw.Write([]byte(`<w:document><w:body><w:p><w:r><w:t>Reversed order test</w:t></w:r></w:p></w:body></w:document>`))
	_ = w.Close()

	got, err := NewExtractor().Extract(buf.Bytes(), "", "https://example.com/file.docx")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got.Text != "Reversed order test" {
		t.Errorf("got %q", got.Text)
	}
}

func TestExtract_docxNotZip(t *testing.T) {
	_, err := NewExtractor().Extract([]byte("not a zip"), "", "https://example.com/file.docx")
	if err == nil {
		t.Error("expected error for invalid docx")
	}
}

func TestExtract_pdfInvalid(t *testing.T) {
	_, err := NewExtractor().Extract([]byte("%PDF-garbage"), "application/pdf", "")
	if err == nil {
		t.Error("expected error for invalid PDF")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		contentType string
		url         string
		want        Format
		wantErr     bool
	}{
		{"text/html; charset=utf-8", "", FormatHTML, false},
		{"application/xhtml+xml", "", FormatHTML, false},
		{"text/markdown", "", FormatPlain, false},
		{"application/json", "", FormatPlain, false},
		{"application/pdf", "", FormatPDF, false},
		{"", "https://example.com/paper.PDF", FormatPDF, false},
		{"", "https://example.com/", FormatHTML, false},
		{"application/octet-stream", "https://example.com/notes.txt", FormatPlain, false},
		{"image/png", "https://example.com/a.png", "", true},
		{"", "https://example.com/archive.tar.gz", "", true},
		{"not a media type;;", "", "", true},
	}
	for _, tt := range tests {
		got, err := DetectFormat(tt.contentType, tt.url)
		if (err != nil) != tt.wantErr {
			t.Errorf("DetectFormat(%q, %q) error = %v, wantErr %v", tt.contentType, tt.url, err, tt.wantErr)
			continue
		}
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupported) {
				t.Errorf("DetectFormat(%q, %q) error should wrap ErrUnsupported: %v", tt.contentType, tt.url, err)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("DetectFormat(%q, %q) = %q, want %q", tt.contentType, tt.url, got, tt.want)
		}
	}
}
