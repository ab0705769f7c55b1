package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestExtractPlainText(t *testing.T) {
	path := writeTemp(t, "doc.txt", "  hello\t world \n second  line ")
	got, err := NewExtractor().Extract(path, "txt")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "hello world second line" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractUnsupportedTypeYieldsEmpty(t *testing.T) {
	path := writeTemp(t, "image.png", "\x89PNG")
	got, err := NewExtractor().Extract(path, "png")
	if err != nil {
		t.Fatalf("unsupported type should not error, got %v", err)
	}
	if got != "" {
		t.Fatalf("expected empty text, got %q", got)
	}
}

func TestExtractInfersTypeFromPath(t *testing.T) {
	path := writeTemp(t, "notes.md", "# title body")
	got, err := NewExtractor().Extract(path, "")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "# title body" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractHTMLSkipsScripts(t *testing.T) {
	path := writeTemp(t, "page.html",
		`<html><head><script>var x = 1;</script></head><body><p>visible text</p></body></html>`)
	got, err := NewExtractor().Extract(path, "html")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "visible text" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractDOCX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx: %v", err)
	}
	w := zip.NewWriter(f)
	part, err := w.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create zip part: %v", err)
	}
	docXML := `<?xml version="1.0"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>first paragraph</w:t></w:r></w:p>
    <w:p><w:r><w:t>second paragraph</w:t></w:r></w:p>
  </w:body>
</w:document>`
	if _, err := part.Write([]byte(docXML)); err != nil {
		t.Fatalf("write zip part: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	got, err := NewExtractor().Extract(path, "docx")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "first paragraph second paragraph" {
		t.Fatalf("Extract = %q", got)
	}
}

func TestExtractCorruptPDFSurfacesError(t *testing.T) {
	path := writeTemp(t, "broken.pdf", "not a pdf at all")
	if _, err := NewExtractor().Extract(path, "pdf"); err == nil {
		t.Fatalf("expected error for corrupt pdf")
	}
}

func TestOCRFailureYieldsEmpty(t *testing.T) {
	ocr, err := NewOCR("definitely-not-a-real-command-xyz", 2*time.Second)
	if err != nil {
		t.Fatalf("NewOCR: %v", err)
	}
	if got := ocr.ExtractText(context.Background(), "/tmp/whatever.pdf"); got != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestOCRRunsCommandWithPlaceholder(t *testing.T) {
	path := writeTemp(t, "scan.pdf", "ignored")
	ocr, err := NewOCR("cat {input}", 5*time.Second)
	if err != nil {
		t.Fatalf("NewOCR: %v", err)
	}
	if got := ocr.ExtractText(context.Background(), path); got != "ignored" {
		t.Fatalf("ExtractText = %q", got)
	}
}
