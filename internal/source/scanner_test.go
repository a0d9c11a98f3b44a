package source

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	files := []string{"b.png", "a.jpg", "c.webp", "d.jpeg", "notes.txt", "data.json"}
	for _, name := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	pages, err := ScanDir(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantNames := []string{"a.jpg", "b.png", "c.webp", "d.jpeg"}
	wantFormats := []string{"jpg", "png", "webp", "jpg"}
	if len(pages) != len(wantNames) {
		t.Fatalf("expected %d pages, got %d", len(wantNames), len(pages))
	}
	for i, page := range pages {
		if page.Name != wantNames[i] {
			t.Errorf("position %d: expected %s, got %s", i, wantNames[i], page.Name)
		}
		if page.Format != wantFormats[i] {
			t.Errorf("%s: expected format %s, got %s", page.Name, wantFormats[i], page.Format)
		}
	}
}

func TestScanDir_Missing(t *testing.T) {
	if _, err := ScanDir("/does/not/exist"); err == nil {
		t.Error("expected error for a missing directory")
	}
}

func TestPage_Read(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.png")
	if err := os.WriteFile(path, []byte("image bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	page := Page{Name: "page.png", Path: path, Format: "png"}
	data, err := page.Read()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "image bytes" {
		t.Errorf("unexpected page contents: %q", data)
	}
}
