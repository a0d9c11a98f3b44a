// Package source discovers scanned exam pages on the local filesystem and
// hands them to the curation pipeline.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Page is one scanned exam page found in the source directory.
type Page struct {
	Name   string // file name, used as the page identifier in logs and reports
	Path   string // absolute or scan-relative path
	Format string // normalized extension: jpg, png, gif, webp
}

// Read returns the raw page bytes.
func (p *Page) Read() ([]byte, error) {
	return os.ReadFile(p.Path)
}

// supportedFormats maps accepted file extensions to their normalized form.
var supportedFormats = map[string]string{
	".jpg":  "jpg",
	".jpeg": "jpg",
	".png":  "png",
	".gif":  "gif",
	".webp": "webp",
}

// ScanDir lists the image files directly under dir, sorted by name so runs
// over the same directory process pages in a stable order. Non-image files
// and subdirectories are ignored.
// Parameters:
//   - dir: directory to scan.
//
// Returns:
//   - []Page: discovered pages sorted by file name.
//   - error: non-nil if the directory cannot be read.
func ScanDir(dir string) ([]Page, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory %s: %w", dir, err)
	}

	var pages []Page
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		format, ok := supportedFormats[ext]
		if !ok {
			continue
		}
		pages = append(pages, Page{
			Name:   entry.Name(),
			Path:   filepath.Join(dir, entry.Name()),
			Format: format,
		})
	}

	sort.Slice(pages, func(i, j int) bool { return pages[i].Name < pages[j].Name })
	return pages, nil
}
