// Package export renders the final markdown document for consumers that
// want something other than raw markdown. The pipeline itself only ever
// produces markdown; anything beyond that is a rendering concern.
package export

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yuin/goldmark"
)

// HTML converts the formatted document to an HTML fragment.
func HTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("export: render html: %w", err)
	}
	return buf.String(), nil
}

// WriteMarkdown writes the document to dir, creating it as needed.
func WriteMarkdown(dir, name, markdown string) (string, error) {
	return writeFile(dir, name+".md", markdown)
}

// WriteHTML renders and writes the document to dir.
func WriteHTML(dir, name, markdown string) (string, error) {
	html, err := HTML(markdown)
	if err != nil {
		return "", err
	}
	return writeFile(dir, name+".html", html)
}

func writeFile(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("export: ensure %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("export: write %s: %w", path, err)
	}
	return path, nil
}
