// Package loader reads source documents from a directory.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cloo-solutions/ragdocs/internal/domain"
	"github.com/ledongthuc/pdf"
)

// DirectoryLoader loads every file in Dir whose name matches Glob. The match
// is not recursive. PDFs are converted to plain text; everything else is
// read as UTF-8.
type DirectoryLoader struct {
	dir  string
	glob string
}

func NewDirectoryLoader(dir, glob string) *DirectoryLoader {
	if glob == "" {
		glob = "*.md"
	}
	return &DirectoryLoader{dir: dir, glob: glob}
}

// Load returns one Document per matching file, ordered by path. The source
// metadata is the file path joined onto the configured directory.
func (l *DirectoryLoader) Load(ctx context.Context) ([]domain.Document, error) {
	info, err := os.Stat(l.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open data directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("data path %s is not a directory", l.dir)
	}

	paths, err := filepath.Glob(filepath.Join(l.dir, l.glob))
	if err != nil {
		return nil, fmt.Errorf("invalid glob %q: %w", l.glob, err)
	}

	docs := make([]domain.Document, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fi, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		if fi.IsDir() {
			continue
		}

		content, err := readFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}

		docs = append(docs, domain.Document{
			Content:  content,
			Metadata: map[string]string{domain.MetadataSource: path},
		})
	}

	return docs, nil
}

func readFile(path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return readPDF(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func readPDF(path string) (string, error) {
	f, rdr, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	text, err := rdr.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, text); err != nil {
		return "", fmt.Errorf("failed to read pdf text: %w", err)
	}
	return buf.String(), nil
}
