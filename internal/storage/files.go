package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

const (
	ConsolidatedJSONFile = "Consolidated_result.json"
	MarkdownFile         = "analysis_results.md"
)

// ResultStore writes pitch-deck artifacts into one directory per analysis.
type ResultStore struct {
	root string
}

// NewResultStore creates a store rooted at dir.
func NewResultStore(dir string) *ResultStore {
	return &ResultStore{root: dir}
}

// Root returns the results root directory.
func (s *ResultStore) Root() string {
	return s.root
}

// WriteArtifacts writes the consolidated JSON and Markdown for one analysis
// into <root>/<id>/, creating the directory if needed.
func (s *ResultStore) WriteArtifacts(id string, analysisJSON []byte, markdown string) (*domain.Artifacts, error) {
	if strings.TrimSpace(id) == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, domain.ValidationError(fmt.Sprintf("invalid analysis id %q", id), nil)
	}

	dir := filepath.Join(s.root, id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, domain.IOError("create results directory", err)
	}

	artifacts := &domain.Artifacts{
		Dir:          dir,
		JSONPath:     filepath.Join(dir, ConsolidatedJSONFile),
		MarkdownPath: filepath.Join(dir, MarkdownFile),
	}

	if err := os.WriteFile(artifacts.JSONPath, analysisJSON, 0o644); err != nil {
		return nil, domain.IOError("write consolidated result", err)
	}
	if err := os.WriteFile(artifacts.MarkdownPath, []byte(markdown), 0o644); err != nil {
		return nil, domain.IOError("write markdown result", err)
	}

	return artifacts, nil
}
