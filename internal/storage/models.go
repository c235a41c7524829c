// Package storage persists analyses to SQL databases and result files.
package storage

import (
	"encoding/json"
	"time"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

// AnalysisRecord is one stored analysis.
type AnalysisRecord struct {
	ID            string                 `json:"id"`
	Kind          domain.AnalysisKind    `json:"kind"`
	SourceName    string                 `json:"source_name"`
	ContentSHA256 string                 `json:"content_sha256"`
	Result        json.RawMessage        `json:"result"`
	Markdown      string                 `json:"markdown,omitempty"`
	Embedding     domain.EmbeddingVector `json:"-"`
	CreatedAt     time.Time              `json:"created_at"`
}

// AnalysisSummary is the listing view of a stored analysis.
type AnalysisSummary struct {
	ID                 string              `json:"id"`
	Kind               domain.AnalysisKind `json:"kind"`
	SourceName         string              `json:"source_name"`
	HasMarkdown        bool                `json:"has_markdown"`
	EmbeddingDimension int                 `json:"embedding_dimension"`
	CreatedAt          time.Time           `json:"created_at"`
}

// Summary returns the listing view of r.
func (r *AnalysisRecord) Summary() AnalysisSummary {
	return AnalysisSummary{
		ID:                 r.ID,
		Kind:               r.Kind,
		SourceName:         r.SourceName,
		HasMarkdown:        r.Markdown != "",
		EmbeddingDimension: len(r.Embedding),
		CreatedAt:          r.CreatedAt,
	}
}
