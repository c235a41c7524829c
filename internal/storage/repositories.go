package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// AnalysisRepository handles analysis persistence.
type AnalysisRepository struct {
	db DB
}

// NewAnalysisRepository creates a new analysis repository.
func NewAnalysisRepository(db DB) *AnalysisRepository {
	return &AnalysisRepository{db: db}
}

// Create stores a new analysis record.
func (r *AnalysisRepository) Create(ctx context.Context, rec *AnalysisRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	rec.CreatedAt = rec.CreatedAt.UTC()

	var embedding []byte
	if len(rec.Embedding) > 0 {
		var err error
		embedding, err = json.Marshal(rec.Embedding)
		if err != nil {
			return fmt.Errorf("marshal embedding: %w", err)
		}
	}

	query := `
		INSERT INTO analyses (id, kind, source_name, content_sha256, result, markdown, embedding, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, string(rec.Kind), rec.SourceName, rec.ContentSHA256,
		string(rec.Result), rec.Markdown, nullString(embedding), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// GetByID retrieves an analysis by ID.
func (r *AnalysisRepository) GetByID(ctx context.Context, id string) (*AnalysisRecord, error) {
	query := `
		SELECT id, kind, source_name, content_sha256, result, markdown, embedding, created_at
		FROM analyses WHERE id = $1
	`
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

// List returns the most recent analyses, newest first.
func (r *AnalysisRepository) List(ctx context.Context, limit int) ([]*AnalysisRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, kind, source_name, content_sha256, result, markdown, embedding, created_at
		FROM analyses ORDER BY created_at DESC LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var records []*AnalysisRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row rowScanner) (*AnalysisRecord, error) {
	rec := &AnalysisRecord{}
	var (
		kind      string
		result    string
		markdown  sql.NullString
		embedding sql.NullString
	)
	err := row.Scan(&rec.ID, &kind, &rec.SourceName, &rec.ContentSHA256,
		&result, &markdown, &embedding, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}

	rec.Kind = domain.AnalysisKind(kind)
	rec.Result = json.RawMessage(result)
	rec.Markdown = markdown.String
	if embedding.Valid && embedding.String != "" {
		if err := json.Unmarshal([]byte(embedding.String), &rec.Embedding); err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", rec.ID, err)
		}
	}
	return rec, nil
}

func nullString(b []byte) sql.NullString {
	if len(b) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(b), Valid: true}
}
