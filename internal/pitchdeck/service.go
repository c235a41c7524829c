// Package pitchdeck implements the two-stage pitch-deck pipeline: a table of
// contents over all rendered pages, then one summary per topic.
package pitchdeck

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/observability"
)

// Options configures the pipeline.
type Options struct {
	MaxConcurrency   int
	EmbeddingEnabled bool
}

// Request identifies one deck to analyze.
type Request struct {
	ID         string // generated when empty
	SourceName string
	Path       string
}

// Service orchestrates the pitch-deck analysis process.
type Service struct {
	rasterizer  domain.Rasterizer
	toc         *TOCExtractor
	synthesizer *Synthesizer
	assembler   *Assembler
	logger      *observability.Logger
}

// NewService creates a new pitch-deck service.
func NewService(rasterizer domain.Rasterizer, gateway domain.ModelGateway, writer ArtifactWriter, opts Options, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	logger = logger.WithOperation("pitch_deck")
	return &Service{
		rasterizer:  rasterizer,
		toc:         NewTOCExtractor(gateway, logger),
		synthesizer: NewSynthesizer(gateway, opts.MaxConcurrency, logger),
		assembler:   NewAssembler(gateway, writer, opts.EmbeddingEnabled, logger),
		logger:      logger,
	}
}

// Analyze runs the full pipeline for one deck. Progress is reported on
// events when it is non-nil; sends never block.
func (s *Service) Analyze(ctx context.Context, req Request, events chan<- domain.StreamEvent) (*domain.AnalysisResult, error) {
	startTime := time.Now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.SourceName == "" {
		req.SourceName = req.Path
	}
	logger := s.logger.WithContext(ctx).WithAnalysis(req.ID)

	s.emitEvent(events, domain.StreamEvent{
		Type:      domain.EventStart,
		Payload:   fmt.Sprintf("Starting analysis of %s", req.SourceName),
		Timestamp: time.Now(),
	})

	logger.Info().Str("source", req.SourceName).Msg("Rendering pitch deck")
	pages, err := s.rasterizer.Rasterize(ctx, req.Path)
	if err != nil {
		s.emitError(events, err)
		return nil, err
	}
	s.emitEvent(events, domain.StreamEvent{
		Type:      domain.EventPagesRendered,
		Total:     len(pages),
		Timestamp: time.Now(),
	})

	toc, err := s.toc.Extract(ctx, pages)
	if err != nil {
		s.emitError(events, err)
		return nil, err
	}
	s.logger.Debug().Strs("topics", toc.Topics()).Msg("Table of contents extracted")
	s.emitEvent(events, domain.StreamEvent{
		Type:      domain.EventTOCExtracted,
		Total:     toc.Len(),
		Payload:   toc,
		Timestamp: time.Now(),
	})

	synthesis, err := s.synthesizer.Synthesize(ctx, toc, pages, func(ev domain.StreamEvent) {
		s.emitEvent(events, ev)
	})
	if err != nil {
		s.emitError(events, err)
		return nil, err
	}

	result := &domain.AnalysisResult{
		ID:            req.ID,
		SourceName:    req.SourceName,
		PageCount:     len(pages),
		TOC:           toc,
		Analysis:      synthesis.Summaries,
		SkippedTopics: synthesis.Skipped,
		FailedTopics:  synthesis.Failed,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.assembler.Assemble(ctx, result); err != nil {
		s.emitError(events, err)
		return nil, err
	}
	if result.Artifacts != nil {
		s.emitEvent(events, domain.StreamEvent{
			Type:      domain.EventResultsWritten,
			Payload:   result.Artifacts,
			Timestamp: time.Now(),
		})
	}

	duration := time.Since(startTime)
	s.emitEvent(events, domain.StreamEvent{
		Type: domain.EventComplete,
		Payload: fmt.Sprintf("Analysis complete: %d/%d topics in %v",
			len(result.Analysis), toc.Len(), duration.Round(time.Millisecond)),
		Timestamp: time.Now(),
	})

	logger.Info().
		Int("pages", len(pages)).
		Int("topics", len(result.Analysis)).
		Int("skipped", len(result.SkippedTopics)).
		Int("failed", len(result.FailedTopics)).
		Dur("duration", duration).
		Msg("Pitch deck analysis complete")

	return result, nil
}

// emitEvent safely emits an event to the channel
func (s *Service) emitEvent(events chan<- domain.StreamEvent, event domain.StreamEvent) {
	if events == nil {
		return
	}
	select {
	case events <- event:
	default:
		s.logger.Warn().Str("event", string(event.Type)).Msg("Event channel full, dropping event")
	}
}

// emitError emits an error event
func (s *Service) emitError(events chan<- domain.StreamEvent, err error) {
	s.emitEvent(events, domain.StreamEvent{
		Type:      domain.EventError,
		Payload:   err.Error(),
		Timestamp: time.Now(),
	})
}
