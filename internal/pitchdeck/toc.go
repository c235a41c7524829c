package pitchdeck

import (
	"context"
	"time"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/llm"
	"github.com/spherical/pitch-analyzer/internal/observability"
)

// TOCExtractor asks the model which pages cover which topics.
type TOCExtractor struct {
	gateway domain.ModelGateway
	logger  *observability.Logger
}

// NewTOCExtractor creates a new extractor.
func NewTOCExtractor(gateway domain.ModelGateway, logger *observability.Logger) *TOCExtractor {
	return &TOCExtractor{gateway: gateway, logger: logger}
}

// Extract sends every page in one request and decodes the ordered
// topic-to-pages mapping from the reply.
func (e *TOCExtractor) Extract(ctx context.Context, pages []domain.PageImage) (domain.TableOfContents, error) {
	blobs := make([]domain.Blob, len(pages))
	for i, p := range pages {
		blobs[i] = p.Blob()
	}

	start := time.Now()
	reply, err := e.gateway.Generate(ctx, tocPrompt, blobs...)
	if err != nil {
		return domain.TableOfContents{}, err
	}

	var toc domain.TableOfContents
	if err := llm.DecodeJSON(reply, &toc); err != nil {
		e.logger.Error().Err(err).Str("reply", truncate(reply, 200)).Msg("Unparseable table of contents")
		return domain.TableOfContents{}, err
	}

	e.logger.Info().
		Int("topics", toc.Len()).
		Dur("latency", time.Since(start)).
		Msg("Table of contents extracted")

	return toc, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
