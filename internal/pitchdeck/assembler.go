package pitchdeck

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/observability"
)

// ArtifactWriter persists the rendered results of one analysis.
type ArtifactWriter interface {
	WriteArtifacts(id string, analysisJSON []byte, markdown string) (*domain.Artifacts, error)
}

// Assembler renders, persists and embeds the final analysis.
type Assembler struct {
	gateway   domain.ModelGateway
	writer    ArtifactWriter
	embedding bool
	logger    *observability.Logger
}

// NewAssembler creates an assembler. A nil writer disables artifact files.
func NewAssembler(gateway domain.ModelGateway, writer ArtifactWriter, embedding bool, logger *observability.Logger) *Assembler {
	return &Assembler{gateway: gateway, writer: writer, embedding: embedding, logger: logger}
}

// Assemble fills the Markdown, Artifacts and embedding fields of result.
func (a *Assembler) Assemble(ctx context.Context, result *domain.AnalysisResult) error {
	analysisJSON, err := json.MarshalIndent(result.Analysis, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	result.Markdown = RenderMarkdown(result.Analysis)

	if a.writer != nil {
		artifacts, err := a.writer.WriteArtifacts(result.ID, analysisJSON, result.Markdown)
		if err != nil {
			return err
		}
		result.Artifacts = artifacts
		a.logger.Info().Str("dir", artifacts.Dir).Msg("Results written")
	}

	if a.embedding {
		vec, err := a.gateway.Embed(ctx, string(analysisJSON))
		if err != nil {
			return err
		}
		result.Embedding = vec
		result.EmbeddingDimension = len(vec)
	}

	return nil
}

// RenderMarkdown renders one second-level section per topic in order.
func RenderMarkdown(summaries domain.TopicSummaries) string {
	var b strings.Builder
	for _, s := range summaries {
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", TopicTitle(s.Topic), s.Summary)
	}
	return b.String()
}

// TopicTitle turns a topic key such as "Market_Size" into "Market Size".
func TopicTitle(topic string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(topic, "_", " "))
}
