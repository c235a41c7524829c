// Package analysis extracts structured startup insights from transcripts.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/llm"
	"github.com/spherical/pitch-analyzer/internal/observability"
)

const transcriptPrompt = `You are an expert AI analyst. Analyze the following transcript of a company.
Identify and extract the following information:
- Company / startup_name: The name of the startup.
- summary: key insights of the talk.
- founders: Information about the founders.
- problem_statement: The problem the startup is solving.
- solution: The solution they offer.
- funding: A dictionary with 'raised' and 'seeking' amounts.
- market: A dictionary with 'size' and 'traction' details.
- risks: Potential risks or challenges mentioned or implied.
- key_insights: Unique advantages or important takeaways from the pitch.

Respond with ONLY a valid JSON array of objects.
Do not include any explanatory text before or after the JSON.

Transcript:
---
%s
---`

// TranscriptAnalyzer implements domain.InsightAnalyzer with a single
// gateway call.
type TranscriptAnalyzer struct {
	gateway domain.ModelGateway
	logger  *observability.Logger
}

var _ domain.InsightAnalyzer = (*TranscriptAnalyzer)(nil)

// NewTranscriptAnalyzer creates a new analyzer.
func NewTranscriptAnalyzer(gateway domain.ModelGateway, logger *observability.Logger) *TranscriptAnalyzer {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &TranscriptAnalyzer{gateway: gateway, logger: logger.WithOperation("transcript_analysis")}
}

// Analyze returns the insights found in transcript.
func (a *TranscriptAnalyzer) Analyze(ctx context.Context, transcript string) ([]domain.Insight, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, domain.ValidationError("transcript cannot be empty", nil)
	}

	start := time.Now()
	reply, err := a.gateway.Generate(ctx, fmt.Sprintf(transcriptPrompt, transcript))
	if err != nil {
		return nil, err
	}

	insights, err := ParseInsights(reply)
	if err != nil {
		return nil, err
	}

	a.logger.WithContext(ctx).Info().
		Int("transcript_chars", len(transcript)).
		Int("insights", len(insights)).
		Dur("latency", time.Since(start)).
		Msg("Transcript analyzed")

	return insights, nil
}

// ParseInsights decodes a model reply into insights. A lone object is
// accepted as a one-element list.
func ParseInsights(reply string) ([]domain.Insight, error) {
	var raw json.RawMessage
	if err := llm.DecodeJSON(reply, &raw); err != nil {
		return nil, err
	}

	switch firstByte(raw) {
	case '[':
		var insights []domain.Insight
		if err := json.Unmarshal(raw, &insights); err != nil {
			return nil, domain.ResponseParseError("expected a JSON array of objects", err)
		}
		if insights == nil {
			insights = []domain.Insight{}
		}
		return insights, nil
	case '{':
		var insight domain.Insight
		if err := json.Unmarshal(raw, &insight); err != nil {
			return nil, domain.ResponseParseError("expected a JSON object", err)
		}
		return []domain.Insight{insight}, nil
	default:
		return nil, domain.ResponseParseError("expected a JSON array of objects", nil)
	}
}

func firstByte(raw json.RawMessage) byte {
	s := strings.TrimSpace(string(raw))
	if s == "" {
		return 0
	}
	return s[0]
}
