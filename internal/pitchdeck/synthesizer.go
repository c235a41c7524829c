package pitchdeck

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/observability"
)

const topicFailedMessage = "topic synthesis failed"

// Synthesis is the outcome of summarizing every topic in a TOC.
type Synthesis struct {
	Summaries domain.TopicSummaries
	Skipped   []string
	Failed    []domain.TopicFailure
}

// Synthesizer summarizes each topic from its pages.
type Synthesizer struct {
	gateway     domain.ModelGateway
	concurrency int
	logger      *observability.Logger
}

// NewSynthesizer creates a synthesizer running at most concurrency topic
// requests at once.
func NewSynthesizer(gateway domain.ModelGateway, concurrency int, logger *observability.Logger) *Synthesizer {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Synthesizer{gateway: gateway, concurrency: concurrency, logger: logger}
}

// Synthesize requests one summary per topic. Topics without valid pages are
// skipped; failed topics are reported but only fail the whole run when
// every attempted topic failed. Output follows TOC order.
func (s *Synthesizer) Synthesize(ctx context.Context, toc domain.TableOfContents, pages []domain.PageImage, emit func(domain.StreamEvent)) (*Synthesis, error) {
	if emit == nil {
		emit = func(domain.StreamEvent) {}
	}

	n := len(toc.Entries)
	summaries := make([]string, n)
	failures := make([]error, n)
	attempted := make([]bool, n)

	result := &Synthesis{Summaries: domain.TopicSummaries{}, Skipped: []string{}, Failed: []domain.TopicFailure{}}

	var (
		mu    sync.Mutex
		done  int
		total int
	)
	for _, entry := range toc.Entries {
		if len(entry.ValidPages(len(pages))) > 0 {
			total++
		}
	}
	report := func(ev domain.StreamEvent) {
		mu.Lock()
		defer mu.Unlock()
		done++
		ev.Done = done
		ev.Total = total
		ev.Timestamp = time.Now()
		emit(ev)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, entry := range toc.Entries {
		valid := entry.ValidPages(len(pages))
		if len(valid) == 0 {
			s.logger.Debug().Str("topic", entry.Topic).Ints("pages", entry.Pages).Msg("Skipping topic with no valid pages")
			result.Skipped = append(result.Skipped, entry.Topic)
			emit(domain.StreamEvent{Type: domain.EventTopicSkipped, Topic: entry.Topic, Timestamp: time.Now()})
			continue
		}
		attempted[i] = true

		blobs := make([]domain.Blob, len(valid))
		for j, p := range valid {
			blobs[j] = pages[p-1].Blob()
		}

		topic := entry.Topic
		g.Go(func() error {
			start := time.Now()
			text, err := s.gateway.Generate(gctx, topicPrompt(topic), blobs...)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				failures[i] = err
				s.logger.Warn().Err(err).Str("topic", topic).Msg("Topic synthesis failed")
				report(domain.StreamEvent{Type: domain.EventTopicFailed, Topic: topic, Payload: domain.MessageOf(err, topicFailedMessage)})
				return nil
			}

			summaries[i] = strings.TrimSpace(text)
			s.logger.Debug().
				Str("topic", topic).
				Int("pages", len(blobs)).
				Dur("latency", time.Since(start)).
				Msg("Topic synthesized")
			report(domain.StreamEvent{Type: domain.EventTopicComplete, Topic: topic})
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var count int
	var firstErr error
	for i, entry := range toc.Entries {
		if !attempted[i] {
			continue
		}
		count++
		if failures[i] != nil {
			if firstErr == nil {
				firstErr = failures[i]
			}
			result.Failed = append(result.Failed, domain.TopicFailure{Topic: entry.Topic, Error: domain.MessageOf(failures[i], topicFailedMessage)})
			continue
		}
		result.Summaries = append(result.Summaries, domain.TopicSummary{Topic: entry.Topic, Summary: summaries[i]})
	}

	if count > 0 && len(result.Failed) == count {
		return nil, domain.ExtractionError(fmt.Sprintf("all %d topics failed to synthesize", count), firstErr)
	}

	return result, nil
}
