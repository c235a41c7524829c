package pitchdeck

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/spherical/pitch-analyzer/internal/domain"
)

type generateFunc func(ctx context.Context, prompt string, blobs []domain.Blob) (string, error)

type fakeGateway struct {
	mu         sync.Mutex
	generate   generateFunc
	embedErr   error
	embedInput []string
	topicCalls map[string][]domain.Blob
	tocCalls   int
}

func newFakeGateway(fn generateFunc) *fakeGateway {
	return &fakeGateway{generate: fn, topicCalls: map[string][]domain.Blob{}}
}

func (f *fakeGateway) Generate(ctx context.Context, prompt string, attachments ...domain.Blob) (string, error) {
	f.mu.Lock()
	if prompt == tocPrompt {
		f.tocCalls++
	} else {
		f.topicCalls[topicOf(prompt)] = attachments
	}
	f.mu.Unlock()
	return f.generate(ctx, prompt, attachments)
}

func (f *fakeGateway) Embed(ctx context.Context, text string) (domain.EmbeddingVector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedInput = append(f.embedInput, text)
	if f.embedErr != nil {
		return nil, f.embedErr
	}
	return domain.EmbeddingVector{0.1, 0.2, 0.3}, nil
}

// topicOf recovers the topic name from a synthesis prompt.
func topicOf(prompt string) string {
	const marker = "about the topic: '"
	i := strings.Index(prompt, marker)
	if i < 0 {
		return ""
	}
	rest := prompt[i+len(marker):]
	return rest[:strings.Index(rest, "'")]
}

// scripted replies with toc for the TOC call and "<topic> summary" per topic.
func scripted(toc string, failing ...string) generateFunc {
	fail := map[string]bool{}
	for _, t := range failing {
		fail[t] = true
	}
	return func(ctx context.Context, prompt string, blobs []domain.Blob) (string, error) {
		if prompt == tocPrompt {
			return toc, nil
		}
		topic := topicOf(prompt)
		if fail[topic] {
			return "", domain.GatewayError("generate content", errors.New("upstream 500"))
		}
		return "  " + topic + " summary\n", nil
	}
}

type fakeRasterizer struct {
	pages int
	err   error
}

func (f *fakeRasterizer) Rasterize(ctx context.Context, path string) ([]domain.PageImage, error) {
	if f.err != nil {
		return nil, f.err
	}
	images := make([]domain.PageImage, f.pages)
	for i := range images {
		images[i] = domain.PageImage{PageNumber: i + 1, Data: []byte{byte(i + 1)}, MIMEType: "image/jpeg"}
	}
	return images, nil
}

type memoryWriter struct {
	ids  []string
	json []byte
	md   string
}

func (w *memoryWriter) WriteArtifacts(id string, analysisJSON []byte, markdown string) (*domain.Artifacts, error) {
	w.ids = append(w.ids, id)
	w.json = analysisJSON
	w.md = markdown
	return &domain.Artifacts{Dir: "mem/" + id, JSONPath: "mem/" + id + "/c.json", MarkdownPath: "mem/" + id + "/a.md"}, nil
}

func pageNumbers(blobs []domain.Blob) []int {
	out := make([]int, len(blobs))
	for i, b := range blobs {
		out[i] = int(b.Data[0])
	}
	return out
}
