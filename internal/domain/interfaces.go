package domain

import "context"

// ModelGateway is the hosted multimodal model the service delegates to.
type ModelGateway interface {
	// Generate sends a prompt plus zero or more attachments and returns the
	// model's text reply.
	Generate(ctx context.Context, prompt string, attachments ...Blob) (string, error)

	// Embed returns an embedding vector for text.
	Embed(ctx context.Context, text string) (EmbeddingVector, error)
}

// Rasterizer turns a PDF into ordered page images
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string) ([]PageImage, error)
}

// Transcriber turns an audio file into text
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// InsightAnalyzer extracts structured insights from transcript text
type InsightAnalyzer interface {
	Analyze(ctx context.Context, transcript string) ([]Insight, error)
}
