package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/observability"
)

const (
	defaultBaseURL        = "https://generativelanguage.googleapis.com/v1beta/openai/"
	defaultModel          = "gemini-2.0-flash"
	defaultEmbeddingModel = "text-embedding-004"
	defaultTimeout        = 3 * time.Minute
)

// Config holds model gateway client settings.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	EmbeddingModel    string
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64 // <= 0 disables limiting
	Burst             int
	HTTPClient        *http.Client
}

// Client talks to an OpenAI-compatible chat/embeddings endpoint. By default
// that is the Gemini OpenAI compatibility layer.
type Client struct {
	api            *openai.Client
	model          string
	embeddingModel string
	limiter        *rate.Limiter
	retry          *RetryConfig
	logger         *observability.Logger
}

var _ domain.ModelGateway = (*Client)(nil)

// NewClient creates a new gateway client.
func NewClient(cfg Config, logger *observability.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, domain.ConfigError("gateway API key is required", nil)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = defaultEmbeddingModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(cfg.BaseURL),
		option.WithMaxRetries(0), // retries are handled by retryWithBackoff
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}
	api := openai.NewClient(opts...)

	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	if burst < 1 {
		burst = 1
	}

	retry := DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries

	return &Client{
		api:            &api,
		model:          cfg.Model,
		embeddingModel: cfg.EmbeddingModel,
		limiter:        rate.NewLimiter(limit, burst),
		retry:          retry,
		logger:         logger.WithOperation("gateway"),
	}, nil
}

// Model returns the generation model name.
func (c *Client) Model() string {
	return c.model
}

// Generate sends the prompt and attachments as a single user message and
// returns the text of the first choice.
func (c *Client) Generate(ctx context.Context, prompt string, attachments ...domain.Blob) (string, error) {
	parts := make([]openai.ChatCompletionContentPartUnionParam, 0, len(attachments)+1)
	parts = append(parts, openai.TextContentPart(prompt))
	for i, blob := range attachments {
		part, err := contentPart(blob)
		if err != nil {
			return "", domain.ValidationError(fmt.Sprintf("attachment %d", i+1), err)
		}
		parts = append(parts, part)
	}

	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(parts),
		},
	}

	start := time.Now()
	var completion *openai.ChatCompletion
	err := c.retryWithBackoff(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		completion, err = c.api.Chat.Completions.New(ctx, params)
		return err
	})
	if err != nil {
		return "", domain.GatewayError("generate content", err)
	}

	if len(completion.Choices) == 0 {
		return "", domain.GatewayError("no choices in gateway response", nil)
	}

	c.logger.Debug().
		Str("model", c.model).
		Int("attachments", len(attachments)).
		Dur("latency", time.Since(start)).
		Msg("Generation complete")

	return completion.Choices[0].Message.Content, nil
}

// Embed returns the embedding vector for text.
func (c *Client) Embed(ctx context.Context, text string) (domain.EmbeddingVector, error) {
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.embeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	}

	var resp *openai.CreateEmbeddingResponse
	err := c.retryWithBackoff(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		resp, err = c.api.Embeddings.New(ctx, params)
		return err
	})
	if err != nil {
		return nil, domain.GatewayError("generate embedding", err)
	}

	if len(resp.Data) == 0 {
		return nil, domain.GatewayError("no embedding returned", nil)
	}

	values := resp.Data[0].Embedding
	vec := make(domain.EmbeddingVector, len(values))
	for i, v := range values {
		vec[i] = float32(v)
	}
	return vec, nil
}

// contentPart converts an attachment into a chat content part.
func contentPart(blob domain.Blob) (openai.ChatCompletionContentPartUnionParam, error) {
	if len(blob.Data) == 0 {
		return openai.ChatCompletionContentPartUnionParam{}, fmt.Errorf("empty attachment")
	}
	encoded := base64.StdEncoding.EncodeToString(blob.Data)

	switch {
	case strings.HasPrefix(blob.MIMEType, "image/"):
		return openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: "data:" + blob.MIMEType + ";base64," + encoded,
		}), nil
	case strings.HasPrefix(blob.MIMEType, "audio/"):
		format, err := audioFormat(blob.MIMEType)
		if err != nil {
			return openai.ChatCompletionContentPartUnionParam{}, err
		}
		return openai.InputAudioContentPart(openai.ChatCompletionContentPartInputAudioInputAudioParam{
			Data:   encoded,
			Format: format,
		}), nil
	default:
		return openai.ChatCompletionContentPartUnionParam{}, fmt.Errorf("unsupported mime type %q", blob.MIMEType)
	}
}

func audioFormat(mimeType string) (string, error) {
	switch mimeType {
	case "audio/mp3", "audio/mpeg":
		return "mp3", nil
	case "audio/wav", "audio/x-wav", "audio/wave":
		return "wav", nil
	default:
		return "", fmt.Errorf("unsupported audio mime type %q", mimeType)
	}
}
