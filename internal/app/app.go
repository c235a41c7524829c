// Package app builds the component graph shared by the API server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spherical/pitch-analyzer/internal/analysis"
	"github.com/spherical/pitch-analyzer/internal/cache"
	"github.com/spherical/pitch-analyzer/internal/config"
	"github.com/spherical/pitch-analyzer/internal/domain"
	"github.com/spherical/pitch-analyzer/internal/insights"
	"github.com/spherical/pitch-analyzer/internal/llm"
	"github.com/spherical/pitch-analyzer/internal/observability"
	"github.com/spherical/pitch-analyzer/internal/pdf"
	"github.com/spherical/pitch-analyzer/internal/pitchdeck"
	"github.com/spherical/pitch-analyzer/internal/storage"
	"github.com/spherical/pitch-analyzer/internal/transcribe"
)

// App holds the wired components.
type App struct {
	Config   *config.Config
	Logger   *observability.Logger
	Gateway  domain.ModelGateway
	Results  *storage.ResultStore
	Store    *storage.Store
	Cache    cache.Client
	Insights *insights.Service
}

type options struct {
	gateway    domain.ModelGateway
	rasterizer domain.Rasterizer
	noHistory  bool
}

// Option customizes New.
type Option func(*options)

// WithGateway replaces the model gateway client.
func WithGateway(gw domain.ModelGateway) Option {
	return func(o *options) { o.gateway = gw }
}

// WithRasterizer replaces the PDF rasterizer.
func WithRasterizer(r domain.Rasterizer) Option {
	return func(o *options) { o.rasterizer = r }
}

// WithoutHistory skips the analysis repository and the result cache.
func WithoutHistory() Option {
	return func(o *options) { o.noHistory = true }
}

// New wires every component from cfg. Close releases what it opened.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, domain.ConfigError("configuration is required", nil)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger}

	gateway := o.gateway
	if gateway == nil {
		client, err := llm.NewClient(llm.Config{
			APIKey:            cfg.Gateway.APIKey,
			BaseURL:           cfg.Gateway.BaseURL,
			Model:             cfg.Gateway.Model,
			EmbeddingModel:    cfg.Gateway.EmbeddingModel,
			Timeout:           cfg.Gateway.Timeout,
			MaxRetries:        cfg.Gateway.MaxRetries,
			RequestsPerSecond: cfg.Gateway.RequestsPerSecond,
			Burst:             cfg.Gateway.Burst,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("model", client.Model()).Str("base_url", cfg.Gateway.BaseURL).Msg("Model gateway configured")
		gateway = client
	}
	a.Gateway = gateway

	rasterizer := o.rasterizer
	if rasterizer == nil {
		r, err := pdf.NewRasterizer(pdf.Options{
			DPI:          cfg.PitchDeck.DPI,
			JPEGQuality:  cfg.PitchDeck.JPEGQuality,
			MaxFileBytes: cfg.PitchDeck.MaxFileBytes,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("create rasterizer: %w", err)
		}
		rasterizer = r
	}

	a.Results = storage.NewResultStore(cfg.PitchDeck.ResultsDir)

	deps := insights.Deps{
		Analyzer: analysis.NewTranscriptAnalyzer(gateway, logger),
		Decks: pitchdeck.NewService(rasterizer, gateway, a.Results, pitchdeck.Options{
			MaxConcurrency:   cfg.PitchDeck.MaxConcurrency,
			EmbeddingEnabled: cfg.PitchDeck.EmbeddingEnabled,
		}, logger),
		Logger: logger,
	}

	audio := transcribe.NewAudioTranscriber(gateway, logger)
	deps.Audio = audio
	deps.Video = transcribe.NewVideoTranscriber(audio, extractorChain(cfg.Media), downloader(cfg.Media), cfg.Media.TempDir, logger)

	if !o.noHistory {
		store, err := storage.Open(ctx, cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open analysis store: %w", err)
		}
		a.Store = store
		deps.Repository = store.Analyses
		deps.Store = store

		client, err := cache.New(cfg.Cache)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("create cache: %w", err)
		}
		a.Cache = client
		deps.Cache = cache.NewResultCache(client, cfg.Cache.TTL, logger)
	}

	a.Insights = insights.NewService(deps)

	logger.Info().
		Str("model", cfg.Gateway.Model).
		Str("database", cfg.Database.Driver).
		Str("cache", cfg.Cache.Driver).
		Bool("history", !o.noHistory).
		Msg("Components initialized")

	return a, nil
}

// Close releases the database and cache.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}

func extractorChain(cfg config.MediaConfig) transcribe.ExtractorChain {
	chain := make(transcribe.ExtractorChain, 0, len(cfg.Extractors))
	for _, ex := range cfg.Extractors {
		chain = append(chain, transcribe.NewCommandExtractor(ex.Name, ex.Command))
	}
	return chain
}

func downloader(cfg config.MediaConfig) transcribe.Downloader {
	direct := transcribe.NewHTTPDownloader(&http.Client{Timeout: cfg.DownloadTimeout}, cfg.MaxDownloadBytes)
	return transcribe.NewRemoteDownloader(direct, transcribe.NewYTDLPDownloader(cfg.YTDLPPath))
}
