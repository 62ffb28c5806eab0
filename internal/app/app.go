// Package app wires configuration into the analyzer's services.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/skinlens/backend/config"
	"github.com/skinlens/backend/internal/domain"
	"github.com/skinlens/backend/internal/infrastructure/cache"
	"github.com/skinlens/backend/internal/infrastructure/ocr"
	"github.com/skinlens/backend/internal/infrastructure/openai"
	"github.com/skinlens/backend/internal/infrastructure/storage"
	"github.com/skinlens/backend/internal/infrastructure/vectorize"
	"github.com/skinlens/backend/internal/usecase"
)

var ocrAvailable = ocr.Available

// Options are per-entrypoint settings that do not come from configuration
type Options struct {
	Observer usecase.StateObserver
	Debug    bool
}

// App holds the services shared by the HTTP server and the CLI
type App struct {
	Extractor *usecase.IngredientExtractor
	Analysis  *usecase.AnalysisService
	Exports   *usecase.ExportService

	closers []io.Closer
}

// New builds every client and service named in cfg
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	a := &App{}

	retriever := vectorize.NewClient(vectorize.Config{
		APIKey:            cfg.Vectorize.APIKey,
		OrganizationID:    cfg.Vectorize.OrganizationID,
		PipelineID:        cfg.Vectorize.PipelineID,
		BaseURL:           cfg.Vectorize.BaseURL,
		NumResults:        cfg.Vectorize.NumResults,
		Timeout:           cfg.Vectorize.Timeout,
		RequestsPerSecond: cfg.Vectorize.RequestsPerSecond,
	})
	retriever.SetDebug(opts.Debug)

	structurer := openai.NewClient(openai.Config{
		APIKey:  cfg.OpenAI.APIKey,
		Model:   cfg.OpenAI.Model,
		BaseURL: cfg.OpenAI.BaseURL,
		Timeout: cfg.OpenAI.Timeout,
	})

	recordCache, snapshots, err := a.caches(ctx, cfg.Cache)
	if err != nil {
		a.Close()
		return nil, err
	}

	var store domain.ExportStore
	if cfg.Export.Type == "minio" {
		s, err := storage.New(ctx, storage.Config{
			Endpoint:  cfg.Export.Endpoint,
			AccessKey: cfg.Export.AccessKey,
			SecretKey: cfg.Export.SecretKey,
			Bucket:    cfg.Export.Bucket,
			Region:    cfg.Export.Region,
			UseSSL:    cfg.Export.UseSSL,
			URLExpiry: cfg.Export.URLExpiry,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("export storage: %w", err)
		}
		store = s
	}

	if ocrAvailable() {
		engine := ocr.NewTesseractEngine(ocr.Config{
			Languages:   cfg.OCR.Languages,
			PageSegMode: cfg.OCR.PageSegMode,
		})
		a.Extractor = usecase.NewIngredientExtractor(engine, usecase.NewLabelPreprocessor(opts.Debug))
	} else {
		log.Warn().Msg("tesseract not found, image analysis disabled")
	}

	a.Analysis = usecase.NewAnalysisService(retriever, structurer, recordCache, usecase.AnalysisServiceConfig{
		Concurrency:    cfg.Analysis.Concurrency,
		MaxIngredients: cfg.Analysis.MaxIngredients,
		CacheTTL:       cfg.Cache.TTL,
		Observer:       opts.Observer,
	})
	a.Exports = usecase.NewExportService(snapshots, store, usecase.ExportServiceConfig{
		SnapshotTTL: cfg.Analysis.SnapshotTTL,
	})

	log.Info().
		Str("model", structurer.Model).
		Int("num_results", cfg.Vectorize.NumResults).
		Int("concurrency", cfg.Analysis.Concurrency).
		Str("cache", cfg.Cache.Type).
		Str("export", cfg.Export.Type).
		Bool("ocr", a.Extractor != nil).
		Msg("analyzer initialized")

	return a, nil
}

// caches returns the record cache (nil when disabled) and the snapshot store.
// Snapshots share Redis when it is configured and fall back to memory otherwise.
func (a *App) caches(ctx context.Context, cfg config.CacheConfig) (domain.CacheRepository, domain.CacheRepository, error) {
	switch cfg.Type {
	case "redis":
		rc, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		a.closers = append(a.closers, rc)
		return rc, rc, nil
	case "memory":
		mc := cache.NewMemoryCache()
		a.closers = append(a.closers, mc)
		return mc, mc, nil
	default:
		// Records are not cached but snapshots still need a home
		mc := cache.NewMemoryCache()
		a.closers = append(a.closers, mc)
		return nil, mc, nil
	}
}

// Close releases caches and connections
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
