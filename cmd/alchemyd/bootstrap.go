package main

import (
	"context"
	"log/slog"
	"time"

	"alchemy/internal/assets"
	"alchemy/internal/campaign"
	"alchemy/internal/config"
	"alchemy/internal/logging"
	"alchemy/internal/progress"
	"alchemy/internal/services/imagen"
	"alchemy/internal/services/qloo"
	"alchemy/internal/services/veo"
	"alchemy/internal/services/vision"
)

// buildRunner wires the vendor clients into a campaign runner. The
// cultural lookup gets a Redis cache when the config names one.
func buildRunner(ctx context.Context, cfg *config.Config, bus *progress.Bus, store *assets.Store, logger *slog.Logger) (*campaign.Runner, error) {
	qlooOpts := []qloo.Option{
		qloo.WithLogger(logging.NewComponentLogger(logger, "qloo")),
	}
	if cfg.Qloo.RedisURL != "" {
		ttl := time.Duration(cfg.Qloo.CacheTTLMinutes) * time.Minute
		cache, err := qloo.NewRedisCache(ctx, cfg.Qloo.RedisURL, ttl)
		if err != nil {
			return nil, err
		}
		qlooOpts = append(qlooOpts, qloo.WithCache(cache))
	}
	cultural := qloo.NewClient(qloo.Config{
		APIKey:         cfg.Qloo.APIKey,
		BaseURL:        cfg.Qloo.BaseURL,
		TimeoutSeconds: cfg.Qloo.TimeoutSeconds,
	}, qlooOpts...)

	images := imagen.NewClient(imagen.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		Model:          cfg.Gemini.ImageModel,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	})
	videos := veo.NewClient(veo.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		Model:          cfg.Gemini.VideoModel,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	})
	analyzer := vision.NewClient(vision.Config{
		APIKey:         cfg.Gemini.APIKey,
		BaseURL:        cfg.Gemini.BaseURL,
		Model:          cfg.Gemini.VisionModel,
		TimeoutSeconds: cfg.Gemini.TimeoutSeconds,
	})

	runner := campaign.NewRunner(cfg, bus, cultural, images, videos, store,
		campaign.WithAnalyzer(analyzer),
		campaign.WithLogger(logging.NewComponentLogger(logger, "campaign")),
	)
	return runner, nil
}
