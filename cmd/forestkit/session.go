package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"fraud-forest/internal/cfg"
	"fraud-forest/internal/metrics"
	"fraud-forest/internal/pipeline"
	"fraud-forest/internal/storage"

	"github.com/rs/zerolog/log"
)

// session bundles the optional registry and metrics shared by commands.
type session struct {
	settings *cfg.Settings
	store    *storage.Store
	metrics  *metrics.Metrics
	recorder *metrics.MetricsWrapper
}

// newSession re-validates settings after flag overrides and opens the
// registry when a data path is configured. A registry that cannot be
// opened only disables run recording.
func newSession(settings *cfg.Settings) (*session, error) {
	if err := cfg.Validate(settings); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	m := metrics.New()
	rt := &session{settings: settings, metrics: m, recorder: metrics.NewWrapper(m)}

	if settings.DataPath != "" {
		if err := os.MkdirAll(settings.DataPath, 0o755); err != nil {
			log.Warn().Err(err).Str("path", settings.DataPath).Msg("Run registry unavailable")
			return rt, nil
		}
		store, err := storage.New(settings.DataPath)
		if err != nil {
			log.Warn().Err(err).Str("path", settings.DataPath).Msg("Run registry unavailable")
			return rt, nil
		}
		rt.store = store
	}
	return rt, nil
}

func (rt *session) newPipeline() *pipeline.Pipeline {
	opts := []pipeline.Option{pipeline.WithRecorder(rt.recorder)}
	if rt.store != nil {
		opts = append(opts, pipeline.WithStore(rt.store))
	}
	return pipeline.New(rt.settings, opts...)
}

// Close flushes the metrics textfile and closes the registry.
func (rt *session) Close() {
	if path := rt.settings.MetricsFile; path != "" {
		if err := rt.metrics.WriteTextfile(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to write metrics textfile")
		} else {
			log.Debug().Str("path", path).Msg("Metrics textfile written")
		}
	}
	if rt.store != nil {
		if err := rt.store.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close run registry")
		}
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
