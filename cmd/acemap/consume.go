package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/acetools/acemap/internal/config"
	"github.com/acetools/acemap/internal/database"
	"github.com/acetools/acemap/internal/dispatcher"
	"github.com/acetools/acemap/internal/feed"
	"github.com/acetools/acemap/internal/feed/factory"
	"github.com/acetools/acemap/internal/influx"
	"github.com/acetools/acemap/internal/logging"
	"github.com/acetools/acemap/internal/otel"
	"github.com/acetools/acemap/internal/poi"
	"github.com/acetools/acemap/internal/worker"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

const sampleFlushInterval = time.Second

// handlerTopic is the dispatcher key for the configured feed topic.
// MQTT filters with wildcards deliver concrete topics, so they use AnyTopic.
func handlerTopic(cfg config.FeedConfig) string {
	if cfg.Topic == "" || strings.ContainsAny(cfg.Topic, "+#") {
		return dispatcher.AnyTopic
	}
	return cfg.Topic
}

func setupConsumeLogging(ctx context.Context, w io.Writer, level string) *otel.Provider {
	provider, err := otel.New(ctx, otel.ConfigFrom(config.GetOTelConfig(), LogFile))
	var lp *sdklog.LoggerProvider
	if err != nil {
		fmt.Fprintln(os.Stderr, "otel disabled:", err)
		provider = nil
	} else {
		lp = provider.LoggerProvider()
	}

	SlogManager.Setup(w, level, lp)
	Logger = SlogManager.Logger()
	if provider != nil && provider.Enabled() {
		Logger.Info("OTel provider initialized", "endpoint", viper.GetString("otel.endpoint"))
	}
	return provider
}

func cmdConsume(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := openLogFile()
	if err != nil {
		return err
	}
	defer closeLogFile(context.Background())

	level := viper.GetString("logLevel")
	provider := setupConsumeLogging(ctx, w, level)
	if provider != nil {
		defer func() { _ = provider.Shutdown(context.Background()) }()
	}

	zl := logging.NewZerolog(w, level)
	feedCfg := config.GetFeedConfig()
	deps := worker.Dependencies{LogManager: SlogManager}

	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		im := influx.NewManager(zl.With().Str("component", "influx").Logger(), influxCfg)
		if err := im.Connect(ctx); err != nil {
			Logger.Warn("InfluxDB unavailable", "error", err)
		} else {
			deps.Points = im
			defer func() {
				if err := im.Close(); err != nil {
					Logger.Error("Failed to close InfluxDB writer", "error", err)
				}
			}()
		}
	}

	var samplesDone sync.WaitGroup
	sampleCtx, stopSamples := context.WithCancel(context.Background())
	defer func() {
		stopSamples()
		samplesDone.Wait()
	}()

	if storeCfg := config.GetStoreConfig(); storeCfg.Type == "json" {
		idx, err := loadJSONIndex(storeCfg.JSONPath)
		if err != nil {
			Logger.Warn("Failed to load POIs", "error", err)
		} else {
			deps.POIs = idx
			Logger.Info("Loaded POIs", "count", idx.Len(), "path", storeCfg.JSONPath)
		}
		if feedCfg.Persist {
			Logger.Warn("feed.persist needs a database store, samples will not be saved", "store", storeCfg.Type)
		}
	} else if store, err := openStoreWith(zl.With().Str("component", "database").Logger()); err != nil {
		Logger.Warn("POI store unavailable, nearest POI lookups disabled", "error", err)
	} else {
		defer store.Close()

		idx, err := poi.NewSQLStore(store.DB).LoadIndex()
		if err != nil {
			Logger.Warn("Failed to load POIs", "error", err)
		} else {
			deps.POIs = idx
			Logger.Info("Loaded POIs", "count", idx.Len())
		}

		if feedCfg.Persist {
			sw := worker.NewSampleWriter(store.DB, feedCfg.BufferSize*10, Logger)
			deps.Samples = sw
			samplesDone.Add(1)
			go func() {
				defer samplesDone.Done()
				sw.Run(sampleCtx, sampleFlushInterval)
			}()
		}
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(zl.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		return fmt.Errorf("failed to create dispatcher: %w", err)
	}
	defer d.Close()

	mgr := worker.NewManager(deps)
	if err := mgr.RegisterHandlers(d, handlerTopic(feedCfg), feedCfg.BufferSize); err != nil {
		return err
	}

	src, err := factory.New(feedCfg, Logger)
	if err != nil {
		return err
	}
	defer src.Close()

	runner := &feed.Runner{
		Source: src,
		Handle: func(m feed.Message) {
			err := d.Dispatch(m)
			if err != nil && !errors.Is(err, feed.ErrMalformedRecord) {
				Logger.Warn("Dispatch failed", "topic", m.Topic, "error", err)
			}
		},
		IdleInterval: feedCfg.PollInterval,
		Logger: SlogManager.WithStats(func() []slog.Attr {
			s := mgr.Stats()
			return []slog.Attr{slog.Uint64("processed", s.Processed), slog.Uint64("failed", s.Failed)}
		}),
	}

	Logger.Info("Consuming feed", "type", feedCfg.Type, "topic", feedCfg.Topic)
	err = runner.Run(ctx)

	d.Close()
	stopSamples()
	samplesDone.Wait()
	s := mgr.Stats()
	Logger.Info("Feed stopped", "processed", s.Processed, "failed", s.Failed, "indoor", s.Indoor)
	return err
}

// openStoreWith is openStore with a caller supplied database logger.
func openStoreWith(log zerolog.Logger) (*database.Manager, error) {
	m := database.NewManager(log)
	if err := m.Connect(config.GetStoreConfig(), config.GetPostgresConfig()); err != nil {
		return nil, err
	}
	if err := m.Setup(); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}
