// Package runtime assembles the service: telemetry, the optional event bus,
// the history store, the speech backend, and the HTTP server.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/accentlabs/accent-core/internal/api"
	"github.com/accentlabs/accent-core/internal/assess"
	"github.com/accentlabs/accent-core/internal/audio"
	"github.com/accentlabs/accent-core/internal/bus"
	"github.com/accentlabs/accent-core/internal/config"
	"github.com/accentlabs/accent-core/internal/history"
	"github.com/accentlabs/accent-core/internal/natsserver"
	"github.com/accentlabs/accent-core/internal/speech"
)

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

// Start brings up every component, serves until ctx is cancelled, then shuts
// down in reverse order.
func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	embedded, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("failed to start embedded NATS server: %w", err)
	}
	defer embedded.Shutdown()

	var busClient *bus.Client
	if r.cfg.Bus.Enabled {
		busCfg := r.cfg.Bus
		if busCfg.Embedded {
			busCfg.Servers = []string{fmt.Sprintf("nats://127.0.0.1:%d", busCfg.Port)}
		}
		busClient, err = bus.Connect(ctx, busCfg, r.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS: %w", err)
		}
		defer busClient.Close()
	}

	store, err := history.Open(ctx, r.cfg.History, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open history store: %w", err)
	}
	defer store.Close()

	backend, err := speech.New(r.cfg.Speech)
	if err != nil {
		return fmt.Errorf("failed to initialize speech backend: %w", err)
	}

	converter, err := audio.NewConverter(r.cfg.Audio.FFmpegCommand)
	if err != nil {
		return fmt.Errorf("failed to parse ffmpeg command: %w", err)
	}
	if !converter.Available() {
		r.logger.Warn("ffmpeg not found; only compliant WAV uploads will be accepted")
	}

	defaults := assess.ScoringConfig{
		GradingSystem: assess.GradingSystem(r.cfg.Speech.GradingSystem),
		Granularity:   assess.Granularity(r.cfg.Speech.Granularity),
		EnableProsody: r.cfg.Speech.Prosody,
	}
	server := api.New(r.logger, assess.NewInvoker(backend), converter, store, busClient, defaults)

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           server.Handler(metricsHandler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
			cancel()
		}
	}()

	server.SetReady(true)
	r.logger.Info("runtime started",
		slog.String("addr", addr),
		slog.String("speech_mode", r.cfg.Speech.Mode),
		slog.Bool("bus_enabled", r.cfg.Bus.Enabled))

	<-ctx.Done()
	r.logger.Info("runtime stopping")
	server.SetReady(false)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}
