package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cortexeval/cortex-router/config"
	"github.com/cortexeval/cortex-router/internal/circuitbreaker"
	"github.com/cortexeval/cortex-router/internal/handler"
	"github.com/cortexeval/cortex-router/internal/healthcheck"
	"github.com/cortexeval/cortex-router/internal/httpserver"
	"github.com/cortexeval/cortex-router/internal/metrics"
	"github.com/cortexeval/cortex-router/internal/provider"
	"github.com/cortexeval/cortex-router/internal/router"
	"github.com/cortexeval/cortex-router/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("err", err))
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, true, cfg.Server.Environment)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	breakerCfg, err := breakerConfig(cfg.Breaker)
	if err != nil {
		log.Error("Invalid breaker config", slog.Any("err", err))
		os.Exit(1)
	}

	fast, smart := buildLanes(cfg, breakerCfg, log)

	collector := metrics.NewCollector(cfg.Metrics.BufferSize, log)
	collector.Start(ctx)

	rt, err := router.New(log, fast, smart, collector)
	if err != nil {
		log.Error("Failed to create router", slog.Any("err", err))
		os.Exit(1)
	}

	monitorInterval, err := time.ParseDuration(cfg.Monitor.Interval)
	if err != nil {
		log.Error("Invalid monitor interval", slog.Any("err", err))
		os.Exit(1)
	}
	go healthcheck.Monitor(ctx, rt, collector, monitorInterval, log)

	routerHandler := handler.NewRouterHandler(log, rt)

	srv, err := httpserver.New(cfg.Server.Address, setupRouter(routerHandler, collector))
	if err != nil {
		log.Error("Failed to create server", slog.Any("err", err))
		os.Exit(1)
	}

	srvErrCh := make(chan error, 1)

	go func() {
		srvErrCh <- srv.Start()
	}()

	log.Info("cortex-router listening", slog.String("address", cfg.Server.Address))

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		if err := srv.Shutdown(context.Background()); err != nil {
			log.Error("Error during shutdown", slog.Any("err", err))
		}
	case err := <-srvErrCh:
		if err != nil {
			log.Error("Error starting server", slog.Any("err", err))
			os.Exit(1)
		}
	}
}

func breakerConfig(bc config.BreakerConfig) (circuitbreaker.Config, error) {
	timeout, err := time.ParseDuration(bc.Timeout)
	if err != nil {
		return circuitbreaker.Config{}, err
	}

	return circuitbreaker.Config{
		FailureThreshold: bc.FailureThreshold,
		SuccessThreshold: bc.SuccessThreshold,
		Timeout:          timeout,
		WindowSize:       bc.WindowSize,
	}, nil
}

// Lane membership and try order are fixed here, cheapest first within the
// fast lane and most capable first within the smart lane.
var (
	fastLaneOrder  = []string{"ollama", "groq", "gemini"}
	smartLaneOrder = []string{"claude", "openai"}
)

func buildLanes(cfg *config.Config, breakerCfg circuitbreaker.Config, log *slog.Logger) (fast, smart []provider.Provider) {
	build := func(order []string) []provider.Provider {
		var lane []provider.Provider

		for _, name := range order {
			pc, ok := cfg.Providers[name]
			if !ok || !pc.Enabled {
				log.Info("Provider disabled", slog.String("provider", name))
				continue
			}

			// Ollama is local and needs no credentials; everything else does.
			if name != "ollama" && pc.APIKey == "" {
				log.Warn("Provider has no API key, skipping", slog.String("provider", name))
				continue
			}

			settings := provider.Settings{
				APIKey:  pc.APIKey,
				BaseURL: pc.BaseURL,
				Model:   pc.Model,
				Breaker: breakerCfg,
			}

			switch name {
			case "ollama":
				lane = append(lane, provider.NewOllamaProvider(settings))
			case "groq":
				lane = append(lane, provider.NewGroqProvider(settings))
			case "gemini":
				lane = append(lane, provider.NewGeminiProvider(settings))
			case "claude":
				lane = append(lane, provider.NewClaudeProvider(settings))
			case "openai":
				lane = append(lane, provider.NewOpenAIProvider(settings))
			}
		}

		return lane
	}

	return build(fastLaneOrder), build(smartLaneOrder)
}
