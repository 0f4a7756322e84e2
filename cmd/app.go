package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/meetlink/signaling/internal/application/config"
	"github.com/meetlink/signaling/internal/application/constant"
	"github.com/meetlink/signaling/internal/application/metric"
	"github.com/meetlink/signaling/internal/identity"
	"github.com/meetlink/signaling/internal/infra/adapters/memory"
	"github.com/meetlink/signaling/internal/infra/ports/http/handlers"
	"github.com/meetlink/signaling/internal/infra/ports/http/server"
	"github.com/meetlink/signaling/internal/usecase"
)

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: slog.LevelInfo},
			),
		),
	)

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	slog.Info("Running app", slog.Bool("debug", cfg.Debug), slog.Bool("tls", cfg.TLS.Enabled()))

	if cfg.TLS.CAFile != "" {
		// The CA bundle only matters to the TLS-terminating proxy in
		// front of us; accepted for env parity and surfaced here.
		slog.Info("CA bundle configured", slog.String("ca_file", cfg.TLS.CAFile))
	}

	roomRegistry := memory.NewRoomRegistry()
	connRegistry := memory.NewConnectionRegistry()

	resolver := identity.NewResolver()

	presenceUsecase := usecase.NewPresenceUsecase(roomRegistry, connRegistry)
	signalingUsecase := usecase.NewSignalingUsecase(roomRegistry, connRegistry)

	iceHandler := handlers.NewIceHandler(cfg)
	wsHandler := handlers.NewWebSocketHandler(cfg, resolver, presenceUsecase, signalingUsecase, connRegistry)

	echoSrv := server.New(cfg, iceHandler, wsHandler)

	metricsSrv := metric.NewServer()

	echoSrvCh := make(chan error, 1)
	metricsSrvCh := make(chan error, 1)

	go func() {
		if cfg.TLS.Enabled() {
			echoSrvCh <- echoSrv.StartTLS(":"+cfg.Port, cfg.TLS.CertFile, cfg.TLS.KeyFile)
			return
		}

		echoSrvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	go func() {
		metricsSrvCh <- metricsSrv.Start(":" + cfg.MetricPort)
	}()

	select {
	case <-ctx.Done():
		slog.Info("Shutting down servers due to context cancel")
	case err := <-echoSrvCh:
		slog.Error(
			"HTTP server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	case err := <-metricsSrvCh:
		slog.Error(
			"Metrics server failed",
			slog.Any(constant.Error, err),
		)
		os.Exit(1)
	}

	timeoutCtx, timeoutCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer timeoutCancel()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
	}

	if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
	}
}
