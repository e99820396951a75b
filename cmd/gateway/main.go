package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tjfontaine/bare-gateway/internal/logging"
	"github.com/tjfontaine/bare-gateway/internal/pkg/config"
	"github.com/tjfontaine/bare-gateway/internal/pkg/envutil"
	"github.com/tjfontaine/bare-gateway/internal/telemetry"
	"github.com/tjfontaine/bare-gateway/pkg/gateway"
)

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	configPath := envutil.ReadEnvOr("BARE_CONFIG", config.DefaultPath)

	// The gateway reloads this itself; here we only need the logging section.
	cfg, err := config.LoadFile(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, logFile, err := logging.New(logging.Options{
		Dir:   cfg.Logging.Dir,
		Level: cfg.Logging.Level,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logFile.Close()
	slog.SetDefault(logger)

	// Initialize OpenTelemetry
	_, shutdown, err := telemetry.InitTracer(telemetry.Options{
		ServiceName: "bare-gateway",
		Disabled:    envutil.ReadEnvOr("TRACE_STDOUT", "false") != "true",
		Logger:      logger,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Error("failed to shutdown tracer", slog.String("error", err.Error()))
		}
	}()

	// Register built-in backend types
	gateway.RegisterBuiltins()

	// Storage, routing and backends come from the config file, which is
	// watched for newly added backends.
	gw, err := gateway.New(
		gateway.WithFileConfig(configPath),
		gateway.WithLogger(logger),
	)
	if err != nil {
		log.Fatalf("Failed to create gateway: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := gw.Start(ctx); err != nil {
		log.Fatalf("Failed to start gateway: %v", err)
	}

	logger.Info("Gateway started successfully",
		slog.String("config", configPath),
		slog.String("address", gw.Addr().String()))

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, stopping gateway...")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := gw.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
