package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	httpadapter "github.com/MerlinMagicschool/innerself-ai-server/internal/adapters/http"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/adapters/llm"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/app"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/config"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/logger"
	"github.com/MerlinMagicschool/innerself-ai-server/internal/ports"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	gen, err := llm.NewGenerator(cfg, log)
	if err != nil {
		log.Fatal("failed to build generator", zap.Error(err))
	}

	svc := app.NewReadingService(gen, app.Options{
		Strategy:                ports.Strategy(cfg.OutputMode),
		MaxOutputTokensBasic:    cfg.MaxOutputTokensBasic,
		MaxOutputTokensDetailed: cfg.MaxOutputTokensDetailed,
		Policy:                  app.FailurePolicy(cfg.FailurePolicy),
		StrictProseLength:       cfg.StrictProseLength,
	}, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(httpadapter.RequestIDMiddleware())
	e.Use(httpadapter.LoggingMiddleware(log))

	handler := httpadapter.NewHandler(svc, log)
	handler.Register(e)

	// Graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("starting server",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("provider", cfg.LLMProvider),
			zap.String("model", cfg.LLMModel),
			zap.String("output_mode", cfg.OutputMode),
			zap.String("failure_policy", cfg.FailurePolicy),
		)
		if err := e.Start(cfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", zap.Error(err))
	}
}
