package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/riskibarqy/matchpoint/internal/app"
	"github.com/riskibarqy/matchpoint/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot, err := app.New(ctx, cfg)
	if err != nil {
		panic(err)
	}
	logger := bot.Logger

	if err := bot.RegisterWebhook(ctx); err != nil {
		// The webhook can be re-registered by the next restart; polling
		// and the HTTP surface still work without it.
		logger.Error("webhook registration failed", "error", err.Error())
	}

	var group conc.WaitGroup
	group.Go(func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr)
		if err := bot.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err.Error())
			stop()
		}
	})
	if bot.Worker != nil {
		group.Go(func() { bot.Worker.Run(ctx) })
	}

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := bot.Server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err.Error())
	}
	group.Wait()
	if err := bot.Close(shutdownCtx); err != nil {
		logger.Error("close failed", "error", err.Error())
		os.Exit(1)
	}

	logger.Info("bot stopped")
}
