package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cancan-client/internal/app"
	"cancan-client/internal/config"
	"cancan-client/internal/logger"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)
	defer log.Sync()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-c
		log.Info("Shutting down...")
		cancel()
	}()

	if err := app.Run(ctx, cfg, log); err != nil {
		log.Fatal("Client failed", zap.Error(err))
	}
}
