package main

import (
	"context"
	"flag"
	"h2ala_backend/internal/app"
	"h2ala_backend/internal/config"
	"h2ala_backend/pkg/logger"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
)

func main() {
	// 命令行参数
	configDir := flag.String("config", "configs", "配置目录，包含 config.yaml")
	flag.Parse()

	cfg, err := config.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg, *configDir)
	if err != nil {
		logger.Log.Fatal("Failed to initialize application", zap.Error(err))
	}

	if err := application.Run(ctx); err != nil {
		logger.Log.Fatal("Server stopped with error", zap.Error(err))
	}
}
