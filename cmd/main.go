package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"acdispatch/internal/app"
	"acdispatch/internal/config"
	"acdispatch/internal/logger"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("Config error: %v", err)
		os.Exit(1)
	}

	// 初始化日志
	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warn("Unknown log level %q, using info", cfg.Log.Level)
		level = logger.InfoLevel
	}
	logger.SetLevel(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 创建应用实例
	application := app.NewApp(cfg)
	if err := application.Initialize(ctx); err != nil {
		logger.Error("Init error: %v", err)
		os.Exit(1)
	}

	if err := application.Start(ctx); err != nil {
		logger.Error("Start error: %v", err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := application.Stop(shutdownCtx); err != nil {
		logger.Error("Stop error: %v", err)
		os.Exit(1)
	}
}
