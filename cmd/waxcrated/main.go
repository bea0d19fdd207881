package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"waxcrate/internal/api"
	"waxcrate/internal/config"
	"waxcrate/internal/daemon"
	"waxcrate/internal/ingest"
	"waxcrate/internal/logging"
	"waxcrate/internal/records"
	"waxcrate/internal/workflow"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load("")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("ensure directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := records.Open(cfg)
	if err != nil {
		logger.Error("open record store", logging.Error(err))
		return
	}

	registry, err := buildRegistry(cfg, store, logger)
	if err != nil {
		logger.Error("build pipeline", logging.Error(err))
		return
	}

	manager := workflow.NewManager(cfg, store, registry, logger)
	handler := api.NewHandler(store, ingest.NewValidator(cfg, logger), registry, logger)
	server := api.NewServer(cfg.Paths.APIBind, handler.Routes(), logger)

	d, err := daemon.New(cfg, store, logger, manager, server)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		return
	}
	defer d.Close()

	if err := d.Start(ctx); err != nil {
		logger.Error("start daemon", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("waxcrated shutting down")
}
