// Package main provides the Telnet arena frontend. Each connection plays one
// match against the battle server over gRPC.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cory-johannsen/beastbattle/internal/config"
	"github.com/cory-johannsen/beastbattle/internal/frontend/handlers"
	"github.com/cory-johannsen/beastbattle/internal/frontend/telnet"
	"github.com/cory-johannsen/beastbattle/internal/gameserver"
	"github.com/cory-johannsen/beastbattle/internal/observability"
	"github.com/cory-johannsen/beastbattle/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "frontend")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting arena frontend",
		zap.String("telnet_addr", cfg.Telnet.Addr()),
		zap.String("gameserver_addr", cfg.GameServer.Addr()),
	)

	conn, err := grpc.NewClient(cfg.GameServer.Addr(),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		logger.Fatal("creating gameserver client", zap.Error(err))
	}
	defer func() { _ = conn.Close() }()

	arena := handlers.NewArenaHandler(gameserver.NewClient(conn), logger)
	acceptor := telnet.NewAcceptor(cfg.Telnet, arena, logger)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("telnet", &server.FuncService{
		StartFn: acceptor.ListenAndServe,
		StopFn:  acceptor.Stop,
	})

	logger.Info("frontend initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("telnet_addr", cfg.Telnet.Addr()),
	)

	if err := lifecycle.Run(context.Background()); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}
