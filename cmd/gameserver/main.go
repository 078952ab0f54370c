// Package main runs the battle server: the gRPC BattleService and the web API
// over one shared match registry.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/config"
	"github.com/cory-johannsen/beastbattle/internal/observability"
	"github.com/cory-johannsen/beastbattle/internal/server"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logging, "gameserver")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting battle server",
		zap.String("grpc_addr", cfg.GameServer.Addr()),
		zap.String("web_addr", cfg.Web.Addr()),
		zap.String("provider", cfg.Generation.Provider),
		zap.String("gallery", cfg.Gallery.Driver),
	)

	srv, cleanup, err := initializeServers(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("wiring battle server", zap.Error(err))
	}
	defer cleanup()

	grpcLis, err := net.Listen("tcp", cfg.GameServer.Addr())
	if err != nil {
		logger.Fatal("listening for gRPC", zap.String("addr", cfg.GameServer.Addr()), zap.Error(err))
	}
	webLis, err := net.Listen("tcp", cfg.Web.Addr())
	if err != nil {
		logger.Fatal("listening for HTTP", zap.String("addr", cfg.Web.Addr()), zap.Error(err))
	}

	httpSrv := &http.Server{
		Handler:           srv.web,
		ReadHeaderTimeout: 10 * time.Second,
	}
	httpSvc := server.HTTPService(httpSrv, webLis)

	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("grpc", server.GRPCService(srv.grpc, grpcLis))
	lifecycle.Add("web", &server.FuncService{
		StartFn: httpSvc.Start,
		StopFn: func() {
			srv.web.Close()
			httpSvc.Stop()
		},
	})

	logger.Info("battle server initialized",
		zap.Duration("startup", time.Since(start)),
		zap.String("grpc_addr", grpcLis.Addr().String()),
		zap.String("web_addr", fmt.Sprintf("http://%s", webLis.Addr())),
	)

	if err := lifecycle.Run(ctx); err != nil {
		logger.Error("server error", zap.Error(err))
	}
}
