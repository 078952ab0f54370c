// Package main runs a two-player hotseat arena on the local terminal. The
// battle service runs in-process behind a loopback gRPC listener.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/cory-johannsen/beastbattle/internal/config"
	"github.com/cory-johannsen/beastbattle/internal/frontend/handlers"
	"github.com/cory-johannsen/beastbattle/internal/gameserver"
	"github.com/cory-johannsen/beastbattle/internal/observability"
	"github.com/cory-johannsen/beastbattle/internal/server"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	// The terminal belongs to the players; only problems reach stderr.
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "console"
	cfg.Logging.LogBattles = false

	logger, err := observability.NewLogger(cfg.Logging, "hotseat")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, in io.Reader, out io.Writer) error {
	svc, cleanup, err := initializeService(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("wiring battle service: %w", err)
	}
	defer cleanup()

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listening on loopback: %w", err)
	}
	grpcSrv := grpc.NewServer()
	gameserver.RegisterBattleServiceServer(grpcSrv, gameserver.NewBattleServer(svc, logger))
	grpcSvc := server.GRPCService(grpcSrv, lis)
	go func() {
		if err := grpcSvc.Start(); err != nil {
			logger.Error("battle service stopped", zap.Error(err))
		}
	}()
	defer grpcSvc.Stop()

	conn, err := grpc.NewClient(lis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return fmt.Errorf("dialing battle service: %w", err)
	}
	defer func() { _ = conn.Close() }()

	arena := handlers.NewArenaHandler(gameserver.NewClient(conn), logger, handlers.WithLocalFiles())
	return arena.Play(ctx, handlers.NewStreamTerminal(in, out))
}
