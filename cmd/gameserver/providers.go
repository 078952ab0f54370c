package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/cory-johannsen/beastbattle/internal/app"
	"github.com/cory-johannsen/beastbattle/internal/config"
	"github.com/cory-johannsen/beastbattle/internal/frontend/web"
	"github.com/cory-johannsen/beastbattle/internal/gameserver"
)

// servers holds what main runs.
type servers struct {
	service *gameserver.Service
	grpc    *grpc.Server
	web     *web.Server
}

func newServers(svc *gameserver.Service, grpcSrv *grpc.Server, webSrv *web.Server) *servers {
	return &servers{service: svc, grpc: grpcSrv, web: webSrv}
}

var providerSet = wire.NewSet(
	app.ServiceSet,
	provideGRPCServer,
	provideWebServer,
	newServers,
)

func provideGRPCServer(svc *gameserver.Service, logger *zap.Logger) *grpc.Server {
	srv := grpc.NewServer()
	gameserver.RegisterBattleServiceServer(srv, gameserver.NewBattleServer(svc, logger))
	hs := health.NewServer()
	hs.SetServingStatus(gameserver.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(srv, hs)
	return srv
}

func provideWebServer(svc *gameserver.Service, cfg config.Config, logger *zap.Logger) *web.Server {
	return web.NewServer(svc, cfg.Web, logger.Named("web"))
}
