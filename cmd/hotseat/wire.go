//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/app"
	"github.com/cory-johannsen/beastbattle/internal/config"
	"github.com/cory-johannsen/beastbattle/internal/gameserver"
)

func initializeService(ctx context.Context, cfg config.Config, logger *zap.Logger) (*gameserver.Service, func(), error) {
	wire.Build(app.ServiceSet)
	return nil, nil, nil
}
