//go:build wireinject

package main

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/config"
)

func initializeServers(ctx context.Context, cfg config.Config, logger *zap.Logger) (*servers, func(), error) {
	wire.Build(providerSet)
	return nil, nil, nil
}
