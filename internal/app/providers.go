// Package app builds the battle service and its dependencies from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/config"
	"github.com/cory-johannsen/beastbattle/internal/game/dice"
	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
	"github.com/cory-johannsen/beastbattle/internal/gameserver"
	"github.com/cory-johannsen/beastbattle/internal/generation"
	"github.com/cory-johannsen/beastbattle/internal/scripting"
	"github.com/cory-johannsen/beastbattle/internal/storage/postgres"
	"github.com/cory-johannsen/beastbattle/internal/storage/sqlite"
)

const galleryReadyTimeout = 5 * time.Second

// ServiceSet provides a *gameserver.Service from a config.Config, a
// context.Context and a *zap.Logger.
var ServiceSet = wire.NewSet(
	ProvideDice,
	ProvideProfileProvider,
	ProvideMatchConfig,
	ProvideRegistry,
	ProvideGallery,
	gameserver.NewService,
)

// ProvideDice returns a seeded source when battle.seed is set, otherwise crypto/rand.
func ProvideDice(cfg config.Config, logger *zap.Logger) dice.Source {
	var src dice.Source
	if cfg.Battle.Seed != 0 {
		logger.Info("using seeded dice", zap.Uint64("seed", cfg.Battle.Seed))
		src = dice.NewSeededSource(cfg.Battle.Seed)
	} else {
		src = dice.NewCryptoSource()
	}
	if cfg.Logging.LogDice {
		return dice.NewLoggedSource(src, logger.Named("dice"))
	}
	return src
}

// ProvideProfileProvider builds the configured provider behind a deduplicating wrapper.
func ProvideProfileProvider(cfg config.Config, src dice.Source, logger *zap.Logger) (generation.Provider, error) {
	var next generation.Provider
	switch cfg.Generation.Provider {
	case "anthropic":
		c, err := generation.NewClaude(generation.ClaudeConfig{
			APIKey:    cfg.Generation.Anthropic.APIKey,
			Model:     cfg.Generation.Anthropic.Model,
			BaseURL:   cfg.Generation.Anthropic.BaseURL,
			MaxTokens: cfg.Generation.Anthropic.MaxTokens,
			Timeout:   cfg.Generation.Timeout,
		}, logger.Named("claude"))
		if err != nil {
			return nil, fmt.Errorf("creating claude provider: %w", err)
		}
		next = c
	case "roster":
		r, err := generation.LoadRoster(cfg.Generation.RosterDir, src)
		if err != nil {
			return nil, err
		}
		logger.Info("roster loaded", zap.String("dir", cfg.Generation.RosterDir), zap.Int("creatures", r.Len()))
		next = r
	default:
		return nil, fmt.Errorf("unknown generation provider %q", cfg.Generation.Provider)
	}
	return generation.NewDeduped(next, logger), nil
}

func ProvideMatchConfig(cfg config.Config) match.Config {
	return match.Config{
		InitialHP:              cfg.Battle.InitialHP,
		BossHP:                 cfg.Battle.BossHP,
		TurnDelay:              cfg.Battle.TurnDelay,
		RoundEndDelay:          cfg.Battle.RoundEndDelay,
		AcquireTimeout:         cfg.Generation.Timeout,
		FallbackOnImageFailure: cfg.Battle.FallbackOnImageFailure,
	}
}

// ProvideRegistry builds the match registry. The cleanup closes every match
// and the Lua boss strategy, if one was loaded.
func ProvideRegistry(cfg config.Config, mcfg match.Config, provider generation.Provider, src dice.Source, logger *zap.Logger) (*gameserver.Registry, func(), error) {
	opts := []gameserver.RegistryOption{gameserver.WithLogBattles(cfg.Logging.LogBattles)}
	var strategy *scripting.LuaStrategy
	if path := cfg.Scripting.OpponentScript; path != "" {
		s, err := scripting.LoadLuaStrategy(path, cfg.Scripting.InstructionLimit, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("boss strategy loaded", zap.String("script", path))
		strategy = s
		opts = append(opts, gameserver.WithBossStrategy(s))
	}
	reg := gameserver.NewRegistry(mcfg, provider, src, logger, opts...)
	return reg, func() {
		reg.Close()
		if strategy != nil {
			strategy.Close()
		}
	}, nil
}

// ProvideGallery opens the configured gallery store.
func ProvideGallery(ctx context.Context, cfg config.Config, logger *zap.Logger) (gallery.Store, func(), error) {
	switch cfg.Gallery.Driver {
	case "memory":
		return gallery.NewMemoryStore(cfg.Gallery.Capacity), func() {}, nil
	case "sqlite":
		repo, err := sqlite.Open(cfg.Gallery.SQLitePath, cfg.Gallery.Capacity)
		if err != nil {
			return nil, nil, fmt.Errorf("opening sqlite gallery: %w", err)
		}
		logger.Info("sqlite gallery opened", zap.String("path", cfg.Gallery.SQLitePath))
		return repo, func() { _ = repo.Close() }, nil
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to database: %w", err)
		}
		if err := pool.Ready(ctx, galleryReadyTimeout); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("postgres gallery not ready: %w", err)
		}
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Int("port", cfg.Database.Port),
			zap.String("database", cfg.Database.Name),
		)
		return postgres.NewGalleryRepository(pool.DB(), cfg.Gallery.Capacity), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown gallery driver %q", cfg.Gallery.Driver)
	}
}
