package app_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/app"
	"github.com/cory-johannsen/beastbattle/internal/config"
	"github.com/cory-johannsen/beastbattle/internal/game/dice"
	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/storage/sqlite"
)

const rosterYAML = `creatures:
  - species: Otter
    title: Riptide Otter
    element: tide
    stats: {hp: 300, attack: 70, defense: 60, speed: 80}
    moves:
      - {name: Undertow, category: special, power: 70, accuracy: 95}
      - {name: Shell Crack, category: physical, power: 55, accuracy: 100}
      - {name: Float, category: status, power: 0, accuracy: 100}
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "roster.yaml"), []byte(rosterYAML), 0644))
	return config.Config{
		Logging: config.LoggingConfig{Level: "info", Format: "json"},
		Battle: config.BattleConfig{
			InitialHP: 250, BossHP: 600,
			TurnDelay: 10 * time.Millisecond, RoundEndDelay: time.Second,
			FallbackOnImageFailure: true,
			Seed:                   42,
		},
		Generation: config.GenerationConfig{Provider: "roster", RosterDir: dir, Timeout: 5 * time.Second},
		Gallery:    config.GalleryConfig{Driver: "memory", Capacity: 3, SQLitePath: filepath.Join(dir, "gallery.db")},
		GameServer: config.GameServerConfig{GRPCHost: "127.0.0.1", GRPCPort: 50051},
		Web:        config.WebConfig{Host: "127.0.0.1", Port: 8080, MaxUploadBytes: 1 << 20},
	}
}

func TestProvideDice_SeededIsRepeatable(t *testing.T) {
	cfg := testConfig(t)
	a := app.ProvideDice(cfg, zap.NewNop())
	b := app.ProvideDice(cfg, zap.NewNop())
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}

	cfg.Logging.LogDice = true
	_, logged := app.ProvideDice(cfg, zap.NewNop()).(*dice.LoggedSource)
	assert.True(t, logged)
}

func TestProvideMatchConfig(t *testing.T) {
	cfg := testConfig(t)
	mc := app.ProvideMatchConfig(cfg)
	assert.Equal(t, 250, mc.InitialHP)
	assert.Equal(t, 600, mc.BossHP)
	assert.Equal(t, 10*time.Millisecond, mc.TurnDelay)
	assert.Equal(t, 5*time.Second, mc.AcquireTimeout)
	assert.True(t, mc.FallbackOnImageFailure)
}

func TestProvideProfileProvider_Roster(t *testing.T) {
	cfg := testConfig(t)
	p, err := app.ProvideProfileProvider(cfg, dice.NewSeededSource(1), zap.NewNop())
	require.NoError(t, err)
	prof, err := p.AcquireRandomOpponent(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Riptide Otter", prof.Title)

	cfg.Generation.RosterDir = filepath.Join(t.TempDir(), "missing")
	_, err = app.ProvideProfileProvider(cfg, dice.NewSeededSource(1), zap.NewNop())
	assert.Error(t, err)
}

func TestProvideProfileProvider_AnthropicNeedsKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.Generation.Provider = "anthropic"
	_, err := app.ProvideProfileProvider(cfg, dice.NewSeededSource(1), zap.NewNop())
	assert.Error(t, err)

	cfg.Generation.Anthropic.APIKey = "sk-test"
	_, err = app.ProvideProfileProvider(cfg, dice.NewSeededSource(1), zap.NewNop())
	assert.NoError(t, err)
}

func TestProvideGallery(t *testing.T) {
	cfg := testConfig(t)
	store, cleanup, err := app.ProvideGallery(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &gallery.MemoryStore{}, store)

	cfg.Gallery.Driver = "sqlite"
	store, cleanup, err = app.ProvideGallery(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	assert.IsType(t, &sqlite.GalleryRepository{}, store)

	cfg.Gallery.Driver = "redis"
	_, _, err = app.ProvideGallery(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
}

func TestProvideRegistry_LoadsBossScript(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "boss.lua")
	require.NoError(t, os.WriteFile(path, []byte("function choose_move(state) return 1 end"), 0644))
	cfg.Scripting.OpponentScript = path

	src := app.ProvideDice(cfg, zap.NewNop())
	provider, err := app.ProvideProfileProvider(cfg, src, zap.NewNop())
	require.NoError(t, err)
	reg, cleanup, err := app.ProvideRegistry(cfg, app.ProvideMatchConfig(cfg), provider, src, zap.NewNop())
	require.NoError(t, err)
	defer cleanup()
	room := reg.Create()
	assert.Equal(t, 1, reg.Len())
	assert.NotEmpty(t, room.ID)

	cfg.Scripting.OpponentScript = filepath.Join(t.TempDir(), "missing.lua")
	_, _, err = app.ProvideRegistry(cfg, app.ProvideMatchConfig(cfg), provider, src, zap.NewNop())
	assert.Error(t, err)
}
