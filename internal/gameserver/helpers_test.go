package gameserver_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
	"github.com/cory-johannsen/beastbattle/internal/game/dice"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
	"github.com/cory-johannsen/beastbattle/internal/gameserver"
	"github.com/cory-johannsen/beastbattle/internal/generation"
)

func emberFox() character.Profile {
	return character.Profile{
		Species: "Fox", Title: "Ember Fox", Element: element.Fire,
		Stats: character.Stats{HP: 300, Attack: 100, Defense: 50, Speed: 60},
		Moves: []character.Move{
			{Name: "Flame Bite", Category: character.Physical, Power: 50, Accuracy: 100},
			{Name: "Smoke Veil", Category: character.Status, Power: 0, Accuracy: 100},
			{Name: "Inferno", Category: character.Special, Power: 90, Accuracy: 70},
		},
	}
}

func mossGolem() character.Profile {
	return character.Profile{
		Species: "Moss", Title: "Moss Golem", Element: element.Forest,
		Stats: character.Stats{HP: 300, Attack: 50, Defense: 50, Speed: 40},
		Moves: []character.Move{
			{Name: "Vine Lash", Category: character.Physical, Power: 50, Accuracy: 100},
			{Name: "Root Bind", Category: character.Status, Power: 0, Accuracy: 100},
			{Name: "Boulder Toss", Category: character.Physical, Power: 70, Accuracy: 100},
		},
	}
}

func testMatchConfig() match.Config {
	cfg := match.DefaultConfig()
	cfg.TurnDelay = 0
	cfg.RoundEndDelay = time.Hour
	return cfg
}

func newTestService(t *testing.T, store gallery.Store) *gameserver.Service {
	t.Helper()
	src := dice.NewSeededSource(7)
	roster, err := generation.NewRoster([]character.Profile{emberFox(), mossGolem()}, src)
	require.NoError(t, err)
	reg := gameserver.NewRegistry(testMatchConfig(), roster, src, zap.NewNop())
	t.Cleanup(reg.Close)
	return gameserver.NewService(reg, store, zap.NewNop())
}

func waitForPhase(t *testing.T, svc *gameserver.Service, id string, phase match.Phase) match.Snapshot {
	t.Helper()
	var snap match.Snapshot
	require.Eventually(t, func() bool {
		s, err := svc.Snapshot(id)
		require.NoError(t, err)
		snap = s
		return s.Phase == phase
	}, 2*time.Second, 5*time.Millisecond, "phase %s never reached", phase)
	return snap
}

func waitForSlot(t *testing.T, svc *gameserver.Service, id string, player combat.PlayerID, status match.SlotStatus) match.Snapshot {
	t.Helper()
	var snap match.Snapshot
	require.Eventually(t, func() bool {
		s, err := svc.Snapshot(id)
		require.NoError(t, err)
		snap = s
		return s.Slot(player).Status == status
	}, 2*time.Second, 5*time.Millisecond, "slot %s never reached %s", player, status)
	return snap
}
