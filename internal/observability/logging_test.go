package observability

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/beastbattle/internal/config"
	"github.com/cory-johannsen/beastbattle/internal/game/battlelog"
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
)

func TestNewLogger_JSON(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "info", Format: "json"}, "battleserver")
	require.NoError(t, err)
	assert.NotNil(t, logger)
}

func TestNewLogger_Console(t *testing.T) {
	logger, err := NewLogger(config.LoggingConfig{Level: "debug", Format: "console"}, "")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "trace", Format: "json"}, "x")
	assert.Error(t, err)
}

func TestNewLogger_InvalidFormat(t *testing.T) {
	_, err := NewLogger(config.LoggingConfig{Level: "info", Format: "xml"}, "x")
	assert.Error(t, err)
}

func TestNewLogger_AllLevels(t *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error"} {
		logger, err := NewLogger(config.LoggingConfig{Level: level, Format: "json"}, "x")
		require.NoError(t, err, "level %q should be valid", level)
		assert.NotNil(t, logger)
	}
}

func rec(seq, round int, cat battlelog.Category, msg string) battlelog.Record {
	return battlelog.Record{Seq: seq, Round: round, Category: cat, Actor: combat.Player1, Message: msg}
}

func TestBattleLogObserver_WritesEachRecordOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	obs := BattleLogObserver(zap.New(core))

	obs(match.Snapshot{Version: 1, Log: []battlelog.Record{rec(1, 1, battlelog.System, "welcome")}})
	obs(match.Snapshot{Version: 3, Log: []battlelog.Record{
		rec(1, 1, battlelog.System, "welcome"),
		rec(2, 1, battlelog.Damage, "hit"),
	}})
	// stale snapshot delivered late
	obs(match.Snapshot{Version: 2, Log: []battlelog.Record{rec(1, 1, battlelog.System, "welcome")}})

	entries := logs.FilterMessage("battle log").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "welcome", entries[0].ContextMap()["message"])
	assert.Equal(t, "hit", entries[1].ContextMap()["message"])
	assert.Equal(t, "damage", entries[1].ContextMap()["category"])
}

func TestBattleLogObserver_RestartsAfterReset(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	obs := BattleLogObserver(zap.New(core))

	obs(match.Snapshot{Version: 1, Log: []battlelog.Record{
		rec(1, 1, battlelog.System, "a"),
		rec(2, 1, battlelog.Victory, "b"),
	}})
	obs(match.Snapshot{Version: 2, Game: 1})
	obs(match.Snapshot{Version: 3, Game: 1, Log: []battlelog.Record{rec(1, 1, battlelog.System, "c")}})

	assert.Equal(t, 3, logs.FilterMessage("battle log").Len())
}

func TestBattleLogObserver_NewGameSeenWithoutItsReset(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	obs := BattleLogObserver(zap.New(core))

	obs(match.Snapshot{Version: 4, Log: []battlelog.Record{
		rec(1, 1, battlelog.System, "a"),
		rec(2, 1, battlelog.Victory, "b"),
	}})
	// the empty snapshot of the reset was never delivered; the next game is
	// already longer than the last one
	obs(match.Snapshot{Version: 9, Game: 1, Log: []battlelog.Record{
		rec(1, 1, battlelog.System, "w"),
		rec(2, 1, battlelog.System, "x"),
		rec(3, 1, battlelog.RoundBoundary, "y"),
	}})

	entries := logs.FilterMessage("battle log").All()
	require.Len(t, entries, 5)
	assert.Equal(t, "w", entries[2].ContextMap()["message"])
}
