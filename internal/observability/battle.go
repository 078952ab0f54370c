package observability

import (
	"sync"

	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/game/battlelog"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
)

// BattleLogObserver returns a match.Observer that writes every new battle log
// record to logger at info level. Stale snapshots are ignored by version.
func BattleLogObserver(logger *zap.Logger) match.Observer {
	var (
		mu      sync.Mutex
		version uint64
		cursor  battlelog.Cursor
	)
	return func(s match.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if s.Version <= version {
			return
		}
		version = s.Version
		for _, r := range cursor.Next(s.Game, s.Log) {
			logger.Info("battle log",
				zap.Int("seq", r.Seq),
				zap.Int("round", r.Round),
				zap.Stringer("category", r.Category),
				zap.Stringer("actor", r.Actor),
				zap.Int("damage", r.Damage),
				zap.String("message", r.Message),
			)
		}
	}
}
