package gameserver

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/game/combat"
	"github.com/cory-johannsen/beastbattle/internal/game/dice"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
	"github.com/cory-johannsen/beastbattle/internal/observability"
)

// ErrMatchNotFound is returned for an unknown or removed match id.
var ErrMatchNotFound = errors.New("match not found")

// Room is one registered match together with its snapshot hub.
type Room struct {
	ID        string
	CreatedAt time.Time
	Match     *match.Match
	Hub       *Hub
}

// RegistryOption customises a Registry.
type RegistryOption func(*Registry)

// WithBossStrategy plays the PvE boss seat with s. Without it the boss uses
// match.StrongestMove.
func WithBossStrategy(s match.Strategy) RegistryOption {
	return func(r *Registry) { r.boss = s }
}

// WithMatchOptions appends options applied to every new match.
func WithMatchOptions(opts ...match.Option) RegistryOption {
	return func(r *Registry) { r.matchOpts = append(r.matchOpts, opts...) }
}

// WithLogBattles writes each match's battle log through the registry logger.
func WithLogBattles(enabled bool) RegistryOption {
	return func(r *Registry) { r.logBattles = enabled }
}

// Registry owns every live match. Matches share the provider and dice source.
type Registry struct {
	cfg        match.Config
	provider   match.ProfileProvider
	src        dice.Source
	logger     *zap.Logger
	boss       match.Strategy
	matchOpts  []match.Option
	logBattles bool
	now        func() time.Time

	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewRegistry builds an empty Registry.
//
// Precondition: src and logger must be non-nil; provider may be nil.
func NewRegistry(cfg match.Config, provider match.ProfileProvider, src dice.Source, logger *zap.Logger, opts ...RegistryOption) *Registry {
	r := &Registry{
		cfg:      cfg,
		provider: provider,
		src:      src,
		logger:   logger,
		boss:     match.StrongestMove{},
		now:      time.Now,
		rooms:    make(map[string]*Room),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create starts a new match in Setup and registers it under a fresh uuid.
//
// Postcondition: Returns a Room whose hub already holds the initial snapshot.
func (r *Registry) Create() *Room {
	id := uuid.NewString()
	logger := r.logger.With(zap.String("match_id", id))
	hub := NewHub()

	observe := hub.Publish
	if r.logBattles {
		battle := observability.BattleLogObserver(logger)
		observe = func(s match.Snapshot) {
			hub.Publish(s)
			battle(s)
		}
	}

	opts := append([]match.Option{
		match.WithObserver(observe),
		match.WithAutopilot(combat.Player2, r.boss, match.PvE),
	}, r.matchOpts...)
	m := match.New(r.cfg, r.provider, r.src, logger, opts...)
	hub.Publish(m.Snapshot())

	room := &Room{ID: id, CreatedAt: r.now(), Match: m, Hub: hub}
	r.mu.Lock()
	r.rooms[id] = room
	r.mu.Unlock()

	logger.Info("match created")
	return room
}

// Get returns the room registered under id.
func (r *Registry) Get(id string) (*Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	return room, nil
}

// Remove closes the match, ends every watcher and forgets id.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	room, ok := r.rooms[id]
	delete(r.rooms, id)
	r.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrMatchNotFound, id)
	}
	r.closeRoom(room)
	r.logger.Info("match removed", zap.String("match_id", id))
	return nil
}

// IDs returns the registered match ids, oldest first.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	rooms := make([]*Room, 0, len(r.rooms))
	for _, room := range r.rooms {
		rooms = append(rooms, room)
	}
	r.mu.RUnlock()
	sort.Slice(rooms, func(i, j int) bool {
		if rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].ID < rooms[j].ID
		}
		return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
	})
	ids := make([]string, len(rooms))
	for i, room := range rooms {
		ids[i] = room.ID
	}
	return ids
}

// Len returns the number of live matches.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Close removes every match.
func (r *Registry) Close() {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[string]*Room)
	r.mu.Unlock()
	for _, room := range rooms {
		r.closeRoom(room)
	}
}

func (r *Registry) closeRoom(room *Room) {
	room.Match.Close()
	room.Hub.Close()
}
