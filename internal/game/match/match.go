// Package match coordinates one two-player battle: character acquisition,
// initiative, the turn exchange, round boundaries and game over.
//
// A Match is the single owner of its battle state. Commands, display-delay
// timers and acquisition completions all serialise through one mutex, and every
// accepted change publishes an immutable Snapshot to the observer. Commands
// that arrive in the wrong phase or for the wrong seat are silent no-ops.
package match

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/game/battlelog"
	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
	"github.com/cory-johannsen/beastbattle/internal/game/dice"
)

// ProfileProvider supplies character profiles at acquisition boundaries.
type ProfileProvider interface {
	AcquireFromImage(ctx context.Context, image []byte, mimeType string) (character.Profile, error)
	AcquireRandomOpponent(ctx context.Context) (character.Profile, error)
}

// Config holds the battle tunables.
type Config struct {
	// InitialHP is every player's MaxHP at the start of a game.
	InitialHP int
	// BossHP replaces player 2's HP whenever a PvE boss is committed.
	BossHP int
	// TurnDelay is the pause before the other player becomes active.
	TurnDelay time.Duration
	// RoundEndDelay is the pause between RoundEnd and the next acquisition phase.
	RoundEndDelay time.Duration
	// AcquireTimeout bounds each provider call. Zero means no bound.
	AcquireTimeout time.Duration
	// FallbackOnImageFailure substitutes character.FallbackProfile when image
	// acquisition fails instead of marking the slot failed.
	FallbackOnImageFailure bool
}

// DefaultConfig returns the standard tunables.
func DefaultConfig() Config {
	return Config{
		InitialHP:              300,
		BossHP:                 500,
		TurnDelay:              1200 * time.Millisecond,
		RoundEndDelay:          2 * time.Second,
		AcquireTimeout:         time.Minute,
		FallbackOnImageFailure: true,
	}
}

// Observer receives every published snapshot. It is called without the match
// lock held and may be called from several goroutines; Snapshot.Version orders them.
type Observer func(Snapshot)

// Option customises a Match.
type Option func(*Match)

// WithScheduler replaces the wall-clock scheduler used for display delays.
func WithScheduler(s combat.Scheduler) Option {
	return func(m *Match) { m.scheduler = s }
}

// WithObserver registers the snapshot observer.
func WithObserver(o Observer) Option {
	return func(m *Match) { m.observer = o }
}

// WithAutopilot lets s play for player. When modes is non-empty the autopilot
// only plays in those modes.
func WithAutopilot(player combat.PlayerID, s Strategy, modes ...Mode) Option {
	return func(m *Match) {
		if !player.Valid() {
			return
		}
		m.autopilots[player.Index()] = autopilot{strategy: s, modes: modes}
	}
}

type autopilot struct {
	strategy Strategy
	modes    []Mode
}

func (a autopilot) playsIn(mode Mode) bool {
	if a.strategy == nil {
		return false
	}
	if len(a.modes) == 0 {
		return true
	}
	for _, m := range a.modes {
		if m == mode {
			return true
		}
	}
	return false
}

type slot struct {
	status  SlotStatus
	origin  Origin
	reqID   uint64
	profile *character.Profile
	image   []byte
	mime    string
	err     string
	cancel  context.CancelFunc
}

// Match is one battle between two seats.
type Match struct {
	cfg        Config
	provider   ProfileProvider
	src        dice.Source
	logger     *zap.Logger
	scheduler  combat.Scheduler
	observer   Observer
	autopilots [2]autopilot

	baseCtx context.Context
	closeFn context.CancelFunc
	wg      sync.WaitGroup

	// mu serialises every state access; the fields below are guarded by it.
	mu        sync.Mutex
	phase     *fsm.FSM
	mode      Mode
	round     int
	players   [2]combat.Player
	slots     [2]slot
	active    combat.PlayerID
	acted     [2]bool
	selection *Selection
	last      *Attack
	winner    combat.PlayerID
	log       *battlelog.Log
	version   uint64
	epoch     uint64
	requests  uint64
	timerSeq  uint64
	timers    map[uint64]combat.Stopper
	closed    bool
}

// New creates a Match in the Setup phase.
//
// Precondition: src and logger must be non-nil. provider may be nil, in which
// case only AcquireProfile can fill slots.
// Postcondition: Returns a Match in Setup with both players at cfg.InitialHP.
func New(cfg Config, provider ProfileProvider, src dice.Source, logger *zap.Logger, opts ...Option) *Match {
	def := DefaultConfig()
	if cfg.InitialHP <= 0 {
		cfg.InitialHP = def.InitialHP
	}
	if cfg.BossHP <= 0 {
		cfg.BossHP = def.BossHP
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Match{
		cfg:       cfg,
		provider:  provider,
		src:       src,
		logger:    logger,
		scheduler: combat.TimerScheduler{},
		baseCtx:   ctx,
		closeFn:   cancel,
		round:     1,
		log:       battlelog.New(),
		timers:    make(map[uint64]combat.Stopper),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.phase = newPhaseMachine(func(event string, from, to Phase) {
		m.logger.Debug("phase transition",
			zap.String("event", event),
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
	})
	m.resetPlayersLocked()
	return m
}

// Snapshot returns the current immutable view.
func (m *Match) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Committed returns the profile and image held by a Ready slot.
func (m *Match) Committed(player combat.PlayerID) (character.Profile, []byte, string, bool) {
	if !player.Valid() {
		return character.Profile{}, nil, "", false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.slots[player.Index()]
	if s.status != SlotReady || s.profile == nil {
		return character.Profile{}, nil, "", false
	}
	return s.profile.Clone(), append([]byte(nil), s.image...), s.mime, true
}

// StartRound starts a new game in mode from Setup, or replays from GameOver.
// HP is restored, the round counter returns to 1, and the match enters
// AcquiringCharacters.
func (m *Match) StartRound(mode Mode) {
	if mode != PvP && mode != PvE {
		return
	}
	m.update(func() bool {
		if p := m.phaseLocked(); p != Setup && p != GameOver {
			return false
		}
		m.clearBattleLocked()
		m.mode = mode
		m.round = 1
		m.resetPlayersLocked()
		m.log.Reset()
		m.appendLocked(battlelog.System, 0, 0, msgWelcome)
		m.appendLocked(battlelog.System, 0, 0, msgMission)
		m.fireLocked(eventBegin)
		m.enterAcquiringLocked()
		return true
	})
}

// SelectMove stores a pending move selection for player.
//
// No-op unless the phase is Combat, player is active and has not acted, and
// moveIndex names one of the player's moves.
func (m *Match) SelectMove(player combat.PlayerID, moveIndex int) {
	m.update(func() bool {
		if !m.canActLocked(player) {
			return false
		}
		moves := m.slots[player.Index()].profile.Moves
		if moveIndex < 0 || moveIndex >= len(moves) {
			return false
		}
		m.selection = &Selection{Player: player, MoveIndex: moveIndex, Move: moves[moveIndex]}
		return true
	})
}

// ClearSelection drops the pending selection, if any.
func (m *Match) ClearSelection() {
	m.update(func() bool {
		if m.selection == nil {
			return false
		}
		m.selection = nil
		return true
	})
}

// ConfirmSelectedMove resolves the pending selection.
//
// A knockout ends the game immediately. Otherwise the other player becomes
// active after TurnDelay, or, once both have acted, the match enters RoundEnd
// and advances to the next acquisition phase after RoundEndDelay.
func (m *Match) ConfirmSelectedMove() {
	m.update(func() bool {
		sel := m.selection
		if sel == nil || !m.canActLocked(sel.Player) {
			return false
		}
		m.resolveLocked(sel.Player, sel.MoveIndex)
		return true
	})
}

// ResetToSetup abandons the game. Timers are cancelled, pending acquisitions
// are cancelled and their late results discarded, and all state returns to its
// initial values.
func (m *Match) ResetToSetup() {
	m.update(func() bool {
		if m.phaseLocked() == Setup {
			return false
		}
		m.clearBattleLocked()
		m.mode = ""
		m.round = 1
		m.resetPlayersLocked()
		m.log.Reset()
		m.fireLocked(eventReset)
		return true
	})
}

// Close cancels timers and in-flight acquisitions and waits for background
// acquisitions to return. A closed match ignores every command.
func (m *Match) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.clearBattleLocked()
	m.mu.Unlock()
	m.closeFn()
	m.wg.Wait()
}

// update runs fn under the lock and publishes a snapshot when fn reports a change.
func (m *Match) update(fn func() bool) {
	m.mu.Lock()
	if m.closed || !fn() {
		m.mu.Unlock()
		return
	}
	m.version++
	snap := m.snapshotLocked()
	m.mu.Unlock()
	if m.observer != nil {
		m.observer(snap)
	}
}

func (m *Match) phaseLocked() Phase {
	return Phase(m.phase.Current())
}

func (m *Match) fireLocked(event string) {
	if err := m.phase.Event(context.Background(), event); err != nil {
		var noop fsm.NoTransitionError
		if errors.As(err, &noop) {
			return
		}
		m.logger.Error("phase transition rejected",
			zap.String("event", event),
			zap.String("phase", m.phase.Current()),
			zap.Error(err),
		)
	}
}

func (m *Match) appendLocked(cat battlelog.Category, actor combat.PlayerID, damage int, msg string) {
	m.log.Append(battlelog.Record{
		Round:    m.round,
		Category: cat,
		Actor:    actor,
		Damage:   damage,
		Message:  msg,
	})
}

func (m *Match) resetPlayersLocked() {
	m.players = [2]combat.Player{
		combat.NewPlayer(combat.Player1, p1Label, m.cfg.InitialHP),
		combat.NewPlayer(combat.Player2, p2Label, m.cfg.InitialHP),
	}
}

// clearBattleLocked invalidates every timer and acquisition and clears per-round state.
func (m *Match) clearBattleLocked() {
	m.epoch++
	for id, t := range m.timers {
		t.Stop()
		delete(m.timers, id)
	}
	m.resetSlotsLocked()
	m.active = 0
	m.acted = [2]bool{}
	m.selection = nil
	m.last = nil
	m.winner = 0
}

func (m *Match) resetSlotsLocked() {
	for i := range m.slots {
		if m.slots[i].cancel != nil {
			m.slots[i].cancel()
		}
		m.slots[i] = slot{status: SlotEmpty}
	}
}

// afterLocked runs fn after d. fn is called with the lock held and reports
// whether it changed state. A delay <= 0 runs fn immediately. Callbacks
// scheduled before a reset never run.
func (m *Match) afterLocked(d time.Duration, fn func() bool) {
	if d <= 0 {
		fn()
		return
	}
	epoch := m.epoch
	m.timerSeq++
	id := m.timerSeq
	m.timers[id] = m.scheduler.After(d, func() {
		m.update(func() bool {
			if m.epoch != epoch {
				return false
			}
			delete(m.timers, id)
			return fn()
		})
	})
}

func (m *Match) canActLocked(player combat.PlayerID) bool {
	return player.Valid() &&
		m.phaseLocked() == Combat &&
		m.active == player &&
		!m.acted[player.Index()]
}

func (m *Match) enterAcquiringLocked() {
	m.active = 0
	m.acted = [2]bool{}
	m.selection = nil
	if m.mode == PvE {
		m.launchOpponentLocked(combat.Player2)
	}
}

func (m *Match) engageLocked() {
	m.fireLocked(eventEngage)
	p1, p2 := m.slots[0].profile, m.slots[1].profile
	m.active = combat.Initiative(p1.Stats, p2.Stats)
	m.acted = [2]bool{}
	m.selection = nil
	m.last = nil
	first := p1
	if m.active == combat.Player2 {
		first = p2
	}
	m.appendLocked(battlelog.RoundBoundary, 0, 0, msgRoundStart(m.round))
	m.appendLocked(battlelog.System, m.active, 0, msgInitiative(*first, m.active))
	m.logger.Debug("combat started",
		zap.Int("round", m.round),
		zap.Stringer("first", m.active),
	)
	m.autopilotLocked()
}

func (m *Match) resolveLocked(attacker combat.PlayerID, moveIndex int) {
	defender := attacker.Other()
	a, d := attacker.Index(), defender.Index()
	att, def := *m.slots[a].profile, *m.slots[d].profile
	move := att.Moves[moveIndex]
	m.selection = nil

	res := combat.ResolveAttack(move, att, def, m.src)
	m.last = &Attack{Round: m.round, Attacker: attacker, Defender: defender, Result: res}
	if res.Missed {
		m.appendLocked(battlelog.Miss, attacker, 0, msgMiss(att, attacker))
	} else {
		m.players[d].ApplyDamage(res.Damage)
		cat := battlelog.Damage
		if res.Critical {
			cat = battlelog.Critical
		}
		m.appendLocked(cat, attacker, res.Damage, msgHit(attacker, res))
	}
	m.logger.Debug("attack resolved",
		zap.Int("round", m.round),
		zap.Stringer("attacker", attacker),
		zap.String("move", move.Name),
		zap.Bool("missed", res.Missed),
		zap.Int("damage", res.Damage),
		zap.Bool("critical", res.Critical),
		zap.Stringer("effectiveness", res.Effectiveness),
		zap.Int("defender_hp", m.players[d].CurrentHP),
	)

	m.acted[a] = true
	if m.players[d].IsDefeated() {
		m.winner = attacker
		m.active = 0
		m.fireLocked(eventKnockout)
		m.appendLocked(battlelog.Victory, attacker, 0, msgVictory(attacker))
		return
	}

	if !m.acted[d] {
		round := m.round
		m.afterLocked(m.cfg.TurnDelay, func() bool {
			if m.phaseLocked() != Combat || m.round != round || m.active != attacker {
				return false
			}
			m.active = defender
			m.autopilotLocked()
			return true
		})
		return
	}

	m.fireLocked(eventFinish)
	m.appendLocked(battlelog.RoundBoundary, 0, 0, msgRoundEnd(m.round))
	round := m.round
	m.afterLocked(m.cfg.RoundEndDelay, func() bool {
		if m.phaseLocked() != RoundEnd || m.round != round {
			return false
		}
		m.advanceLocked()
		return true
	})
}

// advanceLocked moves from RoundEnd to the next acquisition phase. HP carries over.
func (m *Match) advanceLocked() {
	m.round++
	m.resetSlotsLocked()
	m.last = nil
	m.fireLocked(eventAdvance)
	m.enterAcquiringLocked()
}

func (m *Match) autopilotLocked() {
	player := m.active
	if !player.Valid() || !m.autopilots[player.Index()].playsIn(m.mode) {
		return
	}
	m.afterLocked(m.cfg.TurnDelay, func() bool {
		if !m.canActLocked(player) {
			return false
		}
		idx := m.chooseLocked(player)
		m.selection = &Selection{Player: player, MoveIndex: idx, Move: m.slots[player.Index()].profile.Moves[idx]}
		m.resolveLocked(player, idx)
		return true
	})
}

func (m *Match) chooseLocked(player combat.PlayerID) int {
	self, opp := player.Index(), player.Other().Index()
	view := StrategyView{
		Round:           m.round,
		Self:            m.players[self],
		Opponent:        m.players[opp],
		SelfProfile:     m.slots[self].profile.Clone(),
		OpponentProfile: m.slots[opp].profile.Clone(),
	}
	idx, err := m.autopilots[self].strategy.ChooseMove(m.baseCtx, view)
	if err == nil && idx >= 0 && idx < len(view.SelfProfile.Moves) {
		return idx
	}
	m.logger.Warn("autopilot choice rejected, using strongest move",
		zap.Stringer("player", player),
		zap.Int("index", idx),
		zap.Error(err),
	)
	return strongestMove(view.SelfProfile, view.OpponentProfile)
}

func (m *Match) snapshotLocked() Snapshot {
	snap := Snapshot{
		Version: m.version,
		Game:    m.log.Epoch(),
		Phase:   m.phaseLocked(),
		Mode:    m.mode,
		Round:   m.round,
		Players: m.players,
		Active:  m.active,
		Acted:   m.acted,
		Winner:  m.winner,
		Log:     m.log.Snapshot(),
	}
	for i, s := range m.slots {
		v := SlotView{
			Status:    s.status,
			Origin:    s.origin,
			RequestID: s.reqID,
			Error:     s.err,
			HasImage:  len(s.image) > 0,
		}
		if s.profile != nil {
			p := s.profile.Clone()
			v.Profile = &p
		}
		snap.Slots[i] = v
	}
	if m.selection != nil {
		sel := *m.selection
		snap.Selection = &sel
	}
	if m.last != nil {
		last := *m.last
		snap.LastAttack = &last
	}
	return snap
}
