package match

import (
	"github.com/cory-johannsen/beastbattle/internal/game/battlelog"
	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
)

// SlotStatus is the acquisition state of one player's character slot.
type SlotStatus string

const (
	SlotEmpty   SlotStatus = "empty"
	SlotPending SlotStatus = "pending"
	SlotReady   SlotStatus = "ready"
	SlotFailed  SlotStatus = "failed"
)

// Origin records where a slot's profile came from.
type Origin string

const (
	OriginImage    Origin = "image"
	OriginFallback Origin = "fallback"
	OriginOpponent Origin = "opponent"
	OriginProvided Origin = "provided"
)

// SlotView is the read-only view of a slot.
type SlotView struct {
	Status    SlotStatus         `json:"status"`
	Origin    Origin             `json:"origin,omitempty"`
	RequestID uint64             `json:"request_id"`
	Profile   *character.Profile `json:"profile,omitempty"`
	Error     string             `json:"error,omitempty"`
	HasImage  bool               `json:"has_image"`
}

// Selection is a move chosen but not yet confirmed.
type Selection struct {
	Player    combat.PlayerID `json:"player"`
	MoveIndex int             `json:"move_index"`
	Move      character.Move  `json:"move"`
}

// Attack is the most recent resolved move, kept for transient presentation overlays.
type Attack struct {
	Round    int                 `json:"round"`
	Attacker combat.PlayerID     `json:"attacker"`
	Defender combat.PlayerID     `json:"defender"`
	Result   combat.AttackResult `json:"result"`
}

// Snapshot is an immutable view of a match. Every field is a copy; callers may
// keep or modify it freely.
type Snapshot struct {
	// Version increases with every state change. Observers receiving snapshots
	// from several goroutines drop any version older than the last one seen.
	Version uint64 `json:"version"`
	// Game changes whenever the log is cleared for a new game or a reset.
	// Log sequence numbers are only comparable within one Game.
	Game  uint64 `json:"game"`
	Phase Phase  `json:"phase"`
	Mode    Mode   `json:"mode,omitempty"`
	Round   int    `json:"round"`

	Players [2]combat.Player `json:"players"`
	Slots   [2]SlotView      `json:"slots"`

	// Active is the seat allowed to select a move, or zero outside combat.
	Active    combat.PlayerID `json:"active,omitempty"`
	Acted     [2]bool         `json:"acted"`
	Selection *Selection      `json:"selection,omitempty"`
	// LastAttack is cleared when a new round starts.
	LastAttack *Attack            `json:"last_attack,omitempty"`
	Winner     combat.PlayerID    `json:"winner,omitempty"`
	Log        []battlelog.Record `json:"log"`
}

// Player returns the hit point track for id.
//
// Precondition: id.Valid().
func (s Snapshot) Player(id combat.PlayerID) combat.Player { return s.Players[id.Index()] }

// Slot returns the slot view for id.
//
// Precondition: id.Valid().
func (s Snapshot) Slot(id combat.PlayerID) SlotView { return s.Slots[id.Index()] }

// HasActed reports whether id has resolved a move this round.
func (s Snapshot) HasActed(id combat.PlayerID) bool { return s.Acted[id.Index()] }
