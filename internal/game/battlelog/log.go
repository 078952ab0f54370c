// Package battlelog holds the append-only record of a battle.
//
// Every record carries an explicit Category set when it is created, so
// presentation styles entries without inspecting message text.
package battlelog

import (
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
)

// Category classifies a record for presentation.
type Category int

const (
	System Category = iota
	RoundBoundary
	Damage
	Critical
	Miss
	Victory
)

var categoryNames = [...]string{
	System:        "system",
	RoundBoundary: "round_boundary",
	Damage:        "damage",
	Critical:      "critical",
	Miss:          "miss",
	Victory:       "victory",
}

// String returns the wire label of the category.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// MarshalText encodes the category as its wire label.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes a wire label. Unknown labels decode as System.
func (c *Category) UnmarshalText(b []byte) error {
	for i, n := range categoryNames {
		if n == string(b) {
			*c = Category(i)
			return nil
		}
	}
	*c = System
	return nil
}

// Record is one immutable log entry.
type Record struct {
	// Seq is the 1-based position in the log, assigned by Append.
	Seq      int      `json:"seq"`
	Round    int      `json:"round"`
	Category Category `json:"category"`
	// Actor is the acting seat, or zero for system records.
	Actor   combat.PlayerID `json:"actor,omitempty"`
	Damage  int             `json:"damage,omitempty"`
	Message string          `json:"message"`
}

// Log is an append-only ordered sequence of records. It has no capacity
// policy; a battle produces a few records per round.
//
// A Log is not safe for concurrent use; its owner serialises access.
type Log struct {
	records []Record
	epoch   uint64
}

// New returns an empty Log.
func New() *Log {
	return &Log{}
}

// Append stores r with the next sequence number and returns the stored record.
//
// Postcondition: Len() grows by one; earlier records are unchanged.
func (l *Log) Append(r Record) Record {
	r.Seq = len(l.records) + 1
	l.records = append(l.records, r)
	return r
}

// Snapshot returns a copy of every record in append order.
func (l *Log) Snapshot() []Record {
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// Len returns the number of records.
func (l *Log) Len() int { return len(l.records) }

// Reset discards every record and starts a new epoch. Only a new game or a
// full return to setup clears the log.
func (l *Log) Reset() {
	l.records = nil
	l.epoch++
}

// Epoch counts resets. Sequence numbers are only comparable within one epoch.
func (l *Log) Epoch() uint64 { return l.epoch }

// Cursor follows a log from the outside through successive copies of it,
// such as the records carried by match snapshots.
//
// A Cursor is not safe for concurrent use.
type Cursor struct {
	epoch uint64
	seq   int
}

// Next returns the records of recs not yet returned and advances the cursor.
// A change of epoch means the log was reset, so reading starts over from its
// first record.
//
// Precondition: recs is a copy of the whole log for epoch, in append order.
func (c *Cursor) Next(epoch uint64, recs []Record) []Record {
	if epoch != c.epoch {
		c.epoch, c.seq = epoch, 0
	}
	var out []Record
	for _, r := range recs {
		if r.Seq > c.seq {
			out = append(out, r)
			c.seq = r.Seq
		}
	}
	return out
}
