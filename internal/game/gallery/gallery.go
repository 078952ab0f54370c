// Package gallery stores creatures a player chose to keep between games.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
)

// DefaultCapacity is the maximum number of entries a gallery holds.
const DefaultCapacity = 10

// ErrFull is returned by Insert when the gallery is at capacity.
var ErrFull = errors.New("gallery is full")

// ErrDuplicate is returned by Insert when an entry with the same title and species exists.
var ErrDuplicate = errors.New("creature already saved")

// ErrNotFound is returned by Delete for an unknown id.
var ErrNotFound = errors.New("gallery entry not found")

// Entry is one saved creature. Entries are never updated after insertion.
type Entry struct {
	ID        string            `json:"id"`
	Profile   character.Profile `json:"profile"`
	Image     []byte            `json:"image,omitempty"`
	MimeType  string            `json:"mime_type,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

// Store persists gallery entries.
type Store interface {
	// List returns every entry, newest first.
	List(ctx context.Context) ([]Entry, error)
	// Insert stores e under a fresh id and creation time and returns the stored entry.
	// It returns ErrFull at capacity and ErrDuplicate when e.Profile.Key() is
	// already present; neither case mutates the store.
	Insert(ctx context.Context, e Entry) (Entry, error)
	// Delete removes the entry with id or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// Prepare validates e for insertion and returns a copy with a normalized profile
// and no aliasing of e's slices. Store implementations call it before writing.
func Prepare(e Entry) (Entry, error) {
	out := e
	out.Profile = character.Normalize(e.Profile)
	if err := out.Profile.Validate(); err != nil {
		return Entry{}, fmt.Errorf("invalid profile: %w", err)
	}
	out.Image = append([]byte(nil), e.Image...)
	return out, nil
}
