// Package gallerytest holds the behaviour every gallery.Store must share.
package gallerytest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
)

// Factory returns an empty store with the given capacity.
type Factory func(t *testing.T, capacity int) gallery.Store

// Creature returns a distinct valid profile for index i.
func Creature(i int) character.Profile {
	p := character.FallbackProfile()
	p.Species = "Specimen"
	p.Title = "Beast " + string(rune('A'+i))
	p.Element = element.All()[i%len(element.All())]
	return p
}

// Run exercises store semantics against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("insert assigns id and time", func(t *testing.T) {
		s := newStore(t, gallery.DefaultCapacity)
		e, err := s.Insert(ctx, gallery.Entry{Profile: Creature(0), Image: []byte{1, 2, 3}, MimeType: "image/png"})
		require.NoError(t, err)
		assert.NotEmpty(t, e.ID)
		assert.False(t, e.CreatedAt.IsZero())
		assert.Equal(t, []byte{1, 2, 3}, e.Image)

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, e.ID, list[0].ID)
		assert.Equal(t, Creature(0), list[0].Profile)
		assert.Equal(t, "image/png", list[0].MimeType)
	})

	t.Run("list is newest first", func(t *testing.T) {
		s := newStore(t, gallery.DefaultCapacity)
		var ids []string
		for i := 0; i < 3; i++ {
			e, err := s.Insert(ctx, gallery.Entry{Profile: Creature(i)})
			require.NoError(t, err)
			ids = append(ids, e.ID)
		}
		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID, list[1].ID, list[2].ID})
	})

	t.Run("full", func(t *testing.T) {
		s := newStore(t, 2)
		for i := 0; i < 2; i++ {
			_, err := s.Insert(ctx, gallery.Entry{Profile: Creature(i)})
			require.NoError(t, err)
		}
		_, err := s.Insert(ctx, gallery.Entry{Profile: Creature(2)})
		assert.ErrorIs(t, err, gallery.ErrFull)
		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("duplicate title and species", func(t *testing.T) {
		s := newStore(t, gallery.DefaultCapacity)
		_, err := s.Insert(ctx, gallery.Entry{Profile: Creature(0)})
		require.NoError(t, err)

		dup := Creature(0)
		dup.Stats.Attack = 99
		_, err = s.Insert(ctx, gallery.Entry{Profile: dup})
		assert.ErrorIs(t, err, gallery.ErrDuplicate)

		list, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t, gallery.DefaultCapacity)
		a, err := s.Insert(ctx, gallery.Entry{Profile: Creature(0)})
		require.NoError(t, err)
		b, err := s.Insert(ctx, gallery.Entry{Profile: Creature(1)})
		require.NoError(t, err)

		require.NoError(t, s.Delete(ctx, a.ID))
		assert.ErrorIs(t, s.Delete(ctx, a.ID), gallery.ErrNotFound)

		list, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, b.ID, list[0].ID)

		_, err = s.Insert(ctx, gallery.Entry{Profile: Creature(0)})
		assert.NoError(t, err, "a deleted creature may be saved again")
	})

	t.Run("delete unknown id", func(t *testing.T) {
		s := newStore(t, gallery.DefaultCapacity)
		assert.ErrorIs(t, s.Delete(ctx, "00000000-0000-0000-0000-000000000000"), gallery.ErrNotFound)
	})

	t.Run("insert normalizes profile", func(t *testing.T) {
		s := newStore(t, gallery.DefaultCapacity)
		raw := character.Profile{Species: "Newt", Title: "Drip", Element: "潮汐"}
		e, err := s.Insert(ctx, gallery.Entry{Profile: raw})
		require.NoError(t, err)
		assert.Equal(t, element.Tide, e.Profile.Element)
		assert.Len(t, e.Profile.Moves, character.MoveCount)
	})
}
