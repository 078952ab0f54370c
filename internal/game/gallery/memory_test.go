package gallery_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/game/gallery/gallerytest"
)

func TestMemoryStore(t *testing.T) {
	gallerytest.Run(t, func(_ *testing.T, capacity int) gallery.Store {
		return gallery.NewMemoryStore(capacity)
	})
}

func TestMemoryStore_ListReturnsCopies(t *testing.T) {
	s := gallery.NewMemoryStore(0)
	_, err := s.Insert(context.Background(), gallery.Entry{Profile: gallerytest.Creature(0), Image: []byte{7}})
	require.NoError(t, err)

	list, err := s.List(context.Background())
	require.NoError(t, err)
	list[0].Image[0] = 0
	list[0].Profile.Moves[0].Name = "mutated"

	again, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, byte(7), again[0].Image[0])
	assert.NotEqual(t, "mutated", again[0].Profile.Moves[0].Name)
}

func TestMemoryStore_ConcurrentInsertsRespectCapacity(t *testing.T) {
	s := gallery.NewMemoryStore(gallery.DefaultCapacity)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Insert(context.Background(), gallery.Entry{Profile: gallerytest.Creature(i)})
		}()
	}
	wg.Wait()
	list, err := s.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, gallery.DefaultCapacity)
}

func TestPropertyMemoryStoreNeverExceedsCapacity(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		capacity := rapid.IntRange(1, 10).Draw(t, "capacity")
		s := gallery.NewMemoryStore(capacity)
		ops := rapid.SliceOfN(rapid.IntRange(0, 25), 1, 40).Draw(t, "ops")
		for _, op := range ops {
			_, err := s.Insert(context.Background(), gallery.Entry{Profile: gallerytest.Creature(op)})
			if err != nil && err != gallery.ErrFull && err != gallery.ErrDuplicate {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		list, _ := s.List(context.Background())
		if len(list) > capacity {
			t.Fatalf("len %d exceeds capacity %d", len(list), capacity)
		}
		seen := map[string]bool{}
		for _, e := range list {
			if seen[e.Profile.Key()] {
				t.Fatalf("duplicate key %q", e.Profile.Key())
			}
			seen[e.Profile.Key()] = true
		}
	})
}
