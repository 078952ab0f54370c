package generation

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
)

// Deduped collapses concurrent image generations for identical uploads into
// one call on the wrapped provider. Opponent generation passes straight through
// since every call is meant to differ.
type Deduped struct {
	next   Provider
	group  singleflight.Group
	logger *zap.Logger
}

// NewDeduped wraps next.
func NewDeduped(next Provider, logger *zap.Logger) *Deduped {
	return &Deduped{next: next, logger: logger}
}

// AcquireFromImage implements Provider.
//
// The shared call runs detached from any single caller's context so that one
// caller giving up does not fail the others; each caller still returns as soon
// as its own ctx is done.
func (d *Deduped) AcquireFromImage(ctx context.Context, image []byte, mimeType string) (character.Profile, error) {
	key := mimeType + ":" + Fingerprint(image)
	ch := d.group.DoChan(key, func() (interface{}, error) {
		return d.next.AcquireFromImage(context.WithoutCancel(ctx), image, mimeType)
	})
	select {
	case r := <-ch:
		if r.Shared {
			d.logger.Debug("joined in-flight generation", zap.String("key", key))
		}
		if r.Err != nil {
			return character.Profile{}, r.Err
		}
		return r.Val.(character.Profile).Clone(), nil
	case <-ctx.Done():
		return character.Profile{}, wrap(OpImage, ctx.Err())
	}
}

// AcquireRandomOpponent implements Provider.
func (d *Deduped) AcquireRandomOpponent(ctx context.Context) (character.Profile, error) {
	return d.next.AcquireRandomOpponent(ctx)
}
