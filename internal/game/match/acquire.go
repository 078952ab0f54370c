package match

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
)

type acquireFunc func(ctx context.Context) (character.Profile, error)

// AcquireImage generates player's character from an uploaded image and blocks
// until the result is committed, discarded or the slot fails.
//
// No-op outside AcquiringCharacters, for a Ready slot, without a provider, or
// for player 2 in PvE. A request on a Pending slot cancels and replaces the
// earlier one. On failure the fallback profile is committed when
// FallbackOnImageFailure is set; otherwise the slot is marked failed and may be retried.
func (m *Match) AcquireImage(ctx context.Context, player combat.PlayerID, image []byte, mimeType string) {
	img := append([]byte(nil), image...)
	m.acquire(ctx, player, OriginImage, func(ctx context.Context) (character.Profile, error) {
		return m.provider.AcquireFromImage(ctx, img, mimeType)
	}, img, mimeType)
}

// AcquireOpponent fills player's slot with a generated opponent and blocks until
// the result is committed, discarded or the slot fails. Failures never fall back;
// the slot is marked failed and may be retried.
func (m *Match) AcquireOpponent(ctx context.Context, player combat.PlayerID) {
	m.acquire(ctx, player, OriginOpponent, func(ctx context.Context) (character.Profile, error) {
		return m.provider.AcquireRandomOpponent(ctx)
	}, nil, "")
}

// AcquireProfile commits a ready-made profile, such as a gallery entry, to
// player's slot. The profile is normalized before use. Any pending request on
// the slot is cancelled.
func (m *Match) AcquireProfile(player combat.PlayerID, profile character.Profile, image []byte, mimeType string) {
	m.update(func() bool {
		if !m.canAcquireLocked(player, OriginProvided) {
			return false
		}
		s := &m.slots[player.Index()]
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
		m.requests++
		s.reqID = m.requests
		m.commitLocked(player, OriginProvided, profile, append([]byte(nil), image...), mimeType)
		return true
	})
}

func (m *Match) acquire(ctx context.Context, player combat.PlayerID, origin Origin, call acquireFunc, image []byte, mimeType string) {
	var (
		reqCtx context.Context
		reqID  uint64
		ok     bool
	)
	m.update(func() bool {
		reqCtx, reqID, ok = m.beginAcquisitionLocked(ctx, player, origin)
		return ok
	})
	if !ok {
		return
	}
	m.runAcquisition(reqCtx, player, reqID, origin, call, image, mimeType)
}

func (m *Match) runAcquisition(ctx context.Context, player combat.PlayerID, reqID uint64, origin Origin, call acquireFunc, image []byte, mimeType string) {
	profile, err := call(ctx)
	m.update(func() bool {
		return m.finishAcquisitionLocked(player, reqID, origin, profile, err, image, mimeType)
	})
}

// launchOpponentLocked starts a background opponent acquisition for player.
func (m *Match) launchOpponentLocked(player combat.PlayerID) {
	ctx, reqID, ok := m.beginAcquisitionLocked(m.baseCtx, player, OriginOpponent)
	if !ok {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.runAcquisition(ctx, player, reqID, OriginOpponent, func(ctx context.Context) (character.Profile, error) {
			return m.provider.AcquireRandomOpponent(ctx)
		}, nil, "")
	}()
}

func (m *Match) canAcquireLocked(player combat.PlayerID, origin Origin) bool {
	if !player.Valid() || m.phaseLocked() != AcquiringCharacters {
		return false
	}
	if m.slots[player.Index()].status == SlotReady {
		return false
	}
	if origin != OriginProvided && m.provider == nil {
		return false
	}
	if m.mode == PvE && player == combat.Player2 && origin != OriginOpponent {
		return false
	}
	return true
}

// beginAcquisitionLocked marks player's slot Pending under a fresh request id
// and returns the context the provider call must use.
func (m *Match) beginAcquisitionLocked(parent context.Context, player combat.PlayerID, origin Origin) (context.Context, uint64, bool) {
	if !m.canAcquireLocked(player, origin) {
		return nil, 0, false
	}
	s := &m.slots[player.Index()]
	if s.cancel != nil {
		m.logger.Info("replacing pending acquisition",
			zap.Stringer("player", player),
			zap.Uint64("request_id", s.reqID),
		)
		s.cancel()
	}
	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if m.cfg.AcquireTimeout > 0 {
		ctx, cancel = context.WithTimeout(parent, m.cfg.AcquireTimeout)
	} else {
		ctx, cancel = context.WithCancel(parent)
	}
	m.requests++
	*s = slot{
		status: SlotPending,
		origin: origin,
		reqID:  m.requests,
		cancel: cancel,
	}
	return ctx, s.reqID, true
}

// finishAcquisitionLocked commits a provider result if reqID is still the
// slot's current request. Stale results are dropped.
func (m *Match) finishAcquisitionLocked(player combat.PlayerID, reqID uint64, origin Origin, profile character.Profile, err error, image []byte, mimeType string) bool {
	s := &m.slots[player.Index()]
	if s.reqID != reqID || s.status != SlotPending || m.phaseLocked() != AcquiringCharacters {
		m.logger.Info("discarding stale acquisition result",
			zap.Stringer("player", player),
			zap.Uint64("request_id", reqID),
			zap.Uint64("current_request_id", s.reqID),
		)
		return false
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	if err != nil {
		if errors.Is(err, context.Canceled) {
			m.logger.Info("acquisition abandoned", zap.Stringer("player", player), zap.Uint64("request_id", reqID))
			*s = slot{status: SlotEmpty, reqID: reqID}
			return true
		}
		m.logger.Warn("profile acquisition failed",
			zap.Stringer("player", player),
			zap.String("origin", string(origin)),
			zap.Error(err),
		)
		if origin != OriginImage || !m.cfg.FallbackOnImageFailure {
			*s = slot{status: SlotFailed, origin: origin, reqID: reqID, err: err.Error()}
			return true
		}
		profile = character.FallbackProfile()
		origin = OriginFallback
	}
	m.commitLocked(player, origin, profile, image, mimeType)
	return true
}

// commitLocked stores a normalized profile in player's slot and enters Combat
// once both slots are Ready.
func (m *Match) commitLocked(player combat.PlayerID, origin Origin, profile character.Profile, image []byte, mimeType string) {
	p := character.Normalize(profile)
	s := &m.slots[player.Index()]
	s.status = SlotReady
	s.origin = origin
	s.profile = &p
	s.image = image
	s.mime = mimeType
	s.err = ""
	m.logger.Debug("slot ready",
		zap.Stringer("player", player),
		zap.String("origin", string(origin)),
		zap.String("title", p.Title),
	)

	if m.mode == PvE && player == combat.Player2 && origin == OriginOpponent {
		m.players[1].Label = bossLabel
		m.players[1].Restore(m.cfg.BossHP)
	}
	if m.slots[0].status == SlotReady && m.slots[1].status == SlotReady {
		m.engageLocked()
	}
}
