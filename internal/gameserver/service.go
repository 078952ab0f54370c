// Package gameserver hosts live matches behind a transport-agnostic Service and
// exposes it as the beastbattle.v1.BattleService gRPC API.
package gameserver

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/game/combat"
	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
)

// ErrInvalidArgument marks a malformed request: an unknown mode, a player
// outside 1..2, an empty image.
var ErrInvalidArgument = errors.New("invalid argument")

// ErrSlotNotReady is returned by SaveToGallery when the slot holds no character.
var ErrSlotNotReady = errors.New("slot has no character")

// ErrGalleryDisabled is returned by gallery operations when no store is configured.
var ErrGalleryDisabled = errors.New("gallery is not configured")

// Service applies presentation commands to registered matches.
//
// Match commands follow the match's guard rules: a command that arrives in
// the wrong phase is accepted and ignored, and the returned snapshot shows the
// unchanged state. Only requests that name an unknown match or carry malformed
// arguments return an error.
type Service struct {
	registry *Registry
	gallery  gallery.Store
	logger   *zap.Logger
}

// NewService builds a Service.
//
// Precondition: registry and logger must be non-nil. store may be nil, which
// disables the gallery operations.
func NewService(registry *Registry, store gallery.Store, logger *zap.Logger) *Service {
	return &Service{registry: registry, gallery: store, logger: logger}
}

// Registry returns the underlying registry.
func (s *Service) Registry() *Registry { return s.registry }

// CreateMatch registers a new match in Setup.
func (s *Service) CreateMatch() (string, match.Snapshot) {
	room := s.registry.Create()
	return room.ID, room.Match.Snapshot()
}

// CloseMatch removes a match and ends its watchers.
func (s *Service) CloseMatch(id string) error {
	return s.registry.Remove(id)
}

// Snapshot returns the current state of a match.
func (s *Service) Snapshot(id string) (match.Snapshot, error) {
	return s.apply(id, nil)
}

// StartRound starts a game in mode ("pvp" or "pve").
func (s *Service) StartRound(id, mode string) (match.Snapshot, error) {
	md, ok := match.ParseMode(mode)
	if !ok {
		return match.Snapshot{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidArgument, mode)
	}
	return s.apply(id, func(m *match.Match) { m.StartRound(md) })
}

// UploadImage starts image acquisition for player's slot. The acquisition
// outlives ctx; it ends when it completes, is replaced, or the match resets.
func (s *Service) UploadImage(ctx context.Context, id string, player int, image []byte, mimeType string) (match.Snapshot, error) {
	p, err := parsePlayer(player)
	if err != nil {
		return match.Snapshot{}, err
	}
	if len(image) == 0 {
		return match.Snapshot{}, fmt.Errorf("%w: image is empty", ErrInvalidArgument)
	}
	mimeType = strings.TrimSpace(mimeType)
	detached := context.WithoutCancel(ctx)
	return s.apply(id, func(m *match.Match) { m.AcquireImage(detached, p, image, mimeType) })
}

// RequestOpponent fills player's slot with a generated opponent.
func (s *Service) RequestOpponent(ctx context.Context, id string, player int) (match.Snapshot, error) {
	p, err := parsePlayer(player)
	if err != nil {
		return match.Snapshot{}, err
	}
	detached := context.WithoutCancel(ctx)
	return s.apply(id, func(m *match.Match) { m.AcquireOpponent(detached, p) })
}

// UseGalleryEntry fills player's slot with a saved creature.
func (s *Service) UseGalleryEntry(ctx context.Context, id string, player int, entryID string) (match.Snapshot, error) {
	p, err := parsePlayer(player)
	if err != nil {
		return match.Snapshot{}, err
	}
	room, err := s.registry.Get(id)
	if err != nil {
		return match.Snapshot{}, err
	}
	entry, err := s.findEntry(ctx, entryID)
	if err != nil {
		return match.Snapshot{}, err
	}
	room.Match.AcquireProfile(p, entry.Profile, entry.Image, entry.MimeType)
	return room.Match.Snapshot(), nil
}

// SelectMove stores a pending move selection for player.
func (s *Service) SelectMove(id string, player, moveIndex int) (match.Snapshot, error) {
	p, err := parsePlayer(player)
	if err != nil {
		return match.Snapshot{}, err
	}
	return s.apply(id, func(m *match.Match) { m.SelectMove(p, moveIndex) })
}

// ClearSelection drops the pending selection.
func (s *Service) ClearSelection(id string) (match.Snapshot, error) {
	return s.apply(id, (*match.Match).ClearSelection)
}

// ConfirmMove resolves the pending selection.
func (s *Service) ConfirmMove(id string) (match.Snapshot, error) {
	return s.apply(id, (*match.Match).ConfirmSelectedMove)
}

// Reset returns the match to Setup.
func (s *Service) Reset(id string) (match.Snapshot, error) {
	return s.apply(id, (*match.Match).ResetToSetup)
}

// Watch subscribes to a match's snapshots. The channel is closed when ctx ends
// or the match is removed.
func (s *Service) Watch(ctx context.Context, id string) (<-chan match.Snapshot, error) {
	room, err := s.registry.Get(id)
	if err != nil {
		return nil, err
	}
	ch, cancel := room.Hub.Subscribe()
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ch, nil
}

// SaveToGallery stores the character currently committed to player's slot.
//
// Postcondition: Returns the stored entry, or gallery.ErrFull, gallery.ErrDuplicate,
// or ErrSlotNotReady without modifying the gallery.
func (s *Service) SaveToGallery(ctx context.Context, id string, player int) (gallery.Entry, error) {
	if s.gallery == nil {
		return gallery.Entry{}, ErrGalleryDisabled
	}
	p, err := parsePlayer(player)
	if err != nil {
		return gallery.Entry{}, err
	}
	room, err := s.registry.Get(id)
	if err != nil {
		return gallery.Entry{}, err
	}
	profile, image, mimeType, ok := room.Match.Committed(p)
	if !ok {
		return gallery.Entry{}, fmt.Errorf("%w: %s", ErrSlotNotReady, p)
	}
	entry, err := s.gallery.Insert(ctx, gallery.Entry{Profile: profile, Image: image, MimeType: mimeType})
	if err != nil {
		s.logger.Info("gallery save rejected",
			zap.String("match_id", id),
			zap.Stringer("player", p),
			zap.String("title", profile.Title),
			zap.Error(err),
		)
		return gallery.Entry{}, err
	}
	s.logger.Info("creature saved to gallery",
		zap.String("match_id", id),
		zap.String("entry_id", entry.ID),
		zap.String("title", entry.Profile.Title),
	)
	return entry, nil
}

// ListGallery returns every saved creature, newest first.
func (s *Service) ListGallery(ctx context.Context) ([]gallery.Entry, error) {
	if s.gallery == nil {
		return nil, ErrGalleryDisabled
	}
	return s.gallery.List(ctx)
}

// DeleteGallery removes a saved creature.
func (s *Service) DeleteGallery(ctx context.Context, entryID string) error {
	if s.gallery == nil {
		return ErrGalleryDisabled
	}
	return s.gallery.Delete(ctx, entryID)
}

func (s *Service) findEntry(ctx context.Context, entryID string) (gallery.Entry, error) {
	entries, err := s.ListGallery(ctx)
	if err != nil {
		return gallery.Entry{}, err
	}
	for _, e := range entries {
		if e.ID == entryID {
			return e, nil
		}
	}
	return gallery.Entry{}, fmt.Errorf("%w: %s", gallery.ErrNotFound, entryID)
}

func (s *Service) apply(id string, fn func(*match.Match)) (match.Snapshot, error) {
	room, err := s.registry.Get(id)
	if err != nil {
		return match.Snapshot{}, err
	}
	if fn != nil {
		fn(room.Match)
	}
	return room.Match.Snapshot(), nil
}

func parsePlayer(n int) (combat.PlayerID, error) {
	p := combat.PlayerID(n)
	if !p.Valid() {
		return 0, fmt.Errorf("%w: player %d", ErrInvalidArgument, n)
	}
	return p, nil
}
