package gameserver

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "beastbattle.v1.BattleService"

// BattleServiceServer is the server API for BattleService.
type BattleServiceServer interface {
	CreateMatch(context.Context, *Empty) (*SnapshotResponse, error)
	ListMatches(context.Context, *Empty) (*MatchList, error)
	CloseMatch(context.Context, *MatchRequest) (*Empty, error)
	GetSnapshot(context.Context, *MatchRequest) (*SnapshotResponse, error)
	StartRound(context.Context, *StartRoundRequest) (*SnapshotResponse, error)
	UploadImage(context.Context, *UploadImageRequest) (*SnapshotResponse, error)
	RequestOpponent(context.Context, *PlayerRequest) (*SnapshotResponse, error)
	UseGalleryEntry(context.Context, *GalleryEntryRequest) (*SnapshotResponse, error)
	SelectMove(context.Context, *SelectMoveRequest) (*SnapshotResponse, error)
	ClearSelection(context.Context, *MatchRequest) (*SnapshotResponse, error)
	ConfirmMove(context.Context, *MatchRequest) (*SnapshotResponse, error)
	Reset(context.Context, *MatchRequest) (*SnapshotResponse, error)
	SaveToGallery(context.Context, *PlayerRequest) (*GalleryEntryResponse, error)
	ListGallery(context.Context, *Empty) (*GalleryListResponse, error)
	DeleteGallery(context.Context, *DeleteGalleryRequest) (*Empty, error)
	Watch(*MatchRequest, grpc.ServerStream) error
}

// BattleServer serves the BattleService API over gRPC.
type BattleServer struct {
	svc    *Service
	logger *zap.Logger
}

// NewBattleServer wraps svc for gRPC.
//
// Precondition: svc and logger must be non-nil.
func NewBattleServer(svc *Service, logger *zap.Logger) *BattleServer {
	return &BattleServer{svc: svc, logger: logger}
}

// RegisterBattleServiceServer registers srv on s.
func RegisterBattleServiceServer(s grpc.ServiceRegistrar, srv BattleServiceServer) {
	s.RegisterService(&battleServiceDesc, srv)
}

func (b *BattleServer) CreateMatch(_ context.Context, _ *Empty) (*SnapshotResponse, error) {
	id, snap := b.svc.CreateMatch()
	return &SnapshotResponse{MatchID: id, Snapshot: snap}, nil
}

func (b *BattleServer) ListMatches(_ context.Context, _ *Empty) (*MatchList, error) {
	return &MatchList{MatchIDs: b.svc.Registry().IDs()}, nil
}

func (b *BattleServer) CloseMatch(_ context.Context, req *MatchRequest) (*Empty, error) {
	if err := b.svc.CloseMatch(req.MatchID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

func (b *BattleServer) GetSnapshot(_ context.Context, req *MatchRequest) (*SnapshotResponse, error) {
	return respond(req.MatchID)(b.svc.Snapshot(req.MatchID))
}

func (b *BattleServer) StartRound(_ context.Context, req *StartRoundRequest) (*SnapshotResponse, error) {
	return respond(req.MatchID)(b.svc.StartRound(req.MatchID, req.Mode))
}

func (b *BattleServer) UploadImage(ctx context.Context, req *UploadImageRequest) (*SnapshotResponse, error) {
	return respond(req.MatchID)(b.svc.UploadImage(ctx, req.MatchID, req.Player, req.Image, req.MimeType))
}

func (b *BattleServer) RequestOpponent(ctx context.Context, req *PlayerRequest) (*SnapshotResponse, error) {
	return respond(req.MatchID)(b.svc.RequestOpponent(ctx, req.MatchID, req.Player))
}

func (b *BattleServer) UseGalleryEntry(ctx context.Context, req *GalleryEntryRequest) (*SnapshotResponse, error) {
	return respond(req.MatchID)(b.svc.UseGalleryEntry(ctx, req.MatchID, req.Player, req.EntryID))
}

func (b *BattleServer) SelectMove(_ context.Context, req *SelectMoveRequest) (*SnapshotResponse, error) {
	return respond(req.MatchID)(b.svc.SelectMove(req.MatchID, req.Player, req.MoveIndex))
}

func (b *BattleServer) ClearSelection(_ context.Context, req *MatchRequest) (*SnapshotResponse, error) {
	return respond(req.MatchID)(b.svc.ClearSelection(req.MatchID))
}

func (b *BattleServer) ConfirmMove(_ context.Context, req *MatchRequest) (*SnapshotResponse, error) {
	return respond(req.MatchID)(b.svc.ConfirmMove(req.MatchID))
}

func (b *BattleServer) Reset(_ context.Context, req *MatchRequest) (*SnapshotResponse, error) {
	return respond(req.MatchID)(b.svc.Reset(req.MatchID))
}

func (b *BattleServer) SaveToGallery(ctx context.Context, req *PlayerRequest) (*GalleryEntryResponse, error) {
	entry, err := b.svc.SaveToGallery(ctx, req.MatchID, req.Player)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GalleryEntryResponse{Entry: entry}, nil
}

func (b *BattleServer) ListGallery(ctx context.Context, _ *Empty) (*GalleryListResponse, error) {
	entries, err := b.svc.ListGallery(ctx)
	if err != nil {
		return nil, toStatus(err)
	}
	return &GalleryListResponse{Entries: entries}, nil
}

func (b *BattleServer) DeleteGallery(ctx context.Context, req *DeleteGalleryRequest) (*Empty, error) {
	if err := b.svc.DeleteGallery(ctx, req.EntryID); err != nil {
		return nil, toStatus(err)
	}
	return &Empty{}, nil
}

// Watch streams every snapshot of a match, starting with the current one,
// until the client goes away or the match is closed.
func (b *BattleServer) Watch(req *MatchRequest, stream grpc.ServerStream) error {
	ctx := stream.Context()
	ch, err := b.svc.Watch(ctx, req.MatchID)
	if err != nil {
		return toStatus(err)
	}
	b.logger.Debug("watch started", zap.String("match_id", req.MatchID))
	defer b.logger.Debug("watch ended", zap.String("match_id", req.MatchID))

	for {
		select {
		case <-ctx.Done():
			return nil
		case snap, ok := <-ch:
			if !ok {
				return nil
			}
			if err := stream.SendMsg(&SnapshotResponse{MatchID: req.MatchID, Snapshot: snap}); err != nil {
				return err
			}
		}
	}
}

func respond(matchID string) func(snap match.Snapshot, err error) (*SnapshotResponse, error) {
	return func(snap match.Snapshot, err error) (*SnapshotResponse, error) {
		if err != nil {
			return nil, toStatus(err)
		}
		return &SnapshotResponse{MatchID: matchID, Snapshot: snap}, nil
	}
}

// toStatus maps service errors onto gRPC status codes.
func toStatus(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrMatchNotFound), errors.Is(err, gallery.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, gallery.ErrFull):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, gallery.ErrDuplicate):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrSlotNotReady):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, ErrGalleryDisabled):
		return status.Error(codes.Unimplemented, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		return status.Errorf(codes.Internal, "%v", err)
	}
}

var _ BattleServiceServer = (*BattleServer)(nil)
