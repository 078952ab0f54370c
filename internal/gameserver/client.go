package gameserver

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
)

// Client calls BattleService over an existing connection.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps cc. Every call is sent with the JSON codec.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}

func call[T any](ctx context.Context, c *Client, method string, in any) (*T, error) {
	out := new(T)
	if err := c.invoke(ctx, method, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateMatch(ctx context.Context) (*SnapshotResponse, error) {
	return call[SnapshotResponse](ctx, c, "CreateMatch", &Empty{})
}

func (c *Client) ListMatches(ctx context.Context) ([]string, error) {
	out := new(MatchList)
	if err := c.invoke(ctx, "ListMatches", &Empty{}, out); err != nil {
		return nil, err
	}
	return out.MatchIDs, nil
}

func (c *Client) CloseMatch(ctx context.Context, matchID string) error {
	return c.invoke(ctx, "CloseMatch", &MatchRequest{MatchID: matchID}, &Empty{})
}

func (c *Client) GetSnapshot(ctx context.Context, matchID string) (*SnapshotResponse, error) {
	return call[SnapshotResponse](ctx, c, "GetSnapshot", &MatchRequest{MatchID: matchID})
}

func (c *Client) StartRound(ctx context.Context, matchID, mode string) (*SnapshotResponse, error) {
	return call[SnapshotResponse](ctx, c, "StartRound", &StartRoundRequest{MatchID: matchID, Mode: mode})
}

func (c *Client) UploadImage(ctx context.Context, req *UploadImageRequest) (*SnapshotResponse, error) {
	return call[SnapshotResponse](ctx, c, "UploadImage", req)
}

func (c *Client) RequestOpponent(ctx context.Context, matchID string, player int) (*SnapshotResponse, error) {
	return call[SnapshotResponse](ctx, c, "RequestOpponent", &PlayerRequest{MatchID: matchID, Player: player})
}

func (c *Client) UseGalleryEntry(ctx context.Context, req *GalleryEntryRequest) (*SnapshotResponse, error) {
	return call[SnapshotResponse](ctx, c, "UseGalleryEntry", req)
}

func (c *Client) SelectMove(ctx context.Context, matchID string, player, moveIndex int) (*SnapshotResponse, error) {
	return call[SnapshotResponse](ctx, c, "SelectMove", &SelectMoveRequest{MatchID: matchID, Player: player, MoveIndex: moveIndex})
}

func (c *Client) ClearSelection(ctx context.Context, matchID string) (*SnapshotResponse, error) {
	return call[SnapshotResponse](ctx, c, "ClearSelection", &MatchRequest{MatchID: matchID})
}

func (c *Client) ConfirmMove(ctx context.Context, matchID string) (*SnapshotResponse, error) {
	return call[SnapshotResponse](ctx, c, "ConfirmMove", &MatchRequest{MatchID: matchID})
}

func (c *Client) Reset(ctx context.Context, matchID string) (*SnapshotResponse, error) {
	return call[SnapshotResponse](ctx, c, "Reset", &MatchRequest{MatchID: matchID})
}

func (c *Client) SaveToGallery(ctx context.Context, matchID string, player int) (*GalleryEntryResponse, error) {
	return call[GalleryEntryResponse](ctx, c, "SaveToGallery", &PlayerRequest{MatchID: matchID, Player: player})
}

func (c *Client) ListGallery(ctx context.Context) (*GalleryListResponse, error) {
	return call[GalleryListResponse](ctx, c, "ListGallery", &Empty{})
}

func (c *Client) DeleteGallery(ctx context.Context, entryID string) error {
	return c.invoke(ctx, "DeleteGallery", &DeleteGalleryRequest{EntryID: entryID}, &Empty{})
}

// Watch opens a snapshot stream. Call Recv until it returns io.EOF.
func (c *Client) Watch(ctx context.Context, matchID string) (*WatchStream, error) {
	stream, err := c.cc.NewStream(ctx, &battleServiceDesc.Streams[0], fullMethod(watchMethod),
		grpc.CallContentSubtype(CodecName))
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(&MatchRequest{MatchID: matchID}); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &WatchStream{stream: stream}, nil
}

// WatchStream receives snapshots from a Watch call.
type WatchStream struct {
	stream grpc.ClientStream
}

// Recv blocks for the next snapshot. It returns io.EOF once the server ends the stream.
func (w *WatchStream) Recv() (*SnapshotResponse, error) {
	out := new(SnapshotResponse)
	if err := w.stream.RecvMsg(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, err
	}
	return out, nil
}
