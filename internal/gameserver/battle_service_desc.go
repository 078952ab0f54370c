package gameserver

import (
	"context"

	"google.golang.org/grpc"
)

const watchMethod = "Watch"

// battleServiceDesc describes BattleService without generated stubs; every
// message travels through the JSON codec.
var battleServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*BattleServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("CreateMatch", BattleServiceServer.CreateMatch),
		unary("ListMatches", BattleServiceServer.ListMatches),
		unary("CloseMatch", BattleServiceServer.CloseMatch),
		unary("GetSnapshot", BattleServiceServer.GetSnapshot),
		unary("StartRound", BattleServiceServer.StartRound),
		unary("UploadImage", BattleServiceServer.UploadImage),
		unary("RequestOpponent", BattleServiceServer.RequestOpponent),
		unary("UseGalleryEntry", BattleServiceServer.UseGalleryEntry),
		unary("SelectMove", BattleServiceServer.SelectMove),
		unary("ClearSelection", BattleServiceServer.ClearSelection),
		unary("ConfirmMove", BattleServiceServer.ConfirmMove),
		unary("Reset", BattleServiceServer.Reset),
		unary("SaveToGallery", BattleServiceServer.SaveToGallery),
		unary("ListGallery", BattleServiceServer.ListGallery),
		unary("DeleteGallery", BattleServiceServer.DeleteGallery),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    watchMethod,
			ServerStreams: true,
			Handler: func(srv any, stream grpc.ServerStream) error {
				req := new(MatchRequest)
				if err := stream.RecvMsg(req); err != nil {
					return err
				}
				return srv.(BattleServiceServer).Watch(req, stream)
			},
		},
	},
	Metadata: "beastbattle/v1/battle.proto",
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary adapts a typed method to a grpc.MethodDesc, honouring any unary interceptor.
func unary[Req, Resp any](name string, call func(BattleServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			s := srv.(BattleServiceServer)
			if interceptor == nil {
				return call(s, ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(s, ctx, req.(*Req))
			})
		},
	}
}
