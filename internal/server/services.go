package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
)

// DefaultShutdownTimeout bounds graceful shutdown of a listener service.
const DefaultShutdownTimeout = 5 * time.Second

// GRPCService serves srv on lis. Stop drains in-flight calls and streams for up
// to DefaultShutdownTimeout, then closes them.
//
// Precondition: srv and lis must be non-nil.
func GRPCService(srv *grpc.Server, lis net.Listener) Service {
	return &FuncService{
		StartFn: func() error {
			err := srv.Serve(lis)
			if errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			return err
		},
		StopFn: func() {
			done := make(chan struct{})
			go func() {
				srv.GracefulStop()
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(DefaultShutdownTimeout):
				srv.Stop()
				<-done
			}
		},
	}
}

// HTTPService serves srv on lis. Stop waits up to DefaultShutdownTimeout for
// open requests. Hijacked connections such as websockets are not tracked by
// Shutdown; their handlers must end on their own.
//
// Precondition: srv and lis must be non-nil.
func HTTPService(srv *http.Server, lis net.Listener) Service {
	return &FuncService{
		StartFn: func() error {
			if err := srv.Serve(lis); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
		StopFn: func() {
			ctx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				_ = srv.Close()
			}
		},
	}
}
