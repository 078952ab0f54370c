package telnet

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/config"
)

// SessionHandler runs one arena session over a connected client.
type SessionHandler interface {
	HandleSession(ctx context.Context, conn *Conn) error
}

// SessionHandlerFunc adapts a function to SessionHandler.
type SessionHandlerFunc func(ctx context.Context, conn *Conn) error

// HandleSession calls f.
func (f SessionHandlerFunc) HandleSession(ctx context.Context, conn *Conn) error {
	return f(ctx, conn)
}

// ErrAcceptorStopped is returned by Serve after Stop.
var ErrAcceptorStopped = errors.New("telnet: acceptor stopped")

// Acceptor accepts Telnet clients and gives each one a session goroutine.
// Stop closes the listener and every open session.
type Acceptor struct {
	cfg     config.TelnetConfig
	handler SessionHandler
	logger  *zap.Logger

	mu       sync.Mutex
	listener net.Listener
	sessions map[string]*session
	stopped  bool
	ready    chan struct{}
	wg       sync.WaitGroup
}

type session struct {
	conn   *Conn
	cancel context.CancelFunc
}

// NewAcceptor creates an acceptor for cfg.
//
// Precondition: handler and logger must be non-nil.
func NewAcceptor(cfg config.TelnetConfig, handler SessionHandler, logger *zap.Logger) *Acceptor {
	return &Acceptor{
		cfg:      cfg,
		handler:  handler,
		logger:   logger,
		sessions: make(map[string]*session),
		ready:    make(chan struct{}),
	}
}

// ListenAndServe listens on cfg.Addr() and calls Serve.
func (a *Acceptor) ListenAndServe() error {
	ln, err := net.Listen("tcp", a.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listening on %s: %w", a.cfg.Addr(), err)
	}
	return a.Serve(ln)
}

// Serve accepts connections on ln until Stop is called.
//
// Precondition: Serve must be called at most once.
// Postcondition: Returns nil after Stop, or the first non-temporary accept error.
func (a *Acceptor) Serve(ln net.Listener) error {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		_ = ln.Close()
		return ErrAcceptorStopped
	}
	a.listener = ln
	close(a.ready)
	a.mu.Unlock()

	a.logger.Info("telnet arena listening", zap.String("addr", ln.Addr().String()))

	for {
		raw, err := ln.Accept()
		if err != nil {
			if a.isStopped() {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				a.logger.Warn("accept timeout", zap.Error(err))
				continue
			}
			return fmt.Errorf("accepting telnet client: %w", err)
		}
		a.startSession(raw)
	}
}

func (a *Acceptor) startSession(raw net.Conn) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	s := &session{conn: NewConn(raw, a.cfg.ReadTimeout, a.cfg.WriteTimeout), cancel: cancel}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		cancel()
		_ = raw.Close()
		return
	}
	a.sessions[id] = s
	a.wg.Add(1)
	a.mu.Unlock()

	go a.runSession(ctx, id, s)
}

func (a *Acceptor) runSession(ctx context.Context, id string, s *session) {
	defer a.wg.Done()
	defer func() {
		a.mu.Lock()
		delete(a.sessions, id)
		a.mu.Unlock()
		s.cancel()
		_ = s.conn.Close()
	}()

	start := time.Now()
	log := a.logger.With(zap.String("session_id", id), zap.String("remote_addr", s.conn.RemoteAddr().String()))
	log.Info("arena client connected")

	if err := s.conn.Negotiate(); err != nil {
		log.Warn("telnet negotiation failed", zap.Error(err))
		return
	}
	if err := a.handler.HandleSession(ctx, s.conn); err != nil && ctx.Err() == nil {
		log.Info("arena session ended", zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	log.Info("arena session ended", zap.Duration("duration", time.Since(start)))
}

func (a *Acceptor) isStopped() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stopped
}

// Stop closes the listener and all sessions, then waits for their goroutines.
// It is safe to call more than once.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.stopped = true
	if a.listener != nil {
		_ = a.listener.Close()
	}
	for _, s := range a.sessions {
		s.cancel()
		_ = s.conn.Close()
	}
	a.mu.Unlock()

	a.wg.Wait()
	a.logger.Info("telnet arena stopped")
}

// Ready is closed once Serve has a listener.
func (a *Acceptor) Ready() <-chan struct{} {
	return a.ready
}

// Addr returns the listening address, or "" before Serve.
func (a *Acceptor) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// Sessions reports the number of connected clients.
func (a *Acceptor) Sessions() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.sessions)
}
