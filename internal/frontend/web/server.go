// Package web exposes the battle service as a JSON HTTP API with a websocket
// stream of match snapshots.
package web

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/config"
	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/gameserver"
)

// Server routes HTTP requests to a gameserver.Service.
type Server struct {
	svc       *gameserver.Service
	logger    *zap.Logger
	maxUpload int64
	router    *mux.Router
	upgrader  websocket.Upgrader

	// baseCtx outlives requests and ends every websocket on Close.
	baseCtx context.Context
	cancel  context.CancelFunc
	sockets sync.WaitGroup
}

// NewServer builds the router.
//
// Precondition: svc and logger must be non-nil; cfg.MaxUploadBytes > 0.
func NewServer(svc *gameserver.Service, cfg config.WebConfig, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		svc:       svc,
		logger:    logger,
		maxUpload: cfg.MaxUploadBytes,
		router:    mux.NewRouter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		baseCtx: ctx,
		cancel:  cancel,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	r := s.router
	r.Use(s.logRequests)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/matches", s.handleCreateMatch).Methods(http.MethodPost)
	api.HandleFunc("/matches", s.handleListMatches).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}", s.handleSnapshot).Methods(http.MethodGet)
	api.HandleFunc("/matches/{id}", s.handleCloseMatch).Methods(http.MethodDelete)
	api.HandleFunc("/matches/{id}/start", s.handleStartRound).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/select", s.handleSelectMove).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/select", s.handleClearSelection).Methods(http.MethodDelete)
	api.HandleFunc("/matches/{id}/confirm", s.handleConfirm).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/reset", s.handleReset).Methods(http.MethodPost)
	api.HandleFunc("/matches/{id}/ws", s.handleWatch).Methods(http.MethodGet)

	seat := api.PathPrefix("/matches/{id}/players/{player:[0-9]+}").Subrouter()
	seat.HandleFunc("/image", s.handleUploadImage).Methods(http.MethodPost)
	seat.HandleFunc("/opponent", s.handleRequestOpponent).Methods(http.MethodPost)
	seat.HandleFunc("/gallery", s.handleUseGalleryEntry).Methods(http.MethodPost)
	seat.HandleFunc("/save", s.handleSaveToGallery).Methods(http.MethodPost)

	api.HandleFunc("/gallery", s.handleListGallery).Methods(http.MethodGet)
	api.HandleFunc("/gallery/{entry}", s.handleDeleteGallery).Methods(http.MethodDelete)
	api.HandleFunc("/gallery/{entry}/image", s.handleGalleryImage).Methods(http.MethodGet)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close ends every open websocket and waits for their handlers to return.
func (s *Server) Close() {
	s.cancel()
	s.sockets.Wait()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

// Hijack hands the connection to the websocket upgrader.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	r.status = http.StatusSwitchingProtocols
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

// httpStatus maps service errors onto HTTP status codes.
func httpStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, gameserver.ErrMatchNotFound), errors.Is(err, gallery.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, gameserver.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, gallery.ErrFull), errors.Is(err, gallery.ErrDuplicate), errors.Is(err, gameserver.ErrSlotNotReady):
		return http.StatusConflict
	case errors.Is(err, gameserver.ErrGalleryDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := httpStatus(err)
	if code == http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, code, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decoding request: %v", gameserver.ErrInvalidArgument, err)
	}
	return nil
}

func playerVar(r *http.Request) int {
	n, _ := strconv.Atoi(mux.Vars(r)["player"])
	return n
}
