package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/cory-johannsen/beastbattle/internal/game/match"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// wsMessage is one frame pushed to a watching client.
type wsMessage struct {
	Type     string          `json:"type"`
	MatchID  string          `json:"match_id"`
	Snapshot *match.Snapshot `json:"snapshot,omitempty"`
}

// handleWatch upgrades to a websocket and pushes every snapshot of the match
// until the match closes, the client goes away or the server closes.
// Inbound frames are read only to observe pongs and close requests.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, cancel := context.WithCancel(s.baseCtx)
	defer cancel()

	snaps, err := s.svc.Watch(ctx, id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.String("match_id", id), zap.Error(err))
		return
	}
	s.sockets.Add(1)
	defer s.sockets.Done()
	defer conn.Close()

	log := s.logger.With(zap.String("match_id", id), zap.String("remote_addr", r.RemoteAddr))
	log.Debug("websocket watching")

	go func() {
		defer cancel()
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	goingAway := func() {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case snap, ok := <-snaps:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Watch also closes the channel when ctx ends.
				if ctx.Err() != nil {
					goingAway()
					return
				}
				_ = conn.WriteJSON(wsMessage{Type: "closed", MatchID: id})
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "match closed"))
				return
			}
			if err := conn.WriteJSON(wsMessage{Type: "snapshot", MatchID: id, Snapshot: &snap}); err != nil {
				log.Debug("websocket write failed", zap.Error(err))
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			goingAway()
			return
		}
	}
}
