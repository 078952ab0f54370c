package web_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/cory-johannsen/beastbattle/internal/config"
	"github.com/cory-johannsen/beastbattle/internal/frontend/web"
	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/dice"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
	"github.com/cory-johannsen/beastbattle/internal/gameserver"
	"github.com/cory-johannsen/beastbattle/internal/generation"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func thornBear() character.Profile {
	return character.Profile{
		Species: "Bear", Title: "Thorn Bear", Element: element.Forest,
		Stats: character.Stats{HP: 300, Attack: 85, Defense: 70, Speed: 35},
		Moves: []character.Move{
			{Name: "Bramble Maul", Category: character.Physical, Power: 60, Accuracy: 100},
			{Name: "Hibernate", Category: character.Status, Power: 0, Accuracy: 100},
			{Name: "Seed Storm", Category: character.Special, Power: 75, Accuracy: 100},
		},
	}
}

func galeHawk() character.Profile {
	return character.Profile{
		Species: "Hawk", Title: "Gale Hawk", Element: element.Gale,
		Stats: character.Stats{HP: 300, Attack: 75, Defense: 45, Speed: 95},
		Moves: []character.Move{
			{Name: "Talon Dive", Category: character.Physical, Power: 55, Accuracy: 100},
			{Name: "Tailwind", Category: character.Status, Power: 0, Accuracy: 100},
			{Name: "Cyclone", Category: character.Special, Power: 80, Accuracy: 100},
		},
	}
}

type fixture struct {
	svc *gameserver.Service
	web *web.Server
	url string
}

func newFixture(t *testing.T, store gallery.Store) fixture {
	t.Helper()
	src := dice.NewSeededSource(3)
	roster, err := generation.NewRoster([]character.Profile{thornBear(), galeHawk()}, src)
	require.NoError(t, err)
	cfg := match.DefaultConfig()
	cfg.TurnDelay = 0
	cfg.RoundEndDelay = time.Hour
	reg := gameserver.NewRegistry(cfg, roster, src, zap.NewNop())
	t.Cleanup(reg.Close)
	svc := gameserver.NewService(reg, store, zap.NewNop())

	srv := web.NewServer(svc, config.WebConfig{MaxUploadBytes: 1024}, zaptest.NewLogger(t))
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
	})
	return fixture{svc: svc, web: srv, url: ts.URL}
}

func (f fixture) do(t *testing.T, method, path, contentType string, body io.Reader) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.url+path, body)
	require.NoError(t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func (f fixture) doJSON(t *testing.T, method, path string, in any) *http.Response {
	t.Helper()
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	}
	return f.do(t, method, path, "application/json", body)
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var out T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func (f fixture) create(t *testing.T) string {
	t.Helper()
	resp := f.doJSON(t, http.MethodPost, "/api/matches", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[gameserver.SnapshotResponse](t, resp).MatchID
}

func (f fixture) waitForPhase(t *testing.T, id string, phase match.Phase) match.Snapshot {
	t.Helper()
	var snap match.Snapshot
	require.Eventually(t, func() bool {
		s, err := f.svc.Snapshot(id)
		require.NoError(t, err)
		snap = s
		return s.Phase == phase
	}, 2*time.Second, 5*time.Millisecond)
	return snap
}

func TestMatchLifecycle(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t)

	list := decode[gameserver.MatchList](t, f.doJSON(t, http.MethodGet, "/api/matches", nil))
	assert.Equal(t, []string{id}, list.MatchIDs)

	got := decode[gameserver.SnapshotResponse](t, f.doJSON(t, http.MethodGet, "/api/matches/"+id, nil))
	assert.Equal(t, match.Setup, got.Snapshot.Phase)

	resp := f.doJSON(t, http.MethodDelete, "/api/matches/"+id, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.doJSON(t, http.MethodGet, "/api/matches/"+id, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlaysATurn(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t)

	resp := f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/start", map[string]string{"mode": "pvp"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, match.AcquiringCharacters, decode[gameserver.SnapshotResponse](t, resp).Snapshot.Phase)

	for _, p := range []int{1, 2} {
		resp = f.doJSON(t, http.MethodPost, fmt.Sprintf("/api/matches/%s/players/%d/opponent", id, p), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	snap := f.waitForPhase(t, id, match.Combat)
	active := int(snap.Active)

	resp = f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/select", map[string]int{"player": active, "move_index": 2})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sel := decode[gameserver.SnapshotResponse](t, resp).Snapshot.Selection
	require.NotNil(t, sel)
	assert.Equal(t, 2, sel.MoveIndex)

	resp = f.doJSON(t, http.MethodDelete, "/api/matches/"+id+"/select", nil)
	assert.Nil(t, decode[gameserver.SnapshotResponse](t, resp).Snapshot.Selection)

	f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/select", map[string]int{"player": active, "move_index": 0})
	resp = f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/confirm", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	after := decode[gameserver.SnapshotResponse](t, resp).Snapshot
	assert.True(t, after.Acted[active-1])
	require.NotNil(t, after.LastAttack)

	resp = f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/reset", nil)
	assert.Equal(t, match.Setup, decode[gameserver.SnapshotResponse](t, resp).Snapshot.Phase)
}

func TestErrorStatuses(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{"unknown match", http.MethodPost, "/api/matches/nope/confirm", "", http.StatusNotFound},
		{"unknown mode", http.MethodPost, "/api/matches/" + id + "/start", `{"mode":"chess"}`, http.StatusBadRequest},
		{"malformed body", http.MethodPost, "/api/matches/" + id + "/start", `{"mode":`, http.StatusBadRequest},
		{"bad player", http.MethodPost, "/api/matches/" + id + "/players/3/opponent", "", http.StatusBadRequest},
		{"gallery disabled", http.MethodGet, "/api/gallery", "", http.StatusNotImplemented},
		{"save disabled", http.MethodPost, "/api/matches/" + id + "/players/1/save", "", http.StatusNotImplemented},
		{"wrong method", http.MethodPut, "/api/matches/" + id, "", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := f.do(t, tt.method, tt.path, "application/json", strings.NewReader(tt.body))
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestUploadImage(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t)
	f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/start", map[string]string{"mode": "pvp"})
	path := "/api/matches/" + id + "/players/1/image"

	resp := f.do(t, http.MethodPost, path, "image/png", bytes.NewReader(pngBytes))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool {
		s, err := f.svc.Snapshot(id)
		require.NoError(t, err)
		return s.Slot(1).HasImage
	}, 2*time.Second, 5*time.Millisecond)

	resp = f.do(t, http.MethodPost, path, "text/plain", strings.NewReader("not a picture"))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, http.MethodPost, path, "image/png", bytes.NewReader(bytes.Repeat([]byte{1}, 4096)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)

	resp = f.do(t, http.MethodPost, path, "image/png", bytes.NewReader(nil))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadImage_Multipart(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t)
	f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/start", map[string]string{"mode": "pvp"})

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", "fox.png")
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp := f.do(t, http.MethodPost, "/api/matches/"+id+"/players/2/image", mw.FormDataContentType(), &body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Eventually(t, func() bool {
		s, err := f.svc.Snapshot(id)
		require.NoError(t, err)
		return s.Slot(2).HasImage
	}, 2*time.Second, 5*time.Millisecond)
}

func TestGalleryRoutes(t *testing.T) {
	f := newFixture(t, gallery.NewMemoryStore(gallery.DefaultCapacity))
	id := f.create(t)
	f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/start", map[string]string{"mode": "pvp"})

	resp := f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/players/1/save", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode, "an empty slot cannot be saved")

	f.do(t, http.MethodPost, "/api/matches/"+id+"/players/1/image", "image/png", bytes.NewReader(pngBytes))
	f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/players/2/opponent", nil)
	f.waitForPhase(t, id, match.Combat)

	resp = f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/players/1/save", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	saved := decode[gameserver.GalleryEntryResponse](t, resp).Entry
	assert.NotEmpty(t, saved.ID)
	assert.Empty(t, saved.Image)

	resp = f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/players/1/save", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	list := decode[gameserver.GalleryListResponse](t, f.doJSON(t, http.MethodGet, "/api/gallery", nil))
	require.Len(t, list.Entries, 1)
	assert.Equal(t, saved.ID, list.Entries[0].ID)
	assert.Empty(t, list.Entries[0].Image)

	resp = f.do(t, http.MethodGet, "/api/gallery/"+saved.ID+"/image", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	img, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, img)

	f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/reset", nil)
	f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/start", map[string]string{"mode": "pvp"})
	resp = f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/players/2/gallery", map[string]string{"entry_id": saved.ID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	slot := decode[gameserver.SnapshotResponse](t, resp).Snapshot.Slot(2)
	assert.Equal(t, match.OriginProvided, slot.Origin)

	resp = f.doJSON(t, http.MethodDelete, "/api/gallery/"+saved.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = f.doJSON(t, http.MethodDelete, "/api/gallery/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = f.do(t, http.MethodGet, "/api/gallery/"+saved.ID+"/image", "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	f.create(t)
	body := decode[map[string]any](t, f.doJSON(t, http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 1, body["matches"])
}

type frame struct {
	Type     string          `json:"type"`
	MatchID  string          `json:"match_id"`
	Snapshot *match.Snapshot `json:"snapshot"`
}

func dialWatch(t *testing.T, f fixture, id string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(f.url, "http") + "/api/matches/" + id + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var fr frame
	require.NoError(t, conn.ReadJSON(&fr))
	return fr
}

func TestWatchPushesSnapshots(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t)
	conn := dialWatch(t, f, id)

	first := readFrame(t, conn)
	assert.Equal(t, "snapshot", first.Type)
	assert.Equal(t, id, first.MatchID)
	require.NotNil(t, first.Snapshot)
	assert.Equal(t, match.Setup, first.Snapshot.Phase)

	f.doJSON(t, http.MethodPost, "/api/matches/"+id+"/start", map[string]string{"mode": "pve"})
	for {
		fr := readFrame(t, conn)
		require.Equal(t, "snapshot", fr.Type)
		if fr.Snapshot.Phase == match.AcquiringCharacters {
			assert.Greater(t, fr.Snapshot.Version, first.Snapshot.Version)
			break
		}
	}

	f.doJSON(t, http.MethodDelete, "/api/matches/"+id, nil)
	for {
		fr := readFrame(t, conn)
		if fr.Type == "closed" {
			break
		}
	}
	_, _, err := conn.ReadMessage()
	var closeErr *websocket.CloseError
	require.ErrorAs(t, err, &closeErr)
	assert.Equal(t, websocket.CloseNormalClosure, closeErr.Code)
}

func TestWatchUnknownMatch(t *testing.T) {
	f := newFixture(t, nil)
	wsURL := "ws" + strings.TrimPrefix(f.url, "http") + "/api/matches/missing/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCloseEndsWebsockets(t *testing.T) {
	f := newFixture(t, nil)
	id := f.create(t)
	conn := dialWatch(t, f, id)
	readFrame(t, conn)

	done := make(chan struct{})
	go func() {
		f.web.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Close did not wait for the websocket to end")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			require.ErrorAs(t, err, &closeErr)
			assert.Equal(t, websocket.CloseGoingAway, closeErr.Code)
			return
		}
	}
}
