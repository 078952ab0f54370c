package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/cory-johannsen/beastbattle/internal/game/match"
	"github.com/cory-johannsen/beastbattle/internal/gameserver"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "matches": s.svc.Registry().Len()})
}

func (s *Server) handleCreateMatch(w http.ResponseWriter, _ *http.Request) {
	id, snap := s.svc.CreateMatch()
	writeJSON(w, http.StatusCreated, gameserver.SnapshotResponse{MatchID: id, Snapshot: snap})
}

func (s *Server) handleListMatches(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, gameserver.MatchList{MatchIDs: s.svc.Registry().IDs()})
}

func (s *Server) handleCloseMatch(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.CloseMatch(mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respond writes the snapshot returned by a match command.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, snap match.Snapshot, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, gameserver.SnapshotResponse{MatchID: mux.Vars(r)["id"], Snapshot: snap})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Snapshot(mux.Vars(r)["id"])
	s.respond(w, r, snap, err)
}

type startRoundBody struct {
	Mode string `json:"mode"`
}

func (s *Server) handleStartRound(w http.ResponseWriter, r *http.Request) {
	var body startRoundBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.svc.StartRound(mux.Vars(r)["id"], body.Mode)
	s.respond(w, r, snap, err)
}

type selectMoveBody struct {
	Player    int `json:"player"`
	MoveIndex int `json:"move_index"`
}

func (s *Server) handleSelectMove(w http.ResponseWriter, r *http.Request) {
	var body selectMoveBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.svc.SelectMove(mux.Vars(r)["id"], body.Player, body.MoveIndex)
	s.respond(w, r, snap, err)
}

func (s *Server) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.ClearSelection(mux.Vars(r)["id"])
	s.respond(w, r, snap, err)
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.ConfirmMove(mux.Vars(r)["id"])
	s.respond(w, r, snap, err)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Reset(mux.Vars(r)["id"])
	s.respond(w, r, snap, err)
}

// handleUploadImage accepts either a multipart form with an "image" file
// field or a raw image body.
func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	image, mimeType, err := readImage(r, s.maxUpload)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.svc.UploadImage(r.Context(), mux.Vars(r)["id"], playerVar(r), image, mimeType)
	s.respond(w, r, snap, err)
}

func readImage(r *http.Request, maxBytes int64) ([]byte, string, error) {
	var (
		data     []byte
		declared string
	)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			return nil, "", uploadError(err)
		}
		file, header, err := r.FormFile("image")
		if err != nil {
			return nil, "", fmt.Errorf("%w: missing image field: %v", gameserver.ErrInvalidArgument, err)
		}
		defer file.Close()
		if data, err = io.ReadAll(file); err != nil {
			return nil, "", uploadError(err)
		}
		declared = header.Header.Get("Content-Type")
	} else {
		var err error
		if data, err = io.ReadAll(r.Body); err != nil {
			return nil, "", uploadError(err)
		}
		declared = mediaType
	}

	mimeType := declared
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if len(bytes.TrimSpace(data)) > 0 && !strings.HasPrefix(mimeType, "image/") {
		return nil, "", fmt.Errorf("%w: %s is not an image", gameserver.ErrInvalidArgument, mimeType)
	}
	return data, mimeType, nil
}

func uploadError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return err
	}
	return fmt.Errorf("%w: reading upload: %v", gameserver.ErrInvalidArgument, err)
}

func (s *Server) handleRequestOpponent(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.RequestOpponent(r.Context(), mux.Vars(r)["id"], playerVar(r))
	s.respond(w, r, snap, err)
}

type galleryEntryBody struct {
	EntryID string `json:"entry_id"`
}

func (s *Server) handleUseGalleryEntry(w http.ResponseWriter, r *http.Request) {
	var body galleryEntryBody
	if err := decodeJSON(r, &body); err != nil {
		s.writeError(w, r, err)
		return
	}
	snap, err := s.svc.UseGalleryEntry(r.Context(), mux.Vars(r)["id"], playerVar(r), body.EntryID)
	s.respond(w, r, snap, err)
}

func (s *Server) handleSaveToGallery(w http.ResponseWriter, r *http.Request) {
	entry, err := s.svc.SaveToGallery(r.Context(), mux.Vars(r)["id"], playerVar(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	entry.Image = nil
	writeJSON(w, http.StatusCreated, gameserver.GalleryEntryResponse{Entry: entry})
}

// handleListGallery lists entries without image bytes; clients fetch images
// from /api/gallery/{entry}/image.
func (s *Server) handleListGallery(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.ListGallery(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	for i := range entries {
		entries[i].Image = nil
	}
	writeJSON(w, http.StatusOK, gameserver.GalleryListResponse{Entries: entries})
}

func (s *Server) handleDeleteGallery(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteGallery(r.Context(), mux.Vars(r)["entry"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGalleryImage(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.ListGallery(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	id := mux.Vars(r)["entry"]
	for _, e := range entries {
		if e.ID != id {
			continue
		}
		if len(e.Image) == 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", e.MimeType)
		w.Header().Set("Cache-Control", "private, max-age=3600")
		_, _ = w.Write(e.Image)
		return
	}
	writeJSON(w, http.StatusNotFound, errorResponse{Error: "gallery entry not found"})
}
