package gameserver

import (
	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
)

// BattleService request and response messages. Byte slices travel base64
// encoded, as encoding/json does by default.

type Empty struct{}

type MatchRequest struct {
	MatchID string `json:"match_id"`
}

type MatchList struct {
	MatchIDs []string `json:"match_ids"`
}

type SnapshotResponse struct {
	MatchID  string         `json:"match_id"`
	Snapshot match.Snapshot `json:"snapshot"`
}

type StartRoundRequest struct {
	MatchID string `json:"match_id"`
	Mode    string `json:"mode"`
}

type UploadImageRequest struct {
	MatchID  string `json:"match_id"`
	Player   int    `json:"player"`
	Image    []byte `json:"image"`
	MimeType string `json:"mime_type"`
}

type PlayerRequest struct {
	MatchID string `json:"match_id"`
	Player  int    `json:"player"`
}

type SelectMoveRequest struct {
	MatchID   string `json:"match_id"`
	Player    int    `json:"player"`
	MoveIndex int    `json:"move_index"`
}

type GalleryEntryRequest struct {
	MatchID string `json:"match_id"`
	Player  int    `json:"player"`
	EntryID string `json:"entry_id"`
}

type GalleryEntryResponse struct {
	Entry gallery.Entry `json:"entry"`
}

type GalleryListResponse struct {
	Entries []gallery.Entry `json:"entries"`
}

type DeleteGalleryRequest struct {
	EntryID string `json:"entry_id"`
}
