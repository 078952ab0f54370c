// Package handlers runs interactive arena sessions over a text terminal,
// driving matches through the battle service client.
package handlers

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/grpc/status"

	"github.com/cory-johannsen/beastbattle/internal/frontend/telnet"
	"github.com/cory-johannsen/beastbattle/internal/game/battlelog"
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
	"github.com/cory-johannsen/beastbattle/internal/game/command"
	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
	"github.com/cory-johannsen/beastbattle/internal/gameserver"
)

// defaultLogLines is how many records the 'log' command shows without an argument.
const defaultLogLines = 10

// errQuit ends the command loop cleanly.
var errQuit = errors.New("quit")

// Terminal is a line-oriented text device. Writes may be called concurrently.
type Terminal interface {
	ReadLine() (string, error)
	WriteLine(text string) error
	WritePrompt(text string) error
}

// ArenaHandler plays one match per session against a battle service.
type ArenaHandler struct {
	client   *gameserver.Client
	commands *command.Registry
	local    bool
	logger   *zap.Logger
}

// ArenaOption configures an ArenaHandler.
type ArenaOption func(*ArenaHandler)

// WithLocalFiles enables commands that read images from the local filesystem.
// Only hotseat terminals on the player's own machine should enable it.
func WithLocalFiles() ArenaOption {
	return func(h *ArenaHandler) { h.local = true }
}

// NewArenaHandler creates a handler over client.
//
// Precondition: client and logger must be non-nil.
func NewArenaHandler(client *gameserver.Client, logger *zap.Logger, opts ...ArenaOption) *ArenaHandler {
	h := &ArenaHandler{client: client, logger: logger}
	for _, o := range opts {
		o(h)
	}
	h.commands = command.DefaultRegistry(h.local)
	return h
}

// HandleSession implements telnet.SessionHandler.
func (h *ArenaHandler) HandleSession(ctx context.Context, conn *telnet.Conn) error {
	return h.Play(ctx, conn)
}

// Play creates a match, streams its updates to term and runs the command loop
// until the player quits, the input ends or ctx is cancelled. The match is
// closed on return.
//
// Postcondition: Returns nil on quit or end of input, otherwise the first fatal error.
func (h *ArenaHandler) Play(ctx context.Context, term Terminal) error {
	created, err := h.client.CreateMatch(ctx)
	if err != nil {
		_ = term.WriteLine(telnet.Colorize(telnet.Red, "The arena is unavailable right now."))
		return fmt.Errorf("creating match: %w", err)
	}
	s := &arenaSession{
		h:       h,
		term:    term,
		matchID: created.MatchID,
		logger:  h.logger.With(zap.String("match_id", created.MatchID)),
		render:  newSnapshotRenderer(term),
	}
	defer func() {
		if err := h.client.CloseMatch(context.WithoutCancel(ctx), s.matchID); err != nil {
			s.logger.Warn("closing match", zap.Error(err))
		}
	}()
	s.logger.Info("arena session started")

	_ = term.WriteLine(telnet.Colorize(telnet.Bold+telnet.BrightYellow, "Welcome to BEAST BATTLE!") +
		telnet.Colorize(telnet.Dim, " Type 'help' for commands."))
	s.render.show(created.Snapshot)

	watchCtx, stopWatch := context.WithCancel(ctx)
	defer stopWatch()
	watchDone := make(chan struct{})
	go func() {
		defer close(watchDone)
		s.watch(watchCtx)
	}()
	defer func() {
		stopWatch()
		<-watchDone
	}()

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := term.WritePrompt("> "); err != nil {
			return err
		}
		line, err := term.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if err := s.dispatch(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				_ = term.WriteLine("Farewell, trainer.")
				return nil
			}
			_ = term.WriteLine(telnet.Colorize(telnet.Red, errorText(err)))
		}
	}
}

type arenaSession struct {
	h       *ArenaHandler
	term    Terminal
	matchID string
	logger  *zap.Logger
	render  *snapshotRenderer

	mu      sync.Mutex
	gallery []gallery.Entry
}

func (s *arenaSession) watch(ctx context.Context) {
	stream, err := s.h.client.Watch(ctx, s.matchID)
	if err != nil {
		s.logger.Warn("opening watch stream", zap.Error(err))
		return
	}
	for {
		resp, err := stream.Recv()
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				s.logger.Warn("watch stream ended", zap.Error(err))
			}
			return
		}
		s.render.show(resp.Snapshot)
	}
}

func (s *arenaSession) dispatch(ctx context.Context, line string) error {
	p := command.Parse(line)
	if p.Command == "" {
		return nil
	}
	cmd, ok := s.h.commands.Resolve(p.Command)
	if !ok {
		return fmt.Errorf("unknown command %q, try 'help'", p.Command)
	}
	if err := cmd.Check(p); err != nil {
		return err
	}

	var (
		resp *gameserver.SnapshotResponse
		err  error
	)
	switch cmd.Handler {
	case command.HandlerStart:
		resp, err = s.h.client.StartRound(ctx, s.matchID, p.Args[0])
	case command.HandlerUpload:
		resp, err = s.upload(ctx, p)
	case command.HandlerSummon:
		player, perr := playerArg(p)
		if perr != nil {
			return perr
		}
		resp, err = s.h.client.RequestOpponent(ctx, s.matchID, player)
	case command.HandlerUse:
		resp, err = s.use(ctx, p)
	case command.HandlerSelect:
		player, perr := playerArg(p)
		if perr != nil {
			return perr
		}
		move, perr := p.Int(1, "move", 3)
		if perr != nil {
			return perr
		}
		resp, err = s.h.client.SelectMove(ctx, s.matchID, player, move)
	case command.HandlerClear:
		resp, err = s.h.client.ClearSelection(ctx, s.matchID)
	case command.HandlerConfirm:
		resp, err = s.h.client.ConfirmMove(ctx, s.matchID)
	case command.HandlerReset:
		resp, err = s.h.client.Reset(ctx, s.matchID)
	case command.HandlerBoard:
		resp, err = s.h.client.GetSnapshot(ctx, s.matchID)
		if err == nil {
			return s.term.WriteLine(RenderBoard(resp.Snapshot))
		}
	case command.HandlerLog:
		return s.showLog(ctx, p)
	case command.HandlerGallery:
		return s.listGallery(ctx)
	case command.HandlerSave:
		return s.save(ctx, p)
	case command.HandlerForget:
		return s.forget(ctx, p)
	case command.HandlerHelp:
		return s.term.WriteLine(RenderHelp(s.h.commands))
	case command.HandlerQuit:
		return errQuit
	default:
		return fmt.Errorf("command %q is not available here", cmd.Name)
	}
	if err != nil {
		return err
	}
	s.render.show(resp.Snapshot)
	return nil
}

func (s *arenaSession) upload(ctx context.Context, p command.ParseResult) (*gameserver.SnapshotResponse, error) {
	player, err := playerArg(p)
	if err != nil {
		return nil, err
	}
	path := p.Rest(1)
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return s.h.client.UploadImage(ctx, &gameserver.UploadImageRequest{
		MatchID:  s.matchID,
		Player:   player,
		Image:    image,
		MimeType: http.DetectContentType(image),
	})
}

func (s *arenaSession) use(ctx context.Context, p command.ParseResult) (*gameserver.SnapshotResponse, error) {
	player, err := playerArg(p)
	if err != nil {
		return nil, err
	}
	entry, err := s.galleryEntry(ctx, p, 1)
	if err != nil {
		return nil, err
	}
	return s.h.client.UseGalleryEntry(ctx, &gameserver.GalleryEntryRequest{MatchID: s.matchID, Player: player, EntryID: entry.ID})
}

func (s *arenaSession) save(ctx context.Context, p command.ParseResult) error {
	player, err := playerArg(p)
	if err != nil {
		return err
	}
	resp, err := s.h.client.SaveToGallery(ctx, s.matchID, player)
	if err != nil {
		return err
	}
	s.invalidateGallery()
	return s.term.WriteLine(telnet.Colorize(telnet.Green, fmt.Sprintf("%s saved to the gallery.", resp.Entry.Profile.Title)))
}

func (s *arenaSession) forget(ctx context.Context, p command.ParseResult) error {
	entry, err := s.galleryEntry(ctx, p, 0)
	if err != nil {
		return err
	}
	if err := s.h.client.DeleteGallery(ctx, entry.ID); err != nil {
		return err
	}
	s.invalidateGallery()
	return s.term.WriteLine(fmt.Sprintf("%s was released.", entry.Profile.Title))
}

func (s *arenaSession) listGallery(ctx context.Context) error {
	entries, err := s.refreshGallery(ctx)
	if err != nil {
		return err
	}
	return s.term.WriteLine(RenderGallery(entries))
}

// galleryEntry resolves argument i against the numbering of the last listing,
// fetching the gallery first if it was never listed.
func (s *arenaSession) galleryEntry(ctx context.Context, p command.ParseResult, i int) (gallery.Entry, error) {
	s.mu.Lock()
	entries := s.gallery
	s.mu.Unlock()
	if entries == nil {
		var err error
		if entries, err = s.refreshGallery(ctx); err != nil {
			return gallery.Entry{}, err
		}
	}
	if len(entries) == 0 {
		return gallery.Entry{}, errors.New("the gallery is empty")
	}
	idx, err := p.Int(i, "gallery number", len(entries))
	if err != nil {
		return gallery.Entry{}, err
	}
	return entries[idx], nil
}

func (s *arenaSession) refreshGallery(ctx context.Context) ([]gallery.Entry, error) {
	resp, err := s.h.client.ListGallery(ctx)
	if err != nil {
		return nil, err
	}
	entries := resp.Entries
	if entries == nil {
		entries = []gallery.Entry{}
	}
	s.mu.Lock()
	s.gallery = entries
	s.mu.Unlock()
	return entries, nil
}

func (s *arenaSession) invalidateGallery() {
	s.mu.Lock()
	s.gallery = nil
	s.mu.Unlock()
}

func (s *arenaSession) showLog(ctx context.Context, p command.ParseResult) error {
	n := defaultLogLines
	if len(p.Args) > 0 {
		v, err := strconv.Atoi(p.Args[0])
		if err != nil || v < 1 {
			return errors.New("log takes a positive number of entries")
		}
		n = v
	}
	resp, err := s.h.client.GetSnapshot(ctx, s.matchID)
	if err != nil {
		return err
	}
	records := resp.Snapshot.Log
	if len(records) > n {
		records = records[len(records)-n:]
	}
	lines := make([]string, len(records))
	for i, r := range records {
		lines[i] = RenderRecord(r)
	}
	return s.term.WriteLine(strings.Join(lines, "\n"))
}

func playerArg(p command.ParseResult) (int, error) {
	idx, err := p.Int(0, "player", 2)
	if err != nil {
		return 0, err
	}
	return idx + 1, nil
}

// errorText returns the message a player should see for err.
func errorText(err error) string {
	if st, ok := status.FromError(err); ok {
		return st.Message()
	}
	return err.Error()
}

// snapshotRenderer writes new log records and redraws the board when the
// phase, the active seat, the selection or a slot changes. Snapshots older
// than the last one shown are ignored.
type snapshotRenderer struct {
	term Terminal

	mu      sync.Mutex
	shown   bool
	version uint64
	cursor  battlelog.Cursor
	board   boardKey
}

type boardKey struct {
	phase     match.Phase
	round     int
	active    combat.PlayerID
	selection int
	slots     [2]match.SlotStatus
}

func newSnapshotRenderer(term Terminal) *snapshotRenderer {
	return &snapshotRenderer{term: term}
}

func keyOf(s match.Snapshot) boardKey {
	k := boardKey{phase: s.Phase, round: s.Round, active: s.Active, selection: -1}
	if s.Selection != nil {
		k.selection = s.Selection.MoveIndex
	}
	for i, slot := range s.Slots {
		k.slots[i] = slot.Status
	}
	return k
}

func (r *snapshotRenderer) show(s match.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.shown && s.Version <= r.version {
		return
	}

	var out []string
	for _, rec := range r.cursor.Next(s.Game, s.Log) {
		out = append(out, RenderRecord(rec))
	}
	if k := keyOf(s); !r.shown || k != r.board {
		out = append(out, RenderBoard(s))
		r.board = k
	}
	r.shown = true
	r.version = s.Version

	if len(out) > 0 {
		_ = r.term.WriteLine(strings.Join(out, "\n"))
	}
}

// StreamTerminal is a Terminal over a reader and a writer, such as stdin and stdout.
type StreamTerminal struct {
	in *bufio.Scanner

	mu  sync.Mutex
	out io.Writer
}

// NewStreamTerminal wraps r and w.
func NewStreamTerminal(r io.Reader, w io.Writer) *StreamTerminal {
	return &StreamTerminal{in: bufio.NewScanner(r), out: w}
}

// ReadLine returns the next line, or io.EOF at the end of input.
func (t *StreamTerminal) ReadLine() (string, error) {
	if t.in.Scan() {
		return strings.TrimRight(t.in.Text(), "\r"), nil
	}
	if err := t.in.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// WriteLine writes text and a newline.
func (t *StreamTerminal) WriteLine(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.out, text+"\n")
	return err
}

// WritePrompt writes text without a newline.
func (t *StreamTerminal) WritePrompt(text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, err := io.WriteString(t.out, text)
	return err
}

var (
	_ Terminal              = (*telnet.Conn)(nil)
	_ Terminal              = (*StreamTerminal)(nil)
	_ telnet.SessionHandler = (*ArenaHandler)(nil)
)
