package handlers_test

import (
	"context"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/cory-johannsen/beastbattle/internal/frontend/telnet"
	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/dice"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
	"github.com/cory-johannsen/beastbattle/internal/gameserver"
	"github.com/cory-johannsen/beastbattle/internal/generation"
)

func sparkMouse() character.Profile {
	return character.Profile{
		Species: "Mouse", Title: "Spark Mouse", Element: element.Thunder,
		Stats: character.Stats{HP: 300, Attack: 90, Defense: 40, Speed: 90},
		Moves: []character.Move{
			{Name: "Static Nip", Category: character.Physical, Power: 40, Accuracy: 100},
			{Name: "Charge Up", Category: character.Status, Power: 0, Accuracy: 100},
			{Name: "Bolt Crash", Category: character.Special, Power: 90, Accuracy: 100},
		},
	}
}

func reefCrab() character.Profile {
	return character.Profile{
		Species: "Crab", Title: "Reef Crab", Element: element.Tide,
		Stats: character.Stats{HP: 300, Attack: 70, Defense: 80, Speed: 30},
		Moves: []character.Move{
			{Name: "Pincer", Category: character.Physical, Power: 50, Accuracy: 100},
			{Name: "Shell Up", Category: character.Status, Power: 0, Accuracy: 100},
			{Name: "Riptide", Category: character.Special, Power: 80, Accuracy: 100},
		},
	}
}

type arenaFixture struct {
	svc    *gameserver.Service
	client *gameserver.Client
}

func newArenaFixture(t *testing.T, store gallery.Store) arenaFixture {
	t.Helper()
	src := dice.NewSeededSource(11)
	roster, err := generation.NewRoster([]character.Profile{sparkMouse(), reefCrab()}, src)
	require.NoError(t, err)
	cfg := match.DefaultConfig()
	cfg.TurnDelay = 0
	cfg.RoundEndDelay = time.Hour
	reg := gameserver.NewRegistry(cfg, roster, src, zap.NewNop())
	t.Cleanup(reg.Close)
	svc := gameserver.NewService(reg, store, zap.NewNop())

	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer()
	gameserver.RegisterBattleServiceServer(srv, gameserver.NewBattleServer(svc, zaptest.NewLogger(t)))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return arenaFixture{svc: svc, client: gameserver.NewClient(conn)}
}

// matchID returns the only open match.
func (f arenaFixture) matchID(t *testing.T) string {
	t.Helper()
	var ids []string
	require.Eventually(t, func() bool {
		ids = f.svc.Registry().IDs()
		return len(ids) == 1
	}, 2*time.Second, 5*time.Millisecond)
	return ids[0]
}

// scriptTerminal feeds queued lines to the session and records plain-text output.
type scriptTerminal struct {
	lines chan string

	mu  sync.Mutex
	out strings.Builder
}

func newScriptTerminal() *scriptTerminal {
	return &scriptTerminal{lines: make(chan string, 16)}
}

func (s *scriptTerminal) ReadLine() (string, error) {
	line, ok := <-s.lines
	if !ok {
		return "", io.EOF
	}
	return line, nil
}

func (s *scriptTerminal) WriteLine(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.WriteString(telnet.StripANSI(text) + "\n")
	return nil
}

func (s *scriptTerminal) WritePrompt(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.WriteString(text)
	return nil
}

func (s *scriptTerminal) Output() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.out.String()
}

func (s *scriptTerminal) send(line string) { s.lines <- line }

func (s *scriptTerminal) waitFor(t *testing.T, text string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return strings.Contains(s.Output(), text)
	}, 3*time.Second, 5*time.Millisecond, "never saw %q in:\n%s", text, s.Output())
}
