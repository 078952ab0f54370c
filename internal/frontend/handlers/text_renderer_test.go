package handlers

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/beastbattle/internal/frontend/telnet"
	"github.com/cory-johannsen/beastbattle/internal/game/battlelog"
	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
	"github.com/cory-johannsen/beastbattle/internal/game/command"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
)

func lavaToad() *character.Profile {
	return &character.Profile{
		Species: "Toad", Title: "Lava Toad", Element: element.Fire,
		Stats: character.Stats{HP: 300, Attack: 80, Defense: 60, Speed: 50},
		Moves: []character.Move{
			{Name: "Magma Spit", Category: character.Special, Power: 70, Accuracy: 90},
			{Name: "Croak", Category: character.Status, Power: 0, Accuracy: 100},
			{Name: "Body Slam", Category: character.Physical, Power: 60, Accuracy: 95},
		},
	}
}

func combatSnapshot() match.Snapshot {
	return match.Snapshot{
		Version: 4,
		Phase:   match.Combat,
		Mode:    match.PvE,
		Round:   2,
		Players: [2]combat.Player{
			{ID: combat.Player1, Label: "PLAYER 01", CurrentHP: 150, MaxHP: 300},
			{ID: combat.Player2, Label: "WILD BOSS", CurrentHP: 500, MaxHP: 500},
		},
		Slots: [2]match.SlotView{
			{Status: match.SlotReady, Origin: match.OriginFallback, Profile: lavaToad()},
			{Status: match.SlotPending},
		},
		Active: combat.Player1,
	}
}

func TestRenderBoard_Combat(t *testing.T) {
	out := telnet.StripANSI(RenderBoard(combatSnapshot()))

	assert.Contains(t, out, "=== COMBAT | Round 2 | PVE ===")
	assert.Contains(t, out, "P1 PLAYER 01")
	assert.Contains(t, out, "Lava Toad (Toad) [fire]")
	assert.Contains(t, out, "150/300")
	assert.Contains(t, out, "strong vs forest, frost, bug")
	assert.Contains(t, out, "1) Magma Spit")
	assert.Contains(t, out, "3) Body Slam")
	assert.Contains(t, out, "P2 WILD BOSS")
	assert.Contains(t, out, "summoning...")
	assert.Contains(t, out, "P1 to move: 'select 1 <move#>'.")
}

func TestRenderBoard_Selection(t *testing.T) {
	s := combatSnapshot()
	s.Selection = &match.Selection{Player: combat.Player1, MoveIndex: 1, Move: s.Slots[0].Profile.Moves[1]}
	out := telnet.StripANSI(RenderBoard(s))
	assert.Contains(t, out, "P1 has chosen Croak.")
}

func TestRenderBoard_GameOverAndFailure(t *testing.T) {
	s := combatSnapshot()
	s.Phase = match.GameOver
	s.Active = 0
	s.Winner = combat.Player2
	s.Slots[1] = match.SlotView{Status: match.SlotFailed, Error: "no creature found"}
	out := telnet.StripANSI(RenderBoard(s))

	assert.Contains(t, out, "GAME OVER")
	assert.Contains(t, out, "WILD BOSS wins the match!")
	assert.Contains(t, out, "summoning failed: no creature found")
	assert.NotContains(t, out, "Magma Spit", "moves are only listed for the active seat")
	assert.NotContains(t, out, "strong vs")
}

func TestHPBar(t *testing.T) {
	assert.Equal(t, "["+strings.Repeat("#", 20)+"]", telnet.StripANSI(HPBar(300, 300)))
	assert.Equal(t, "["+strings.Repeat("#", 10)+strings.Repeat("-", 10)+"]", telnet.StripANSI(HPBar(150, 300)))
	assert.Equal(t, "[#"+strings.Repeat("-", 19)+"]", telnet.StripANSI(HPBar(1, 300)), "a living creature shows one cell")
	assert.Equal(t, "["+strings.Repeat("-", 20)+"]", telnet.StripANSI(HPBar(0, 300)))
	assert.Contains(t, HPBar(50, 300), telnet.Red)
	assert.Contains(t, HPBar(120, 300), telnet.Yellow)
}

func TestPropertyHPBarWidth(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		maxHP := rapid.IntRange(1, 1000).Draw(t, "max")
		cur := rapid.IntRange(0, maxHP).Draw(t, "cur")
		bar := telnet.StripANSI(HPBar(cur, maxHP))
		if len(bar) != hpBarWidth+2 {
			t.Fatalf("bar %q has width %d", bar, len(bar))
		}
		if cur > 0 && !strings.Contains(bar, "#") {
			t.Fatalf("living creature rendered empty bar %q", bar)
		}
	})
}

func TestRenderRecord_StylesByCategory(t *testing.T) {
	crit := RenderRecord(battlelog.Record{Category: battlelog.Critical, Message: "(P1) Bite CRITICAL! >> 90 damage"})
	assert.True(t, strings.HasPrefix(crit, telnet.Bold+telnet.BrightRed))
	miss := RenderRecord(battlelog.Record{Category: battlelog.Miss, Message: "[MISS]"})
	assert.True(t, strings.HasPrefix(miss, telnet.Dim))
	assert.Equal(t, "[MISS]", telnet.StripANSI(miss))
}

func TestRenderGallery(t *testing.T) {
	assert.Contains(t, telnet.StripANSI(RenderGallery(nil)), "The gallery is empty")

	out := telnet.StripANSI(RenderGallery([]gallery.Entry{
		{ID: "a", Profile: *lavaToad(), CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)},
	}))
	assert.Contains(t, out, " 1) Lava Toad (Toad) [fire]  2026-03-01 09:30")
}

func TestRenderHelp(t *testing.T) {
	out := telnet.StripANSI(RenderHelp(command.DefaultRegistry(false)))
	assert.True(t, strings.HasPrefix(out, "MATCH"))
	assert.Contains(t, out, "select <player> <move#>")
	assert.NotContains(t, out, "upload")
}

type recordingTerminal struct{ lines []string }

func (r *recordingTerminal) ReadLine() (string, error)     { return "", nil }
func (r *recordingTerminal) WriteLine(text string) error   { r.lines = append(r.lines, telnet.StripANSI(text)); return nil }
func (r *recordingTerminal) WritePrompt(text string) error { return nil }

func TestSnapshotRenderer_OnlyNewRecordsAndChanges(t *testing.T) {
	term := &recordingTerminal{}
	r := newSnapshotRenderer(term)

	s := combatSnapshot()
	s.Log = []battlelog.Record{{Seq: 1, Message: "SYSTEM: hello"}}
	r.show(s)
	a := assert.New(t)
	require.Len(t, term.lines, 1)
	a.Contains(term.lines[0], "SYSTEM: hello")
	a.Contains(term.lines[0], "=== COMBAT")

	stale := s
	stale.Version = 3
	r.show(stale)
	require.Len(t, term.lines, 1, "older versions are ignored")

	s.Version = 5
	s.Log = append(s.Log, battlelog.Record{Seq: 2, Category: battlelog.Damage, Message: "(P1) Magma Spit >> 40 damage"})
	s.Players[1].CurrentHP = 460
	r.show(s)
	require.Len(t, term.lines, 2)
	a.Equal("(P1) Magma Spit >> 40 damage", term.lines[1], "an unchanged board is not redrawn")

	s.Version = 6
	s.Game++
	s.Phase = match.Setup
	s.Active = 0
	s.Log = []battlelog.Record{
		{Seq: 1, Message: "SYSTEM: welcome back"},
		{Seq: 2, Message: "SYSTEM: pick a side"},
		{Seq: 3, Message: "SYSTEM: go"},
	}
	r.show(s)
	require.Len(t, term.lines, 3)
	a.Contains(term.lines[2], "SYSTEM: welcome back", "a reset log is replayed from the start")
	a.Contains(term.lines[2], "=== SETUP")
}
