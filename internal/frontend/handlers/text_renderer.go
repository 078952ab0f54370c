package handlers

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/beastbattle/internal/frontend/telnet"
	"github.com/cory-johannsen/beastbattle/internal/game/battlelog"
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
	"github.com/cory-johannsen/beastbattle/internal/game/command"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
	"github.com/cory-johannsen/beastbattle/internal/game/gallery"
	"github.com/cory-johannsen/beastbattle/internal/game/match"
)

// hpBarWidth is the number of cells in a rendered HP bar.
const hpBarWidth = 20

var phaseTitles = map[match.Phase]string{
	match.Setup:               "SETUP",
	match.AcquiringCharacters: "SUMMONING",
	match.Combat:              "COMBAT",
	match.RoundEnd:            "ROUND OVER",
	match.GameOver:            "GAME OVER",
}

// RenderBoard formats the whole arena: header, both seats and the turn line.
func RenderBoard(s match.Snapshot) string {
	var b strings.Builder

	header := fmt.Sprintf("=== %s", phaseTitles[s.Phase])
	if s.Round > 0 {
		header += fmt.Sprintf(" | Round %d", s.Round)
	}
	if s.Mode != "" {
		header += " | " + strings.ToUpper(string(s.Mode))
	}
	b.WriteString(telnet.Colorize(telnet.Bold+telnet.BrightCyan, header+" ==="))
	b.WriteString("\n")

	for _, id := range []combat.PlayerID{combat.Player1, combat.Player2} {
		b.WriteString(renderSeat(s, id))
	}

	switch s.Phase {
	case match.Setup:
		b.WriteString(telnet.Colorize(telnet.Dim, "Type 'start pvp' or 'start pve' to begin."))
	case match.AcquiringCharacters:
		b.WriteString(telnet.Colorize(telnet.Dim, "Fill both slots with 'summon', 'use' or 'upload'."))
	case match.Combat:
		if s.Selection != nil {
			b.WriteString(fmt.Sprintf("%s has chosen %s. 'confirm' to strike or 'clear' to rethink.",
				s.Selection.Player, telnet.Colorize(telnet.BrightYellow, s.Selection.Move.Name)))
		} else if s.Active.Valid() {
			b.WriteString(fmt.Sprintf("%s to move: 'select %d <move#>'.", telnet.Colorize(telnet.Bold, s.Active.String()), int(s.Active)))
		}
	case match.RoundEnd:
		b.WriteString(telnet.Colorize(telnet.Dim, "Next round is being prepared..."))
	case match.GameOver:
		if s.Winner.Valid() {
			b.WriteString(telnet.Colorize(telnet.Bold+telnet.BrightYellow, fmt.Sprintf("%s wins the match!", s.Player(s.Winner).Label)))
		}
		b.WriteString(telnet.Colorize(telnet.Dim, " 'start pvp|pve' for a rematch."))
	}
	b.WriteString("\n")
	return b.String()
}

func renderSeat(s match.Snapshot, id combat.PlayerID) string {
	var b strings.Builder
	p := s.Player(id)
	slot := s.Slot(id)

	label := p.Label
	if label == "" {
		label = id.String()
	}
	b.WriteString(telnet.Colorize(telnet.Bold, fmt.Sprintf("%s %-10s", id, label)))

	switch slot.Status {
	case match.SlotEmpty:
		b.WriteString(telnet.Colorize(telnet.Dim, " (empty)\n"))
		return b.String()
	case match.SlotPending:
		b.WriteString(telnet.Colorize(telnet.Yellow, " summoning...\n"))
		return b.String()
	case match.SlotFailed:
		b.WriteString(telnet.Colorize(telnet.Red, " summoning failed: "+slot.Error+"\n"))
		return b.String()
	}
	if slot.Profile == nil {
		b.WriteString("\n")
		return b.String()
	}

	prof := slot.Profile
	fmt.Fprintf(&b, " %s %s %s\n", prof.Title,
		telnet.Colorize(telnet.Dim, "("+prof.Species+")"),
		telnet.Colorize(elementColor(prof.Element), "["+prof.Element.String()+"]"))
	fmt.Fprintf(&b, "   HP %s %d/%d  ATK %d DEF %d SPD %d\n",
		HPBar(p.CurrentHP, p.MaxHP), p.CurrentHP, p.MaxHP,
		prof.Stats.Attack, prof.Stats.Defense, prof.Stats.Speed)

	showMoves := s.Phase == match.Combat && s.Active == id
	if showMoves {
		if strong := element.StrongAgainst(prof.Element); len(strong) > 0 {
			names := make([]string, len(strong))
			for i, t := range strong {
				names[i] = t.String()
			}
			b.WriteString(telnet.Colorize(telnet.Dim, "   strong vs "+strings.Join(names, ", ")) + "\n")
		}
		for i, m := range prof.Moves {
			fmt.Fprintf(&b, "   %d) %-16s %-8s pow %3d acc %3d\n", i+1, m.Name, m.Category, m.Power, m.Accuracy)
		}
	}
	return b.String()
}

// HPBar renders current/max as a coloured bar of hpBarWidth cells.
func HPBar(current, maxHP int) string {
	if maxHP <= 0 {
		return "[" + strings.Repeat(" ", hpBarWidth) + "]"
	}
	filled := current * hpBarWidth / maxHP
	if current > 0 && filled == 0 {
		filled = 1
	}
	filled = min(max(filled, 0), hpBarWidth)

	color := telnet.Green
	switch {
	case current*4 <= maxHP:
		color = telnet.Red
	case current*2 <= maxHP:
		color = telnet.Yellow
	}
	return "[" + telnet.Colorize(color, strings.Repeat("#", filled)) + strings.Repeat("-", hpBarWidth-filled) + "]"
}

func elementColor(t element.Tag) string {
	switch t {
	case element.Fire:
		return telnet.BrightRed
	case element.Tide, element.Frost:
		return telnet.BrightCyan
	case element.Forest:
		return telnet.Green
	case element.Thunder:
		return telnet.BrightYellow
	case element.Psychic, element.Fairy, element.Shadow:
		return telnet.Magenta
	case element.Earth, element.Fighting:
		return telnet.Yellow
	default:
		return telnet.White
	}
}

// RenderRecord formats one battle log entry, styled by its category.
func RenderRecord(r battlelog.Record) string {
	switch r.Category {
	case battlelog.RoundBoundary:
		return telnet.Colorize(telnet.Cyan, r.Message)
	case battlelog.Damage:
		return telnet.Colorize(telnet.Yellow, r.Message)
	case battlelog.Critical:
		return telnet.Colorize(telnet.Bold+telnet.BrightRed, r.Message)
	case battlelog.Miss:
		return telnet.Colorize(telnet.Dim, r.Message)
	case battlelog.Victory:
		return telnet.Colorize(telnet.Bold+telnet.BrightYellow, r.Message)
	default:
		return telnet.Colorize(telnet.White, r.Message)
	}
}

// RenderGallery lists saved creatures with 1-based numbers for 'use' and 'forget'.
func RenderGallery(entries []gallery.Entry) string {
	if len(entries) == 0 {
		return telnet.Colorize(telnet.Dim, "The gallery is empty. 'save <player>' keeps a creature.")
	}
	var b strings.Builder
	b.WriteString(telnet.Colorize(telnet.BrightCyan, "Gallery:"))
	for i, e := range entries {
		fmt.Fprintf(&b, "\n  %2d) %s %s %s  %s",
			i+1, e.Profile.Title,
			telnet.Colorize(telnet.Dim, "("+e.Profile.Species+")"),
			telnet.Colorize(elementColor(e.Profile.Element), "["+e.Profile.Element.String()+"]"),
			telnet.Colorize(telnet.Dim, e.CreatedAt.Format("2006-01-02 15:04")))
	}
	return b.String()
}

var categoryOrder = []string{command.CategoryMatch, command.CategoryBattle, command.CategoryGallery, command.CategorySystem}

// RenderHelp lists the registry's commands grouped by category.
func RenderHelp(r *command.Registry) string {
	var b strings.Builder
	cats := r.CommandsByCategory()
	for _, cat := range categoryOrder {
		cmds := cats[cat]
		if len(cmds) == 0 {
			continue
		}
		b.WriteString(telnet.Colorize(telnet.BrightCyan, strings.ToUpper(cat)))
		b.WriteString("\n")
		for _, c := range cmds {
			usage := strings.TrimSpace(c.Name + " " + c.Usage)
			fmt.Fprintf(&b, "  %-28s %s\n", usage, c.Help)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
