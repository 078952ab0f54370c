package match

import (
	"fmt"
	"strings"

	"github.com/cory-johannsen/beastbattle/internal/game/character"
	"github.com/cory-johannsen/beastbattle/internal/game/combat"
	"github.com/cory-johannsen/beastbattle/internal/game/element"
)

// Log message text. Presentation styles records by category, never by these strings.
const (
	msgWelcome = "SYSTEM: Welcome to the beast farm!"
	msgMission = "MISSION: Choose your creature partner to start the battle!"
	bossLabel  = "WILD BOSS"
	p1Label    = "PLAYER 01"
	p2Label    = "PLAYER 02"
)

func msgRoundStart(round int) string {
	return fmt.Sprintf("--- Round %d begins! ---", round)
}

func msgRoundEnd(round int) string {
	return fmt.Sprintf("--- Round %d is over. Get ready for the next! ---", round)
}

func msgInitiative(p character.Profile, id combat.PlayerID) string {
	return fmt.Sprintf(">> %s (%s) is quicker and strikes first!", p.Title, id)
}

func msgMiss(p character.Profile, id combat.PlayerID) string {
	return fmt.Sprintf("[MISS] (%s) %s swung at nothing!", id, p.Title)
}

func msgHit(id combat.PlayerID, res combat.AttackResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "(%s) %s", id, res.Move)
	if res.Critical {
		b.WriteString(" CRITICAL!")
	}
	switch res.Effectiveness {
	case element.SuperEffective:
		b.WriteString(" It's super effective!")
	case element.NotEffective:
		b.WriteString(" It's not very effective...")
	}
	fmt.Fprintf(&b, " >> %d damage", res.Damage)
	return b.String()
}

func msgVictory(id combat.PlayerID) string {
	return fmt.Sprintf("*** Player %d wins! ***", int(id))
}
