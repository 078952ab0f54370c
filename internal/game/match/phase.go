package match

import (
	"context"
	"strings"

	"github.com/looplab/fsm"
)

// Phase is the match-level battle phase.
type Phase string

const (
	Setup               Phase = "setup"
	AcquiringCharacters Phase = "acquiring"
	Combat              Phase = "combat"
	RoundEnd            Phase = "round_end"
	GameOver            Phase = "game_over"
)

// Phase machine events.
const (
	eventBegin    = "begin"
	eventEngage   = "engage"
	eventFinish   = "finish"
	eventAdvance  = "advance"
	eventKnockout = "knockout"
	eventReset    = "reset"
)

// Mode selects who controls player 2 and how its slot is filled.
type Mode string

const (
	// PvP is two local players, each supplying a character.
	PvP Mode = "pvp"
	// PvE fills slot 2 with a generated boss every round.
	PvE Mode = "pve"
)

// ParseMode maps a user-supplied label onto a Mode. It reports false for unknown labels.
func ParseMode(s string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case PvP:
		return PvP, true
	case PvE:
		return PvE, true
	}
	return "", false
}

// newPhaseMachine builds the phase FSM. onEnter observes every completed transition.
//
// Transitions:
//
//	begin:    setup | game_over -> acquiring
//	engage:   acquiring         -> combat
//	finish:   combat            -> round_end
//	knockout: combat            -> game_over
//	advance:  round_end         -> acquiring
//	reset:    any but setup     -> setup
func newPhaseMachine(onEnter func(event string, from, to Phase)) *fsm.FSM {
	return fsm.NewFSM(
		string(Setup),
		fsm.Events{
			{Name: eventBegin, Src: []string{string(Setup), string(GameOver)}, Dst: string(AcquiringCharacters)},
			{Name: eventEngage, Src: []string{string(AcquiringCharacters)}, Dst: string(Combat)},
			{Name: eventFinish, Src: []string{string(Combat)}, Dst: string(RoundEnd)},
			{Name: eventKnockout, Src: []string{string(Combat)}, Dst: string(GameOver)},
			{Name: eventAdvance, Src: []string{string(RoundEnd)}, Dst: string(AcquiringCharacters)},
			{Name: eventReset, Src: []string{string(AcquiringCharacters), string(Combat), string(RoundEnd), string(GameOver)}, Dst: string(Setup)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				onEnter(e.Event, Phase(e.Src), Phase(e.Dst))
			},
		},
	)
}
