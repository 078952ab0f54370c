// Package command defines the arena's text commands and the line parser.
package command

// Categories for organizing help output.
const (
	CategoryMatch   = "match"
	CategoryBattle  = "battle"
	CategoryGallery = "gallery"
	CategorySystem  = "system"
)

// Handler identifiers dispatched by the arena session.
const (
	HandlerStart   = "start"
	HandlerUpload  = "upload"
	HandlerSummon  = "summon"
	HandlerUse     = "use"
	HandlerSelect  = "select"
	HandlerClear   = "clear"
	HandlerConfirm = "confirm"
	HandlerReset   = "reset"
	HandlerGallery = "gallery"
	HandlerSave    = "save"
	HandlerForget  = "forget"
	HandlerBoard   = "board"
	HandlerLog     = "log"
	HandlerHelp    = "help"
	HandlerQuit    = "quit"
)

// Command defines a player-invocable command.
type Command struct {
	// Name is the canonical command name.
	Name string
	// Aliases are alternate names for this command.
	Aliases []string
	// Usage lists the arguments, e.g. "<player> <move#>".
	Usage string
	// Help is the short help text.
	Help string
	// Category groups the command in help output.
	Category string
	// Handler names the session action the command runs.
	Handler string
	// MinArgs is the number of arguments the command requires.
	MinArgs int
	// LocalOnly marks commands that read the player's own filesystem and are
	// only offered on a local terminal.
	LocalOnly bool
}

// BuiltinCommands returns every arena command.
func BuiltinCommands() []Command {
	return []Command{
		{Name: "start", Aliases: []string{"new"}, Usage: "<pvp|pve>", Help: "Start a round (player vs player or vs boss)", Category: CategoryMatch, Handler: HandlerStart, MinArgs: 1},
		{Name: "upload", Aliases: []string{"up"}, Usage: "<player> <image-path>", Help: "Turn a picture into a creature", Category: CategoryMatch, Handler: HandlerUpload, MinArgs: 2, LocalOnly: true},
		{Name: "summon", Aliases: []string{"opponent"}, Usage: "<player>", Help: "Summon a random opponent into a slot", Category: CategoryMatch, Handler: HandlerSummon, MinArgs: 1},
		{Name: "use", Usage: "<player> <gallery#>", Help: "Field a saved creature", Category: CategoryMatch, Handler: HandlerUse, MinArgs: 2},
		{Name: "reset", Help: "Abandon the match and return to setup", Category: CategoryMatch, Handler: HandlerReset},

		{Name: "select", Aliases: []string{"sel", "m"}, Usage: "<player> <move#>", Help: "Pick a move for the active creature", Category: CategoryBattle, Handler: HandlerSelect, MinArgs: 2},
		{Name: "clear", Help: "Withdraw the selected move", Category: CategoryBattle, Handler: HandlerClear},
		{Name: "confirm", Aliases: []string{"go", "c"}, Help: "Resolve the selected move", Category: CategoryBattle, Handler: HandlerConfirm},
		{Name: "board", Aliases: []string{"look", "l"}, Help: "Redraw the arena", Category: CategoryBattle, Handler: HandlerBoard},
		{Name: "log", Usage: "[n]", Help: "Show the last n battle log entries", Category: CategoryBattle, Handler: HandlerLog},

		{Name: "gallery", Aliases: []string{"g"}, Help: "List saved creatures", Category: CategoryGallery, Handler: HandlerGallery},
		{Name: "save", Usage: "<player>", Help: "Save a player's creature to the gallery", Category: CategoryGallery, Handler: HandlerSave, MinArgs: 1},
		{Name: "forget", Usage: "<gallery#>", Help: "Delete a saved creature", Category: CategoryGallery, Handler: HandlerForget, MinArgs: 1},

		{Name: "help", Aliases: []string{"?"}, Help: "Show available commands", Category: CategorySystem, Handler: HandlerHelp},
		{Name: "quit", Aliases: []string{"exit", "q"}, Help: "Leave the arena", Category: CategorySystem, Handler: HandlerQuit},
	}
}
