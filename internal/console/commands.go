package console

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bloops-games/balloonbomb/internal/gamestate"
	"github.com/enescakir/emoji"
)

const defaultExportFile = "healthdata.json"

var (
	errNotController = fmt.Errorf("%w: your meeting role cannot control the game", gamestate.ErrAuthorization)
	errNotOrganizer  = fmt.Errorf("%w: only the organizer can do that", gamestate.ErrAuthorization)
	errNotYourTurn   = fmt.Errorf("%w: it is not your turn", gamestate.ErrAuthorization)
)

type command struct {
	usage string
	help  string
	run   func(c *Controller, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"help":    {usage: "help", help: "list commands", run: (*Controller).cmdHelp},
		"status":  {usage: "status", help: "show the game", run: (*Controller).cmdStatus},
		"who":     {usage: "who", help: "list meeting participants", run: (*Controller).cmdWho},
		"board":   {usage: "board", help: "show the scoreboard", run: (*Controller).cmdBoard},
		"join":    {usage: "join", help: "join the game", run: (*Controller).cmdJoin},
		"leave":   {usage: "leave", help: "leave the game", run: (*Controller).cmdLeave},
		"kick":    {usage: "kick <id>", help: "remove a player", run: (*Controller).cmdKick},
		"move":    {usage: "move <from> <to>", help: "reorder the queue", run: (*Controller).cmdMove},
		"shuffle": {usage: "shuffle", help: "shuffle the queue", run: (*Controller).cmdShuffle},
		"setup":   {usage: "setup", help: "close the lobby and configure the round", run: (*Controller).cmdSetup},
		"range":   {usage: "range blow|turn <min> <max>", help: "set the balloon size or pumps-per-turn range", run: (*Controller).cmdRange},
		"start":   {usage: "start", help: "draw the balloon size and start", run: (*Controller).cmdStart},
		"pump":    {usage: "pump", help: "pump the balloon", run: (*Controller).cmdPump},
		"next":    {usage: "next", help: "pass the pump to the next player", run: (*Controller).cmdNext},
		"end":     {usage: "end", help: "end the round and bank the scores", run: (*Controller).cmdEnd},
		"restart": {usage: "restart", help: "bank the scores and go back to setup", run: (*Controller).cmdRestart},
		"export":  {usage: "export [file]", help: "write all scores as JSON", run: (*Controller).cmdExport},
		"reset":   {usage: "reset", help: "wipe the game", run: (*Controller).cmdReset},

		"reconnect": {usage: "reconnect", help: "rejoin the game after the connection dropped", run: (*Controller).cmdReconnect},
	}
}

// Execute runs one command line.
func (c *Controller) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := commands[strings.ToLower(fields[0])]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", gamestate.ErrValidation, fields[0])
	}
	return cmd.run(c, ctx, fields[1:])
}

func (c *Controller) requirePhase(allowed ...gamestate.Phase) error {
	current := c.game.Phase()
	for _, p := range allowed {
		if p == current {
			return nil
		}
	}
	return fmt.Errorf("%w: not available while the game is %s", gamestate.ErrInvalidState, current)
}

func (c *Controller) requireController() error {
	if !c.people().IsAuthorizedController() {
		return errNotController
	}
	return nil
}

func (c *Controller) requireOrganizer() error {
	if err := c.requireController(); err != nil {
		return err
	}
	if !c.people().IsOrganizer() {
		return errNotOrganizer
	}
	return nil
}

func (c *Controller) isHead() bool {
	head, ok := c.game.Roster().Head()
	return ok && head.ID == c.identity.ID
}

func (c *Controller) announce(ctx context.Context, text string) {
	if err := c.channel().Send(ctx, text); err != nil {
		c.fail(err)
	}
}

func (c *Controller) cmdHelp(_ context.Context, _ []string) error {
	names := []string{"status", "who", "board", "join", "leave", "kick", "move", "shuffle", "setup",
		"range", "start", "pump", "next", "end", "restart", "export", "reset", "reconnect", "help"}
	for _, name := range names {
		cmd := commands[name]
		c.printf("  %-28s %s\n", cmd.usage, cmd.help)
	}
	c.printf("  %-28s %s\n", "quit", "leave the console")
	return nil
}

func (c *Controller) cmdStatus(_ context.Context, _ []string) error {
	c.printf("%s", c.Render())
	return nil
}

func (c *Controller) cmdWho(_ context.Context, _ []string) error {
	c.printf("%s", c.renderUsers())
	return nil
}

func (c *Controller) cmdBoard(_ context.Context, _ []string) error {
	c.printf("%s", c.renderScoreboard())
	return nil
}

func (c *Controller) cmdJoin(ctx context.Context, _ []string) error {
	if err := c.requirePhase(gamestate.PhaseUnsetup, gamestate.PhaseEnded); err != nil {
		return err
	}
	if err := c.requireController(); err != nil {
		return err
	}
	return c.game.AddPlayer(ctx, c.identity.DisplayName, c.identity.ID)
}

func (c *Controller) cmdLeave(ctx context.Context, _ []string) error {
	if err := c.requirePhase(gamestate.PhaseUnsetup, gamestate.PhaseEnded); err != nil {
		return err
	}
	return c.game.RemovePlayer(ctx, c.identity.ID)
}

func (c *Controller) cmdKick(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usageError("kick")
	}
	if err := c.requireOrganizer(); err != nil {
		return err
	}
	if args[0] == c.identity.ID {
		return fmt.Errorf("%w: the organizer keeps their seat", gamestate.ErrValidation)
	}
	return c.game.RemovePlayer(ctx, args[0])
}

func (c *Controller) cmdMove(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usageError("move")
	}
	if err := c.requireOrganizer(); err != nil {
		return err
	}
	pos, err := parseInts(args)
	if err != nil {
		return err
	}
	return c.game.ReorderPlayers(ctx, pos[0], pos[1])
}

func (c *Controller) cmdShuffle(ctx context.Context, _ []string) error {
	if err := c.requirePhase(gamestate.PhaseUnsetup); err != nil {
		return err
	}
	if err := c.requireOrganizer(); err != nil {
		return err
	}
	return c.game.Shuffle(ctx)
}

func (c *Controller) cmdSetup(ctx context.Context, _ []string) error {
	if err := c.requirePhase(gamestate.PhaseUnsetup); err != nil {
		return err
	}
	if err := c.requireOrganizer(); err != nil {
		return err
	}
	if len(c.game.Roster().People) == 0 {
		return fmt.Errorf("%w: nobody has joined yet", gamestate.ErrInvalidState)
	}
	return c.game.SetPhase(ctx, gamestate.PhaseSetup)
}

func (c *Controller) cmdRange(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return usageError("range")
	}
	if err := c.requirePhase(gamestate.PhaseSetup); err != nil {
		return err
	}
	if err := c.requireOrganizer(); err != nil {
		return err
	}
	bounds, err := parseInts(args[1:])
	if err != nil {
		return err
	}

	switch args[0] {
	case "blow":
		if err := c.game.SetBlowRange(ctx, []int{bounds[0], bounds[1], bounds[0]}); err != nil {
			return err
		}
		c.printf("Balloon Blow: %d ~ %d\n", bounds[0], bounds[1])
	case "turn":
		if err := c.game.SetTurnRange(ctx, []int{bounds[0], bounds[1], 0}); err != nil {
			return err
		}
		c.printf("Pumps Per Turn: %d ~ %d\n", bounds[0], bounds[1])
	default:
		return usageError("range")
	}
	return nil
}

func (c *Controller) cmdStart(ctx context.Context, _ []string) error {
	if err := c.requirePhase(gamestate.PhaseSetup); err != nil {
		return err
	}
	if err := c.requireOrganizer(); err != nil {
		return err
	}
	if err := c.game.StartRound(ctx); err != nil {
		return err
	}
	c.announce(ctx, "just updated the settings")
	return nil
}

// cmdPump follows the stage rules: a lone player may always pump, otherwise
// only the head may, and only until the turn window is used up.
func (c *Controller) cmdPump(ctx context.Context, _ []string) error {
	if err := c.requirePhase(gamestate.PhaseStarted); err != nil {
		return err
	}
	roster := c.game.Roster()
	if !roster.Contains(c.identity.ID) {
		return fmt.Errorf("%w: you are not in the game", gamestate.ErrAuthorization)
	}
	if len(roster.People) != 1 {
		if !c.isHead() {
			return errNotYourTurn
		}
		if c.game.TurnWindow().Exhausted() {
			return fmt.Errorf("%w: no pumps left this turn, pass it on", gamestate.ErrInvalidState)
		}
	}

	if err := c.game.RecordAction(ctx, c.identity.ID); err != nil {
		return err
	}

	if c.game.BalloonPopped() {
		c.announce(ctx, "just blew the balloon "+emoji.Bomb.String())
		if err := c.game.SetPhase(ctx, gamestate.PhaseEnded); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) cmdNext(ctx context.Context, _ []string) error {
	if err := c.requirePhase(gamestate.PhaseStarted); err != nil {
		return err
	}
	if err := c.requireController(); err != nil {
		return err
	}
	if len(c.game.Roster().People) < 2 {
		return fmt.Errorf("%w: nobody to pass to", gamestate.ErrInvalidState)
	}
	if !c.isHead() {
		return errNotYourTurn
	}
	if !c.game.TurnWindow().CanPass() {
		w := c.game.TurnWindow()
		return fmt.Errorf("%w: pump between %d and %d times first", gamestate.ErrInvalidState, w.MinPumps, w.MaxPumps)
	}
	return c.game.AdvanceTurn(ctx)
}

func (c *Controller) cmdEnd(ctx context.Context, _ []string) error {
	if err := c.requireOrganizer(); err != nil {
		return err
	}
	if err := c.game.EndRound(ctx); err != nil {
		return err
	}
	c.announce(ctx, "just ended the round")
	return nil
}

func (c *Controller) cmdRestart(ctx context.Context, _ []string) error {
	if err := c.requireOrganizer(); err != nil {
		return err
	}
	if err := c.game.Restart(ctx); err != nil {
		return err
	}
	c.announce(ctx, "just restarted the game")
	return nil
}

func (c *Controller) cmdExport(_ context.Context, args []string) error {
	if len(args) > 1 {
		return usageError("export")
	}
	if err := c.requirePhase(gamestate.PhaseSetup, gamestate.PhaseStarted, gamestate.PhaseEnded); err != nil {
		return err
	}
	if err := c.requireOrganizer(); err != nil {
		return err
	}

	name := defaultExportFile
	if len(args) == 1 {
		name = args[0]
	}
	data, err := c.game.ExportScores()
	if err != nil {
		return err
	}
	if err := c.write(name, data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	c.printf("%s scores written to %s\n", emoji.CheckMarkButton, name)
	return nil
}

func (c *Controller) cmdReset(ctx context.Context, _ []string) error {
	if err := c.requirePhase(gamestate.PhaseSetup, gamestate.PhaseStarted, gamestate.PhaseEnded); err != nil {
		return err
	}
	if err := c.requireOrganizer(); err != nil {
		return err
	}
	if err := c.game.Reset(ctx); err != nil {
		return err
	}
	c.seatOrganizer(ctx)
	return nil
}

func (c *Controller) cmdReconnect(ctx context.Context, _ []string) error {
	if c.game.Connected() {
		return fmt.Errorf("%w: already connected", gamestate.ErrInvalidState)
	}
	if err := c.game.Connect(ctx); err != nil {
		return err
	}
	if err := c.attach(ctx); err != nil {
		return err
	}
	c.printf("%s back in the game\n", emoji.CheckMarkButton)
	c.seatOrganizer(ctx)
	return nil
}

func usageError(name string) error {
	return fmt.Errorf("%w: usage: %s", gamestate.ErrValidation, commands[name].usage)
}

func parseInts(args []string) ([]int, error) {
	out := make([]int, len(args))
	for i, a := range args {
		n, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not a number", gamestate.ErrValidation, a)
		}
		out[i] = n
	}
	return out, nil
}
