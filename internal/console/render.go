package console

import (
	"fmt"

	"github.com/bloops-games/balloonbomb/internal/gamestate"
	"github.com/bloops-games/balloonbomb/internal/replica"
	"github.com/bloops-games/balloonbomb/internal/strpool"
	"github.com/bloops-games/balloonbomb/internal/util"
	"github.com/enescakir/emoji"
)

// Render draws the side panel: phase, current gamer, queue and turn state.
func (c *Controller) Render() string {
	buf := strpool.Get()
	defer strpool.Put(buf)

	phase := c.game.Phase()
	roster := c.game.Roster()
	window := c.game.TurnWindow()

	buf.WriteString(emoji.Balloon.String())
	buf.WriteString(" Balloon Bomb [")
	buf.WriteString(string(phase))
	buf.WriteString("]\n")

	if phase != gamestate.PhaseUnsetup {
		if head, ok := roster.Head(); ok {
			fmt.Fprintf(buf, "Current gamer: %s (%s this turn, %d ~ %d)\n",
				head.Name, util.Count(window.CurrentPumpCount, "pump", "pumps"), window.MinPumps, window.MaxPumps)
		}
	}

	for i, p := range roster.People {
		marker := "  "
		if i == 0 {
			marker = "> "
		}
		fmt.Fprintf(buf, "%s%d. %s", marker, i, p.Name)
		if p.ID == c.identity.ID {
			buf.WriteString(" (you)")
		}
		buf.WriteString("\n")
	}
	if len(roster.People) == 0 {
		buf.WriteString("Nobody has joined yet.\n")
	}

	if phase == gamestate.PhaseStarted || phase == gamestate.PhaseEnded {
		blow := c.game.BlowConfig()
		fmt.Fprintf(buf, "Balloon: %d / %d\n", roster.TotalScore(), blow.ChosenBlowSize)
	}
	if phase == gamestate.PhaseEnded && c.game.BalloonPopped() {
		buf.WriteString(emoji.Bomb.String())
		buf.WriteString(" The balloon popped!\n")
	}

	return buf.String()
}

func medal(n int) string {
	switch n {
	case 0:
		return emoji.FirstPlaceMedal.String()
	case 1:
		return emoji.SecondPlaceMedal.String()
	case 2:
		return emoji.ThirdPlaceMedal.String()
	default:
		return "  "
	}
}

func (c *Controller) renderScoreboard() string {
	buf := strpool.Get()
	defer strpool.Put(buf)

	buf.WriteString(emoji.Trophy.String())
	buf.WriteString(" Game Data\n")
	for n, p := range c.game.Scoreboard() {
		fmt.Fprintf(buf, "%s %d. %s - %s\n", medal(n), n+1, p.Name, util.Count(p.Score, "pump", "pumps"))
	}

	history := c.game.RestartLog()
	if len(history.HistoricalScores) > 0 {
		fmt.Fprintf(buf, "Banked after %s:\n", util.Count(history.RestartCount, "round", "rounds"))
		for _, e := range history.HistoricalScores {
			fmt.Fprintf(buf, "   %s - %d\n", e.Name, e.Score)
		}
	}
	return buf.String()
}

func (c *Controller) renderUsers() string {
	buf := strpool.Get()
	defer strpool.Put(buf)

	users := c.people().Users()
	fmt.Fprintf(buf, "%s online\n", util.Count(len(users), "participant", "participants"))
	for _, u := range users {
		buf.WriteString("  ")
		buf.WriteString(u.DisplayName)
		if u.HasRole(replica.RoleOrganizer) {
			buf.WriteString(" ")
			buf.WriteString(emoji.Crown.String())
		}
		buf.WriteString("\n")
	}
	return buf.String()
}
