package gamestate

import (
	"encoding/json"
	"fmt"
)

const (
	defaultMinPumps = 1
	defaultMaxPumps = 10
	defaultMinBlow  = 10
	defaultMaxBlow  = 50
	defaultBlowSize = 20
)

type Player struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// Roster is the turn queue. People[0] is the current gamer.
type Roster struct {
	People []Player `json:"people"`
}

func DefaultRoster() Roster {
	return Roster{People: []Player{}}
}

func (r Roster) Clone() Roster {
	people := make([]Player, len(r.People))
	copy(people, r.People)
	return Roster{People: people}
}

func (r Roster) Head() (Player, bool) {
	if len(r.People) == 0 {
		return Player{}, false
	}
	return r.People[0], true
}

func (r Roster) Contains(id string) bool {
	for _, p := range r.People {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (r Roster) TotalScore() int {
	var sum int
	for _, p := range r.People {
		sum += p.Score
	}
	return sum
}

// TurnWindow bounds how many pumps the current gamer may make.
type TurnWindow struct {
	MinPumps         int
	MaxPumps         int
	CurrentPumpCount int
}

func DefaultTurnWindow() TurnWindow {
	return TurnWindow{MinPumps: defaultMinPumps, MaxPumps: defaultMaxPumps}
}

func (w TurnWindow) Clone() TurnWindow { return w }

func (w TurnWindow) Values() []int {
	return []int{w.MinPumps, w.MaxPumps, w.CurrentPumpCount}
}

// CanPass reports whether the current gamer pumped enough to hand over.
func (w TurnWindow) CanPass() bool {
	return w.CurrentPumpCount >= w.MinPumps && w.CurrentPumpCount <= w.MaxPumps
}

// Exhausted reports whether the current gamer used every pump of the turn.
func (w TurnWindow) Exhausted() bool {
	return w.CurrentPumpCount >= w.MaxPumps
}

type turnWindowJSON struct {
	PumpTriggerCount []int `json:"pumpTriggerCount"`
}

func (w TurnWindow) MarshalJSON() ([]byte, error) {
	return json.Marshal(turnWindowJSON{PumpTriggerCount: w.Values()})
}

func (w *TurnWindow) UnmarshalJSON(b []byte) error {
	var raw turnWindowJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw.PumpTriggerCount) != 3 {
		return fmt.Errorf("pumpTriggerCount: want 3 values, got %d", len(raw.PumpTriggerCount))
	}
	w.MinPumps, w.MaxPumps, w.CurrentPumpCount = raw.PumpTriggerCount[0], raw.PumpTriggerCount[1], raw.PumpTriggerCount[2]
	return nil
}

// BlowConfig is the balloon's burst range and the size drawn for the round.
type BlowConfig struct {
	MinBlow        int
	MaxBlow        int
	ChosenBlowSize int
}

func DefaultBlowConfig() BlowConfig {
	return BlowConfig{MinBlow: defaultMinBlow, MaxBlow: defaultMaxBlow, ChosenBlowSize: defaultBlowSize}
}

func (c BlowConfig) Clone() BlowConfig { return c }

func (c BlowConfig) Values() []int {
	return []int{c.MinBlow, c.MaxBlow, c.ChosenBlowSize}
}

type blowConfigJSON struct {
	BlowSize []int `json:"blowsize"`
}

func (c BlowConfig) MarshalJSON() ([]byte, error) {
	return json.Marshal(blowConfigJSON{BlowSize: c.Values()})
}

func (c *BlowConfig) UnmarshalJSON(b []byte) error {
	var raw blowConfigJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw.BlowSize) != 3 {
		return fmt.Errorf("blowsize: want 3 values, got %d", len(raw.BlowSize))
	}
	c.MinBlow, c.MaxBlow, c.ChosenBlowSize = raw.BlowSize[0], raw.BlowSize[1], raw.BlowSize[2]
	return nil
}

// ScoreEntry is one player's accumulated score, encoded as {"name": score}.
type ScoreEntry struct {
	Name  string
	Score int
}

func (e ScoreEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]int{e.Name: e.Score})
}

func (e *ScoreEntry) UnmarshalJSON(b []byte) error {
	var raw map[string]int
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if len(raw) != 1 {
		return fmt.Errorf("score entry: want a single key, got %d", len(raw))
	}
	for name, score := range raw {
		e.Name, e.Score = name, score
	}
	return nil
}

type RestartLog struct {
	RestartCount     int          `json:"restart"`
	HistoricalScores []ScoreEntry `json:"gameData"`
}

func DefaultRestartLog() RestartLog {
	return RestartLog{HistoricalScores: []ScoreEntry{}}
}

func (l RestartLog) Clone() RestartLog {
	scores := make([]ScoreEntry, len(l.HistoricalScores))
	copy(scores, l.HistoricalScores)
	return RestartLog{RestartCount: l.RestartCount, HistoricalScores: scores}
}

// phaseDoc is the app state slot. Banked marks an ended round whose scores
// EndRound already folded, so Restart does not fold them again.
type phaseDoc struct {
	Phase  Phase `json:"appState"`
	Banked bool  `json:"banked,omitempty"`
}

// advance moves to next when the phase machine allows it and, if from is
// given, the current phase is one of them. Leaving a phase clears Banked.
func (d *phaseDoc) advance(next Phase, from ...Phase) error {
	if len(from) > 0 && !containsPhase(from, d.Phase) {
		return fmt.Errorf("%s to %s: %w", d.Phase, next, ErrIllegalTransition)
	}
	if !d.Phase.CanTransitionTo(next) {
		return fmt.Errorf("%s to %s: %w", d.Phase, next, ErrIllegalTransition)
	}
	if next != d.Phase {
		d.Banked = false
	}
	d.Phase = next
	return nil
}

func defaultPhaseDoc() phaseDoc {
	return phaseDoc{Phase: PhaseUnsetup}
}

func (d phaseDoc) Clone() phaseDoc { return d }

// foldScores merges people into history by name: same-name entries add up,
// new names are appended in roster order.
func foldScores(history []ScoreEntry, people []Player) []ScoreEntry {
	out := make([]ScoreEntry, len(history), len(history)+len(people))
	copy(out, history)

PeopleLoop:
	for _, p := range people {
		for i := range out {
			if out[i].Name == p.Name {
				out[i].Score += p.Score
				continue PeopleLoop
			}
		}
		out = append(out, ScoreEntry{Name: p.Name, Score: p.Score})
	}

	return out
}
