package gamestate

import (
	"encoding/json"
	"fmt"
	"sort"
)

// CombinedScores merges the restart history with the scores of the round in
// progress, by player name.
func (s *Service) CombinedScores() []ScoreEntry {
	return foldScores(s.RestartLog().HistoricalScores, s.Roster().People)
}

// ExportScores renders CombinedScores as the downloadable JSON document:
// an ordered list of {"name": score} objects.
func (s *Service) ExportScores() ([]byte, error) {
	b, err := json.Marshal(s.CombinedScores())
	if err != nil {
		return nil, fmt.Errorf("export scores: %w", err)
	}
	return b, nil
}

// Scoreboard returns the current roster ordered by score, best first. Ties
// keep turn order.
func (s *Service) Scoreboard() []Player {
	people := s.Roster().People
	sort.SliceStable(people, func(i, j int) bool {
		return people[i].Score > people[j].Score
	})
	return people
}

// BalloonPopped reports whether the pumps of this round reached the drawn
// burst size.
func (s *Service) BalloonPopped() bool {
	return s.Roster().TotalScore() >= s.BlowConfig().ChosenBlowSize
}
