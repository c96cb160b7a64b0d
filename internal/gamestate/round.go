package gamestate

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// SetBlowRange replaces the blow config with [min, max, chosen].
func (s *Service) SetBlowRange(ctx context.Context, values []int) error {
	store, err := s.store()
	if err != nil {
		return fmt.Errorf("set blow range: %w", err)
	}
	if err := validateRange(values); err != nil {
		return err
	}
	if values[2] < values[0] || values[2] > values[1] {
		return fmt.Errorf("%w: blow size %d is outside %d..%d", ErrValidation, values[2], values[0], values[1])
	}

	next := BlowConfig{MinBlow: values[0], MaxBlow: values[1], ChosenBlowSize: values[2]}
	s.blowConfig.stage(next)

	return s.blowConfig.write(ctx, store, next)
}

// SetTurnRange replaces the turn window with [min, max, count].
func (s *Service) SetTurnRange(ctx context.Context, values []int) error {
	store, err := s.store()
	if err != nil {
		return fmt.Errorf("set turn range: %w", err)
	}
	if err := validateRange(values); err != nil {
		return err
	}
	if values[2] < 0 {
		return fmt.Errorf("%w: pump count cannot be negative", ErrValidation)
	}

	next := TurnWindow{MinPumps: values[0], MaxPumps: values[1], CurrentPumpCount: values[2]}
	s.turnWindow.stage(next)

	return s.turnWindow.write(ctx, store, next)
}

func validateRange(values []int) error {
	if len(values) == 0 {
		return fmt.Errorf("%w: please provide a valid range", ErrValidation)
	}
	if len(values) != 3 {
		return fmt.Errorf("%w: a range needs min, max and current values, got %d", ErrValidation, len(values))
	}
	if values[0] > values[1] {
		return fmt.Errorf("%w: min %d is greater than max %d", ErrValidation, values[0], values[1])
	}
	return nil
}

// StartRound draws the balloon's burst size from the configured range,
// opens the first turn and moves the game to started. Callers gate it on the
// organizer role.
func (s *Service) StartRound(ctx context.Context) error {
	store, err := s.store()
	if err != nil {
		return fmt.Errorf("start round: %w", err)
	}
	phase, err := s.transition(PhaseStarted, PhaseSetup)
	if err != nil {
		return fmt.Errorf("start round: %w", err)
	}

	blow, _ := s.blowConfig.update(func(c *BlowConfig) error {
		c.ChosenBlowSize = c.MinBlow
		if span := c.MaxBlow - c.MinBlow; span > 0 {
			c.ChosenBlowSize += int(s.rand(uint32(span)))
		}
		return nil
	})

	window, _ := s.turnWindow.update(func(w *TurnWindow) error {
		w.CurrentPumpCount = 0
		return nil
	})

	s.log().Infof("round started, balloon bursts at %d", blow.ChosenBlowSize)
	return writeAll(ctx, store, s.blowConfig.staged(blow), s.turnWindow.staged(window), s.phase.staged(phase))
}

// EndRound closes a started round: scores are folded into the restart log
// and the game moves to ended.
func (s *Service) EndRound(ctx context.Context) error {
	return s.fold(ctx, PhaseStarted, PhaseEnded)
}

// Restart goes back to setup after a round has ended. Scores not yet banked
// by EndRound are folded into the restart log first.
func (s *Service) Restart(ctx context.Context) error {
	return s.fold(ctx, PhaseEnded, PhaseSetup)
}

func (s *Service) fold(ctx context.Context, from, next Phase) error {
	store, err := s.store()
	if err != nil {
		return fmt.Errorf("fold scores: %w", err)
	}

	var banked bool
	phase, err := s.phase.update(func(d *phaseDoc) error {
		banked = d.Banked
		if err := d.advance(next, from); err != nil {
			return err
		}
		d.Banked = next == PhaseEnded
		return nil
	})
	if err != nil {
		return fmt.Errorf("fold scores: %w", err)
	}
	if banked {
		s.log().Infof("scores already banked, moving to %s", next)
		return s.phase.write(ctx, store, phase)
	}

	var people []Player
	roster, _ := s.roster.update(func(r *Roster) error {
		people = make([]Player, len(r.People))
		copy(people, r.People)
		for i := range r.People {
			r.People[i].Score = 0
		}
		return nil
	})

	restart, _ := s.restartLog.update(func(l *RestartLog) error {
		l.RestartCount++
		l.HistoricalScores = foldScores(l.HistoricalScores, people)
		return nil
	})

	s.log().Infof("scores folded, restart #%d, moving to %s", restart.RestartCount, next)
	return writeAll(ctx, store, s.restartLog.staged(restart), s.roster.staged(roster), s.phase.staged(phase))
}

// SetPhase moves the shared app state. Only transitions of the phase machine
// are accepted.
func (s *Service) SetPhase(ctx context.Context, next Phase) error {
	store, err := s.store()
	if err != nil {
		return fmt.Errorf("set phase: %w", err)
	}
	if next == "" {
		return fmt.Errorf("%w: please provide a state", ErrValidation)
	}
	if !next.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrValidation, next)
	}

	phase, err := s.transition(next)
	if err != nil {
		return fmt.Errorf("set phase: %w", err)
	}

	return s.phase.write(ctx, store, phase)
}

// transition moves the phase to next. When from is given the current phase
// must be one of them.
func (s *Service) transition(next Phase, from ...Phase) (phaseDoc, error) {
	return s.phase.update(func(d *phaseDoc) error {
		return d.advance(next, from...)
	})
}

// Reset restores every document to its default and writes all five slots
// concurrently. Phase subscribers are then called directly with the new
// phase so the caller gets a confirmation that does not depend on the echo.
func (s *Service) Reset(ctx context.Context) error {
	store, err := s.store()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	roster, window, blow, restart, phase := DefaultRoster(), DefaultTurnWindow(), DefaultBlowConfig(), DefaultRestartLog(), defaultPhaseDoc()
	s.roster.stage(roster)
	s.turnWindow.stage(window)
	s.blowConfig.stage(blow)
	s.restartLog.stage(restart)
	s.phase.stage(phase)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.roster.write(gctx, store, roster) })
	g.Go(func() error { return s.turnWindow.write(gctx, store, window) })
	g.Go(func() error { return s.blowConfig.write(gctx, store, blow) })
	g.Go(func() error { return s.restartLog.write(gctx, store, restart) })
	g.Go(func() error { return s.phase.write(gctx, store, phase) })
	if err := g.Wait(); err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	s.log().Infof("game reset")
	s.phase.notify(phase)
	return nil
}
