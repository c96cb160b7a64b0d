package gamestate

import (
	"context"
	"fmt"
)

func (s *Service) AddPlayer(ctx context.Context, name, id string) error {
	store, err := s.store()
	if err != nil {
		return fmt.Errorf("add player: %w", err)
	}
	if name == "" {
		return fmt.Errorf("%w: please enter a name to add to the list", ErrValidation)
	}

	next, err := s.roster.update(func(r *Roster) error {
		for _, p := range r.People {
			if p.Name == name && p.ID == id {
				return fmt.Errorf("%w: %s is already on the list", ErrValidation, name)
			}
		}
		r.People = append(r.People, Player{ID: id, Name: name})
		return nil
	})
	if err != nil {
		return err
	}

	return s.roster.write(ctx, store, next)
}

// RemovePlayer drops every entry with id. Unknown ids are ignored.
func (s *Service) RemovePlayer(ctx context.Context, id string) error {
	store, err := s.store()
	if err != nil {
		return fmt.Errorf("remove player: %w", err)
	}

	next, _ := s.roster.update(func(r *Roster) error {
		kept := r.People[:0]
		for _, p := range r.People {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		r.People = kept
		return nil
	})

	return s.roster.write(ctx, store, next)
}

// ReorderPlayers moves the player at from to position to.
func (s *Service) ReorderPlayers(ctx context.Context, from, to int) error {
	store, err := s.store()
	if err != nil {
		return fmt.Errorf("reorder players: %w", err)
	}

	next, err := s.roster.update(func(r *Roster) error {
		n := len(r.People)
		if from < 0 || from >= n || to < 0 || to >= n {
			return fmt.Errorf("%w: cannot move position %d to %d in a list of %d", ErrValidation, from, to, n)
		}
		moved := r.People[from]
		r.People = append(r.People[:from], r.People[from+1:]...)
		r.People = append(r.People[:to], append([]Player{moved}, r.People[to:]...)...)
		return nil
	})
	if err != nil {
		return err
	}

	return s.roster.write(ctx, store, next)
}

// Shuffle randomizes the turn order with a Fisher-Yates pass.
func (s *Service) Shuffle(ctx context.Context) error {
	store, err := s.store()
	if err != nil {
		return fmt.Errorf("shuffle: %w", err)
	}

	next, _ := s.roster.update(func(r *Roster) error {
		for i := len(r.People) - 1; i > 0; i-- {
			j := int(s.rand(uint32(i + 1)))
			r.People[i], r.People[j] = r.People[j], r.People[i]
		}
		return nil
	})

	return s.roster.write(ctx, store, next)
}

// AdvanceTurn moves the current gamer to the back of the queue and opens a
// fresh turn window.
func (s *Service) AdvanceTurn(ctx context.Context) error {
	store, err := s.store()
	if err != nil {
		return fmt.Errorf("advance turn: %w", err)
	}

	roster, err := s.roster.update(func(r *Roster) error {
		if len(r.People) == 0 {
			return fmt.Errorf("%w: there are no people in the list", ErrInvalidState)
		}
		r.People = append(r.People[1:], r.People[0])
		return nil
	})
	if err != nil {
		return err
	}

	window, _ := s.turnWindow.update(func(w *TurnWindow) error {
		w.CurrentPumpCount = 0
		return nil
	})

	return writeAll(ctx, store, s.roster.staged(roster), s.turnWindow.staged(window))
}

// RecordAction scores one pump for the current gamer. Only the roster head
// may pump; the check runs against the local snapshot.
func (s *Service) RecordAction(ctx context.Context, id string) error {
	store, err := s.store()
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}
	roster, err := s.roster.update(func(r *Roster) error {
		if len(r.People) == 0 {
			return fmt.Errorf("%w: there are no people in the list", ErrInvalidState)
		}
		if r.People[0].ID != id {
			return fmt.Errorf("%w: %s is not in control", ErrAuthorization, id)
		}
		r.People[0].Score++
		return nil
	})
	if err != nil {
		return err
	}

	window, _ := s.turnWindow.update(func(w *TurnWindow) error {
		w.CurrentPumpCount++
		return nil
	})

	return writeAll(ctx, store, s.roster.staged(roster), s.turnWindow.staged(window))
}
