package gamestate

import (
	"context"
	"errors"
	"testing"

	"github.com/bloops-games/balloonbomb/internal/replica/memory"
)

func TestAddPlayerKeepsCallOrder(t *testing.T) {
	t.Parallel()

	s := newService(t, memory.NewNetwork(), "a")
	names := []string{"A", "B", "C", "D"}
	addPlayers(t, s, names...)

	if got := ids(s.Roster()); !equalStrings(got, names) {
		t.Fatalf("want %v, got %v", names, got)
	}
	for _, p := range s.Roster().People {
		if p.Score != 0 {
			t.Fatalf("new players start at 0, got %+v", p)
		}
	}
}

func TestAddPlayerRejects(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		player   string
		id       string
		wantSize int
	}{
		{name: "empty name", player: "", id: "x", wantSize: 1},
		{name: "duplicate name and id", player: "A", id: "a", wantSize: 1},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newService(t, memory.NewNetwork(), "host")
			if err := s.AddPlayer(context.Background(), "A", "a"); err != nil {
				t.Fatalf("seed: %v", err)
			}

			err := s.AddPlayer(context.Background(), tc.player, tc.id)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("want ErrValidation, got %v", err)
			}
			if got := len(s.Roster().People); got != tc.wantSize {
				t.Fatalf("roster changed: size %d", got)
			}
		})
	}
}

func TestAddPlayerSameNameDifferentID(t *testing.T) {
	t.Parallel()

	s := newService(t, memory.NewNetwork(), "host")
	if err := s.AddPlayer(context.Background(), "A", "a1"); err != nil {
		t.Fatal(err)
	}
	if err := s.AddPlayer(context.Background(), "A", "a2"); err != nil {
		t.Fatalf("same name with another id is a different player: %v", err)
	}
}

func TestRemovePlayerIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newService(t, memory.NewNetwork(), "host")
	addPlayers(t, s, "A", "B", "C")

	for i := 0; i < 2; i++ {
		if err := s.RemovePlayer(ctx, "B"); err != nil {
			t.Fatalf("remove: %v", err)
		}
	}
	if err := s.RemovePlayer(ctx, "nobody"); err != nil {
		t.Fatalf("remove unknown: %v", err)
	}
	if got := ids(s.Roster()); !equalStrings(got, []string{"A", "C"}) {
		t.Fatalf("want [A C], got %v", got)
	}
}

func TestReorderPlayers(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		from    int
		to      int
		want    []string
		wantErr error
	}{
		{name: "to front", from: 2, to: 0, want: []string{"C", "A", "B", "D"}},
		{name: "to back", from: 0, to: 3, want: []string{"B", "C", "D", "A"}},
		{name: "in place", from: 1, to: 1, want: []string{"A", "B", "C", "D"}},
		{name: "from out of range", from: 4, to: 0, want: []string{"A", "B", "C", "D"}, wantErr: ErrValidation},
		{name: "negative target", from: 0, to: -1, want: []string{"A", "B", "C", "D"}, wantErr: ErrValidation},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newService(t, memory.NewNetwork(), "host")
			addPlayers(t, s, "A", "B", "C", "D")

			err := s.ReorderPlayers(context.Background(), tc.from, tc.to)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want err %v, got %v", tc.wantErr, err)
			}
			if got := ids(s.Roster()); !equalStrings(got, tc.want) {
				t.Fatalf("want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestShuffleKeepsPlayers(t *testing.T) {
	t.Parallel()

	n := memory.NewNetwork()
	// Always picking 0 turns the pass into a rotation right by one.
	s := New(Config{Joiner: n.Client(testIdentity("host")), Rand: func(uint32) uint32 { return 0 }})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	addPlayers(t, s, "A", "B", "C")
	if err := s.Shuffle(context.Background()); err != nil {
		t.Fatalf("shuffle: %v", err)
	}
	if got := ids(s.Roster()); !equalStrings(got, []string{"B", "C", "A"}) {
		t.Fatalf("want [B C A], got %v", got)
	}
}

func TestAdvanceTurnRotates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newService(t, memory.NewNetwork(), "host")
	addPlayers(t, s, "A", "B", "C")

	if err := s.AdvanceTurn(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	if got := ids(s.Roster()); !equalStrings(got, []string{"B", "C", "A"}) {
		t.Fatalf("want [B C A], got %v", got)
	}

	for i := 0; i < 2; i++ {
		if err := s.AdvanceTurn(ctx); err != nil {
			t.Fatalf("advance: %v", err)
		}
	}
	if got := ids(s.Roster()); !equalStrings(got, []string{"A", "B", "C"}) {
		t.Fatalf("full cycle should restore order, got %v", got)
	}
}

func TestAdvanceTurnEmptyRoster(t *testing.T) {
	t.Parallel()

	s := newService(t, memory.NewNetwork(), "host")
	if err := s.AdvanceTurn(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
}

func TestRecordAction(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		id        string
		wantErr   error
		wantScore int
		wantCount int
	}{
		{name: "head pumps", id: "A", wantScore: 1, wantCount: 1},
		{name: "not the head", id: "B", wantErr: ErrAuthorization},
		{name: "not on the list", id: "Z", wantErr: ErrAuthorization},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s := newService(t, memory.NewNetwork(), "host")
			addPlayers(t, s, "A", "B")
			before := s.Roster()

			err := s.RecordAction(context.Background(), tc.id)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
			if got := s.Roster().People[0].Score; got != tc.wantScore {
				t.Fatalf("head score: want %d, got %d", tc.wantScore, got)
			}
			if got := s.TurnWindow().CurrentPumpCount; got != tc.wantCount {
				t.Fatalf("pump count: want %d, got %d", tc.wantCount, got)
			}
			if tc.wantErr != nil && !equalStrings(ids(before), ids(s.Roster())) {
				t.Fatalf("failed action changed the roster")
			}
		})
	}
}

func TestRecordActionEmptyRoster(t *testing.T) {
	t.Parallel()

	s := newService(t, memory.NewNetwork(), "host")
	if err := s.RecordAction(context.Background(), "A"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
}

func TestPumpThenPassScenario(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := newService(t, memory.NewNetwork(), "host")
	addPlayers(t, s, "A", "B")

	if err := s.RecordAction(ctx, "A"); err != nil {
		t.Fatalf("record: %v", err)
	}
	r := s.Roster()
	if r.People[0] != (Player{ID: "A", Name: "A", Score: 1}) || r.People[1].Score != 0 {
		t.Fatalf("after pump: %+v", r.People)
	}
	if got := s.TurnWindow(); got != (TurnWindow{1, 10, 1}) {
		t.Fatalf("after pump: window %+v", got)
	}

	if err := s.AdvanceTurn(ctx); err != nil {
		t.Fatalf("advance: %v", err)
	}
	r = s.Roster()
	if r.People[0] != (Player{ID: "B", Name: "B"}) || r.People[1] != (Player{ID: "A", Name: "A", Score: 1}) {
		t.Fatalf("after advance: %+v", r.People)
	}
	if got := s.TurnWindow().CurrentPumpCount; got != 0 {
		t.Fatalf("after advance: count %d", got)
	}
}
