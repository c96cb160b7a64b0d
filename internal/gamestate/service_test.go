package gamestate

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bloops-games/balloonbomb/internal/replica"
	"github.com/bloops-games/balloonbomb/internal/replica/memory"
)

func newService(t *testing.T, n *memory.Network, id string) *Service {
	t.Helper()
	s := New(Config{Joiner: n.Client(replica.Identity{ID: id, DisplayName: id})})
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("connect %s: %v", id, err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func addPlayers(t *testing.T, s *Service, names ...string) {
	t.Helper()
	for _, name := range names {
		if err := s.AddPlayer(context.Background(), name, name); err != nil {
			t.Fatalf("add %s: %v", name, err)
		}
	}
}

func ids(r Roster) []string {
	out := make([]string, len(r.People))
	for i, p := range r.People {
		out[i] = p.ID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestConnectLoadsDefaults(t *testing.T) {
	t.Parallel()

	s := newService(t, memory.NewNetwork(), "a")

	if got := s.Roster(); len(got.People) != 0 {
		t.Errorf("roster: want empty, got %+v", got)
	}
	if got := s.TurnWindow(); got != DefaultTurnWindow() {
		t.Errorf("turn window: want %+v, got %+v", DefaultTurnWindow(), got)
	}
	if got := s.BlowConfig(); got != DefaultBlowConfig() {
		t.Errorf("blow config: want %+v, got %+v", DefaultBlowConfig(), got)
	}
	if got := s.RestartLog(); got.RestartCount != 0 || len(got.HistoricalScores) != 0 {
		t.Errorf("restart log: want empty, got %+v", got)
	}
	if got := s.Phase(); got != PhaseUnsetup {
		t.Errorf("phase: want unsetup, got %s", got)
	}
}

func TestConnectReadsExistingSlots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	n := memory.NewNetwork()
	writer, err := n.Join(ctx, replica.Identity{ID: "seed"})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	_ = writer.Set(ctx, replica.SlotRoster, `{"people":[{"id":"a","name":"A","score":3}]}`)
	_ = writer.Set(ctx, replica.SlotTurnWindow, `{"pumpTriggerCount":[2,5,1]}`)
	_ = writer.Set(ctx, replica.SlotPhase, `{"appState":"started"}`)
	_ = writer.Set(ctx, replica.SlotBlowConfig, `not json`)

	s := newService(t, n, "b")

	if got := s.Roster().People; len(got) != 1 || got[0].Score != 3 {
		t.Errorf("roster: got %+v", got)
	}
	if got := s.TurnWindow(); got != (TurnWindow{2, 5, 1}) {
		t.Errorf("turn window: got %+v", got)
	}
	if got := s.Phase(); got != PhaseStarted {
		t.Errorf("phase: got %s", got)
	}
	if got := s.BlowConfig(); got != DefaultBlowConfig() {
		t.Errorf("unreadable blow config should fall back to default, got %+v", got)
	}
}

func TestConnectSharesOneAttempt(t *testing.T) {
	t.Parallel()

	n := memory.NewNetwork()
	release := make(chan struct{})
	n.SetJoinHook(func(ctx context.Context, _ replica.Identity) error {
		<-release
		return nil
	})

	s := New(Config{Joiner: n.Client(replica.Identity{ID: "a"})})
	t.Cleanup(func() { _ = s.Close() })

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.Connect(context.Background())
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("connect: %v", err)
		}
	}
	if got := n.Joins(); got != 1 {
		t.Fatalf("want a single join attempt, got %d", got)
	}
}

func TestConnectFailureIsRetryable(t *testing.T) {
	t.Parallel()

	n := memory.NewNetwork()
	n.SetJoinHook(func(context.Context, replica.Identity) error {
		return errors.New("relay unreachable")
	})

	s := New(Config{Joiner: n.Client(replica.Identity{ID: "a"})})
	err := s.Connect(context.Background())
	if !errors.Is(err, ErrConnect) {
		t.Fatalf("want ErrConnect, got %v", err)
	}
	if s.Connected() {
		t.Fatal("service must stay disconnected after a failed join")
	}
	if err := s.AddPlayer(context.Background(), "A", "a"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("want ErrNotConnected, got %v", err)
	}

	n.SetJoinHook(nil)
	if err := s.Connect(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !s.Connected() {
		t.Fatal("want connected after retry")
	}
	_ = s.Close()
}

func TestChangesReplicateToOtherClients(t *testing.T) {
	t.Parallel()

	n := memory.NewNetwork()
	organizer := newService(t, n, "org")
	gamer := newService(t, n, "gamer")

	var mtx sync.Mutex
	var seen []Roster
	gamer.SubscribeRoster(func(r Roster) {
		mtx.Lock()
		defer mtx.Unlock()
		seen = append(seen, r)
	})

	addPlayers(t, organizer, "A", "B")

	mtx.Lock()
	defer mtx.Unlock()
	if len(seen) != 2 {
		t.Fatalf("want 2 roster notifications, got %d", len(seen))
	}
	if got := ids(seen[1]); !equalStrings(got, []string{"A", "B"}) {
		t.Fatalf("want [A B], got %v", got)
	}
	if got := ids(gamer.Roster()); !equalStrings(got, []string{"A", "B"}) {
		t.Fatalf("gamer snapshot: want [A B], got %v", got)
	}
}

func TestSubscribersRunInOrderAndRelease(t *testing.T) {
	t.Parallel()

	s := newService(t, memory.NewNetwork(), "a")

	var calls []string
	first := s.SubscribePhase(func(Phase) { calls = append(calls, "first") })
	s.SubscribePhase(func(Phase) { calls = append(calls, "second") })

	if err := s.SetPhase(context.Background(), PhaseSetup); err != nil {
		t.Fatalf("set phase: %v", err)
	}
	if !equalStrings(calls, []string{"first", "second"}) {
		t.Fatalf("want [first second], got %v", calls)
	}

	first.Release()
	first.Release()
	calls = nil
	if err := s.SetPhase(context.Background(), PhaseStarted); err != nil {
		t.Fatalf("set phase: %v", err)
	}
	if !equalStrings(calls, []string{"second"}) {
		t.Fatalf("want [second] after release, got %v", calls)
	}
}

func TestResetRestoresDefaults(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	n := memory.NewNetwork()
	s := newService(t, n, "a")

	addPlayers(t, s, "A", "B")
	_ = s.RecordAction(ctx, "A")
	_ = s.SetTurnRange(ctx, []int{2, 4, 1})
	_ = s.SetBlowRange(ctx, []int{5, 9, 6})
	_ = s.SetPhase(ctx, PhaseSetup)
	_ = s.StartRound(ctx)
	_ = s.SetPhase(ctx, PhaseEnded)
	_ = s.Restart(ctx)

	var mtx sync.Mutex
	var phases []Phase
	s.SubscribePhase(func(p Phase) {
		mtx.Lock()
		defer mtx.Unlock()
		phases = append(phases, p)
	})

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}

	if len(s.Roster().People) != 0 || s.TurnWindow() != DefaultTurnWindow() ||
		s.BlowConfig() != DefaultBlowConfig() || s.Phase() != PhaseUnsetup {
		t.Fatalf("documents not reset: %+v %+v %+v %s", s.Roster(), s.TurnWindow(), s.BlowConfig(), s.Phase())
	}
	if got := s.RestartLog(); got.RestartCount != 0 || len(got.HistoricalScores) != 0 {
		t.Fatalf("restart log not reset: %+v", got)
	}

	want := map[replica.Slot]string{
		replica.SlotRoster:     `{"people":[]}`,
		replica.SlotTurnWindow: `{"pumpTriggerCount":[1,10,0]}`,
		replica.SlotBlowConfig: `{"blowsize":[10,50,20]}`,
		replica.SlotRestartLog: `{"restart":0,"gameData":[]}`,
		replica.SlotPhase:      `{"appState":"unsetup"}`,
	}
	for slot, blob := range want {
		if got, _ := n.Raw(slot); got != blob {
			t.Errorf("slot %s: want %s, got %s", slot, blob, got)
		}
	}

	mtx.Lock()
	defer mtx.Unlock()
	// One call from the slot echo, one explicit confirmation.
	if len(phases) != 2 || phases[0] != PhaseUnsetup || phases[1] != PhaseUnsetup {
		t.Fatalf("want two unsetup notifications, got %v", phases)
	}
}

func testIdentity(id string) replica.Identity {
	return replica.Identity{ID: id, DisplayName: id}
}
