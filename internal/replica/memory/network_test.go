package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/bloops-games/balloonbomb/internal/replica"
)

func join(t *testing.T, n *Network, id string, roles ...replica.Role) *Session {
	t.Helper()
	s, err := n.Join(context.Background(), replica.Identity{ID: id, DisplayName: id, Roles: roles})
	if err != nil {
		t.Fatalf("join %s: %v", id, err)
	}
	return s
}

func TestSetNotifiesEverySession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	n := NewNetwork()
	a, b := join(t, n, "a"), join(t, n, "b")

	var aHits, bHits int
	a.OnValueChanged(replica.SlotRoster, func() { aHits++ })
	release := b.OnValueChanged(replica.SlotRoster, func() { bHits++ })

	if err := a.Set(ctx, replica.SlotRoster, `{"people":[]}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if aHits != 1 || bHits != 1 {
		t.Fatalf("want both notified once, got a=%d b=%d", aHits, bHits)
	}

	if v, ok := b.Get(replica.SlotRoster); !ok || v != `{"people":[]}` {
		t.Fatalf("b sees %q %v", v, ok)
	}

	release()
	if err := a.Set(ctx, replica.SlotRoster, `{"people":[{"id":"x"}]}`); err != nil {
		t.Fatalf("set: %v", err)
	}
	if bHits != 1 {
		t.Fatalf("released listener fired, bHits=%d", bHits)
	}
}

func TestClosedSessionRejectsWrites(t *testing.T) {
	t.Parallel()

	n := NewNetwork()
	s := join(t, n, "a")
	_ = s.Close()

	err := s.Set(context.Background(), replica.SlotPhase, `{}`)
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("want ErrClosed, got %v", err)
	}
}

func TestJoinHookFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("relay unreachable")
	n := NewNetwork()
	n.SetJoinHook(func(context.Context, replica.Identity) error { return boom })

	if _, err := n.Join(context.Background(), replica.Identity{ID: "a"}); !errors.Is(err, boom) {
		t.Fatalf("want hook error, got %v", err)
	}
	if n.Joins() != 1 {
		t.Fatalf("want 1 join attempt, got %d", n.Joins())
	}
}

func TestPresenceAndEvents(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	n := NewNetwork()
	a, b := join(t, n, "a", replica.RoleOrganizer), join(t, n, "b")

	type seen struct {
		id    string
		local bool
	}
	var aSeen []seen
	a.Presence().OnPresenceChanged(func(p replica.Participant, local bool) {
		aSeen = append(aSeen, seen{p.ID, local})
	})

	if err := a.Presence().Initialize(ctx); err != nil {
		t.Fatalf("init a: %v", err)
	}
	if err := b.Presence().Initialize(ctx); err != nil {
		t.Fatalf("init b: %v", err)
	}

	want := []seen{{"a", true}, {"b", false}}
	if len(aSeen) != len(want) {
		t.Fatalf("want %v got %v", want, aSeen)
	}
	for i := range want {
		if aSeen[i] != want[i] {
			t.Fatalf("want %v got %v", want, aSeen)
		}
	}

	if got := len(a.Presence().Users(replica.StateOnline)); got != 2 {
		t.Fatalf("want 2 online, got %d", got)
	}

	if err := a.Events().Send(ctx, []byte("x")); !errors.Is(err, replica.ErrNotInitialized) {
		t.Fatalf("want ErrNotInitialized, got %v", err)
	}

	_ = a.Events().Initialize(ctx)
	_ = b.Events().Initialize(ctx)
	var aLocal, bLocal []bool
	a.Events().OnReceived(func(_ []byte, local bool) { aLocal = append(aLocal, local) })
	b.Events().OnReceived(func(_ []byte, local bool) { bLocal = append(bLocal, local) })

	if err := a.Events().Send(ctx, []byte("hi")); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(aLocal) != 1 || !aLocal[0] || len(bLocal) != 1 || bLocal[0] {
		t.Fatalf("local tags wrong: a=%v b=%v", aLocal, bLocal)
	}
}
