package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bloops-games/balloonbomb/internal/gamestate"
	"github.com/bloops-games/balloonbomb/internal/replica"
	"github.com/bloops-games/balloonbomb/internal/replica/memory"
)

type recorder struct {
	mtx  sync.Mutex
	list []Notification
}

func (r *recorder) add(n Notification) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.list = append(r.list, n)
}

func (r *recorder) all() []Notification {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return append([]Notification(nil), r.list...)
}

func join(t *testing.T, n *memory.Network, id string) *memory.Session {
	t.Helper()
	s, err := n.Join(context.Background(), replica.Identity{ID: id, DisplayName: id})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSenderName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{in: "jane@contoso.com", want: "jane"},
		{in: "bob", want: "bob"},
		{in: "", want: "Someone"},
		{in: "a@b@c", want: "a"},
	}

	for _, tc := range tests {
		if got := SenderName(tc.in); got != tc.want {
			t.Errorf("SenderName(%q): want %q, got %q", tc.in, tc.want, got)
		}
	}
}

func TestSendBeforeStart(t *testing.T) {
	t.Parallel()

	c := NewChannel(join(t, memory.NewNetwork(), "a").Events(), "a@x.com")
	err := c.Send(context.Background(), "hi")
	if !errors.Is(err, gamestate.ErrInvalidState) {
		t.Fatalf("want ErrInvalidState, got %v", err)
	}
}

func TestBroadcastLocalAndRemote(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	n := memory.NewNetwork()

	alice := NewChannel(join(t, n, "alice").Events(), "alice@contoso.com")
	bob := NewChannel(join(t, n, "bob").Events(), "bob@contoso.com")
	for _, c := range []*Channel{alice, bob} {
		if err := c.Start(ctx); err != nil {
			t.Fatalf("start: %v", err)
		}
	}

	var got, gotBob recorder
	alice.Subscribe(got.add)
	bob.Subscribe(gotBob.add)

	if err := alice.Send(ctx, "just restarted the game"); err != nil {
		t.Fatalf("send: %v", err)
	}

	a := got.all()
	if len(a) != 1 || !a[0].Local || a[0].Display() != "You just restarted the game" {
		t.Errorf("sender: got %+v", a)
	}
	b := gotBob.all()
	if len(b) != 1 || b[0].Local || b[0].Display() != "alice just restarted the game" {
		t.Errorf("receiver: got %+v", b)
	}
}

func TestStartOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	n := memory.NewNetwork()
	c := NewChannel(join(t, n, "a").Events(), "")

	for i := 0; i < 3; i++ {
		if err := c.Start(ctx); err != nil {
			t.Fatalf("start %d: %v", i, err)
		}
	}

	var got recorder
	c.Subscribe(got.add)
	if err := c.Send(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	// A second Start must not register a second receive handler.
	if l := len(got.all()); l != 1 {
		t.Errorf("want 1 delivery, got %d", l)
	}
	if got.all()[0].SenderName != "Someone" {
		t.Errorf("want placeholder sender, got %q", got.all()[0].SenderName)
	}
}

func TestSubscribeRelease(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	c := NewChannel(join(t, memory.NewNetwork(), "a").Events(), "a")
	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}

	var got recorder
	release := c.Subscribe(got.add)
	release()
	release()

	if err := c.Send(ctx, "x"); err != nil {
		t.Fatal(err)
	}
	if l := len(got.all()); l != 0 {
		t.Errorf("released subscriber called %d times", l)
	}
}

func TestShelfExpires(t *testing.T) {
	t.Parallel()

	s := NewShelf(20 * time.Millisecond)
	dropped := make(chan Toast, 2)
	s.OnDrop(func(t Toast) { dropped <- t })

	s.Push("one")
	s.Push("two")
	if l := len(s.Current()); l != 2 {
		t.Fatalf("want 2 toasts, got %d", l)
	}

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case d := <-dropped:
			seen[d.Text] = true
		case <-time.After(time.Second):
			t.Fatal("toast never expired")
		}
	}
	if !seen["one"] || !seen["two"] {
		t.Errorf("want both toasts dropped, got %v", seen)
	}
	if l := len(s.Current()); l != 0 {
		t.Errorf("want empty shelf, got %d", l)
	}
}

func TestShelfClear(t *testing.T) {
	t.Parallel()

	s := NewShelf(0)
	if s.ttl != DefaultTTL {
		t.Errorf("want default ttl, got %s", s.ttl)
	}
	s.Push("a")
	s.Clear()
	if l := len(s.Current()); l != 0 {
		t.Errorf("want empty shelf, got %d", l)
	}
}
