package hashutil

import "testing"

func TestRoomCode(t *testing.T) {
	t.Parallel()

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		code := RoomCode()
		if !ValidRoomCode(code) {
			t.Fatalf("invalid code %q", code)
		}
		seen[code] = true
	}
	if len(seen) < 95 {
		t.Errorf("too many collisions: %d unique of 100", len(seen))
	}
}

func TestValidRoomCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code string
		want bool
	}{
		{"A1B2C3", true},
		{"a1b2c3", false},
		{"A1B2C", false},
		{"GHIJKL", false},
		{"", false},
	}
	for _, tc := range tests {
		if got := ValidRoomCode(tc.code); got != tc.want {
			t.Errorf("ValidRoomCode(%q): want %v, got %v", tc.code, tc.want, got)
		}
	}
}
