package cache

import "testing"

func TestLRU(t *testing.T) {
	t.Parallel()

	c, err := NewLRU(2)
	if err != nil {
		t.Fatal(err)
	}

	c.Add("ABC123", []int{1})
	c.Add("XYZ789", []int{2})
	if v, ok := c.Get("ABC123"); !ok || v.([]int)[0] != 1 {
		t.Fatalf("get: got %v, %v", v, ok)
	}

	c.Add("QQQ000", []int{3})
	if c.Len() != 2 {
		t.Errorf("want 2 entries, got %d", c.Len())
	}

	c.Delete("ABC123")
	if _, ok := c.Get("ABC123"); ok {
		t.Error("deleted key still present")
	}
	for _, k := range c.Keys() {
		if k == "ABC123" {
			t.Error("deleted key listed")
		}
	}
}

func TestNewLRUInvalidSize(t *testing.T) {
	t.Parallel()

	if _, err := NewLRU(0); err == nil {
		t.Fatal("want error for zero size")
	}
}
