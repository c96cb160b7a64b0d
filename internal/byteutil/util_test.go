package byteutil

import (
	"bytes"
	"testing"
)

func TestEncodeUint64Order(t *testing.T) {
	t.Parallel()

	values := []uint64{0, 1, 255, 256, 1 << 40}
	for i := 1; i < len(values); i++ {
		prev, cur := EncodeUint64(values[i-1]), EncodeUint64(values[i])
		if bytes.Compare(prev, cur) >= 0 {
			t.Errorf("%d should sort before %d", values[i-1], values[i])
		}
		if got := DecodeUint64(cur); got != values[i] {
			t.Errorf("decode: want %d, got %d", values[i], got)
		}
	}

	if got := DecodeUint64([]byte{1}); got != 0 {
		t.Errorf("short input: want 0, got %d", got)
	}
}
