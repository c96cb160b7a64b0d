package bytespool

import (
	"bytes"
	"sync"
)

var pool = sync.Pool{
	New: func() interface{} {
		return &bytes.Buffer{}
	},
}

// Get returns an empty buffer from the pool.
func Get() *bytes.Buffer {
	return pool.Get().(*bytes.Buffer)
}

// Put resets b and returns it to the pool. b must not be used afterwards.
func Put(b *bytes.Buffer) {
	b.Reset()
	pool.Put(b)
}
