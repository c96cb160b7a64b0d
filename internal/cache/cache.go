package cache

// Cache is a bounded key-value cache keyed by room code.
type Cache interface {
	Get(key string) (interface{}, bool)
	Add(key string, value interface{})
	Keys() []string
	Delete(key string)
	Len() int
}
