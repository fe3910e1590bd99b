package cache

// Cache stores raw explorer responses keyed by their fully-resolved request URL
type Cache interface {
	// Get returns the cached body and true when a live entry exists
	Get(key string) ([]byte, bool)

	// Set stores a body under key, replacing any previous entry
	Set(key string, value []byte)

	// Clear drops every entry
	Clear()

	// Len returns the number of stored entries, expired ones included until swept
	Len() int

	// Close releases any resources held by the cache
	Close()
}
