package appointments

import "sync"

// keyMutex serializes operations per key. The find-then-write path for a
// phone number is only correct under a single writer, so every mutation
// holds the phone's lock from lookup through the final save.
type keyMutex struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newKeyMutex() *keyMutex {
	return &keyMutex{locks: make(map[string]*lockEntry)}
}

// Lock acquires the mutex for key and returns its release func. Entries
// are reference counted so the map does not grow with dead keys.
func (k *keyMutex) Lock(key string) func() {
	k.mu.Lock()
	entry, ok := k.locks[key]
	if !ok {
		entry = &lockEntry{}
		k.locks[key] = entry
	}
	entry.refs++
	k.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()
		k.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
