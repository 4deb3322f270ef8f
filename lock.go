package dicomweb

import "sync"

// keyedMutex serializes work per key. Entries are dropped once no caller
// holds or waits for them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{
		locks: make(map[string]*keyedLock),
	}
}

// Lock blocks until key is free and returns the matching unlock func.
func (km *keyedMutex) Lock(key string) func() {
	km.mu.Lock()
	lock, exists := km.locks[key]
	if !exists {
		lock = &keyedLock{}
		km.locks[key] = lock
	}
	lock.refs++
	km.mu.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()

		km.mu.Lock()
		defer km.mu.Unlock()

		lock.refs--
		if lock.refs == 0 {
			delete(km.locks, key)
		}
	}
}

// Len returns the number of keys currently held or awaited.
func (km *keyedMutex) Len() int {
	km.mu.Lock()
	defer km.mu.Unlock()

	return len(km.locks)
}
