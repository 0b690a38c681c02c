package appointments

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyMutexSerializesSameKey(t *testing.T) {
	km := newKeyMutex()

	const workers = 50
	counter := 0
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			unlock := km.Lock("+5511999990000")
			defer unlock()
			counter++
		}()
	}
	wg.Wait()

	assert.Equal(t, workers, counter)
}

func TestKeyMutexIndependentKeys(t *testing.T) {
	km := newKeyMutex()

	unlockA := km.Lock("a")
	// A held lock on a different key must not block.
	unlockB := km.Lock("b")
	unlockB()
	unlockA()
}

func TestKeyMutexReleasesEntries(t *testing.T) {
	km := newKeyMutex()

	unlock := km.Lock("a")
	unlock()

	km.mu.Lock()
	defer km.mu.Unlock()
	assert.Empty(t, km.locks)
}

func TestKeyMutexReacquireAfterRelease(t *testing.T) {
	km := newKeyMutex()
	for i := 0; i < 3; i++ {
		unlock := km.Lock("a")
		unlock()
	}
}
