package dicomweb

import (
	"sync"
	"testing"
)

func TestKeyedMutex_SerializesPerKey(t *testing.T) {
	km := newKeyedMutex()

	var wg sync.WaitGroup
	var mu sync.Mutex
	active := make(map[string]int)
	overlaps := 0

	for i := range 50 {
		key := "a"
		if i%2 == 1 {
			key = "b"
		}

		wg.Add(1)
		go func() {
			defer wg.Done()

			unlock := km.Lock(key)
			defer unlock()

			mu.Lock()
			active[key]++
			if active[key] > 1 {
				overlaps++
			}
			mu.Unlock()

			mu.Lock()
			active[key]--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if overlaps != 0 {
		t.Errorf("Expected no overlapping holders of one key, got %d", overlaps)
	}
	if km.Len() != 0 {
		t.Errorf("Expected all keys to be released, got %d", km.Len())
	}
}

func TestKeyedMutex_IndependentKeys(t *testing.T) {
	km := newKeyedMutex()

	unlockA := km.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("b")
		unlock()
		close(done)
	}()
	<-done

	if km.Len() != 1 {
		t.Errorf("Expected only key 'a' to be held, got %d keys", km.Len())
	}
}
