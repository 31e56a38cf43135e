package locks

import (
	"sync"
	"testing"
)

func TestKeyedSerializesSameKey(t *testing.T) {
	k := NewKeyed()
	var counter int

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			k.Lock("event-1")
			counter++
			k.Unlock("event-1")
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Fatalf("lost updates under contention: %d", counter)
	}
}

func TestKeyedIndependentKeys(t *testing.T) {
	k := NewKeyed()
	k.Lock("a")
	// Must not block: "b" is a different key.
	k.Lock("b")
	k.Unlock("b")
	k.Unlock("a")
}

func TestKeyedEntriesAreReclaimed(t *testing.T) {
	k := NewKeyed()
	k.Lock("a")
	k.Unlock("a")
	if len(k.entries) != 0 {
		t.Fatalf("entry leaked: %d", len(k.entries))
	}
}

func TestUnlockUnheldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	NewKeyed().Unlock("never")
}
