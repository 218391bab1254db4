package ledger_test

import (
	"sync"
	"testing"
	"time"

	"github.com/brightbooks/ledger-engine/ledger"
	"github.com/stretchr/testify/assert"
)

func TestCoordinator_MutualExclusion(t *testing.T) {
	// GIVEN: Two goroutines incrementing a counter under the same item lock
	// WHEN: Both run many iterations concurrently
	// THEN: No increments are lost

	coord := ledger.NewCoordinator()
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				unlock := coord.Lock("item-a")
				counter++
				unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2000, counter)
}

func TestCoordinator_OppositeOrder_NoDeadlock(t *testing.T) {
	// GIVEN: Two goroutines each locking {A, B}, passed in opposite order
	// WHEN: Both run concurrently
	// THEN: Both finish; acquisition order is canonical regardless of input

	coord := ledger.NewCoordinator()
	done := make(chan struct{})

	go func() {
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				unlock := coord.Lock("item-a", "item-b")
				unlock()
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				unlock := coord.Lock("item-b", "item-a")
				unlock()
			}
		}()
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("deadlock: opposite-order lock sets never completed")
	}
}

func TestCoordinator_DuplicateAndEmptyIDs(t *testing.T) {
	// GIVEN: A lock set with duplicates and empty ids (manual entries)
	// WHEN: Locking and unlocking
	// THEN: No double-lock panic; empty ids are ignored

	coord := ledger.NewCoordinator()

	unlock := coord.Lock("item-a", "item-a", "", "item-b", "")
	unlock()

	// Re-lockable afterwards.
	unlock = coord.Lock("item-a", "item-b")
	unlock()
}
