package memory

import (
	"context"
	"fmt"
	"sync"

	"mindbridge/database"
)

// lockTable hands out one exclusive lock per key. A lock is a buffered
// channel of size one so that waiting can be abandoned when ctx ends.
type lockTable struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newLockTable() *lockTable {
	return &lockTable{locks: make(map[string]chan struct{})}
}

func (t *lockTable) get(key string) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	ch, ok := t.locks[key]
	if !ok {
		ch = make(chan struct{}, 1)
		t.locks[key] = ch
	}
	return ch
}

func (t *lockTable) acquire(ctx context.Context, key string) error {
	select {
	case t.get(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s: %w: %v", key, database.ErrLockConflict, ctx.Err())
	}
}

func (t *lockTable) release(key string) {
	<-t.get(key)
}

func slotLockKey(id string) string          { return "slot:" + id }
func paymentLockKey(ref string) string      { return "payment:" + ref }
func pairLockKey(client, cns string) string { return "pair:" + client + "|" + cns }
