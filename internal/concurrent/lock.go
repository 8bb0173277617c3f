package concurrent

import (
	"context"
	"sync"
)

type entry struct {
	slot chan struct{}
	refs int
}

// KeyedLock provides a mutex per key.
// Entries are dropped once no goroutine holds or waits for them.
type KeyedLock struct {
	entries map[string]*entry
	lock    *sync.Mutex
}

// NewKeyedLock creates a new keyed lock.
func NewKeyedLock() *KeyedLock {
	return &KeyedLock{
		entries: make(map[string]*entry),
		lock:    new(sync.Mutex),
	}
}

// Lock acquires the lock for the given key and returns the func to release it.
// It gives up with the context error if the context is done before the lock is free.
func (k *KeyedLock) Lock(ctx context.Context, key string) (func(), error) {
	k.lock.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{slot: make(chan struct{}, 1)}
		k.entries[key] = e
	}
	e.refs++
	k.lock.Unlock()

	select {
	case e.slot <- struct{}{}:
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			k.release(key, e)
		})
	}, nil
}

func (k *KeyedLock) release(key string, e *entry) {
	k.lock.Lock()
	defer k.lock.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.entries, key)
	}
}

// Size returns the number of keys currently held or waited for.
func (k *KeyedLock) Size() int {
	k.lock.Lock()
	defer k.lock.Unlock()
	return len(k.entries)
}
