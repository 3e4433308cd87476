package responses

import (
	"context"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Locker serialises vote writes for one key. unlock must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

func voteLockKey(pollID, userID primitive.ObjectID) string {
	return "vote:" + pollID.Hex() + ":" + userID.Hex()
}

// keyedMutex is the in-process Locker. Entries are dropped once nobody holds or waits on them.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	slot chan struct{}
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*keyedEntry{}}
}

func (k *keyedMutex) Lock(ctx context.Context, key string) (func(), error) {
	k.mu.Lock()
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{slot: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	select {
	case e.slot <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.slot
				k.release(key, e)
			})
		}, nil
	case <-ctx.Done():
		k.release(key, e)
		return nil, ctx.Err()
	}
}

func (k *keyedMutex) release(key string, e *keyedEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}
