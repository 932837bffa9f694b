package common

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync"
	"github.com/terraed/backend/pkg/xcontext"
	"github.com/terraed/backend/pkg/xredis"
)

// Locker serializes critical sections identified by a key. The returned
// unlock function must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

type localSlot struct {
	ch chan struct{}

	mutex sync.Mutex
	refs  int
	dead  bool
}

type localLocker struct {
	slots *xsync.MapOf[string, *localSlot]
}

// NewLocalLocker returns a Locker which only serializes goroutines of the
// current process. A key is forgotten once nobody holds or waits for it.
func NewLocalLocker() *localLocker {
	return &localLocker{slots: xsync.NewMapOf[*localSlot]()}
}

func (l *localLocker) Lock(ctx context.Context, key string) (func(), error) {
	slot := l.acquire(key)

	select {
	case slot.ch <- struct{}{}:
		return func() {
			<-slot.ch
			l.release(key, slot)
		}, nil
	case <-ctx.Done():
		l.release(key, slot)
		return nil, ctx.Err()
	}
}

func (l *localLocker) acquire(key string) *localSlot {
	for {
		slot, _ := l.slots.LoadOrCompute(key, func() *localSlot {
			return &localSlot{ch: make(chan struct{}, 1)}
		})

		slot.mutex.Lock()
		if !slot.dead {
			slot.refs++
			slot.mutex.Unlock()
			return slot
		}
		slot.mutex.Unlock()
	}
}

// release drops a reference to slot. The last one removes the slot while
// holding its mutex, so a dead slot is never found in the map again once
// another goroutine observed it dead.
func (l *localLocker) release(key string, slot *localSlot) {
	slot.mutex.Lock()
	defer slot.mutex.Unlock()

	slot.refs--
	if slot.refs == 0 {
		slot.dead = true
		l.slots.Delete(key)
	}
}

type redisLocker struct {
	client  xredis.Client
	ttl     time.Duration
	backoff time.Duration
}

// NewRedisLocker returns a Locker shared by every instance connected to the
// same redis. The lock expires after ttl if its owner dies.
func NewRedisLocker(client xredis.Client, ttl time.Duration) *redisLocker {
	return &redisLocker{client: client, ttl: ttl, backoff: 20 * time.Millisecond}
}

func (l *redisLocker) Lock(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()
	backoff := l.backoff

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl)
		if err != nil {
			return nil, fmt.Errorf("cannot acquire lock %s: %w", key, err)
		}

		if ok {
			return func() {
				// The caller's context may be canceled already, the lock must be
				// released anyway.
				releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
				defer cancel()

				if released, err := l.client.DelIfEqual(releaseCtx, key, token); err != nil {
					xcontext.Logger(ctx).Errorf("Cannot release lock %s: %v", key, err)
				} else if !released {
					xcontext.Logger(ctx).Warnf("Lock %s expired before being released", key)
				}
			}, nil
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		if backoff < time.Second {
			backoff *= 2
		}
	}
}
