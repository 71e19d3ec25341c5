package query

import (
	"context"
	"sync"
)

// Subscription is one consumer's reference to a query entry. The entry is
// kept alive until every subscription to its key is released.
type Subscription[T any] struct {
	cache   *Cache
	key     Key
	id      uint64
	changes chan struct{}
	once    sync.Once
}

// Subscribe registers interest in key. If the key has no settled data, or
// its data is stale, a fetch is started unless one is already in flight.
func Subscribe[T any](c *Cache, key Key, fetch FetchFunc[T]) *Subscription[T] {
	s := &Subscription[T]{
		cache:   c,
		key:     key,
		changes: make(chan struct{}, 1),
	}
	s.id = c.attach(key, s.notify, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	return s
}

func (s *Subscription[T]) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Subscription[T]) Key() Key { return s.key }

// State re-derives the current state of the subscribed key.
func (s *Subscription[T]) State() State[T] {
	raw, fetching := s.cache.snapshot(s.key)
	return typed[T](raw, fetching)
}

// Changes signals after each state transition. Signals coalesce: a receive
// means "at least one transition since the last receive". Wait drains the
// same channel.
func (s *Subscription[T]) Changes() <-chan struct{} {
	return s.changes
}

// Wait blocks until the state is settled or ctx is done, and returns the
// latest state either way.
func (s *Subscription[T]) Wait(ctx context.Context) (State[T], error) {
	for {
		state := s.State()
		if state.Settled() {
			return state, nil
		}
		select {
		case <-s.changes:
		case <-ctx.Done():
			return s.State(), ctx.Err()
		}
	}
}

// Unsubscribe releases the reference. Calling it again is a no-op.
func (s *Subscription[T]) Unsubscribe() {
	s.once.Do(func() {
		s.cache.detach(s.key, s.id)
	})
}
