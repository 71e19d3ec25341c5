// Package query provides a subscription-based request cache. Each logical
// query key owns one entry holding its latest State; concurrent subscribers
// of a key share one in-flight fetch.
package query

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	DefaultStaleTime = 0
	DefaultGCTime    = 5 * time.Minute
)

// ErrClosed is the error state of queries subscribed after Close.
var ErrClosed = errors.New("query: cache closed")

// Key identifies a logical query.
type Key string

// FetchFunc loads the data for a query.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Definition binds a key to the fetch function that produces its data.
type Definition[T any] struct {
	Key   Key
	Fetch FetchFunc[T]
}

// Subscribe attaches a new subscription for the definition to c.
func (d Definition[T]) Subscribe(c *Cache) *Subscription[T] {
	return Subscribe(c, d.Key, d.Fetch)
}

type fetcher func(ctx context.Context) (any, error)

type entry struct {
	state     entryState
	fetching  bool
	listeners map[uint64]func()
	refs      int
	gcTimer   *time.Timer
}

// Cache holds query entries for the lifetime of the process. Create it once
// with New and release it with Close.
type Cache struct {
	mu      sync.Mutex
	entries map[Key]*entry
	nextID  uint64
	closed  bool

	flight singleflight.Group
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	staleTime time.Duration
	gcTime    time.Duration
	logger    *slog.Logger
	metrics   *Metrics
	now       func() time.Time
}

type Option func(*Cache)

// WithStaleTime sets how long settled data is served without a refetch.
func WithStaleTime(d time.Duration) Option {
	return func(c *Cache) {
		c.staleTime = d
	}
}

// WithGCTime sets how long an entry without subscribers is retained.
// Zero evicts it as soon as the last subscription is released.
func WithGCTime(d time.Duration) Option {
	return func(c *Cache) {
		c.gcTime = d
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Cache) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(c *Cache) {
		c.metrics = metrics
	}
}

func New(opts ...Option) *Cache {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Cache{
		entries:   make(map[Key]*entry),
		ctx:       ctx,
		cancel:    cancel,
		staleTime: DefaultStaleTime,
		gcTime:    DefaultGCTime,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close cancels in-flight fetches, stops pending evictions and waits for
// fetch goroutines to finish. It is safe to call more than once.
func (c *Cache) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, e := range c.entries {
		if e.gcTimer != nil {
			e.gcTimer.Stop()
		}
	}
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
}

// Len returns the number of retained entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) attach(key Key, listener func(), fetch fetcher) uint64 {
	c.mu.Lock()

	e, exists := c.entries[key]
	if !exists {
		e = &entry{listeners: make(map[uint64]func())}
		c.entries[key] = e
	}
	if e.gcTimer != nil {
		e.gcTimer.Stop()
		e.gcTimer = nil
	}

	e.refs++
	c.nextID++
	id := c.nextID
	e.listeners[id] = listener

	var outcome string
	start := false
	switch {
	case e.fetching:
		outcome = LookupJoin
	case e.state.status == StatusPending:
		outcome = LookupMiss
		start = true
	case c.isStale(e):
		outcome = LookupStale
		start = true
	default:
		outcome = LookupHit
	}

	closedNotify := false
	if start && c.closed {
		e.state = entryState{status: StatusError, err: ErrClosed, data: e.state.data, hasData: e.state.hasData, updatedAt: c.now()}
		start = false
		closedNotify = true
	}

	// Subscribers already attached to an errored entry see it go back to
	// pending; the last good data is kept.
	var resetListeners []func()
	if start {
		e.fetching = true
		if e.state.status == StatusError {
			e.state = entryState{data: e.state.data, hasData: e.state.hasData}
			resetListeners = e.otherListeners(id)
		}
		c.wg.Add(1)
	}
	c.mu.Unlock()

	for _, l := range resetListeners {
		l()
	}

	if c.metrics != nil {
		c.metrics.RecordLookup(context.Background(), key, outcome)
	}
	if start {
		go c.run(key, e, fetch)
	}
	if closedNotify {
		listener()
	}
	return id
}

// otherListeners copies every listener except the one registered as skip.
// Listener ids start at 1, so skip 0 returns all of them.
func (e *entry) otherListeners(skip uint64) []func() {
	listeners := make([]func(), 0, len(e.listeners))
	for id, l := range e.listeners {
		if id != skip {
			listeners = append(listeners, l)
		}
	}
	return listeners
}

func (c *Cache) isStale(e *entry) bool {
	if e.state.status == StatusError {
		return true
	}
	return c.now().Sub(e.state.updatedAt) >= c.staleTime
}

func (c *Cache) run(key Key, e *entry, fetch fetcher) {
	defer c.wg.Done()

	c.logger.Debug("query fetch started", "query_key", key)

	// The shared call may outlive e when it is evicted mid-flight; a new
	// entry for the same key joins the running call instead of issuing
	// another request.
	result := <-c.flight.DoChan(string(key), func() (any, error) {
		start := time.Now()
		data, err := fetch(c.ctx)
		if c.metrics != nil {
			c.metrics.RecordFetch(context.Background(), key, time.Since(start).Seconds(), err == nil)
		}
		return data, err
	})

	c.settle(key, e, result.Val, result.Err)
}

func (c *Cache) settle(key Key, e *entry, data any, err error) {
	c.mu.Lock()
	if c.entries[key] != e {
		c.mu.Unlock()
		c.logger.Debug("query result dropped for evicted entry", "query_key", key)
		return
	}

	e.fetching = false
	if err != nil {
		e.state = entryState{
			status:    StatusError,
			err:       err,
			data:      e.state.data,
			hasData:   e.state.hasData,
			updatedAt: c.now(),
		}
	} else {
		e.state = entryState{status: StatusSuccess, data: data, hasData: true, updatedAt: c.now()}
	}

	listeners := e.otherListeners(0)
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("query fetch failed", "query_key", key, "error", err)
	} else {
		c.logger.Debug("query fetch succeeded", "query_key", key)
	}

	for _, l := range listeners {
		l()
	}
}

func (c *Cache) detach(key Key, id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	if _, ok := e.listeners[id]; !ok {
		return
	}
	delete(e.listeners, id)
	e.refs--
	if e.refs > 0 {
		return
	}

	if c.gcTime <= 0 || c.closed {
		delete(c.entries, key)
		return
	}
	e.gcTimer = time.AfterFunc(c.gcTime, func() {
		c.evict(key, e)
	})
}

func (c *Cache) evict(key Key, e *entry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries[key] == e && e.refs == 0 {
		delete(c.entries, key)
	}
}

func (c *Cache) snapshot(key Key) (entryState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return entryState{}, false
	}
	return e.state, e.fetching
}
