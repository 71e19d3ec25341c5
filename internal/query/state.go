package query

import (
	"errors"
	"time"
)

// ErrTypeMismatch is reported when a key is subscribed with a result type
// different from the one its cached data was produced with.
var ErrTypeMismatch = errors.New("query: cached data has unexpected type")

// Status is the lifecycle phase of a query entry.
type Status int

const (
	StatusPending Status = iota
	StatusSuccess
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSuccess:
		return "success"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// State is the observable value of a query: exactly one of Pending,
// Success(data) or Error(err). Use Match to consume it.
type State[T any] struct {
	status    Status
	data      T
	err       error
	hasData   bool
	updatedAt time.Time
	fetching  bool
}

// Pending returns a pending state.
func Pending[T any]() State[T] {
	return State[T]{status: StatusPending, fetching: true}
}

// Success returns a settled state carrying data.
func Success[T any](data T) State[T] {
	return State[T]{status: StatusSuccess, data: data, hasData: true}
}

// Failure returns a settled state carrying err.
func Failure[T any](err error) State[T] {
	return State[T]{status: StatusError, err: err}
}

// FailureWithData returns an error state that still carries the data of
// the last successful fetch.
func FailureWithData[T any](err error, last T) State[T] {
	return State[T]{status: StatusError, err: err, data: last, hasData: true}
}

func (s State[T]) Status() Status { return s.status }

// Data returns the payload and whether the state is Success.
func (s State[T]) Data() (T, bool) {
	return s.data, s.status == StatusSuccess
}

// LastData returns the most recent successfully fetched payload, whatever
// the current status. A failed or pending refetch keeps it.
func (s State[T]) LastData() (T, bool) {
	return s.data, s.hasData
}

func (s State[T]) Err() error { return s.err }

func (s State[T]) IsPending() bool { return s.status == StatusPending }

// Settled reports whether the state is Success or Error.
func (s State[T]) Settled() bool { return s.status != StatusPending }

// UpdatedAt is the time the entry last settled; zero while never settled.
func (s State[T]) UpdatedAt() time.Time { return s.updatedAt }

// Fetching reports whether a request for the key is in flight, including
// background refetches of settled entries.
func (s State[T]) Fetching() bool { return s.fetching }

// Match dispatches on the variant of s. All three handlers are required.
func Match[T, R any](s State[T], onPending func() R, onSuccess func(T) R, onError func(error) R) R {
	switch s.status {
	case StatusSuccess:
		return onSuccess(s.data)
	case StatusError:
		return onError(s.err)
	default:
		return onPending()
	}
}

// entryState is the untyped form kept by the cache.
type entryState struct {
	status    Status
	data      any
	hasData   bool
	err       error
	updatedAt time.Time
}

func typed[T any](raw entryState, fetching bool) State[T] {
	s := State[T]{
		status:    raw.status,
		err:       raw.err,
		updatedAt: raw.updatedAt,
		fetching:  fetching,
	}
	if !raw.hasData {
		return s
	}
	data, ok := raw.data.(T)
	if !ok {
		s.status = StatusError
		s.err = ErrTypeMismatch
		return s
	}
	s.data = data
	s.hasData = true
	return s
}
