package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lzztt/session-minimal/pkg/async"
)

// Store is the uniform contract the session manager talks to.
// A missing key is reported as found=false with a nil error.
type Store interface {
	Get(ctx context.Context, key string) (value any, found bool, err error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Destroy(ctx context.Context, key string) error
}

// Backend returns results directly.
// Get may report a missing key either as a nil value or as ErrNotFound.
type Backend interface {
	Get(ctx context.Context, key string) (any, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Destroy(ctx context.Context, key string) error
}

// Lazy is a deferred computation. The adapter evaluates it exactly once.
type Lazy[T any] func(ctx context.Context) (T, error)

// LazyBackend returns deferred computations instead of results.
type LazyBackend interface {
	Get(ctx context.Context, key string) Lazy[any]
	Set(ctx context.Context, key string, value any, ttl time.Duration) Lazy[struct{}]
	Destroy(ctx context.Context, key string) Lazy[struct{}]
}

// FutureBackend returns promise-like futures that complete in the background.
type FutureBackend interface {
	Get(ctx context.Context, key string) *async.Future[any]
	Set(ctx context.Context, key string, value any, ttl time.Duration) *async.Future[struct{}]
	Destroy(ctx context.Context, key string) *async.Future[struct{}]
}

// New wraps backend into a Store. The calling convention is detected once,
// here, by checking which interface backend implements; a value that already
// satisfies Store is returned as is.
func New(backend any) (Store, error) {
	switch b := backend.(type) {
	case nil:
		return nil, ErrNilBackend
	case Store:
		return b, nil
	case Backend:
		return directStore{b}, nil
	case LazyBackend:
		return lazyStore{b}, nil
	case FutureBackend:
		return futureStore{b}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedBackend, backend)
	}
}

// MustNew is like New but panics on an unsupported backend.
func MustNew(backend any) Store {
	s, err := New(backend)
	if err != nil {
		panic(err)
	}
	return s
}

// normalizeGet folds the different "absent" signals into found=false.
func normalizeGet(v any, err error) (any, bool, error) {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if v == nil {
		return nil, false, nil
	}
	return v, true, nil
}

type directStore struct {
	b Backend
}

func (s directStore) Get(ctx context.Context, key string) (any, bool, error) {
	return normalizeGet(s.b.Get(ctx, key))
}

func (s directStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return s.b.Set(ctx, key, value, ttl)
}

func (s directStore) Destroy(ctx context.Context, key string) error {
	return s.b.Destroy(ctx, key)
}

type lazyStore struct {
	b LazyBackend
}

func (s lazyStore) Get(ctx context.Context, key string) (any, bool, error) {
	return normalizeGet(evalLazy(ctx, s.b.Get(ctx, key)))
}

func (s lazyStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	_, err := evalLazy(ctx, s.b.Set(ctx, key, value, ttl))
	return err
}

func (s lazyStore) Destroy(ctx context.Context, key string) error {
	_, err := evalLazy(ctx, s.b.Destroy(ctx, key))
	return err
}

// evalLazy treats a nil computation as an immediately completed no-op.
func evalLazy[T any](ctx context.Context, fn Lazy[T]) (T, error) {
	if fn == nil {
		var zero T
		return zero, nil
	}
	return fn(ctx)
}

type futureStore struct {
	b FutureBackend
}

func (s futureStore) Get(ctx context.Context, key string) (any, bool, error) {
	return normalizeGet(awaitFuture(ctx, s.b.Get(ctx, key)))
}

func (s futureStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	_, err := awaitFuture(ctx, s.b.Set(ctx, key, value, ttl))
	return err
}

func (s futureStore) Destroy(ctx context.Context, key string) error {
	_, err := awaitFuture(ctx, s.b.Destroy(ctx, key))
	return err
}

func awaitFuture[T any](ctx context.Context, f *async.Future[T]) (T, error) {
	if f == nil {
		var zero T
		return zero, nil
	}
	return f.AwaitContext(ctx)
}
