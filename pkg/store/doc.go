// Package store defines the storage contract used by the session manager and
// ships the default in-memory backend.
//
// Backends come in three calling conventions:
//
//   - Backend returns results directly.
//   - LazyBackend returns a Lazy computation that the caller evaluates.
//   - FutureBackend returns an *async.Future that completes in the background.
//
// New inspects a backend once and wraps it into a Store, the single contract
// the session manager depends on:
//
//	s, err := store.New(myBackend)
//	if err != nil {
//	    // store.ErrUnsupportedBackend
//	}
//	v, found, err := s.Get(ctx, "koa:sess:"+sid)
//
// Every Store call invokes exactly one backend operation. Backend errors are
// returned to the caller untouched; there is no retry at this layer. Missing
// keys, whether signalled by a nil value or ErrNotFound, become found=false.
//
// # Memory backend
//
// Memory keeps JSON-encoded values in a map guarded by a single mutex and
// expires each key with its own timer. Setting a key replaces its pending
// timer, so expirations never stack, and Destroy cancels it. Call Close to
// release all timers when the store is discarded.
package store
