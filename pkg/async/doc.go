// Package async provides a small generic promise type used by store backends
// that report their results asynchronously.
//
// A Future is obtained from Async or Go, which start the supplied function in
// its own goroutine, or from Resolved and Rejected for results that are already
// known. Callers wait with Await, or with AwaitContext to bound the wait by a
// request context, and can poll with IsComplete.
//
//	f := async.Go(ctx, func(ctx context.Context) (any, error) {
//	    return backend.Lookup(ctx, key)
//	})
//
//	v, err := f.AwaitContext(ctx)
//
// If the context passed to Async is already cancelled the function is not run
// and the future completes with the context error.
package async
