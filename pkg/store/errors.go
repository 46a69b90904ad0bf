package store

import "errors"

var (
	// ErrNotFound is returned by backends for keys that were never set, were
	// destroyed or have expired. The adapter turns it into found=false.
	ErrNotFound = errors.New("store.not_found")

	// ErrUnsupportedBackend indicates a value that implements none of the backend conventions.
	ErrUnsupportedBackend = errors.New("store.unsupported_backend")

	// ErrNilBackend indicates New was called without a backend.
	ErrNilBackend = errors.New("store.nil_backend")

	// ErrEncode indicates a value could not be serialized by the memory store.
	ErrEncode = errors.New("store.encode_failed")

	// ErrClosed is returned by a memory store after Close.
	ErrClosed = errors.New("store.closed")
)
