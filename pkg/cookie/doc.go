// Package cookie writes and reads the plain HTTP cookies used to carry session ids.
//
// A Manager holds default attributes (path "/", HttpOnly) that per-call
// functional options are merged over. Only the fields an option touches are
// changed, which lets callers override a single attribute without restating
// the rest.
//
//	m := cookie.New(cookie.WithSecure(true))
//
//	_ = m.Set(w, "koa:sess", sid, cookie.WithMaxAge(24*time.Hour))
//	sid, err := m.Get(r, "koa:sess")
//	_ = m.Delete(w, "koa:sess")
//
// # Wire format
//
// Headers are rendered as `name=value; path=/; max-age=N; expires=DATE;
// domain=D; samesite=S; secure; httponly`. Lifetime attributes are written
// only for a positive MaxAge. Clear writes an empty value with an epoch expiry
// and no max-age.
//
// Writing a cookie replaces any Set-Cookie header already queued for the same
// name, so the last write in a request wins.
//
// Names are validated loosely: anything except controls, whitespace and
// `;,="` is accepted. net/http refuses names containing ':' which is why this
// package renders and parses headers itself.
//
// Signing and encryption are intentionally absent; values are expected to be
// opaque random identifiers.
package cookie
