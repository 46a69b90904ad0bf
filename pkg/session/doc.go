// Package session keeps a per-client key/value record across HTTP requests.
//
// A Manager reads the session id from a cookie, loads the record from a
// pluggable store, hands it to the handler through the request context and,
// once the handler is done, reconciles the store and the cookie with what
// the handler left behind. Nothing is written when the record did not change.
//
// # Lifecycle
//
// Load attaches a *Session to the request. A request without a cookie gets a
// fresh id and an empty record; the store is not consulted. Commit compares
// the final record against a canonical snapshot taken at load time and picks
// one of these outcomes:
//
//   - id regenerated: the old record is destroyed, the new one is written if non-empty
//   - unchanged: nothing happens
//   - changed and non-empty: the record is written and the cookie refreshed
//   - changed and empty or nil: the record is destroyed and the cookie expired
//
// Store writes use the cookie max age as TTL, falling back to DefaultTTL
// when the cookie is a browser-session cookie.
//
// # Usage
//
//	import (
//	    "github.com/lzztt/session-minimal/pkg/cookie"
//	    "github.com/lzztt/session-minimal/pkg/session"
//	)
//
//	mgr := session.New(
//	    session.WithKey("koa:sess"),
//	    session.WithCookie(cookie.WithSecure(true)),
//	)
//	defer mgr.Close()
//
//	mux.Handle("/", mgr.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	    s := session.MustFromContext(r.Context())
//	    n, _ := s.GetInt("views")
//	    s.Set("views", n+1)
//	    fmt.Fprintf(w, "views: %d", n+1)
//	})))
//
// Handlers call RegenerateID after a privilege change, SetMaxAge to make the
// cookie persistent for one response, or Clear to log the client out.
//
// # Stores
//
// WithStore accepts a store.Store; WithBackend accepts any of the calling
// conventions understood by store.New. Without either the manager creates
// its own in-memory store, released by Close.
//
// # Observability
//
// WithLogger sets a *slog.Logger; WithObserver receives load, commit and
// failure notifications (see package metrics for a Prometheus observer).
package session
