package session_test

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lzztt/session-minimal/pkg/cookie"
	"github.com/lzztt/session-minimal/pkg/session"
)

func TestManager_NewSession(t *testing.T) {
	t.Parallel()

	t.Run("first write sets cookie and stores record", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		m := session.New(session.WithStore(spy))

		var sid string
		w := serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			assert.True(t, s.IsNew())
			sid = s.ID()
			s.Set("count", 1)
		})

		assert.Len(t, sid, 32)
		assert.Equal(t, []string{"koa:sess=" + sid + "; path=/; httponly"}, setCookies(w))
		assert.Equal(t, []storeCall{{
			op:    "set",
			key:   "koa:sess:" + sid,
			value: map[string]any{"count": 1},
			ttl:   24 * time.Hour,
		}}, spy.calls)
	})

	t.Run("untouched session costs nothing", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		m := session.New(session.WithStore(spy))

		w := serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			assert.Empty(t, s.Values)
		})

		assert.Empty(t, spy.calls, "no store calls without a cookie")
		assert.Empty(t, setCookies(w))
	})

	t.Run("ids are unique", func(t *testing.T) {
		t.Parallel()
		m := session.New()
		t.Cleanup(func() { _ = m.Close() })

		seen := make(map[string]bool)
		for range 100 {
			s, err := m.Load(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			require.False(t, seen[s.ID()])
			seen[s.ID()] = true
		}
	})
}

func TestManager_ExistingSession(t *testing.T) {
	t.Parallel()

	t.Run("round trip through the default store", func(t *testing.T) {
		t.Parallel()
		m := session.New()
		t.Cleanup(func() { _ = m.Close() })

		w := serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			s.Set("count", 1)
		})
		sid := cookieValue(t, w, "koa:sess")

		w = serve(m, sid, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			assert.False(t, s.IsNew())
			assert.Equal(t, sid, s.ID())
			n, ok := s.GetInt("count")
			require.True(t, ok)
			s.Set("count", n+1)
		})
		assert.Equal(t, sid, cookieValue(t, w, "koa:sess"))

		serve(m, sid, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			n, _ := s.GetInt("count")
			assert.Equal(t, 2, n)
		})
	})

	t.Run("unmodified record is not written", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		spy.seed(t, "koa:sess:abc", map[string]any{"a": 1, "b": "x"})
		m := session.New(session.WithStore(spy))

		w := serve(m, "abc", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			v, _ := s.GetString("b")
			assert.Equal(t, "x", v)
		})

		assert.Empty(t, spy.writes())
		assert.Empty(t, setCookies(w))
	})

	t.Run("equal replacement with different key order is not a change", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		spy.seed(t, "koa:sess:abc", map[string]any{"a": 1, "b": 2})
		m := session.New(session.WithStore(spy))

		serve(m, "abc", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			s.Values = session.Data{"b": 2, "a": 1}
		})

		assert.Empty(t, spy.writes())
	})

	t.Run("in-place mutation is detected", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		spy.seed(t, "koa:sess:abc", map[string]any{"user": map[string]any{"name": "a"}})
		m := session.New(session.WithStore(spy))

		w := serve(m, "abc", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			s.Values["user"].(map[string]any)["name"] = "b"
		})

		require.Equal(t, 1, spy.count("set"))
		assert.Equal(t, "abc", cookieValue(t, w, "koa:sess"))
	})

	t.Run("cookie without stored record keeps its id", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		m := session.New(session.WithStore(spy))

		serve(m, "gone", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			assert.Equal(t, "gone", s.ID())
			assert.Empty(t, s.Values)
			s.Set("k", "v")
		})

		writes := spy.writes()
		require.Len(t, writes, 1)
		assert.Equal(t, "koa:sess:gone", writes[0].key)
	})

	t.Run("non-object record loads as empty", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		spy.seed(t, "koa:sess:abc", "not a map")
		m := session.New(session.WithStore(spy))

		serve(m, "abc", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			assert.Equal(t, session.Data{}, s.Values)
		})
	})
}

func TestManager_Clear(t *testing.T) {
	t.Parallel()

	clears := map[string]func(s *session.Session){
		"nil":        func(s *session.Session) { s.Values = nil },
		"empty map":  func(s *session.Session) { s.Values = session.Data{} },
		"Clear":      func(s *session.Session) { s.Clear() },
		"delete all": func(s *session.Session) { s.Delete("user") },
	}

	for name, clearFn := range clears {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			spy := newSpyStore()
			spy.seed(t, "koa:sess:abc", map[string]any{"user": "u1"})
			m := session.New(session.WithStore(spy), session.WithCookie(cookie.WithMaxAge(time.Hour)))

			w := serve(m, "abc", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
				clearFn(s)
			})

			assert.Equal(t, []storeCall{{op: "destroy", key: "koa:sess:abc"}}, spy.writes())
			assert.Equal(t, []string{"koa:sess=; path=/; expires=Thu, 01 Jan 1970 00:00:00 GMT; httponly"}, setCookies(w))
		})
	}
}

func TestManager_RegenerateID(t *testing.T) {
	t.Parallel()

	t.Run("moves record to new id", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		spy.seed(t, "koa:sess:old", map[string]any{"user": "u1"})
		m := session.New(session.WithStore(spy))

		var newID string
		w := serve(m, "old", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			require.NoError(t, s.RegenerateID())
			newID = s.ID()
		})

		require.NotEqual(t, "old", newID)
		writes := spy.writes()
		require.Len(t, writes, 2)
		assert.Equal(t, storeCall{op: "destroy", key: "koa:sess:old"}, writes[0])
		assert.Equal(t, "set", writes[1].op)
		assert.Equal(t, "koa:sess:"+newID, writes[1].key)
		assert.Equal(t, map[string]any{"user": "u1"}, writes[1].value)
		assert.Equal(t, newID, cookieValue(t, w, "koa:sess"), "the new cookie replaces the cleared one")
	})

	t.Run("empty record only destroys old id", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		spy.seed(t, "koa:sess:old", map[string]any{"user": "u1"})
		m := session.New(session.WithStore(spy))

		w := serve(m, "old", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			require.NoError(t, s.RegenerateID())
			s.Clear()
		})

		assert.Equal(t, []storeCall{{op: "destroy", key: "koa:sess:old"}}, spy.writes())
		assert.Equal(t, "", cookieValue(t, w, "koa:sess"))
	})

	t.Run("new session regenerated before first write", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		m := session.New(session.WithStore(spy))

		var first, second string
		serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			first = s.ID()
			require.NoError(t, s.RegenerateID())
			second = s.ID()
			s.Set("k", true)
		})

		require.NotEqual(t, first, second)
		assert.Equal(t, []storeCall{{op: "set", key: "koa:sess:" + second, value: map[string]any{"k": true}, ttl: session.DefaultTTL}}, spy.calls)
	})
}

func TestManager_CookieOptions(t *testing.T) {
	t.Parallel()

	t.Run("max age drives ttl", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		m := session.New(session.WithStore(spy), session.WithCookie(cookie.WithMaxAge(2*time.Hour)))

		w := serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			s.Set("k", 1)
		})

		require.Equal(t, 1, spy.count("set"))
		assert.Equal(t, 2*time.Hour, spy.calls[0].ttl)
		assert.Contains(t, setCookies(w)[0], "; max-age=7200")
	})

	t.Run("SetMaxAge overrides per request", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		m := session.New(session.WithStore(spy), session.WithCookie(cookie.WithMaxAge(2*time.Hour)))

		w := serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			s.Set("k", 1)
			s.SetMaxAge(time.Hour)
		})

		assert.Equal(t, time.Hour, spy.calls[0].ttl)
		assert.Contains(t, setCookies(w)[0], "; max-age=3600")
	})

	t.Run("negative max age gives session cookie and default ttl", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		m := session.New(session.WithStore(spy), session.WithDefaultTTL(time.Minute))

		w := serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			s.Set("k", 1)
			s.SetMaxAge(-time.Hour)
		})

		assert.Equal(t, time.Minute, spy.calls[0].ttl)
		assert.NotContains(t, setCookies(w)[0], "max-age")
		assert.NotContains(t, setCookies(w)[0], "expires")
	})

	t.Run("cookie func sees the request", func(t *testing.T) {
		t.Parallel()
		var calls int
		m := session.New(session.WithCookieFunc(func(r *http.Request, s *session.Session) []cookie.Option {
			calls++
			return []cookie.Option{cookie.WithSecure(r.Header.Get("X-Forwarded-Proto") == "https")}
		}))
		t.Cleanup(func() { _ = m.Close() })

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("X-Forwarded-Proto", "https")
		w := httptest.NewRecorder()
		m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session.MustFromContext(r.Context()).Set("k", 1)
		})).ServeHTTP(w, r)

		assert.Contains(t, setCookies(w)[0], "; secure")
		assert.Equal(t, 1, calls, "options are resolved once per commit")
	})

	t.Run("custom key", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		m := session.New(session.WithStore(spy), session.WithKey("app"))

		w := serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			s.Set("k", 1)
		})

		sid := cookieValue(t, w, "app")
		assert.Equal(t, "app:"+sid, spy.calls[0].key)
	})
}

func TestManager_StoreErrors(t *testing.T) {
	t.Parallel()
	boom := errors.New("store down")

	t.Run("get error aborts the request", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		spy.getErr = boom
		obs := &recordingObserver{}
		var handled error
		m := session.New(
			session.WithStore(spy),
			session.WithObserver(obs),
			session.WithErrorHandler(func(w http.ResponseWriter, r *http.Request, err error) {
				handled = err
				w.WriteHeader(http.StatusServiceUnavailable)
			}),
		)

		called := false
		w := serve(m, "abc", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			called = true
		})

		assert.False(t, called)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.ErrorIs(t, handled, boom)
		assert.ErrorIs(t, handled, session.ErrLoad)
		assert.Equal(t, []string{"get"}, obs.failed)
	})

	t.Run("set error fails the commit without a cookie", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		spy.setErr = boom
		m := session.New(session.WithStore(spy))

		w := serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			s.Set("k", 1)
		})

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Empty(t, setCookies(w))
	})

	t.Run("destroy error surfaces from Commit", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		spy.seed(t, "koa:sess:abc", map[string]any{"k": 1})
		spy.destroyErr = boom
		m := session.New(session.WithStore(spy))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Cookie", "koa:sess=abc")
		s, err := m.Load(r)
		require.NoError(t, err)
		s.Clear()

		w := httptest.NewRecorder()
		_, err = m.Commit(w, r, s)
		assert.ErrorIs(t, err, session.ErrDestroy)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, w.Header().Values("Set-Cookie"))
	})
}

func TestManager_Commit(t *testing.T) {
	t.Parallel()

	t.Run("runs once", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		m := session.New(session.WithStore(spy))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		s, err := m.Load(r)
		require.NoError(t, err)
		s.Set("k", 1)

		w := httptest.NewRecorder()
		action, err := m.Commit(w, r, s)
		require.NoError(t, err)
		assert.Equal(t, session.ActionCreated, action)

		s.Set("k", 2)
		action, err = m.Commit(w, r, s)
		require.NoError(t, err)
		assert.Equal(t, session.ActionNone, action)
		assert.Equal(t, 1, spy.count("set"))
	})

	t.Run("before headers are sent", func(t *testing.T) {
		t.Parallel()
		m := session.New()
		t.Cleanup(func() { _ = m.Close() })

		w := serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			s.Set("k", 1)
			_, _ = w.Write([]byte("hello"))
			s.Set("k", 2) // too late to be persisted
		})

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "hello", w.Body.String())
		sid := cookieValue(t, w, "koa:sess")

		serve(m, sid, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
			n, _ := s.GetInt("k")
			assert.Equal(t, 1, n)
		})
	})

	t.Run("observer sees actions", func(t *testing.T) {
		t.Parallel()
		obs := &recordingObserver{}
		m := session.New(session.WithObserver(obs))
		t.Cleanup(func() { _ = m.Close() })

		w := serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) { s.Set("k", 1) })
		sid := cookieValue(t, w, "koa:sess")
		serve(m, sid, func(w http.ResponseWriter, r *http.Request, s *session.Session) {})
		serve(m, sid, func(w http.ResponseWriter, r *http.Request, s *session.Session) { s.Set("k", 2) })
		serve(m, sid, func(w http.ResponseWriter, r *http.Request, s *session.Session) { s.Clear() })

		assert.Equal(t, []bool{false, true, true, true}, obs.loaded)
		assert.Equal(t, []session.Action{
			session.ActionCreated,
			session.ActionNone,
			session.ActionSaved,
			session.ActionDestroyed,
		}, obs.committed)
	})
}

func TestManager_ConcurrentRequestsLastWriterWins(t *testing.T) {
	t.Parallel()
	m := session.New()
	t.Cleanup(func() { _ = m.Close() })

	w := serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) { s.Set("writer", -1) })
	sid := cookieValue(t, w, "koa:sess")

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			serve(m, sid, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
				s.Set("writer", i)
			})
		}()
	}
	wg.Wait()

	serve(m, sid, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
		n, ok := s.GetInt("writer")
		require.True(t, ok)
		assert.GreaterOrEqual(t, n, 0)
		assert.Less(t, n, 8)
	})
}

func TestNew_Backends(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { session.New(session.WithBackend(42)) })

	m := session.New(session.WithBackend(newSpyStore()))
	assert.NoError(t, m.Close())
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	cfg := session.DefaultConfig()
	cfg.Key = "sid"
	cfg.DefaultTTL = time.Hour
	cfg.Cookie.Secure = true

	spy := newSpyStore()
	m := session.NewFromConfig(cfg, session.WithStore(spy))

	w := serve(m, "", func(w http.ResponseWriter, r *http.Request, s *session.Session) { s.Set("k", 1) })

	line := setCookies(w)[0]
	assert.True(t, strings.HasPrefix(line, "sid="))
	assert.Contains(t, line, "; secure")
	assert.Equal(t, time.Hour, spy.calls[0].ttl)
}

func TestManager_UnusableCookieValue(t *testing.T) {
	t.Parallel()

	for _, sid := range []string{`bad\sid`, `"a b"`, "caf\u00e9"} {
		t.Run(sid, func(t *testing.T) {
			t.Parallel()
			spy := newSpyStore()
			obs := &recordingObserver{}
			m := session.New(session.WithStore(spy), session.WithObserver(obs))

			w := serve(m, sid, func(w http.ResponseWriter, r *http.Request, s *session.Session) {
				assert.True(t, s.IsNew())
				assert.True(t, s.IsEmpty())
				s.Set("count", 1)
			})

			require.Equal(t, http.StatusOK, w.Code)
			fresh := cookieValue(t, w, "koa:sess")
			assert.True(t, cookie.ValidValue(fresh))
			assert.Zero(t, spy.count("get"), "an unusable id is never looked up")
			assert.Equal(t, []storeCall{{
				op:    "set",
				key:   "koa:sess:" + fresh,
				value: map[string]any{"count": 1},
				ttl:   session.DefaultTTL,
			}}, spy.writes())
			assert.Equal(t, []bool{false}, obs.loaded)
		})
	}
}

func TestNew_InvalidKey(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { session.New(session.WithKey("my sess")) })
	assert.Panics(t, func() { session.New(session.WithKey("a;b")) })

	cfg := session.DefaultConfig()
	cfg.Key = "a=b"
	assert.Panics(t, func() { session.NewFromConfig(cfg) })

	assert.NotPanics(t, func() {
		m := session.New(session.WithKey("app:sid"))
		_ = m.Close()
	})
}

type hijackRecorder struct {
	*httptest.ResponseRecorder
	hijacked bool
}

func (h *hijackRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h.hijacked = true
	return nil, nil, nil
}

func TestMiddleware_Hijack(t *testing.T) {
	t.Parallel()

	t.Run("forwards to the underlying writer", func(t *testing.T) {
		t.Parallel()
		spy := newSpyStore()
		m := session.New(session.WithStore(spy))

		w := &hijackRecorder{ResponseRecorder: httptest.NewRecorder()}
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session.MustFromContext(r.Context()).Set("k", 1)
			hj, ok := w.(http.Hijacker)
			require.True(t, ok)
			_, _, err := hj.Hijack()
			require.NoError(t, err)
		}))
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.True(t, w.hijacked)
		assert.Equal(t, 1, spy.count("set"), "session is committed before the connection is handed over")
	})

	t.Run("unsupported writer", func(t *testing.T) {
		t.Parallel()
		m := session.New()
		t.Cleanup(func() { _ = m.Close() })

		var err error
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _, err = w.(http.Hijacker).Hijack()
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

		assert.ErrorIs(t, err, http.ErrNotSupported)
	})
}
