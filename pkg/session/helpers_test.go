package session_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lzztt/session-minimal/pkg/session"
	"github.com/lzztt/session-minimal/pkg/store"
)

type storeCall struct {
	op    string
	key   string
	value any
	ttl   time.Duration
}

// spyStore records every call and forwards it to an in-memory store.
type spyStore struct {
	mu         sync.Mutex
	inner      store.Store
	calls      []storeCall
	getErr     error
	setErr     error
	destroyErr error
}

func newSpyStore() *spyStore {
	return &spyStore{inner: store.MustNew(store.NewMemory())}
}

func (s *spyStore) Get(ctx context.Context, key string) (any, bool, error) {
	s.record(storeCall{op: "get", key: key})
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	return s.inner.Get(ctx, key)
}

func (s *spyStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.record(storeCall{op: "set", key: key, value: value, ttl: ttl})
	if s.setErr != nil {
		return s.setErr
	}
	return s.inner.Set(ctx, key, value, ttl)
}

func (s *spyStore) Destroy(ctx context.Context, key string) error {
	s.record(storeCall{op: "destroy", key: key})
	if s.destroyErr != nil {
		return s.destroyErr
	}
	return s.inner.Destroy(ctx, key)
}

func (s *spyStore) record(c storeCall) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, c)
}

// seed writes directly to the backing store without recording a call.
func (s *spyStore) seed(t *testing.T, key string, value any) {
	t.Helper()
	require.NoError(t, s.inner.Set(context.Background(), key, value, time.Hour))
}

func (s *spyStore) writes() []storeCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []storeCall
	for _, c := range s.calls {
		if c.op != "get" {
			out = append(out, c)
		}
	}
	return out
}

func (s *spyStore) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c.op == op {
			n++
		}
	}
	return n
}

// serve runs h behind the session middleware. An empty sid sends no cookie.
func serve(m *session.Manager, sid string, h func(w http.ResponseWriter, r *http.Request, s *session.Session)) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if sid != "" {
		r.Header.Set("Cookie", m.Key()+"="+sid)
	}
	w := httptest.NewRecorder()
	m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h(w, r, session.MustFromContext(r.Context()))
	})).ServeHTTP(w, r)
	return w
}

func setCookies(w *httptest.ResponseRecorder) []string {
	return w.Result().Header.Values("Set-Cookie")
}

// cookieValue extracts the value of the single Set-Cookie line for name.
func cookieValue(t *testing.T, w *httptest.ResponseRecorder, name string) string {
	t.Helper()
	lines := setCookies(w)
	require.Len(t, lines, 1)
	require.True(t, strings.HasPrefix(lines[0], name+"="), lines[0])
	v, _, _ := strings.Cut(strings.TrimPrefix(lines[0], name+"="), ";")
	return v
}

type recordingObserver struct {
	mu        sync.Mutex
	loaded    []bool
	committed []session.Action
	failed    []string
}

func (o *recordingObserver) Loaded(found bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loaded = append(o.loaded, found)
}

func (o *recordingObserver) Committed(a session.Action) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.committed = append(o.committed, a)
}

func (o *recordingObserver) Failed(op string, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failed = append(o.failed, op)
}
