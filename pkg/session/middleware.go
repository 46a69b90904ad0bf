package session

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/lzztt/session-minimal/pkg/logger"
)

// Middleware loads the session, attaches it to the request context and
// commits it once the handler is done. The commit runs right before the
// response headers go out, or after next returns if it never wrote anything.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := m.Load(r)
		if err != nil {
			m.logger.ErrorContext(r.Context(), "session load failed", logger.Error(err))
			m.errorHandler(w, r, err)
			return
		}

		r = r.WithContext(WithSession(r.Context(), s))
		cw := newCommitWriter(w, func() error {
			_, err := m.Commit(w, r, s)
			return err
		})

		next.ServeHTTP(cw, r)

		if err := cw.commit(); err != nil {
			m.logger.ErrorContext(r.Context(), "session commit failed",
				logger.Error(err),
				logger.SessionID(s.ID()),
			)
			if !cw.written {
				m.errorHandler(w, r, err)
			}
		}
	})
}

// commitWriter runs the session commit exactly once, before the wrapped
// writer sends headers. It forwards http.Flusher and http.Hijacker and
// unwraps for http.ResponseController.
type commitWriter struct {
	http.ResponseWriter
	once    sync.Once
	fn      func() error
	err     error
	written bool
}

func newCommitWriter(w http.ResponseWriter, fn func() error) *commitWriter {
	return &commitWriter{
		ResponseWriter: w,
		fn:             fn,
	}
}

func (w *commitWriter) commit() error {
	w.once.Do(func() {
		w.err = w.fn()
	})
	return w.err
}

func (w *commitWriter) WriteHeader(status int) {
	if status < http.StatusOK {
		// Informational responses leave the final headers open.
		w.ResponseWriter.WriteHeader(status)
		return
	}
	if !w.written {
		w.before()
		w.written = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *commitWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	return w.ResponseWriter.Write(b)
}

// Flush implements http.Flusher interface if the underlying ResponseWriter supports it.
func (w *commitWriter) Flush() {
	if !w.written {
		w.before()
		w.written = true
	}
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Hijack commits the session and hands over the connection. Headers set by the
// commit are not sent for a hijacked connection; the store is still updated.
func (w *commitWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("session: hijack: %w", http.ErrNotSupported)
	}
	if !w.written {
		w.before()
		w.written = true
	}
	return hj.Hijack()
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *commitWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// before commits while headers can still change. The error is kept and
// reported once the handler returns.
func (w *commitWriter) before() {
	_ = w.commit()
}
