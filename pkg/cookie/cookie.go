package cookie

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const headerSetCookie = "Set-Cookie"

// epoch is written as the expiry of cleared cookies.
var epoch = time.Unix(0, 0).UTC()

// Manager reads and writes cookies with a shared set of default attributes.
//
// Unlike net/http, cookie names may contain characters such as ':' (the
// default session key is "koa:sess"), so headers are parsed and rendered here.
type Manager struct {
	defaults Options
	now      func() time.Time
}

func New(opts ...Option) *Manager {
	return &Manager{
		defaults: Apply(DefaultOptions(), opts...),
		now:      time.Now,
	}
}

// Defaults returns a copy of the manager's default attributes.
func (m *Manager) Defaults() Options {
	return m.defaults
}

// Resolve merges opts over the manager defaults.
func (m *Manager) Resolve(opts ...Option) Options {
	return Apply(m.defaults, opts...)
}

// Get returns the value of the first cookie called name in the request.
func (m *Manager) Get(r *http.Request, name string) (string, error) {
	for _, line := range r.Header.Values("Cookie") {
		for part := range strings.SplitSeq(line, ";") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			k, v, ok := strings.Cut(part, "=")
			if !ok || strings.TrimSpace(k) != name {
				continue
			}
			v = strings.TrimSpace(v)
			if len(v) > 1 && v[0] == '"' && v[len(v)-1] == '"' {
				v = v[1 : len(v)-1]
			}
			return v, nil
		}
	}
	return "", ErrCookieNotFound
}

// Set writes a cookie using the defaults merged with opts.
func (m *Manager) Set(w http.ResponseWriter, name, value string, opts ...Option) error {
	return m.Write(w, name, value, m.Resolve(opts...))
}

// Write emits a Set-Cookie header with fully resolved options. Any cookie with
// the same name already queued on the response is replaced, so a response never
// carries two Set-Cookie headers for one name.
func (m *Manager) Write(w http.ResponseWriter, name, value string, o Options) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !ValidValue(value) {
		return fmt.Errorf("%w: %q", ErrInvalidValue, value)
	}

	var expires time.Time
	if o.MaxAge > 0 {
		expires = m.now().Add(o.MaxAge)
	}
	m.emit(w, name, value, o, expires)
	return nil
}

// Clear expires the cookie immediately. MaxAge is dropped from o so the browser
// never inherits a future expiry.
func (m *Manager) Clear(w http.ResponseWriter, name string, o Options) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	o.MaxAge = 0
	m.emit(w, name, "", o, epoch)
	return nil
}

// Delete clears the cookie using the manager defaults.
func (m *Manager) Delete(w http.ResponseWriter, name string) error {
	return m.Clear(w, name, m.defaults)
}

func (m *Manager) emit(w http.ResponseWriter, name, value string, o Options, expires time.Time) {
	var b strings.Builder
	b.WriteString(name)
	b.WriteByte('=')
	b.WriteString(value)

	if o.Path != "" {
		b.WriteString("; path=")
		b.WriteString(o.Path)
	}
	if o.MaxAge > 0 {
		b.WriteString("; max-age=")
		b.WriteString(strconv.FormatInt(maxAgeSeconds(o.MaxAge), 10))
	}
	if !expires.IsZero() {
		b.WriteString("; expires=")
		b.WriteString(expires.UTC().Format(http.TimeFormat))
	}
	if o.Domain != "" {
		b.WriteString("; domain=")
		b.WriteString(strings.TrimPrefix(o.Domain, "."))
	}
	switch o.SameSite {
	case http.SameSiteLaxMode:
		b.WriteString("; samesite=lax")
	case http.SameSiteStrictMode:
		b.WriteString("; samesite=strict")
	case http.SameSiteNoneMode:
		b.WriteString("; samesite=none")
	}
	if o.Secure {
		b.WriteString("; secure")
	}
	if o.HttpOnly {
		b.WriteString("; httponly")
	}

	h := w.Header()
	prefix := name + "="
	existing := h.Values(headerSetCookie)
	kept := make([]string, 0, len(existing)+1)
	for _, line := range existing {
		if !strings.HasPrefix(line, prefix) {
			kept = append(kept, line)
		}
	}
	h[headerSetCookie] = append(kept, b.String())
}

// maxAgeSeconds rounds up so sub-second lifetimes still produce a persistent cookie.
func maxAgeSeconds(d time.Duration) int64 {
	secs := int64(d / time.Second)
	if d%time.Second != 0 {
		secs++
	}
	return secs
}

// ValidName reports whether name can be used as a cookie name: a non-empty
// token without controls, spaces or separators that break the header.
func ValidName(name string) bool {
	if name == "" {
		return false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c <= ' ' || c >= 0x7f || c == ';' || c == ',' || c == '=' || c == '"' {
			return false
		}
	}
	return true
}

// ValidValue reports whether value can be written unquoted as a cookie value.
func ValidValue(value string) bool {
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c <= ' ' || c >= 0x7f || c == ';' || c == ',' || c == '"' || c == '\\' {
			return false
		}
	}
	return true
}
