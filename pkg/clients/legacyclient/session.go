package legacyclient

import (
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

const xsrfCookieName = "XSRF-TOKEN"

// Session is an authenticated legacy session. It is safe for concurrent use: each request
// attaches a snapshot of the cookies and merges the response cookies back under the lock.
type Session struct {
	mu              sync.Mutex
	cookies         map[string]*http.Cookie
	csrfToken       string
	AuthenticatedAt time.Time
}

// NewSession creates an empty session carrying the given CSRF token
func NewSession(csrfToken string) *Session {
	return &Session{
		cookies:   make(map[string]*http.Cookie),
		csrfToken: csrfToken,
	}
}

// Merge applies Set-Cookie values from a response. Same-named cookies are replaced
// and expired cookies removed.
func (s *Session) Merge(cookies []*http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, cookie := range cookies {
		if cookie == nil || cookie.Name == "" {
			continue
		}
		if cookie.MaxAge < 0 || (!cookie.Expires.IsZero() && cookie.Expires.Before(time.Now())) {
			delete(s.cookies, cookie.Name)
			continue
		}
		copied := *cookie
		s.cookies[cookie.Name] = &copied
	}
}

// Cookies returns a snapshot of the session cookies ordered by name
func (s *Session) Cookies() []*http.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.cookies))
	for name := range s.cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	snapshot := make([]*http.Cookie, 0, len(names))
	for _, name := range names {
		c := s.cookies[name]
		snapshot = append(snapshot, &http.Cookie{Name: c.Name, Value: c.Value})
	}
	return snapshot
}

// CSRFToken returns the token scraped from the login page
func (s *Session) CSRFToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrfToken
}

// XSRFToken returns the URL-decoded XSRF-TOKEN cookie, or "" when absent
func (s *Session) XSRFToken() string {
	s.mu.Lock()
	cookie, ok := s.cookies[xsrfCookieName]
	s.mu.Unlock()
	if !ok {
		return ""
	}
	decoded, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return cookie.Value
	}
	return decoded
}

func (s *Session) setCSRFToken(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.csrfToken = token
}

func (s *Session) apply(req *resty.Request) {
	req.SetCookies(s.Cookies())
	if token := s.CSRFToken(); token != "" {
		req.SetHeader("X-CSRF-TOKEN", token)
	}
	if xsrf := s.XSRFToken(); xsrf != "" {
		req.SetHeader("X-XSRF-TOKEN", xsrf)
	}
	req.SetHeader("X-Requested-With", "XMLHttpRequest")
}
