// Package session keeps the order desk's per-browser state in a signed cookie. The session
// id also keys the server-side order list held for that browser.
package session

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	defaultCookieName       = "orderdesk_session"
	defaultLifetime         = 12 * time.Hour
	defaultRememberLifetime = 14 * 24 * time.Hour
	defaultIdleTimeout      = 30 * time.Minute
	idBytes                 = 24
)

var (
	// ErrExpired is returned by Load when the cookie outlived its idle or absolute limit.
	ErrExpired = errors.New("session: expired")
	// ErrInvalidConfig is returned by NewManager for unusable settings.
	ErrInvalidConfig = errors.New("session: invalid config")
)

// Staff is the signed-in operator as remembered between requests.
type Staff struct {
	UID     string   `json:"uid"`
	Email   string   `json:"email,omitempty"`
	Roles   []string `json:"roles,omitempty"`
	StoreID string   `json:"store,omitempty"`
}

func (s *Staff) equal(o *Staff) bool {
	if s == nil || o == nil {
		return s == o
	}
	return s.UID == o.UID && s.Email == o.Email && s.StoreID == o.StoreID && slices.Equal(s.Roles, o.Roles)
}

// record is the encoded cookie payload.
type record struct {
	ID       string    `json:"id"`
	Created  time.Time `json:"created"`
	Seen     time.Time `json:"seen"`
	Expires  time.Time `json:"expires,omitempty"`
	Remember bool      `json:"remember,omitempty"`
	Staff    *Staff    `json:"staff,omitempty"`
	Refresh  string    `json:"refresh,omitempty"`
}

// Session is the request-scoped view of a cookie session.
type Session struct {
	rec       record
	lifetimes lifetimes
	destroyed bool
}

// Config controls cookie attributes and lifetimes.
type Config struct {
	CookieName     string
	HashKey        []byte
	BlockKey       []byte
	CookiePath     string
	CookieDomain   string
	CookieSecure   bool
	CookieSameSite http.SameSite

	IdleTimeout      time.Duration
	Lifetime         time.Duration
	RememberLifetime time.Duration
	Now              func() time.Time
}

type lifetimes struct {
	normal   time.Duration
	remember time.Duration
}

func (l lifetimes) expiry(from time.Time, remember bool) time.Time {
	if remember {
		return from.Add(l.remember).UTC()
	}
	return from.Add(l.normal).UTC()
}

// Manager encodes sessions into signed, optionally encrypted, cookies.
type Manager struct {
	cfg       Config
	codec     *securecookie.SecureCookie
	lifetimes lifetimes
	now       func() time.Time
}

// NewManager validates cfg and applies defaults.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.HashKey) == 0 {
		return nil, fmt.Errorf("%w: hash key is required", ErrInvalidConfig)
	}
	switch len(cfg.BlockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: block key must be 16, 24 or 32 bytes", ErrInvalidConfig)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.CookieSameSite == http.SameSiteDefaultMode {
		cfg.CookieSameSite = http.SameSiteLaxMode
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = defaultIdleTimeout
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.RememberLifetime <= 0 {
		cfg.RememberLifetime = defaultRememberLifetime
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	codec := securecookie.New(cfg.HashKey, cfg.BlockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(cfg.RememberLifetime.Seconds()))

	return &Manager{
		cfg:       cfg,
		codec:     codec,
		lifetimes: lifetimes{normal: cfg.Lifetime, remember: cfg.RememberLifetime},
		now:       now,
	}, nil
}

// Load decodes the session cookie. A missing or tampered cookie yields a fresh session; an
// expired one yields ErrExpired.
func (m *Manager) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil {
		return m.New(), nil
	}
	var rec record
	if err := m.codec.Decode(m.cfg.CookieName, cookie.Value, &rec); err != nil || rec.ID == "" {
		return m.New(), nil
	}

	now := m.now().UTC()
	if !rec.Expires.IsZero() && now.After(rec.Expires) {
		return nil, ErrExpired
	}
	if !rec.Seen.IsZero() && now.Sub(rec.Seen) > m.cfg.IdleTimeout {
		return nil, ErrExpired
	}
	return &Session{rec: rec, lifetimes: m.lifetimes}, nil
}

// New starts an anonymous session.
func (m *Manager) New() *Session {
	now := m.now().UTC()
	return &Session{
		rec: record{
			ID:      newID(),
			Created: now,
			Seen:    now,
			Expires: m.lifetimes.expiry(now, false),
		},
		lifetimes: m.lifetimes,
	}
}

// Save writes the session cookie, or clears it when the session was destroyed.
func (m *Manager) Save(w http.ResponseWriter, sess *Session) error {
	if sess == nil {
		return errors.New("session: nil session")
	}
	if sess.destroyed {
		m.Destroy(w)
		return nil
	}

	now := m.now().UTC()
	sess.rec.Seen = now
	value, err := m.codec.Encode(m.cfg.CookieName, sess.rec)
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}

	cookie := m.cookie(value)
	if exp := sess.rec.Expires; !exp.IsZero() {
		remaining := int(exp.Sub(now).Seconds())
		if remaining <= 0 {
			remaining = -1
		}
		cookie.Expires = exp
		cookie.MaxAge = remaining
	}
	http.SetCookie(w, cookie)
	return nil
}

// Destroy clears the session cookie.
func (m *Manager) Destroy(w http.ResponseWriter) {
	cookie := m.cookie("")
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	http.SetCookie(w, cookie)
}

func (m *Manager) cookie(value string) *http.Cookie {
	return &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    value,
		Path:     m.cfg.CookiePath,
		Domain:   m.cfg.CookieDomain,
		Secure:   m.cfg.CookieSecure,
		HttpOnly: true,
		SameSite: m.cfg.CookieSameSite,
	}
}

// ID identifies the browser session.
func (s *Session) ID() string { return s.rec.ID }

// CreatedAt reports when the session started.
func (s *Session) CreatedAt() time.Time { return s.rec.Created }

// ExpiresAt reports the absolute expiry.
func (s *Session) ExpiresAt() time.Time { return s.rec.Expires }

// RememberMe reports whether the long lifetime applies.
func (s *Session) RememberMe() bool { return s.rec.Remember }

// SetRememberMe switches between the normal and the remember-me lifetime, counted from the
// session start.
func (s *Session) SetRememberMe(remember bool) {
	s.rec.Remember = remember
	s.rec.Expires = s.lifetimes.expiry(s.rec.Created, remember)
}

// Staff returns the signed-in operator, or nil for anonymous sessions.
func (s *Session) Staff() *Staff { return s.rec.Staff }

// SetStaff records the operator. It reports whether the stored value changed.
func (s *Session) SetStaff(staff *Staff) bool {
	if s.rec.Staff.equal(staff) {
		return false
	}
	if staff == nil {
		s.rec.Staff = nil
		return true
	}
	copied := *staff
	copied.Roles = slices.Clone(staff.Roles)
	s.rec.Staff = &copied
	return true
}

// RefreshToken returns the Firebase refresh token kept for remember-me logins.
func (s *Session) RefreshToken() string { return s.rec.Refresh }

// SetRefreshToken stores the Firebase refresh token.
func (s *Session) SetRefreshToken(token string) { s.rec.Refresh = token }

// Destroy marks the session for removal when the response is written.
func (s *Session) Destroy() { s.destroyed = true }

// Destroyed reports whether Destroy was called.
func (s *Session) Destroyed() bool { return s.destroyed }

func newID() string {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("session: read random: %v", err))
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}
