// Package auth manages the approval-ledger session: it caches the session
// token across tasks, performs a lazy credential login when none is cached
// and isolates the token extraction contract so it can be tested on its own.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"

	"github.com/rs/zerolog"

	"github.com/Luft21/owo-dac-laptop/service/client"
)

// ErrNoCredentials is returned when no session is cached and no credentials
// are available to obtain one.
var ErrNoCredentials = errors.New("no cached session and no stored credentials")

// sessionPattern extracts the session value from a cookie-style header. The
// remote system answers with either a structured token field or a raw
// cookie string, depending on deployment.
var sessionPattern = regexp.MustCompile(`(?:token|ci_session)=([^;]+)`)

// ExtractSessionToken resolves the session token from a login response:
// the structured field wins, then the cookie pattern, then the raw cookie
// value as a last resort.
func ExtractSessionToken(resp *client.LoginResponse) string {
	if resp == nil {
		return ""
	}
	if resp.Token != "" {
		return resp.Token
	}
	if m := sessionPattern.FindStringSubmatch(resp.Cookie); m != nil {
		return m[1]
	}
	return resp.Cookie
}

// Credentials is a stored username/password pair.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Manager caches one session per external system and re-logins lazily.
type Manager struct {
	mu      sync.Mutex
	client  client.Auth
	system  string
	creds   *Credentials
	session string
	logger  zerolog.Logger
}

// NewManager creates a manager for the named system.
func NewManager(authClient client.Auth, system string, logger zerolog.Logger) *Manager {
	return &Manager{client: authClient, system: system, logger: logger}
}

// SetCredentials stores credentials used for lazy login.
func (m *Manager) SetCredentials(creds *Credentials) {
	m.mu.Lock()
	m.creds = creds
	m.mu.Unlock()
}

// SetSession seeds an externally obtained session token.
func (m *Manager) SetSession(session string) {
	m.mu.Lock()
	m.session = session
	m.mu.Unlock()
}

// Invalidate drops the cached session so the next call re-logins.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	m.session = ""
	m.mu.Unlock()
}

// Session returns the cached session token, logging in with the stored
// credentials when none is cached. Concurrent callers share the cached
// result; only one login runs at a time.
func (m *Manager) Session(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != "" {
		return m.session, nil
	}
	if m.creds == nil {
		return "", ErrNoCredentials
	}
	resp, err := m.client.Login(ctx, m.creds.Username, m.creds.Password, m.system)
	if err != nil {
		return "", fmt.Errorf("login %s: %w", m.system, err)
	}
	if !resp.Success {
		return "", fmt.Errorf("login %s rejected: %s", m.system, resp.Message)
	}
	token := ExtractSessionToken(resp)
	if token == "" {
		return "", fmt.Errorf("login %s returned no session token", m.system)
	}
	m.session = token
	m.logger.Debug().Str("system", m.system).Msg("session refreshed")
	return token, nil
}
