package share

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// Session holds at most one Dexcom Share session token.
// The zero value is an absent session.
type Session struct {
	token string
}

// Token returns the current token, or "" when absent.
func (s *Session) Token() string { return s.token }

// Valid reports whether a token is held.
func (s *Session) Valid() bool { return s.token != "" }

// Set replaces the held token.
func (s *Session) Set(token string) { s.token = token }

// Clear drops the held token so the next fetch re-authenticates.
func (s *Session) Clear() { s.token = "" }

// SessionManager obtains session tokens, retrying rejected logins with
// exponential backoff.
type SessionManager struct {
	api         API
	base        int
	maxFailures int
	backoff     Backoff
	log         *zap.Logger
}

// NewSessionManager returns a SessionManager that gives up once rejected
// logins exceed maxFailures, so at most maxFailures+1 attempts are made. The wait after the n-th failure (counting from 0)
// is base^n backoff units.
func NewSessionManager(api API, base, maxFailures int, backoff Backoff, log *zap.Logger) *SessionManager {
	return &SessionManager{
		api:         api,
		base:        base,
		maxFailures: maxFailures,
		backoff:     backoff,
		log:         log,
	}
}

// Authenticate logs in and stores the token in s. A transport error is
// returned immediately and does not count against the retry budget.
func (m *SessionManager) Authenticate(ctx context.Context, s *Session) error {
	failures := 0
	for {
		res, err := m.api.Login(ctx)
		if err != nil {
			return err
		}
		if res.StatusCode == http.StatusOK {
			if token := unquoteToken(res.Body); token != "" {
				s.Set(token)
				m.log.Info("got auth token")
				return nil
			}
		}

		failures++
		if failures > m.maxFailures {
			m.log.Error("authentication gave up",
				zap.Int("status", res.StatusCode),
				zap.Int("failures", failures),
			)
			return &AuthError{StatusCode: res.StatusCode, Body: res.Body}
		}
		m.log.Warn("auth failed", zap.Int("status", res.StatusCode), zap.Int("attempt", failures))
		if err := m.backoff.Wait(ctx, m.base, failures-1); err != nil {
			return err
		}
	}
}

// unquoteToken decodes the JSON string body, falling back to stripping quotes
// when the body is not valid JSON.
func unquoteToken(body []byte) string {
	var token string
	if err := json.Unmarshal(body, &token); err == nil {
		return token
	}
	return strings.Trim(strings.TrimSpace(string(body)), `"`)
}
