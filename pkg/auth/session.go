package auth

import (
	"encoding/hex"
	"sync"
	"time"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/oauth2"
)

// TokenProvider is the only way the API client layer obtains credentials.
// OnExpire is called when the backend rejects the token.
type TokenProvider interface {
	Token() (string, error)
	OnExpire()
}

// Session is a TokenProvider bound to one bearer token presented by a
// dashboard user.
type Session struct {
	token       string
	info        TokenInfo
	fingerprint string

	mu       sync.Mutex
	expired  bool
	onExpire []func()
}

// NewSession inspects token and builds a session for it
func NewSession(token string) (*Session, error) {
	info, err := InspectToken(token)
	if err != nil {
		return nil, err
	}
	return &Session{
		token:       token,
		info:        info,
		fingerprint: Fingerprint(token),
	}, nil
}

// Token returns the bearer token, or ErrTokenExpired once the session expired
func (s *Session) Token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expired || s.info.Expired(time.Now()) {
		s.expired = true
		return "", ErrTokenExpired
	}
	return s.token, nil
}

// OnExpire marks the session expired and runs the registered hooks once
func (s *Session) OnExpire() {
	s.mu.Lock()
	if s.expired && s.onExpire == nil {
		s.mu.Unlock()
		return
	}
	s.expired = true
	hooks := s.onExpire
	s.onExpire = nil
	s.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}
}

// Expired reports whether the session can no longer be used
func (s *Session) Expired() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expired || s.info.Expired(time.Now())
}

// AddExpireHook registers fn to run when the session expires
func (s *Session) AddExpireHook(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onExpire = append(s.onExpire, fn)
}

// Fingerprint identifies the session in cache keys
func (s *Session) Fingerprint() string {
	return s.fingerprint
}

// Info returns the decoded token claims
func (s *Session) Info() TokenInfo {
	return s.info
}

// Fingerprint hashes a token so it can be used as a storage key without
// keeping the raw credential around.
func Fingerprint(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16])
}

// TokenSource adapts a TokenProvider to oauth2.TokenSource so it can drive an
// oauth2.Transport.
func TokenSource(p TokenProvider) oauth2.TokenSource {
	return providerSource{p: p}
}

type providerSource struct {
	p TokenProvider
}

func (s providerSource) Token() (*oauth2.Token, error) {
	token, err := s.p.Token()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer"}, nil
}
