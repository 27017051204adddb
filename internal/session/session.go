// Package session owns the authenticated identity of each browser session:
// restoring it from persisted state, logging in and out, and clearing it
// when the backend stops accepting its token.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"attendance-portal/internal/api"
)

// State is the lifecycle state of a session.
type State int

const (
	Loading State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// Snapshot is a read-only copy of a session. Token and User are both set
// only when State is Authenticated.
type Snapshot struct {
	ID    string    `json:"-"`
	State State     `json:"-"`
	Token string    `json:"-"`
	User  *api.User `json:"user,omitempty"`
}

// Role returns the user's role, or "" when there is no user.
func (s Snapshot) Role() api.Role {
	if s.User == nil {
		return ""
	}
	return s.User.Role
}

// Authenticator is the part of the backend the session store needs.
type Authenticator interface {
	Login(ctx context.Context, creds api.Credentials) (api.LoginResult, error)
	Profile(ctx context.Context, sessionID, token string) (api.User, error)
}

// APIAuthenticator adapts an api.Client to Authenticator.
type APIAuthenticator struct {
	Client *api.Client
}

func (a APIAuthenticator) Login(ctx context.Context, creds api.Credentials) (api.LoginResult, error) {
	return a.Client.Login(ctx, creds)
}

func (a APIAuthenticator) Profile(ctx context.Context, sessionID, token string) (api.User, error) {
	return a.Client.WithSession(sessionID, token).Profile(ctx)
}

// restoreTimeout bounds the startup profile check so a slow backend cannot
// keep a session in Loading forever.
const restoreTimeout = 10 * time.Second

// Store is the session of one browser.
type Store struct {
	id      string
	persist Persistence
	auth    Authenticator
	log     *zap.Logger
	now     func() time.Time

	mu       sync.Mutex
	started  bool
	state    State
	token    string
	user     *api.User
	lastSeen time.Time
}

func newStore(id string, p Persistence, a Authenticator, log *zap.Logger, now func() time.Time) *Store {
	return &Store{
		id:       id,
		persist:  p,
		auth:     a,
		log:      log.With(zap.String("session", shortID(id))),
		now:      now,
		state:    Loading,
		lastSeen: now(),
	}
}

// ID returns the browser session id.
func (s *Store) ID() string { return s.id }

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = s.now()
	snap := Snapshot{ID: s.id, State: s.state}
	if s.state == Authenticated {
		u := *s.user
		snap.Token = s.token
		snap.User = &u
	}
	return snap
}

// Restore validates the persisted token against the backend. It runs once;
// later calls return immediately. Until it finishes the state is Loading.
func (s *Store) Restore(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), restoreTimeout)
	defer cancel()

	user, token, ok := s.restore(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Loading {
		// A login or logout landed while the profile check was in flight.
		return
	}
	if !ok {
		s.setUnauthenticatedLocked()
		return
	}
	// The fetched profile replaces whatever user was persisted.
	if err := s.persist.Save(ctx, s.id, Persisted{Token: token, User: user}); err != nil {
		s.log.Warn("refresh persisted user failed", zap.Error(err))
	}
	s.state = Authenticated
	s.token = token
	s.user = &user
}

func (s *Store) restore(ctx context.Context) (api.User, string, bool) {
	p, err := s.persist.Load(ctx, s.id)
	if errors.Is(err, ErrNotFound) {
		return api.User{}, "", false
	}
	if err != nil {
		s.log.Warn("load persisted session failed", zap.Error(err))
		s.clearPersisted(ctx)
		return api.User{}, "", false
	}
	if p.Token == "" || tokenExpired(p.Token, s.now()) {
		s.clearPersisted(ctx)
		return api.User{}, "", false
	}

	user, err := s.auth.Profile(ctx, s.id, p.Token)
	if err != nil {
		s.log.Info("persisted token rejected", zap.Error(err))
		s.clearPersisted(ctx)
		return api.User{}, "", false
	}
	return user, p.Token, true
}

// Login submits credentials once. On failure the previous state is kept.
func (s *Store) Login(ctx context.Context, creds api.Credentials) (api.User, error) {
	res, err := s.auth.Login(ctx, creds)
	if err != nil {
		return api.User{}, err
	}
	if err := s.persist.Save(ctx, s.id, Persisted{Token: res.Token, User: res.User}); err != nil {
		return api.User{}, fmt.Errorf("persist session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	s.state = Authenticated
	s.token = res.Token
	user := res.User
	s.user = &user
	return res.User, nil
}

// Logout clears in-memory and persisted state. Calling it again is a no-op.
func (s *Store) Logout(ctx context.Context) {
	s.mu.Lock()
	s.started = true
	s.setUnauthenticatedLocked()
	s.mu.Unlock()
	s.clearPersisted(ctx)
}

// Expire logs out if token is still the session's credential.
func (s *Store) Expire(ctx context.Context, token string) bool {
	s.mu.Lock()
	if s.state != Authenticated || s.token != token {
		s.mu.Unlock()
		return false
	}
	s.started = true
	s.setUnauthenticatedLocked()
	s.mu.Unlock()
	s.clearPersisted(ctx)
	return true
}

func (s *Store) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Store) setUnauthenticatedLocked() {
	s.state = Unauthenticated
	s.token = ""
	s.user = nil
}

func (s *Store) clearPersisted(ctx context.Context) {
	if err := s.persist.Clear(ctx, s.id); err != nil {
		s.log.Warn("clear persisted session failed", zap.Error(err))
	}
}

// tokenExpired peeks at a JWT's exp claim without verifying it. Tokens that
// are not JWTs, or carry no exp, are left for the backend to judge.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !claims.ExpiresAt.After(now)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
