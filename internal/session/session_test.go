package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"attendance-portal/internal/api"
)

type fakeAuth struct {
	mu       sync.Mutex
	users    map[string]api.User // token -> user
	creds    map[string]string   // email -> token
	block    chan struct{}
	profiles int
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{users: map[string]api.User{}, creds: map[string]string{}}
}

func (f *fakeAuth) add(email, token string, role api.Role) api.User {
	u := api.User{ID: "u-" + email, Email: email, Name: email, Role: role}
	f.users[token] = u
	f.creds[email] = token
	return u
}

func (f *fakeAuth) Login(_ context.Context, c api.Credentials) (api.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tok, ok := f.creds[c.Email]
	if !ok || c.Password != "secret" {
		return api.LoginResult{}, &api.Error{Kind: api.KindUnauthorized, Status: 401, Message: "Invalid credentials"}
	}
	return api.LoginResult{Token: tok, User: f.users[tok]}, nil
}

func (f *fakeAuth) Profile(ctx context.Context, _, token string) (api.User, error) {
	f.mu.Lock()
	f.profiles++
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return api.User{}, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[token]
	if !ok {
		return api.User{}, &api.Error{Kind: api.KindUnauthorized, Status: 401}
	}
	return u, nil
}

func newTestStore(p Persistence, a Authenticator) *Store {
	return newStore("sess-1", p, a, zap.NewNop(), time.Now)
}

func assertConsistent(t *testing.T, snap Snapshot) {
	t.Helper()
	if snap.State == Authenticated {
		assert.NotEmpty(t, snap.Token)
		assert.NotNil(t, snap.User)
		return
	}
	assert.Empty(t, snap.Token)
	assert.Nil(t, snap.User)
}

func TestRestoreWithoutPersistedState(t *testing.T) {
	st := newTestStore(NewMemoryPersistence(), newFakeAuth())
	assert.Equal(t, Loading, st.Snapshot().State)

	st.Restore(context.Background())
	snap := st.Snapshot()
	assert.Equal(t, Unauthenticated, snap.State)
	assertConsistent(t, snap)
}

func TestRestoreValidTokenRefreshesUser(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	fresh := auth.add("admin@x.io", "tok-a", api.RoleAdmin)
	p := NewMemoryPersistence()
	require.NoError(t, p.Save(ctx, "sess-1", Persisted{Token: "tok-a", User: api.User{ID: "stale", Role: api.RoleStudent}}))

	st := newTestStore(p, auth)
	st.Restore(ctx)

	snap := st.Snapshot()
	require.Equal(t, Authenticated, snap.State)
	assert.Equal(t, fresh, *snap.User)
	assert.Equal(t, "tok-a", snap.Token)

	saved, err := p.Load(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, fresh, saved.User)
}

func TestRestoreRejectedTokenClearsPersistence(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryPersistence()
	require.NoError(t, p.Save(ctx, "sess-1", Persisted{Token: "revoked", User: api.User{ID: "1"}}))

	st := newTestStore(p, newFakeAuth())
	st.Restore(ctx)

	assert.Equal(t, Unauthenticated, st.Snapshot().State)
	_, err := p.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRestoreSkipsProfileForExpiredJWT(t *testing.T) {
	ctx := context.Background()
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	auth := newFakeAuth()
	auth.add("a@x.io", expired, api.RoleAdmin)
	p := NewMemoryPersistence()
	require.NoError(t, p.Save(ctx, "sess-1", Persisted{Token: expired}))

	st := newTestStore(p, auth)
	st.Restore(ctx)

	assert.Equal(t, Unauthenticated, st.Snapshot().State)
	assert.Zero(t, auth.profiles)
}

func TestRestoreRunsOnce(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	auth.add("a@x.io", "tok", api.RoleAdmin)
	p := NewMemoryPersistence()
	require.NoError(t, p.Save(ctx, "sess-1", Persisted{Token: "tok"}))

	st := newTestStore(p, auth)
	st.Restore(ctx)
	st.Restore(ctx)
	assert.Equal(t, 1, auth.profiles)
}

func TestLoadingWhileRestoreInFlight(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	auth.add("a@x.io", "tok", api.RoleTeacher)
	auth.block = make(chan struct{})
	p := NewMemoryPersistence()
	require.NoError(t, p.Save(ctx, "sess-1", Persisted{Token: "tok"}))

	st := newTestStore(p, auth)
	done := make(chan struct{})
	go func() {
		st.Restore(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		auth.mu.Lock()
		defer auth.mu.Unlock()
		return auth.profiles == 1
	}, time.Second, 5*time.Millisecond)

	// A second caller does not wait for the first.
	st.Restore(ctx)
	snap := st.Snapshot()
	assert.Equal(t, Loading, snap.State)
	assertConsistent(t, snap)

	close(auth.block)
	<-done
	assert.Equal(t, Authenticated, st.Snapshot().State)
}

func TestRestoreSurvivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	auth := newFakeAuth()
	auth.add("a@x.io", "tok", api.RoleTeacher)
	auth.block = make(chan struct{})
	p := NewMemoryPersistence()
	require.NoError(t, p.Save(context.Background(), "sess-1", Persisted{Token: "tok"}))

	st := newTestStore(p, auth)
	done := make(chan struct{})
	go func() {
		st.Restore(ctx)
		close(done)
	}()
	cancel()
	time.Sleep(10 * time.Millisecond)
	close(auth.block)
	<-done

	assert.Equal(t, Authenticated, st.Snapshot().State)
}

func TestLogoutDuringRestoreWins(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	auth.add("a@x.io", "tok", api.RoleTeacher)
	auth.block = make(chan struct{})
	p := NewMemoryPersistence()
	require.NoError(t, p.Save(ctx, "sess-1", Persisted{Token: "tok"}))

	st := newTestStore(p, auth)
	done := make(chan struct{})
	go func() {
		st.Restore(ctx)
		close(done)
	}()
	require.Eventually(t, func() bool {
		auth.mu.Lock()
		defer auth.mu.Unlock()
		return auth.profiles == 1
	}, time.Second, 5*time.Millisecond)

	st.Logout(ctx)
	close(auth.block)
	<-done

	assert.Equal(t, Unauthenticated, st.Snapshot().State)
	_, err := p.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoginFailureKeepsPriorState(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	auth.add("a@x.io", "tok", api.RoleAdmin)
	st := newTestStore(NewMemoryPersistence(), auth)

	_, err := st.Login(ctx, api.Credentials{Email: "a@x.io", Password: "secret"})
	require.NoError(t, err)

	_, err = st.Login(ctx, api.Credentials{Email: "a@x.io", Password: "wrong"})
	var apiErr *api.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, api.KindUnauthorized, apiErr.Kind)
	assert.Equal(t, "Invalid credentials", apiErr.Message)

	snap := st.Snapshot()
	assert.Equal(t, Authenticated, snap.State)
	assert.Equal(t, "tok", snap.Token)
}

type failingPersistence struct{ *MemoryPersistence }

func (failingPersistence) Save(context.Context, string, Persisted) error {
	return errors.New("disk full")
}

func TestLoginPersistFailureIsAnError(t *testing.T) {
	auth := newFakeAuth()
	auth.add("a@x.io", "tok", api.RoleAdmin)
	st := newTestStore(failingPersistence{NewMemoryPersistence()}, auth)

	_, err := st.Login(context.Background(), api.Credentials{Email: "a@x.io", Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, Loading, st.Snapshot().State)
}

func TestLogoutIsIdempotent(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	auth.add("a@x.io", "tok", api.RoleAdmin)
	p := NewMemoryPersistence()
	st := newTestStore(p, auth)
	_, err := st.Login(ctx, api.Credentials{Email: "a@x.io", Password: "secret"})
	require.NoError(t, err)

	st.Logout(ctx)
	st.Logout(ctx)

	snap := st.Snapshot()
	assert.Equal(t, Unauthenticated, snap.State)
	assertConsistent(t, snap)
	_, err = p.Load(ctx, "sess-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExpireOnlyMatchingToken(t *testing.T) {
	ctx := context.Background()
	auth := newFakeAuth()
	auth.add("a@x.io", "tok-new", api.RoleAdmin)
	st := newTestStore(NewMemoryPersistence(), auth)
	_, err := st.Login(ctx, api.Credentials{Email: "a@x.io", Password: "secret"})
	require.NoError(t, err)

	assert.False(t, st.Expire(ctx, "tok-old"))
	assert.Equal(t, Authenticated, st.Snapshot().State)

	assert.True(t, st.Expire(ctx, "tok-new"))
	assert.Equal(t, Unauthenticated, st.Snapshot().State)
	assert.False(t, st.Expire(ctx, "tok-new"))
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()
	sign := func(exp time.Time) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)}).SignedString([]byte("k"))
		require.NoError(t, err)
		return s
	}
	assert.True(t, tokenExpired(sign(now.Add(-time.Minute)), now))
	assert.False(t, tokenExpired(sign(now.Add(time.Hour)), now))
	assert.False(t, tokenExpired("opaque-token", now))
}
