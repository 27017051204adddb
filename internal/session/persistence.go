package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"attendance-portal/internal/api"
	"attendance-portal/internal/store"
)

// ErrNotFound is returned by Load when nothing is persisted for a session.
var ErrNotFound = errors.New("session not found")

// Persisted is the state kept between requests: the bearer token and the
// serialized user it was issued to.
type Persisted struct {
	Token string   `json:"token"`
	User  api.User `json:"user"`
}

// Persistence stores token+user pairs keyed by browser session id.
type Persistence interface {
	Load(ctx context.Context, id string) (Persisted, error)
	Save(ctx context.Context, id string, p Persisted) error
	Clear(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}

// MemoryPersistence keeps sessions in process memory. Used for dev and tests.
type MemoryPersistence struct {
	mu   sync.RWMutex
	data map[string]Persisted
}

// NewMemoryPersistence creates an empty in-memory backend.
func NewMemoryPersistence() *MemoryPersistence {
	return &MemoryPersistence{data: make(map[string]Persisted)}
}

func (m *MemoryPersistence) Load(_ context.Context, id string) (Persisted, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.data[id]
	if !ok {
		return Persisted{}, ErrNotFound
	}
	return p, nil
}

func (m *MemoryPersistence) Save(_ context.Context, id string, p Persisted) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = p
	return nil
}

func (m *MemoryPersistence) Clear(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

func (m *MemoryPersistence) Ping(context.Context) error { return nil }

// RedisPersistence stores each session as a JSON value with a TTL.
type RedisPersistence struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisPersistence builds a redis backend. Keys are prefix+id.
func NewRedisPersistence(client *redis.Client, prefix string, ttl time.Duration) *RedisPersistence {
	if prefix == "" {
		prefix = "portal:session:"
	}
	return &RedisPersistence{client: client, prefix: prefix, ttl: ttl}
}

func (r *RedisPersistence) Load(ctx context.Context, id string) (Persisted, error) {
	raw, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return Persisted{}, ErrNotFound
	}
	if err != nil {
		return Persisted{}, fmt.Errorf("redis get session: %w", err)
	}
	var p Persisted
	if err := json.Unmarshal(raw, &p); err != nil {
		return Persisted{}, fmt.Errorf("decode session: %w", err)
	}
	return p, nil
}

func (r *RedisPersistence) Save(ctx context.Context, id string, p Persisted) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.client.Set(ctx, r.prefix+id, raw, r.ttl).Err()
}

func (r *RedisPersistence) Clear(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.prefix+id).Err()
}

func (r *RedisPersistence) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// SQLPersistence stores sessions in a portal_sessions table on Postgres or SQLite.
type SQLPersistence struct {
	db       *sql.DB
	postgres bool
	ttl      time.Duration
	now      func() time.Time
}

// NewSQLPersistence builds a SQL backend on an opened database.
func NewSQLPersistence(db *store.DB, ttl time.Duration) *SQLPersistence {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SQLPersistence{
		db:       db.Client,
		postgres: db.Driver == store.DriverPostgres,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Migrate creates the sessions table when missing.
func (s *SQLPersistence) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS portal_sessions (
			id         TEXT PRIMARY KEY,
			token      TEXT NOT NULL,
			user_json  TEXT NOT NULL,
			expires_at BIGINT NOT NULL,
			updated_at BIGINT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("migrate portal_sessions: %w", err)
	}
	return nil
}

func (s *SQLPersistence) Load(ctx context.Context, id string) (Persisted, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT token, user_json FROM portal_sessions
		WHERE id = ? AND expires_at > ?
	`), id, s.now().Unix())
	var token, userJSON string
	if err := row.Scan(&token, &userJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Persisted{}, ErrNotFound
		}
		return Persisted{}, fmt.Errorf("load session: %w", err)
	}
	p := Persisted{Token: token}
	if err := json.Unmarshal([]byte(userJSON), &p.User); err != nil {
		return Persisted{}, fmt.Errorf("decode session user: %w", err)
	}
	return p, nil
}

func (s *SQLPersistence) Save(ctx context.Context, id string, p Persisted) error {
	userJSON, err := json.Marshal(p.User)
	if err != nil {
		return fmt.Errorf("encode session user: %w", err)
	}
	now := s.now()
	_, err = s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO portal_sessions (id, token, user_json, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			token = EXCLUDED.token,
			user_json = EXCLUDED.user_json,
			expires_at = EXCLUDED.expires_at,
			updated_at = EXCLUDED.updated_at
	`), id, p.Token, string(userJSON), now.Add(s.ttl).Unix(), now.Unix())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (s *SQLPersistence) Clear(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM portal_sessions WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

func (s *SQLPersistence) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Purge deletes expired rows and returns how many were removed.
func (s *SQLPersistence) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM portal_sessions WHERE expires_at <= ?`), s.now().Unix())
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return res.RowsAffected()
}

// rebind turns ? placeholders into $n for Postgres.
func (s *SQLPersistence) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
