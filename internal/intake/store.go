package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const DefaultSessionTTL = 24 * time.Hour

// Store persists sessions between turns. Save fails with ErrVersionConflict
// when the stored version differs from s.Version, and bumps s.Version on success.
type Store interface {
	Create(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
}

var errSessionExists = errors.New("intake: session already exists")

// MemoryStore keeps sessions in process. Used by tests and single-node runs.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (m *MemoryStore) Create(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[s.ID]; ok {
		return errSessionExists
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) Load(_ context.Context, id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s.Clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.sessions[s.ID]
	if !ok {
		return ErrSessionNotFound
	}
	if cur.Version != s.Version {
		return ErrVersionConflict
	}
	s.Version++
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// RedisStore keeps sessions as JSON under intake:session:<id> with a sliding TTL.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if client == nil {
		panic("intake: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		tracer: otel.Tracer("intake.internal.intake.store"),
	}
}

func sessionKey(id string) string {
	return fmt.Sprintf("intake:session:%s", id)
}

func (r *RedisStore) Create(ctx context.Context, s *Session) error {
	ctx, span := r.tracer.Start(ctx, "intake.create_session")
	defer span.End()

	data, err := json.Marshal(s)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: failed to marshal session: %w", err)
	}
	ok, err := r.client.SetNX(ctx, sessionKey(s.ID), data, r.ttl).Result()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: failed to create session: %w", err)
	}
	if !ok {
		return errSessionExists
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, id string) (*Session, error) {
	ctx, span := r.tracer.Start(ctx, "intake.load_session")
	defer span.End()

	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrSessionNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("intake: failed to load session: %w", err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("intake: failed to decode session: %w", err)
	}
	return &s, nil
}

// Save writes s if nobody else saved it since it was loaded.
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	ctx, span := r.tracer.Start(ctx, "intake.save_session")
	defer span.End()

	key := sessionKey(s.ID)
	next := *s
	next.Version = s.Version + 1
	data, err := json.Marshal(&next)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: failed to marshal session: %w", err)
	}

	err = r.client.Watch(ctx, func(tx *redis.Tx) error {
		raw, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return ErrSessionNotFound
		}
		if err != nil {
			return err
		}
		var stored struct {
			Version int64 `json:"version"`
		}
		if err := json.Unmarshal(raw, &stored); err != nil {
			return fmt.Errorf("intake: failed to decode session: %w", err)
		}
		if stored.Version != s.Version {
			return ErrVersionConflict
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, r.ttl)
			return nil
		})
		return err
	}, key)

	switch {
	case err == nil:
		s.Version = next.Version
		return nil
	case errors.Is(err, redis.TxFailedErr):
		return ErrVersionConflict
	case errors.Is(err, ErrVersionConflict), errors.Is(err, ErrSessionNotFound):
		return err
	}
	span.RecordError(err)
	return fmt.Errorf("intake: failed to save session: %w", err)
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "intake.delete_session")
	defer span.End()

	if err := r.client.Del(ctx, sessionKey(id)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("intake: failed to delete session: %w", err)
	}
	return nil
}
