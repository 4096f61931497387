package webchat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const (
	transcriptTTL = 24 * time.Hour
	// transcriptCap bounds how many messages are kept per session.
	transcriptCap = 200
)

// Message is one line of a chat transcript.
type Message struct {
	Role      string    `json:"role"` // "user" or "assistant"
	Text      string    `json:"text"`
	State     string    `json:"state,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// TranscriptStore keeps the visible chat history for a session.
type TranscriptStore interface {
	Append(ctx context.Context, sessionID string, msg Message) error
	List(ctx context.Context, sessionID string, limit int64) ([]Message, error)
}

// RedisTranscript stores transcripts as capped Redis lists.
type RedisTranscript struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

func NewRedisTranscript(client *redis.Client, ttl time.Duration) *RedisTranscript {
	if client == nil {
		panic("webchat: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = transcriptTTL
	}
	return &RedisTranscript{
		redis:  client,
		ttl:    ttl,
		tracer: otel.Tracer("intake.internal.webchat.transcript"),
	}
}

func (s *RedisTranscript) Append(ctx context.Context, sessionID string, msg Message) error {
	ctx, span := s.tracer.Start(ctx, "webchat.append_transcript")
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("webchat: marshal transcript message: %w", err)
	}
	key := transcriptKey(sessionID)
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.RPush(ctx, key, data)
		pipe.LTrim(ctx, key, -transcriptCap, -1)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("webchat: append transcript: %w", err)
	}
	return nil
}

// List returns the most recent limit messages, oldest first.
func (s *RedisTranscript) List(ctx context.Context, sessionID string, limit int64) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "webchat.list_transcript")
	defer span.End()

	if limit <= 0 {
		limit = transcriptCap
	}
	raw, err := s.redis.LRange(ctx, transcriptKey(sessionID), -limit, -1).Result()
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("webchat: list transcript: %w", err)
	}
	out := make([]Message, 0, len(raw))
	for _, item := range raw {
		var msg Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("webchat: decode transcript message: %w", err)
		}
		out = append(out, msg)
	}
	return out, nil
}

func transcriptKey(sessionID string) string {
	return fmt.Sprintf("intake:transcript:%s", sessionID)
}
