package webchat

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTranscript(t *testing.T) (*RedisTranscript, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisTranscript(client, time.Hour), mr
}

func TestRedisTranscriptAppendAndList(t *testing.T) {
	store, mr := newTestTranscript(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	require.NoError(t, store.Append(ctx, "s-1", Message{Role: "assistant", Text: "Hello", State: "GREET", Timestamp: at}))
	require.NoError(t, store.Append(ctx, "s-1", Message{Role: "user", Text: "I'm new", Timestamp: at.Add(time.Minute)}))

	msgs, err := store.List(ctx, "s-1", 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "Hello", msgs[0].Text)
	assert.Equal(t, "GREET", msgs[0].State)
	assert.True(t, at.Equal(msgs[0].Timestamp))
	assert.Equal(t, "user", msgs[1].Role)

	last, err := store.List(ctx, "s-1", 1)
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "I'm new", last[0].Text)

	assert.Equal(t, time.Hour, mr.TTL(transcriptKey("s-1")))
}

func TestRedisTranscriptCapsLength(t *testing.T) {
	store, _ := newTestTranscript(t)
	ctx := context.Background()
	for i := 0; i < transcriptCap+5; i++ {
		require.NoError(t, store.Append(ctx, "s-1", Message{Role: "user", Text: fmt.Sprintf("m%d", i)}))
	}
	msgs, err := store.List(ctx, "s-1", 0)
	require.NoError(t, err)
	require.Len(t, msgs, transcriptCap)
	assert.Equal(t, "m5", msgs[0].Text)
}

func TestRedisTranscriptEmpty(t *testing.T) {
	store, _ := newTestTranscript(t)
	msgs, err := store.List(context.Background(), "missing", 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestNewRedisTranscriptPanicsOnNilClient(t *testing.T) {
	assert.Panics(t, func() { NewRedisTranscript(nil, 0) })
}
