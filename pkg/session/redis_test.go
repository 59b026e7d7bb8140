package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/run-bigpig/agent-guard/pkg/interfaces"
)

func newRedisService(t *testing.T, options ...RedisOption) (*RedisService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisService(client, options...), mr
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRedisService(t)
	key := Key{AppName: "app", UserID: "u1", SessionID: "s1"}

	_, err := svc.Get(ctx, key)
	assert.ErrorIs(t, err, ErrSessionNotFound)

	s, err := svc.Create(ctx, key)
	require.NoError(t, err)

	s.State().Set("is_user_prompt_safe", false)
	s.State().Set("user_prompt_unsafe_reason", `[{"kind":"rai"}]`)
	s.AppendMessage(interfaces.Message{Role: interfaces.RoleUser, Content: "hi", InvocationID: "inv-1"})
	require.NoError(t, svc.Save(ctx, s))

	loaded, err := svc.Get(ctx, key)
	require.NoError(t, err)

	safe, ok := loaded.State().Get("is_user_prompt_safe")
	require.True(t, ok)
	assert.Equal(t, false, safe)
	reason, _ := loaded.State().Get("user_prompt_unsafe_reason")
	assert.Equal(t, `[{"kind":"rai"}]`, reason)

	messages := loaded.Messages()
	require.Len(t, messages, 1)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, "inv-1", messages[0].InvocationID)
}

func TestRedisSaveAppliesDeletesAndOnlyNewMessages(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRedisService(t)
	key := Key{AppName: "app", UserID: "u1", SessionID: "s1"}

	s, err := svc.Create(ctx, key)
	require.NoError(t, err)
	s.State().Set("reason", "x")
	s.AppendMessage(interfaces.Message{Role: interfaces.RoleUser, Content: "one"})
	require.NoError(t, svc.Save(ctx, s))

	s.State().Delete("reason")
	s.AppendMessage(interfaces.Message{Role: interfaces.RoleModel, Content: "two"})
	require.NoError(t, svc.Save(ctx, s))

	loaded, err := svc.Get(ctx, key)
	require.NoError(t, err)
	_, ok := loaded.State().Get("reason")
	assert.False(t, ok)

	messages := loaded.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "one", messages[0].Content)
	assert.Equal(t, "two", messages[1].Content)
}

func TestRedisCreateExistingLoadsSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRedisService(t)
	key := Key{AppName: "app", UserID: "u1", SessionID: "s1"}

	s, err := svc.Create(ctx, key)
	require.NoError(t, err)
	s.State().Set("k", "v")
	require.NoError(t, svc.Save(ctx, s))

	again, err := svc.Create(ctx, key)
	require.NoError(t, err)
	v, ok := again.State().Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
}

func TestRedisHistoryIsTrimmed(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRedisService(t, WithRedisMaxSize(2))
	key := Key{AppName: "app", UserID: "u1", SessionID: "s1"}

	s, err := svc.Create(ctx, key)
	require.NoError(t, err)
	for _, c := range []string{"a", "b", "c"} {
		s.AppendMessage(interfaces.Message{Role: interfaces.RoleUser, Content: c})
	}
	require.NoError(t, svc.Save(ctx, s))

	loaded, err := svc.Get(ctx, key)
	require.NoError(t, err)
	messages := loaded.Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, "b", messages[0].Content)
}

func TestRedisKeysExpire(t *testing.T) {
	ctx := context.Background()
	svc, mr := newRedisService(t, WithTTL(time.Minute), WithKeyPrefix("test:"))
	key := Key{AppName: "app", UserID: "u1", SessionID: "s1"}

	s, err := svc.Create(ctx, key)
	require.NoError(t, err)
	s.State().Set("k", "v")
	require.NoError(t, svc.Save(ctx, s))

	assert.True(t, mr.Exists("test:app:u1:s1:state"))
	mr.FastForward(2 * time.Minute)

	_, err = svc.Get(ctx, key)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisDelete(t *testing.T) {
	ctx := context.Background()
	svc, mr := newRedisService(t)
	key := Key{AppName: "app", UserID: "u1", SessionID: "s1"}

	s, err := svc.Create(ctx, key)
	require.NoError(t, err)
	s.State().Set("k", "v")
	require.NoError(t, svc.Save(ctx, s))

	require.NoError(t, svc.Delete(ctx, key))
	assert.False(t, mr.Exists("agent:session:app:u1:s1:state"))
	_, err = svc.Get(ctx, key)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisKeysWithSeparatorsDoNotCollide(t *testing.T) {
	ctx := context.Background()
	svc, _ := newRedisService(t)

	s, err := svc.Create(ctx, Key{AppName: "a", UserID: "x:y", SessionID: "z"})
	require.NoError(t, err)
	s.State().Set("k", "secret")
	require.NoError(t, svc.Save(ctx, s))

	_, err = svc.Get(ctx, Key{AppName: "a", UserID: "x", SessionID: "y:z"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	other, err := svc.Create(ctx, Key{AppName: "a", UserID: "x", SessionID: "y:z"})
	require.NoError(t, err)
	_, ok := other.State().Get("k")
	assert.False(t, ok)
}
