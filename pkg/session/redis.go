package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/run-bigpig/agent-guard/pkg/interfaces"
)

// RedisService stores sessions in Redis: state in a hash, history in a list,
// and a marker key recording when the session was created
type RedisService struct {
	client    *redis.Client
	ttl       time.Duration
	keyPrefix string
	maxSize   int
}

// RedisOption represents an option for configuring the Redis service
type RedisOption func(*RedisService)

// WithTTL sets the TTL for session keys
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *RedisService) {
		r.ttl = ttl
	}
}

// WithKeyPrefix sets a custom prefix for Redis keys
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *RedisService) {
		r.keyPrefix = prefix
	}
}

// WithRedisMaxSize sets the maximum number of messages kept per session
func WithRedisMaxSize(size int) RedisOption {
	return func(r *RedisService) {
		r.maxSize = size
	}
}

// RedisConfig contains configuration for Redis
type RedisConfig struct {
	// URL is the Redis address (e.g., "localhost:6379")
	URL string

	// Password is the Redis password
	Password string

	// DB is the Redis database number
	DB int
}

// NewRedisService creates a new Redis-backed session service
func NewRedisService(client *redis.Client, options ...RedisOption) *RedisService {
	service := &RedisService{
		client:    client,
		ttl:       24 * time.Hour,   // Default TTL
		keyPrefix: "agent:session:", // Default prefix
		maxSize:   100,
	}

	for _, option := range options {
		option(service)
	}

	return service
}

// NewRedisServiceFromConfig connects to Redis and creates a session service
func NewRedisServiceFromConfig(ctx context.Context, config RedisConfig, options ...RedisOption) (*RedisService, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.URL,
		Password: config.Password,
		DB:       config.DB,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisService(client, options...), nil
}

func (r *RedisService) metaKey(key Key) string     { return r.keyPrefix + key.String() + ":meta" }
func (r *RedisService) stateKey(key Key) string    { return r.keyPrefix + key.String() + ":state" }
func (r *RedisService) messagesKey(key Key) string { return r.keyPrefix + key.String() + ":messages" }

// Get loads a session from Redis
func (r *RedisService) Get(ctx context.Context, key Key) (*Session, error) {
	n, err := r.client.Exists(ctx, r.metaKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to check session in Redis: %w", err)
	}
	if n == 0 {
		return nil, ErrSessionNotFound
	}

	rawState, err := r.client.HGetAll(ctx, r.stateKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get session state from Redis: %w", err)
	}
	values := make(map[string]any, len(rawState))
	for field, raw := range rawState {
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("failed to unmarshal state %q: %w", field, err)
		}
		values[field] = v
	}

	rawMessages, err := r.client.LRange(ctx, r.messagesKey(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get messages from Redis: %w", err)
	}
	messages := make([]interfaces.Message, 0, len(rawMessages))
	for _, raw := range rawMessages {
		var message interfaces.Message
		if err := json.Unmarshal([]byte(raw), &message); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		messages = append(messages, message)
	}

	s := newSession(key)
	s.state.load(values)
	s.messages = messages
	return s, nil
}

// Create creates a session marker in Redis. An existing session is loaded
// instead.
func (r *RedisService) Create(ctx context.Context, key Key) (*Session, error) {
	if key.SessionID == "" {
		key.SessionID = NewSessionID()
	}

	created, err := r.client.SetNX(ctx, r.metaKey(key), time.Now().UTC().Format(time.RFC3339), r.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to create session in Redis: %w", err)
	}
	if !created {
		return r.Get(ctx, key)
	}
	return newSession(key), nil
}

// Save writes state changes and new messages in one transaction and refreshes
// the TTL of every key of the session
func (r *RedisService) Save(ctx context.Context, s *Session) error {
	set, deleted := s.state.drain()
	messages := s.unsaved()

	fields := make(map[string]interface{}, len(set))
	for k, v := range set {
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to marshal state %q: %w", k, err)
		}
		fields[k] = string(b)
	}

	encoded := make([]interface{}, 0, len(messages))
	for _, m := range messages {
		b, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		encoded = append(encoded, string(b))
	}

	key := s.Key()
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(fields) > 0 {
			pipe.HSet(ctx, r.stateKey(key), fields)
		}
		if len(deleted) > 0 {
			pipe.HDel(ctx, r.stateKey(key), deleted...)
		}
		if len(encoded) > 0 {
			pipe.RPush(ctx, r.messagesKey(key), encoded...)
			if r.maxSize > 0 {
				pipe.LTrim(ctx, r.messagesKey(key), int64(-r.maxSize), -1)
			}
		}
		pipe.Expire(ctx, r.metaKey(key), r.ttl)
		pipe.Expire(ctx, r.stateKey(key), r.ttl)
		pipe.Expire(ctx, r.messagesKey(key), r.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session to Redis: %w", err)
	}

	s.trim(r.maxSize)
	return nil
}

// Delete removes every key of a session
func (r *RedisService) Delete(ctx context.Context, key Key) error {
	err := r.client.Del(ctx, r.metaKey(key), r.stateKey(key), r.messagesKey(key)).Err()
	if err != nil {
		return fmt.Errorf("failed to delete session in Redis: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection
func (r *RedisService) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

var _ Service = (*RedisService)(nil)
