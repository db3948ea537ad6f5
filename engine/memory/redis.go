package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/compozy/docrag/engine/infra/cache"
	"github.com/compozy/docrag/engine/llm"
)

// KEYS[1] list key. ARGV[1] window size, ARGV[2] ttl in ms (0 leaves it unset), ARGV[3..] messages.
var appendAndTrimScript = redis.NewScript(`
	for i = 3, #ARGV do
		redis.call('RPUSH', KEYS[1], ARGV[i])
	end
	local n = tonumber(ARGV[1])
	if n > 0 then
		redis.call('LTRIM', KEYS[1], -n, -1)
	end
	local ttl = tonumber(ARGV[2])
	if ttl > 0 then
		redis.call('PEXPIRE', KEYS[1], ttl)
	end
	return redis.call('LLEN', KEYS[1])
`)

// KEYS[1] list key. ARGV[1] ttl in ms, ARGV[2..] messages.
var replaceAndSetTTLScript = redis.NewScript(`
	redis.call('DEL', KEYS[1])
	for i = 2, #ARGV do
		redis.call('RPUSH', KEYS[1], ARGV[i])
	end
	local ttl = tonumber(ARGV[1])
	if ttl > 0 and #ARGV > 1 then
		redis.call('PEXPIRE', KEYS[1], ttl)
	end
	return #ARGV - 1
`)

// RedisStore keeps each session as a list of JSON messages under prefix+sessionID.
// Every write refreshes the TTL.
type RedisStore struct {
	client cache.RedisInterface
	opts   Options
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(client cache.RedisInterface, opts Options) *RedisStore {
	return &RedisStore{client: client, opts: opts.withDefaults()}
}

func (s *RedisStore) key(sessionID string) string {
	return s.opts.Prefix + sessionID
}

func (s *RedisStore) Read(ctx context.Context, sessionID string) ([]llm.Message, error) {
	id, err := validSession(sessionID)
	if err != nil {
		return nil, err
	}
	raw, err := s.client.LRange(ctx, s.key(id), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading session %q: %w", id, err)
	}
	msgs := make([]llm.Message, 0, len(raw))
	for _, item := range raw {
		var msg llm.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			return nil, fmt.Errorf("%w: session %q: %w", ErrInvalidMessage, id, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, msgs ...llm.Message) error {
	id, err := validSession(sessionID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	args, err := encodeMessages(msgs, s.opts.MaxMessages, s.opts.TTL.Milliseconds())
	if err != nil {
		return err
	}
	if err := appendAndTrimScript.Run(ctx, s.client, []string{s.key(id)}, args...).Err(); err != nil {
		return fmt.Errorf("appending to session %q: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Replace(ctx context.Context, sessionID string, msgs []llm.Message) error {
	id, err := validSession(sessionID)
	if err != nil {
		return err
	}
	args, err := encodeMessages(window(msgs, s.opts.MaxMessages), s.opts.TTL.Milliseconds())
	if err != nil {
		return err
	}
	if err := replaceAndSetTTLScript.Run(ctx, s.client, []string{s.key(id)}, args...).Err(); err != nil {
		return fmt.Errorf("replacing session %q: %w", id, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	id, err := validSession(sessionID)
	if err != nil {
		return err
	}
	if err := s.client.Del(ctx, s.key(id)).Err(); err != nil {
		return fmt.Errorf("deleting session %q: %w", id, err)
	}
	return nil
}

func encodeMessages(msgs []llm.Message, lead ...any) ([]any, error) {
	args := make([]any, 0, len(lead)+len(msgs))
	args = append(args, lead...)
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return nil, fmt.Errorf("encoding message: %w", err)
		}
		args = append(args, string(data))
	}
	return args, nil
}
