package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/compozy/docrag/engine/infra/cache"
	"github.com/compozy/docrag/engine/llm"
	appconfig "github.com/compozy/docrag/pkg/config"
)

const (
	DriverMemory = "memory"
	DriverRedis  = "redis"

	DefaultMaxMessages = 20
	DefaultTTL         = time.Hour
	DefaultPrefix      = "chat:memory:"
)

var (
	ErrInvalidSession = errors.New("session id is required")
	ErrInvalidMessage = errors.New("invalid message format in store")
)

// Store keeps a bounded, ordered window of messages per session.
// Appending past the window drops the oldest messages first.
type Store interface {
	Read(ctx context.Context, sessionID string) ([]llm.Message, error)
	Append(ctx context.Context, sessionID string, msgs ...llm.Message) error
	Replace(ctx context.Context, sessionID string, msgs []llm.Message) error
	Delete(ctx context.Context, sessionID string) error
}

// Options configures a store. Zero values fall back to the defaults.
type Options struct {
	MaxMessages int
	TTL         time.Duration
	Prefix      string
}

func (o Options) withDefaults() Options {
	if o.MaxMessages <= 0 {
		o.MaxMessages = DefaultMaxMessages
	}
	if o.TTL < 0 {
		o.TTL = 0
	}
	if o.Prefix == "" {
		o.Prefix = DefaultPrefix
	}
	return o
}

// OptionsFrom maps the memory config section.
func OptionsFrom(cfg *appconfig.MemoryConfig) Options {
	return Options{MaxMessages: cfg.MaxMessages, TTL: cfg.TTL, Prefix: cfg.Prefix}
}

// NewStore builds the store selected by cfg.Driver. The redis driver needs a client.
func NewStore(cfg *appconfig.MemoryConfig, client cache.RedisInterface) (Store, error) {
	opts := OptionsFrom(cfg)
	switch cfg.Driver {
	case "", DriverMemory:
		return NewInMemoryStore(opts), nil
	case DriverRedis:
		if client == nil {
			return nil, fmt.Errorf("memory driver %q requires a redis connection", cfg.Driver)
		}
		return NewRedisStore(client, opts), nil
	default:
		return nil, fmt.Errorf("memory driver %q is not supported", cfg.Driver)
	}
}

func validSession(sessionID string) (string, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return "", ErrInvalidSession
	}
	return id, nil
}

// window returns the newest limit messages.
func window(msgs []llm.Message, limit int) []llm.Message {
	if limit > 0 && len(msgs) > limit {
		return msgs[len(msgs)-limit:]
	}
	return msgs
}
