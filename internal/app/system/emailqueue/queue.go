// Package emailqueue hands rendered emails to the mail sender through a
// Redis list.
//
// This service only produces: Enqueue is called by the draw fanout and Len
// feeds /health. The sender is a separate process that drains the list
// with Dequeue.
package emailqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/giftbubble/internal/app/system/mailer"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	// DefaultKey is the list the sender consumes.
	DefaultKey = "giftbubble:email:outbox"

	dedupePrefix = "giftbubble:email:dedupe:"
	dedupeTTL    = 7 * 24 * time.Hour
)

var (
	// ErrDuplicate is returned when a message with the same dedupe key was
	// already queued.
	ErrDuplicate = errors.New("email already queued")
	// ErrEmpty is returned by Dequeue when nothing is waiting.
	ErrEmpty = errors.New("email queue is empty")
)

// Message is one queued email.
type Message struct {
	ID         string       `json:"id"`
	DedupeKey  string       `json:"dedupe_key,omitempty"`
	Email      mailer.Email `json:"email"`
	EnqueuedAt time.Time    `json:"enqueued_at"`
}

// Config holds configuration for the queue.
type Config struct {
	RedisClient *redis.Client
	// Key overrides DefaultKey.
	Key string
}

// Queue is a FIFO of emails: LPUSH to enqueue, RPOP to dequeue.
type Queue struct {
	client *redis.Client
	key    string
}

// New creates a Queue. It does not ping Redis; use Ping for health checks.
func New(cfg *Config) (*Queue, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if cfg.RedisClient == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	key := cfg.Key
	if key == "" {
		key = DefaultKey
	}
	return &Queue{client: cfg.RedisClient, key: key}, nil
}

// Enqueue queues e and returns the message id. A non-empty dedupeKey makes
// the call idempotent: a second Enqueue with the same key returns
// ErrDuplicate and queues nothing.
func (q *Queue) Enqueue(ctx context.Context, e mailer.Email, dedupeKey string) (string, error) {
	if e.To == "" {
		return "", errors.New("email has no recipient")
	}

	msg := Message{
		ID:         uuid.NewString(),
		DedupeKey:  dedupeKey,
		Email:      e,
		EnqueuedAt: time.Now().UTC(),
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("failed to marshal email: %w", err)
	}

	if dedupeKey != "" {
		ok, err := q.client.SetNX(ctx, dedupePrefix+dedupeKey, msg.ID, dedupeTTL).Result()
		if err != nil {
			return "", fmt.Errorf("failed to reserve dedupe key: %w", err)
		}
		if !ok {
			return "", ErrDuplicate
		}
	}

	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		if dedupeKey != "" {
			// Free the key so a retry can queue the message.
			q.client.Del(context.WithoutCancel(ctx), dedupePrefix+dedupeKey)
		}
		return "", fmt.Errorf("failed to queue email: %w", err)
	}
	return msg.ID, nil
}

// Dequeue removes and returns the oldest message.
func (q *Queue) Dequeue(ctx context.Context) (Message, error) {
	raw, err := q.client.RPop(ctx, q.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return Message{}, ErrEmpty
	}
	if err != nil {
		return Message{}, fmt.Errorf("failed to dequeue email: %w", err)
	}
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Message{}, fmt.Errorf("failed to unmarshal email: %w", err)
	}
	return msg, nil
}

// Len returns the number of waiting messages.
func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.key).Result()
}

// Ping checks Redis connectivity.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}
