package emailqueue

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/giftbubble/internal/app/system/mailer"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"
)

type QueueTestSuite struct {
	suite.Suite
	mr     *miniredis.Miniredis
	client *redis.Client
	queue  *Queue
}

func (s *QueueTestSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	s.client = redis.NewClient(&redis.Options{Addr: s.mr.Addr()})

	q, err := New(&Config{RedisClient: s.client})
	s.Require().NoError(err)
	s.queue = q
}

func (s *QueueTestSuite) TearDownTest() {
	s.client.Close()
	s.mr.Close()
}

func TestQueueTestSuite(t *testing.T) {
	suite.Run(t, new(QueueTestSuite))
}

func email(to string) mailer.Email {
	return mailer.Email{To: to, Subject: "hi", TextBody: "body", Locale: "en"}
}

func (s *QueueTestSuite) TestEnqueueDequeueFIFO() {
	ctx := context.Background()

	id1, err := s.queue.Enqueue(ctx, email("a@example.com"), "")
	s.Require().NoError(err)
	id2, err := s.queue.Enqueue(ctx, email("b@example.com"), "")
	s.Require().NoError(err)
	s.NotEqual(id1, id2)

	n, err := s.queue.Len(ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	first, err := s.queue.Dequeue(ctx)
	s.Require().NoError(err)
	s.Equal(id1, first.ID)
	s.Equal("a@example.com", first.Email.To)
	s.False(first.EnqueuedAt.IsZero())

	second, err := s.queue.Dequeue(ctx)
	s.Require().NoError(err)
	s.Equal(id2, second.ID)

	_, err = s.queue.Dequeue(ctx)
	s.ErrorIs(err, ErrEmpty)
}

func (s *QueueTestSuite) TestEnqueueDedupe() {
	ctx := context.Background()

	_, err := s.queue.Enqueue(ctx, email("a@example.com"), "draw-1:giver-1")
	s.Require().NoError(err)
	_, err = s.queue.Enqueue(ctx, email("a@example.com"), "draw-1:giver-1")
	s.ErrorIs(err, ErrDuplicate)

	n, err := s.queue.Len(ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	s.True(s.mr.Exists(dedupePrefix + "draw-1:giver-1"))
	s.Greater(s.mr.TTL(dedupePrefix+"draw-1:giver-1"), time.Duration(0))
}

func (s *QueueTestSuite) TestEnqueueRequiresRecipient() {
	_, err := s.queue.Enqueue(context.Background(), email(""), "")
	s.Error(err)
}

func (s *QueueTestSuite) TestCustomKey() {
	q, err := New(&Config{RedisClient: s.client, Key: "custom"})
	s.Require().NoError(err)

	_, err = q.Enqueue(context.Background(), email("a@example.com"), "")
	s.Require().NoError(err)
	s.True(s.mr.Exists("custom"))
	s.False(s.mr.Exists(DefaultKey))
}

func (s *QueueTestSuite) TestRedisDown() {
	down, err := miniredis.Run()
	s.Require().NoError(err)
	addr := down.Addr()
	down.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer client.Close()
	q, err := New(&Config{RedisClient: client})
	s.Require().NoError(err)

	_, err = q.Enqueue(context.Background(), email("a@example.com"), "k")
	s.Error(err)
	s.Error(q.Ping(context.Background()))
}

func TestNew_Validation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Error("expected error for nil config")
	}
	if _, err := New(&Config{}); err == nil {
		t.Error("expected error for nil client")
	}
}
