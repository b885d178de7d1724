package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/giftbubble/internal/app/features/health"
	"github.com/dalemusser/giftbubble/internal/app/system/emailqueue"
	"github.com/dalemusser/giftbubble/internal/app/system/mailer"
	"github.com/dalemusser/giftbubble/internal/testutil"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	up   = pingFunc(func(context.Context) error { return nil })
	down = pingFunc(func(context.Context) error { return errors.New("unreachable") })
)

type body struct {
	Status     string `json:"status"`
	Database   string `json:"database"`
	Queue      string `json:"queue"`
	QueueDepth *int64 `json:"queueDepth"`
}

func serve(t *testing.T, h *health.Handler) (int, body) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.Serve(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q", ct)
	}
	var b body
	if err := json.Unmarshal(rec.Body.Bytes(), &b); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	return rec.Code, b
}

func TestServe(t *testing.T) {
	tests := []struct {
		name     string
		db       health.Pinger
		queue    health.Pinger
		code     int
		status   string
		database string
		queueSt  string
	}{
		{"all up", up, up, http.StatusOK, "ok", "connected", "connected"},
		{"no queue configured", up, nil, http.StatusOK, "ok", "connected", ""},
		{"queue down", up, down, http.StatusOK, "degraded", "connected", "disconnected"},
		{"db down", down, up, http.StatusServiceUnavailable, "error", "disconnected", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, b := serve(t, health.NewHandler(tc.db, tc.queue, zap.NewNop()))
			if code != tc.code {
				t.Errorf("code: got %d, want %d", code, tc.code)
			}
			if b.Status != tc.status || b.Database != tc.database || b.Queue != tc.queueSt {
				t.Errorf("body: got %+v", b)
			}
		})
	}
}

func TestServe_RealMongo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	code, b := serve(t, health.NewHandler(health.MongoPinger{Client: db.Client()}, nil, zap.NewNop()))
	if code != http.StatusOK || b.Database != "connected" {
		t.Errorf("got %d %+v", code, b)
	}
}

func TestServe_ReportsQueueDepth(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	q, err := emailqueue.New(&emailqueue.Config{RedisClient: client})
	if err != nil {
		t.Fatalf("emailqueue.New failed: %v", err)
	}
	for _, key := range []string{"a", "b"} {
		if _, err := q.Enqueue(context.Background(), mailer.Email{To: key + "@example.com"}, key); err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
	}

	code, b := serve(t, health.NewHandler(up, q, zap.NewNop()))
	if code != http.StatusOK || b.Queue != "connected" {
		t.Fatalf("got %d %+v", code, b)
	}
	if b.QueueDepth == nil || *b.QueueDepth != 2 {
		t.Errorf("queueDepth: got %v, want 2", b.QueueDepth)
	}
}
