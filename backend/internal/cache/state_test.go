package cache

import (
	"context"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:6379"})
	// 若 Redis 未启动则跳过
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("skip: redis not available: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestStateRoundTrip(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	c := NewRedisState(rdb)
	sessionID := "test-" + time.Now().Format("150405.000000")
	t.Cleanup(func() {
		rdb.Del(ctx, stateKey(sessionID))
		rdb.SRem(ctx, sessionsKey(), sessionID)
	})

	if _, err := c.GetState(ctx, sessionID); err != ErrStateNotFound {
		t.Fatalf("expected ErrStateNotFound, got %v", err)
	}

	want := `{"cursorPos":2,"docLength":3}`
	if err := c.SetState(ctx, sessionID, []byte(want), time.Minute); err != nil {
		t.Fatalf("SetState error: %v", err)
	}
	got, err := c.GetState(ctx, sessionID)
	if err != nil {
		t.Fatalf("GetState error: %v", err)
	}
	if string(got) != want {
		t.Fatalf("expected %s, got %s", want, got)
	}

	ttl, err := rdb.TTL(ctx, stateKey(sessionID)).Result()
	if err != nil {
		t.Fatalf("TTL error: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %v", ttl)
	}

	sessions, err := c.GetSessions(ctx)
	if err != nil {
		t.Fatalf("GetSessions error: %v", err)
	}
	found := false
	for _, s := range sessions {
		if s == sessionID {
			found = true
		}
	}
	if !found {
		t.Fatalf("session %s missing from %v", sessionID, sessions)
	}
}

func TestGetSessionsDropsExpired(t *testing.T) {
	rdb := newTestRedis(t)
	ctx := context.Background()
	c := NewRedisState(rdb)
	sessionID := "expired-" + time.Now().Format("150405.000000")
	t.Cleanup(func() { rdb.SRem(ctx, sessionsKey(), sessionID) })

	// 只有索引没有快照
	if err := rdb.SAdd(ctx, sessionsKey(), sessionID).Err(); err != nil {
		t.Fatalf("SAdd error: %v", err)
	}
	sessions, err := c.GetSessions(ctx)
	if err != nil {
		t.Fatalf("GetSessions error: %v", err)
	}
	for _, s := range sessions {
		if s == sessionID {
			t.Fatalf("expired session %s should be dropped", sessionID)
		}
	}
	ok, err := rdb.SIsMember(ctx, sessionsKey(), sessionID).Result()
	if err != nil {
		t.Fatalf("SIsMember error: %v", err)
	}
	if ok {
		t.Fatalf("expired session should be removed from the index")
	}
}

func TestKeys(t *testing.T) {
	if got := stateKey("abc"); got != "fuzz:state:{session:abc}" {
		t.Fatalf("stateKey = %q", got)
	}
}
