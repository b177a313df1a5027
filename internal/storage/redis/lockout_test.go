package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestRecordFailure_LocksAtThreshold(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewLockoutStorage(client)
	ctx := context.Background()

	for i := 1; i < 3; i++ {
		n, locked, err := s.RecordFailure(ctx, "login", "user_a", 3, time.Minute, time.Hour)
		if err != nil {
			t.Fatalf("RecordFailure failed: %v", err)
		}
		if n != i || locked {
			t.Fatalf("attempt %d: expected count %d unlocked, got %d locked=%v", i, i, n, locked)
		}
	}

	n, locked, err := s.RecordFailure(ctx, "login", "user_a", 3, time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("RecordFailure failed: %v", err)
	}
	if n != 3 || !locked {
		t.Fatalf("expected count 3 and lock, got %d locked=%v", n, locked)
	}
	if mr.Exists(counterKey("login", "user_a")) {
		t.Fatal("expected counter to be cleared after lock")
	}
	if ttl := mr.TTL(lockKey("login", "user_a")); ttl != time.Hour {
		t.Fatalf("expected lock ttl 1h, got %v", ttl)
	}

	count, lockTTL, err := s.LockoutState(ctx, "login", "user_a")
	if err != nil {
		t.Fatalf("LockoutState failed: %v", err)
	}
	if count != 0 || lockTTL <= 0 {
		t.Fatalf("expected locked state with zero counter, got count=%d ttl=%v", count, lockTTL)
	}
}

func TestRecordFailure_DoesNotCountWhileLocked(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewLockoutStorage(client)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		s.RecordFailure(ctx, "comment", "7", 2, time.Minute, 5*time.Minute)
	}
	mr.FastForward(time.Minute)

	n, locked, err := s.RecordFailure(ctx, "comment", "7", 2, time.Minute, 5*time.Minute)
	if err != nil || !locked || n != 0 {
		t.Fatalf("expected locked result with nothing counted, got n=%d locked=%v err=%v", n, locked, err)
	}
	if mr.Exists(counterKey("comment", "7")) {
		t.Fatal("counter must not be recreated while locked")
	}
	if ttl := mr.TTL(lockKey("comment", "7")); ttl != 4*time.Minute {
		t.Fatalf("lock ttl must not be extended, got %v", ttl)
	}
}

func TestRecordFailure_RefreshesCounterTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewLockoutStorage(client)
	ctx := context.Background()

	s.RecordFailure(ctx, "publish", "1", 5, 5*time.Minute, 5*time.Minute)
	mr.FastForward(4 * time.Minute)
	s.RecordFailure(ctx, "publish", "1", 5, 5*time.Minute, 5*time.Minute)

	if ttl := mr.TTL(counterKey("publish", "1")); ttl != 5*time.Minute {
		t.Fatalf("expected counter ttl refreshed to 5m, got %v", ttl)
	}
}

func TestLockoutState_NamespacesAreIsolated(t *testing.T) {
	_, client := newTestRedis(t)
	s := NewLockoutStorage(client)
	ctx := context.Background()

	s.RecordFailure(ctx, "comment", "9", 5, time.Minute, time.Minute)
	s.RecordFailure(ctx, "comment", "9", 5, time.Minute, time.Minute)

	count, _, err := s.LockoutState(ctx, "publish", "9")
	if err != nil {
		t.Fatalf("LockoutState failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected publish counter untouched, got %d", count)
	}

	count, _, _ = s.LockoutState(ctx, "comment", "9")
	if count != 2 {
		t.Fatalf("expected comment counter 2, got %d", count)
	}
}

func TestClearLockout(t *testing.T) {
	mr, client := newTestRedis(t)
	s := NewLockoutStorage(client)
	ctx := context.Background()

	s.RecordFailure(ctx, "login", "ip_1.2.3.4", 1, time.Minute, time.Hour)
	if err := s.ClearLockout(ctx, "login", "ip_1.2.3.4"); err != nil {
		t.Fatalf("ClearLockout failed: %v", err)
	}
	if mr.Exists(lockKey("login", "ip_1.2.3.4")) {
		t.Fatal("expected lock to be removed")
	}
}
