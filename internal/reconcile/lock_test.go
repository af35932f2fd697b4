package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisLocker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client)
	ctx := context.Background()

	unlock, ok, err := locker.TryLock(ctx, LockKey, time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected first lock, got ok=%v err=%v", ok, err)
	}
	if _, ok, _ := locker.TryLock(ctx, LockKey, time.Minute); ok {
		t.Fatal("second holder must be rejected")
	}

	unlock()
	if mr.Exists(LockKey) {
		t.Fatal("unlock must delete the key")
	}
	if _, ok, _ := locker.TryLock(ctx, LockKey, time.Minute); !ok {
		t.Fatal("lock must be free after unlock")
	}
}

func TestRedisLockerDoesNotReleaseSuccessor(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	locker := NewRedisLocker(client)
	ctx := context.Background()

	staleUnlock, ok, _ := locker.TryLock(ctx, LockKey, time.Second)
	if !ok {
		t.Fatal("expected lock")
	}
	mr.FastForward(2 * time.Second)

	if _, ok, _ := locker.TryLock(ctx, LockKey, time.Minute); !ok {
		t.Fatal("expired lease must be reclaimable")
	}
	staleUnlock()
	if !mr.Exists(LockKey) {
		t.Fatal("stale holder released the successor's lock")
	}
}
