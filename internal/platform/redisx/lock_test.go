package redisx

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestLockerExcludesSecondHolder(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("set REDIS_TEST_ADDR to run redis lock tests")
	}
	ctx := context.Background()
	rdb, err := NewClient(ctx, addr, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	l := NewLocker(rdb, "test:lock:", 5*time.Second)
	key := uuid.NewString()
	release, err := l.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 150*time.Millisecond)
	defer cancel()
	if _, err := l.Acquire(waitCtx, key); !errors.Is(err, ErrLockHeld) {
		t.Fatalf("second Acquire: want ErrLockHeld got %v", err)
	}

	release()
	release2, err := l.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("Acquire after release: %v", err)
	}
	release2()
}

func TestNilLockerIsNoop(t *testing.T) {
	var l *Locker
	release, err := l.Acquire(context.Background(), "k")
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	release()
}
