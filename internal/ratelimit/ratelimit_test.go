package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryLimiterEnforcesLimit(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute)
	now := time.Unix(1_700_000_100, 0)

	for i := 0; i < 3; i++ {
		res, errAllow := limiter.Allow(context.Background(), "josh:127.0.0.1", 3, now)
		if errAllow != nil {
			t.Fatalf("Allow #%d: %v", i, errAllow)
		}
		if !res.Allowed {
			t.Fatalf("Allow #%d: expected allowed", i)
		}
		if res.Remaining != 3-i-1 {
			t.Fatalf("Allow #%d: expected remaining %d, got %d", i, 3-i-1, res.Remaining)
		}
	}

	res, errAllow := limiter.Allow(context.Background(), "josh:127.0.0.1", 3, now)
	if errAllow != nil {
		t.Fatalf("Allow over limit: %v", errAllow)
	}
	if res.Allowed {
		t.Fatalf("expected denial past the limit")
	}
	if !res.Reset.After(now) {
		t.Fatalf("expected reset after now, got %s", res.Reset)
	}
}

func TestMemoryLimiterWindowRollover(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute)
	now := time.Unix(1_700_000_100, 0)

	if res, _ := limiter.Allow(context.Background(), "k", 1, now); !res.Allowed {
		t.Fatalf("first attempt should pass")
	}
	if res, _ := limiter.Allow(context.Background(), "k", 1, now); res.Allowed {
		t.Fatalf("second attempt in same window should fail")
	}
	later := now.Add(time.Minute)
	if res, _ := limiter.Allow(context.Background(), "k", 1, later); !res.Allowed {
		t.Fatalf("attempt in next window should pass")
	}
}

func TestMemoryLimiterDisabled(t *testing.T) {
	limiter := NewMemoryLimiter(time.Minute)
	res, errAllow := limiter.Allow(context.Background(), "k", 0, time.Now())
	if errAllow != nil {
		t.Fatalf("Allow: %v", errAllow)
	}
	if !res.Allowed {
		t.Fatalf("zero limit should disable limiting")
	}
}
