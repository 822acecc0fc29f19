package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap/zaptest"
)

type sample struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func TestMemoryRoundtrip(t *testing.T) {
	m, err := NewMemory(8)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	ctx := context.Background()

	if err := m.Set(ctx, "k", sample{Name: "a", Score: 7}, 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got sample
	hit, err := m.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit {
		t.Fatal("Get miss, want hit")
	}
	if got.Name != "a" || got.Score != 7 {
		t.Errorf("got %+v", got)
	}
}

func TestMemoryMiss(t *testing.T) {
	m, err := NewMemory(8)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}

	var got sample
	hit, err := m.Get(context.Background(), "absent", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit {
		t.Error("Get hit on absent key")
	}
}

func TestMemoryTTLExpiry(t *testing.T) {
	m, err := NewMemory(8)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	ctx := context.Background()

	if err := m.Set(ctx, "k", sample{Name: "a"}, 10*time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(30 * time.Millisecond)

	var got sample
	hit, err := m.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit {
		t.Error("Get hit after TTL expiry")
	}
}

func TestMemoryEviction(t *testing.T) {
	m, err := NewMemory(2)
	if err != nil {
		t.Fatalf("NewMemory: %v", err)
	}
	ctx := context.Background()

	for _, k := range []string{"a", "b", "c"} {
		if err := m.Set(ctx, k, sample{Name: k}, 0); err != nil {
			t.Fatalf("Set %s: %v", k, err)
		}
	}

	var got sample
	hit, _ := m.Get(ctx, "a", &got)
	if hit {
		t.Error("oldest entry survived past capacity")
	}
}

func TestRedisRoundtrip(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr(), "", 0, 4, zaptest.NewLogger(t))
	defer r.Close()
	ctx := context.Background()

	if err := r.Ping(ctx); err != nil {
		t.Fatalf("Ping: %v", err)
	}
	if err := r.Set(ctx, "vt:https://example.com", sample{Name: "report", Score: 30}, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}

	var got sample
	hit, err := r.Get(ctx, "vt:https://example.com", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !hit {
		t.Fatal("Get miss, want hit")
	}
	if got.Score != 30 {
		t.Errorf("got %+v", got)
	}
}

func TestRedisMiss(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr(), "", 0, 4, zaptest.NewLogger(t))
	defer r.Close()

	var got sample
	hit, err := r.Get(context.Background(), "absent", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit {
		t.Error("Get hit on absent key")
	}
}

func TestRedisTTLExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	r := NewRedis(mr.Addr(), "", 0, 4, zaptest.NewLogger(t))
	defer r.Close()
	ctx := context.Background()

	if err := r.Set(ctx, "k", sample{Name: "a"}, time.Hour); err != nil {
		t.Fatalf("Set: %v", err)
	}
	mr.FastForward(2 * time.Hour)

	var got sample
	hit, err := r.Get(ctx, "k", &got)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if hit {
		t.Error("Get hit after TTL expiry")
	}
}
