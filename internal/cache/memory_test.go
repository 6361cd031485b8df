package cache

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prospectio/prospect/internal/domain"
)

func TestMemory_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	if _, err := c.Get(ctx, "k"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("Get = %q, want %q", got, "v")
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("expected miss after delete, got %v", err)
	}
}

func TestMemory_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	now := time.Now()
	c.now = func() time.Time { return now }

	if err := c.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("Set: %v", err)
	}

	now = now.Add(30 * time.Second)
	if _, err := c.Get(ctx, "k"); err != nil {
		t.Fatalf("entry should still be live: %v", err)
	}

	now = now.Add(31 * time.Second)
	if _, err := c.Get(ctx, "k"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("expected miss after TTL, got %v", err)
	}
}

func TestGetOrPopulate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	calls := 0
	compute := func(context.Context) ([]byte, error) {
		calls++
		return []byte("computed"), nil
	}

	got, err := GetOrPopulate(ctx, c, "k", time.Minute, compute)
	if err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	if string(got) != "computed" || calls != 1 {
		t.Fatalf("first call: got %q calls %d", got, calls)
	}

	got, err = GetOrPopulate(ctx, c, "k", time.Minute, compute)
	if err != nil {
		t.Fatalf("GetOrPopulate: %v", err)
	}
	if string(got) != "computed" || calls != 1 {
		t.Errorf("second call should hit cache: got %q calls %d", got, calls)
	}
}

func TestGetOrPopulate_ComputeError(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	wantErr := fmt.Errorf("backend down")
	_, err := GetOrPopulate(ctx, c, "k", time.Minute, func(context.Context) ([]byte, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected compute error, got %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Error("failed compute must not populate the cache")
	}
}
