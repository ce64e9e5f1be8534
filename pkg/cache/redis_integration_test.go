package cache

import (
	"context"
	"os"
	"testing"
	"time"
)

// TestRedisCache runs against a real server when SHEETFLOW_TEST_REDIS_URL is
// set, for example redis://localhost:6379/15.
func TestRedisCache(t *testing.T) {
	url := os.Getenv("SHEETFLOW_TEST_REDIS_URL")
	if url == "" {
		t.Skip("SHEETFLOW_TEST_REDIS_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := NewRedisCache(ctx, url)
	if err != nil {
		t.Fatalf("NewRedisCache error: %v", err)
	}
	defer c.Close()

	key := "sheetflow:test:" + Hash([]byte(t.Name()))
	t.Cleanup(func() { _ = c.Delete(context.Background(), key) })

	if _, hit, err := c.Get(ctx, key); err != nil || hit {
		t.Fatalf("Get before Set = hit %v, err %v", hit, err)
	}
	if err := c.Set(ctx, key, []byte("plan"), time.Minute); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	data, hit, err := c.Get(ctx, key)
	if err != nil || !hit || string(data) != "plan" {
		t.Fatalf("Get after Set = %q, hit %v, err %v", data, hit, err)
	}
	if err := c.Delete(ctx, key); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, hit, _ := c.Get(ctx, key); hit {
		t.Error("Get after Delete should miss")
	}
}

func TestNewRedisCache_BadURL(t *testing.T) {
	if _, err := NewRedisCache(context.Background(), "not-a-url://"); err == nil {
		t.Error("NewRedisCache should reject malformed urls")
	}
}
