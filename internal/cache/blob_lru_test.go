package cache

import (
	"bytes"
	"testing"
	"time"
)

func TestBlobLRUEntryLimit(t *testing.T) {
	c := NewBlobLRU(2, 0, time.Minute)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Get("a")
	c.Set("c", []byte("3"))

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected least recently used key to be evicted")
	}
	if value, ok := c.Get("a"); !ok || !bytes.Equal(value, []byte("1")) {
		t.Fatalf("expected recently read key to remain")
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
}

func TestBlobLRUByteLimit(t *testing.T) {
	c := NewBlobLRU(10, 10, time.Minute)
	c.Set("a", make([]byte, 4))
	c.Set("b", make([]byte, 4))
	c.Set("c", make([]byte, 4))

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected oldest key to be evicted over byte budget")
	}
	if c.Bytes() != 8 {
		t.Fatalf("bytes = %d, want 8", c.Bytes())
	}

	if c.Set("huge", make([]byte, 11)) {
		t.Fatalf("oversized value must be rejected")
	}
	if c.Bytes() != 8 || c.Len() != 2 {
		t.Fatalf("oversized value must not disturb cache: len=%d bytes=%d", c.Len(), c.Bytes())
	}
}

func TestBlobLRUReplaceTracksSize(t *testing.T) {
	c := NewBlobLRU(4, 0, time.Minute)
	c.Set("a", make([]byte, 10))
	c.Set("a", make([]byte, 3))
	if c.Bytes() != 3 || c.Len() != 1 {
		t.Fatalf("unexpected size after replace: len=%d bytes=%d", c.Len(), c.Bytes())
	}
}

func TestBlobLRUExpires(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewBlobLRU(2, 0, time.Minute)
	c.now = func() time.Time { return now }
	c.Set("a", []byte("pdf text"))

	now = now.Add(30 * time.Second)
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected entry before ttl")
	}
	now = now.Add(time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected entry to expire")
	}
	if c.Len() != 0 || c.Bytes() != 0 {
		t.Fatalf("expired entry must be removed")
	}
}
