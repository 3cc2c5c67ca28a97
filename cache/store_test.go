package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type record struct {
	Title string
}

func TestNewStore(t *testing.T) {
	store := NewStore[string]("metadata", time.Minute)

	if store.Name() != "metadata" {
		t.Errorf("Expected name %q, got %q", "metadata", store.Name())
	}
	if store.TTL() != time.Minute {
		t.Errorf("Expected TTL 1m, got %v", store.TTL())
	}
	if store.Len() != 0 {
		t.Errorf("Expected empty store, got %d entries", store.Len())
	}
}

func TestNewStore_DefaultTTL(t *testing.T) {
	store := NewStore[string]("audio", 0)

	if store.TTL() != DefaultTTL {
		t.Errorf("Expected default TTL %v, got %v", DefaultTTL, store.TTL())
	}
}

func TestPutAndGet(t *testing.T) {
	store := NewStore[*record]("metadata", time.Minute)

	store.Put("abc123", &record{Title: "Lecture"}, 0)

	got, found := store.Get("abc123")
	if !found {
		t.Fatal("Expected to find the key, but it was not found")
	}
	if got.Title != "Lecture" {
		t.Errorf("Expected title %q, got %q", "Lecture", got.Title)
	}
}

func TestGetNonExistentKey(t *testing.T) {
	store := NewStore[string]("audio", time.Minute)

	if _, found := store.Get("missing"); found {
		t.Error("Expected not to find non-existent key")
	}
}

func TestGetExpiredEntry(t *testing.T) {
	store := NewStore[string]("audio", time.Minute)

	store.Put("abc123", "https://stream.example/a", 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, found := store.Get("abc123"); found {
		t.Error("Expected expired entry to be treated as absent")
	}
	// Expired entries stay in storage until replaced
	if store.Len() != 1 {
		t.Errorf("Expected expired entry to remain stored, got %d entries", store.Len())
	}
}

func TestPutReplacesEntry(t *testing.T) {
	store := NewStore[string]("audio", time.Minute)

	store.Put("abc123", "first", 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	store.Put("abc123", "second", 0)

	got, found := store.Get("abc123")
	if !found {
		t.Fatal("Expected refreshed entry to be found")
	}
	if got != "second" {
		t.Errorf("Expected %q, got %q", "second", got)
	}
}

func TestSnapshotSkipsExpired(t *testing.T) {
	store := NewStore[string]("audio", time.Minute)

	store.Put("live", "a", 0)
	store.Put("stale", "b", 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	snapshot := store.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("Expected 1 live entry, got %d", len(snapshot))
	}
	entry, ok := snapshot["live"]
	if !ok {
		t.Fatal("Expected live entry in snapshot")
	}
	if entry.Value != "a" {
		t.Errorf("Expected value %q, got %q", "a", entry.Value)
	}
	if !entry.ExpiresAt.After(time.Now()) {
		t.Errorf("Expected expiry in the future, got %v", entry.ExpiresAt)
	}
}

func TestDeleteAndFlush(t *testing.T) {
	store := NewStore[string]("audio", time.Minute)

	store.Put("a", "1", 0)
	store.Put("b", "2", 0)
	store.Delete("a")

	if _, found := store.Get("a"); found {
		t.Error("Expected deleted key to be absent")
	}

	store.Flush()
	if store.Len() != 0 {
		t.Errorf("Expected empty store after flush, got %d entries", store.Len())
	}
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore[string]("audio", time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			store.Put(fmt.Sprintf("key%d", n%5), fmt.Sprintf("value%d", n), 0)
		}(i)
		go func(n int) {
			defer wg.Done()
			store.Get(fmt.Sprintf("key%d", n%5))
		}(i)
	}
	wg.Wait()

	if store.Len() != 5 {
		t.Errorf("Expected 5 keys, got %d", store.Len())
	}
}
