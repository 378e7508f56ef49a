package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T, opts Options) *boltStore {
	t.Helper()
	raw, err := openBolt(filepath.Join(t.TempDir(), "nested", "snapshots.db"), normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := raw.(*boltStore)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreKeepsLastDigestPerSource(t *testing.T) {
	store := openTestStore(t, Options{TTL: time.Minute, CleanupInterval: time.Hour})
	clock := time.Now()
	store.now = func() time.Time { return clock }

	if _, found, err := store.LastDigest("live"); err != nil || found {
		t.Fatalf("expected no digest, found=%v err=%v", found, err)
	}

	for _, digest := range []string{"aaa", "bbb", "aaa"} {
		if err := store.SaveDigest("live", digest); err != nil {
			t.Fatalf("SaveDigest %s: %v", digest, err)
		}
		got, found, err := store.LastDigest("live")
		if err != nil || !found || got != digest {
			t.Fatalf("expected %s, got %q found=%v err=%v", digest, got, found, err)
		}
	}
	if err := store.SaveDigest("locations", "ccc"); err != nil {
		t.Fatalf("SaveDigest locations: %v", err)
	}
	if got, _, _ := store.LastDigest("live"); got != "aaa" {
		t.Fatalf("sources must not share digests, got %q", got)
	}

	clock = clock.Add(2 * time.Minute)
	if _, found, err := store.LastDigest("live"); err != nil || found {
		t.Fatalf("expected digest to expire, found=%v err=%v", found, err)
	}
}

func TestBoltStoreCleanupSweepsExpired(t *testing.T) {
	store := openTestStore(t, Options{TTL: time.Minute, CleanupInterval: 10 * time.Minute})
	clock := time.Now()
	store.now = func() time.Time { return clock }

	for _, id := range []string{"a", "b", "c"} {
		if err := store.SaveDigest(id, "digest-"+id); err != nil {
			t.Fatalf("SaveDigest %s: %v", id, err)
		}
	}

	clock = clock.Add(11 * time.Minute)
	if err := store.SaveDigest("fresh", "digest-fresh"); err != nil {
		t.Fatalf("SaveDigest fresh: %v", err)
	}

	n, err := store.count()
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected only the fresh key after sweep, got %d", n)
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.SaveDigest("x", "abc"); err != nil {
		t.Fatalf("noop store SaveDigest: %v", err)
	}
	if _, found, _ := store.LastDigest("x"); found {
		t.Fatalf("noop store must never report a digest")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing bbolt path")
	}
}
