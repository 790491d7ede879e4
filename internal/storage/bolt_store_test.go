package storage

import (
	"testing"
	"time"
)

func TestBoltStoreMarksAndExpiresOpportunities(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		OpportunityTTL:  1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(dir+"/opportunities.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	key := "Liverpool vs Chelsea|match_odds"

	seen, err := store.SeenOpportunity(key)
	if err != nil || seen {
		t.Fatalf("expected unseen opportunity, seen=%v err=%v", seen, err)
	}

	if err := store.MarkOpportunity(key); err != nil {
		t.Fatalf("MarkOpportunity: %v", err)
	}

	seen, err = store.SeenOpportunity(key)
	if err != nil || !seen {
		t.Fatalf("expected opportunity marked as seen, got seen=%v err=%v", seen, err)
	}

	// Fast-forward cleanup cadence and trigger expiry.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	seen, err = store.SeenOpportunity(key)
	if err != nil {
		t.Fatalf("SeenOpportunity after expiry: %v", err)
	}
	if seen {
		t.Fatalf("expected entry to expire and be removed")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()

	if err := store.MarkOpportunity("k"); err != nil {
		t.Fatalf("noop MarkOpportunity: %v", err)
	}
	seen, err := store.SeenOpportunity("k")
	if err != nil || seen {
		t.Fatalf("noop store should never report seen, got seen=%v err=%v", seen, err)
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("etcd", "", Options{}); err == nil {
		t.Fatal("expected error for unsupported storage type")
	}
}

func TestNewStoreRequiresPathForBBolt(t *testing.T) {
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatal("expected error for missing bbolt path")
	}
}
