package storage

import (
	"path/filepath"
	"testing"
	"time"
)

func openEmptyDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDB_TreeCache(t *testing.T) {
	db := openEmptyDB(t)
	now := time.Unix(1_700_000_000, 0)

	if _, ok, err := db.GetCachedTree("graph:abc", time.Hour, now); err != nil || ok {
		t.Fatalf("GetCachedTree() on empty = ok %v, err %v", ok, err)
	}

	if err := db.PutCachedTree("graph:abc", []byte(`{"nodes":[]}`), now); err != nil {
		t.Fatalf("PutCachedTree() error = %v", err)
	}

	tests := []struct {
		name   string
		ttl    time.Duration
		at     time.Time
		wantOK bool
	}{
		{"fresh", time.Hour, now.Add(30 * time.Minute), true},
		{"expired", time.Hour, now.Add(time.Hour), false},
		{"no expiry", 0, now.Add(24 * time.Hour), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, ok, err := db.GetCachedTree("graph:abc", tt.ttl, tt.at)
			if err != nil {
				t.Fatalf("GetCachedTree() error = %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("GetCachedTree() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && string(payload) != `{"nodes":[]}` {
				t.Errorf("payload = %s", payload)
			}
		})
	}
}

func TestDB_TreeCache_ReplaceAndPurge(t *testing.T) {
	db := openEmptyDB(t)
	t0 := time.Unix(1_700_000_000, 0)

	db.PutCachedTree("old", []byte("1"), t0)
	db.PutCachedTree("new", []byte("2"), t0.Add(2*time.Hour))
	db.PutCachedTree("new", []byte("3"), t0.Add(2*time.Hour))

	n, _ := db.CountCachedTrees()
	if n != 2 {
		t.Fatalf("CountCachedTrees() = %d, want 2", n)
	}

	payload, ok, _ := db.GetCachedTree("new", 0, t0)
	if !ok || string(payload) != "3" {
		t.Errorf("replaced payload = %q, ok %v", payload, ok)
	}

	removed, err := db.PurgeCachedTrees(t0.Add(time.Hour))
	if err != nil {
		t.Fatalf("PurgeCachedTrees() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("PurgeCachedTrees() = %d, want 1", removed)
	}
}
