package p2p

import (
	"path/filepath"
	"testing"
)

func TestLoadOrCreateIdentityKeyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keys", "identity.key")

	created, err := loadOrCreateIdentityKey(path)
	if err != nil {
		t.Fatalf("create key: %v", err)
	}
	loaded, err := loadOrCreateIdentityKey(path)
	if err != nil {
		t.Fatalf("reload key: %v", err)
	}
	if !created.Equals(loaded) {
		t.Fatal("reloaded key differs from created key")
	}
}

func TestLoadOrCreateIdentityKeyDistinctFiles(t *testing.T) {
	dir := t.TempDir()
	k1, err := loadOrCreateIdentityKey(filepath.Join(dir, "a.key"))
	if err != nil {
		t.Fatalf("create a: %v", err)
	}
	k2, err := loadOrCreateIdentityKey(filepath.Join(dir, "b.key"))
	if err != nil {
		t.Fatalf("create b: %v", err)
	}
	if k1.Equals(k2) {
		t.Fatal("distinct key files produced identical keys")
	}
}
