package auth

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	return NewFileStore(filepath.Join(t.TempDir(), "session.yaml"))
}

func TestFileStoreRoundTrip(t *testing.T) {
	store := newTestFileStore(t)

	if err := store.Save(&Credentials{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got == nil || got.AccessToken != "a1" || got.RefreshToken != "r1" {
		t.Errorf("Load = %+v, want saved pair", got)
	}
}

func TestFileStoreLoadMissing(t *testing.T) {
	store := newTestFileStore(t)

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Errorf("Load of missing file = %+v, want nil", got)
	}
}

func TestFileStoreClear(t *testing.T) {
	store := newTestFileStore(t)

	if err := store.Save(&Credentials{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got, _ := store.Load(); got != nil {
		t.Error("Load after Clear should return nil")
	}

	// Clearing an already-empty store is a no-op.
	if err := store.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
}

func TestFileStoreIncompletePairTreatedAsAbsent(t *testing.T) {
	store := newTestFileStore(t)

	if err := os.WriteFile(store.path, []byte("access_token: only-half\n"), 0600); err != nil {
		t.Fatal(err)
	}
	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != nil {
		t.Errorf("a pair missing its refresh token should load as no session, got %+v", got)
	}
}

func TestFileStorePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("file modes are not meaningful on windows")
	}
	store := newTestFileStore(t)

	if err := store.Save(&Credentials{AccessToken: "a1", RefreshToken: "r1"}); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(store.path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("session file mode = %o, want 0600", perm)
	}
}
