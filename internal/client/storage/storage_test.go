package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_FileNotExist(t *testing.T) {
	fs := NewFileStore(filepath.Join(t.TempDir(), "missing.json"))
	if err := fs.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, ok := fs.Get(TokenKey); ok {
		t.Error("expected empty store")
	}
}

func TestLoad_FileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	buf, _ := json.Marshal(map[string]string{TokenKey: "abc"})
	if err := os.WriteFile(path, buf, 0o600); err != nil {
		t.Fatal(err)
	}

	fs := NewFileStore(path)
	if err := fs.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if v, ok := fs.Get(TokenKey); !ok || v != "abc" {
		t.Errorf("Get = %q, %v; want abc, true", v, ok)
	}
}

func TestLoad_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	if err := os.WriteFile(path, []byte("not-json"), 0o600); err != nil {
		t.Fatal(err)
	}
	fs := NewFileStore(path)
	if err := fs.Load(); err == nil {
		t.Fatal("expected decode error")
	}
	if _, ok := fs.Get(TokenKey); ok {
		t.Error("corrupt file must leave the store empty")
	}
}

func TestSetDelete_Persist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	fs := NewFileStore(path)
	if err := fs.Set(TokenKey, "t1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := fs.Set(UserKey, `{"id":"u1"}`); err != nil {
		t.Fatalf("Set: %v", err)
	}

	reopened := NewFileStore(path)
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v, _ := reopened.Get(UserKey); v != `{"id":"u1"}` {
		t.Errorf("user = %q", v)
	}

	if err := fs.Delete(TokenKey, UserKey); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := reopened.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, ok := reopened.Get(TokenKey); ok {
		t.Error("token should be gone after Delete")
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("mode = %v; want 0600", info.Mode().Perm())
	}
}

func TestNewFileStore_Default(t *testing.T) {
	if fs := NewFileStore(""); fs.Path != DefaultFile {
		t.Errorf("Path = %q; want %q", fs.Path, DefaultFile)
	}
}
