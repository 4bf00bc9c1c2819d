package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/AaronLay10/StoryLoom/internal/storage"
)

func openStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scripts.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})
	return s, path
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open("  "); err == nil {
		t.Fatal("expected error")
	}
}

func TestScriptRoundTrip(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := s.Put(ctx, storage.Script{Name: "hello", Source: "v1", UpdatedAt: at}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, storage.Script{Name: "hello", Source: "v2", UpdatedAt: at.Add(time.Minute)}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Get(ctx, "hello")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Source != "v2" {
		t.Errorf("expected v2, got %q", got.Source)
	}
	if !got.UpdatedAt.Equal(at.Add(time.Minute)) {
		t.Errorf("unexpected updated time %v", got.UpdatedAt)
	}
}

func TestListAndDelete(t *testing.T) {
	s, _ := openStore(t)
	ctx := context.Background()
	for _, n := range []string{"b", "a", "c"} {
		if err := s.Put(ctx, storage.Script{Name: n, Source: n}); err != nil {
			t.Fatalf("put %s: %v", n, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 || list[0].Name != "a" || list[2].Name != "c" {
		t.Fatalf("unexpected list %+v", list)
	}

	if err := s.Delete(ctx, "b"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, "b"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Get(ctx, "b"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Put(context.Background(), storage.Script{Name: "kept", Source: "x"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	_ = s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), "kept"); err != nil {
		t.Errorf("expected script after reopen: %v", err)
	}
}

func TestPutRejectsInvalidName(t *testing.T) {
	s, _ := openStore(t)
	if err := s.Put(context.Background(), storage.Script{Name: "../x"}); err == nil {
		t.Error("expected error")
	}
}
